// Package analysis extracts oscillation properties from sampled spring
// separations.
//
//	freq, err := analysis.DominantFrequency(samples.Series(0), dt)
package analysis
