package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrShortSeries = errors.New("series too short for spectral analysis")

const minSamples = 8

type Spectrum struct {
	Frequencies []float64
	Power       []float64
}

// PowerSpectrum returns the one-sided power spectrum of x sampled every dt
// seconds. The mean is removed and a Hann window applied before the
// transform. The zero-frequency bin is included.
func PowerSpectrum(x []float64, dt float64) (*Spectrum, error) {
	n := len(x)
	if n < minSamples || !(dt > 0) {
		return nil, ErrShortSeries
	}

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range x {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}

	coeffs := fft.FFTReal(windowed)
	half := n/2 + 1
	s := &Spectrum{
		Frequencies: make([]float64, half),
		Power:       make([]float64, half),
	}
	for k := 0; k < half; k++ {
		a := cmplx.Abs(coeffs[k])
		s.Frequencies[k] = float64(k) / (float64(n) * dt)
		s.Power[k] = a * a
	}
	return s, nil
}

// Peak returns the frequency of the strongest non-zero bin, refined by a
// parabola through its neighbours.
func (s *Spectrum) Peak() float64 {
	best := 1
	for k := 2; k < len(s.Power); k++ {
		if s.Power[k] > s.Power[best] {
			best = k
		}
	}
	if best <= 0 || best >= len(s.Power)-1 {
		return s.Frequencies[best]
	}

	// log-magnitude parabola
	a := math.Log(s.Power[best-1] + 1e-300)
	b := math.Log(s.Power[best] + 1e-300)
	c := math.Log(s.Power[best+1] + 1e-300)
	den := a - 2*b + c
	offset := 0.0
	if den != 0 {
		offset = 0.5 * (a - c) / den
	}
	if offset > 0.5 || offset < -0.5 {
		offset = 0
	}
	df := s.Frequencies[1] - s.Frequencies[0]
	return s.Frequencies[best] + offset*df
}

func DominantFrequency(x []float64, dt float64) (float64, error) {
	s, err := PowerSpectrum(x, dt)
	if err != nil {
		return 0, err
	}
	return s.Peak(), nil
}

// DampingRatio estimates zeta from the logarithmic decrement between
// successive maxima of x - rest. It returns 0 when fewer than two maxima
// are found.
func DampingRatio(x []float64, rest float64) float64 {
	var peaks []float64
	for i := 1; i < len(x)-1; i++ {
		v := x[i] - rest
		if v > 0 && v > x[i-1]-rest && v >= x[i+1]-rest {
			peaks = append(peaks, v)
		}
	}
	if len(peaks) < 2 {
		return 0
	}

	delta := math.Log(peaks[0]/peaks[len(peaks)-1]) / float64(len(peaks)-1)
	return delta / math.Sqrt(4*math.Pi*math.Pi+delta*delta)
}
