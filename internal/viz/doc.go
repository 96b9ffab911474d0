// Package viz renders simulation output in the terminal: line plots of
// separations and energy, styled tables, and a live Bubble Tea view of a
// running world.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial world
//	Tab   - Select next spring
//	Up/K  - Stiffen selected spring (+10%)
//	Down/J- Soften selected spring (-10%)
//	L     - Toggle limits on selected spring
//	T     - Cycle color themes
//	Q     - Quit
package viz
