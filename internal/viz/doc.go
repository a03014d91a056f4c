// Package viz renders sweep results and progress in the terminal.
//
//   - [Heatmap]: ΔP_CO2 over the seafloor grid, one cell per point
//   - [Curve]: asciigraph line plot of a series
//   - [Canvas]: Braille pixel canvas, used for depth profiles
//   - [SweepModel]: Bubble Tea progress view fed by a sweep's Progress channel
//
// # Key Bindings
//
//	T     - Cycle color themes
//	Q     - Cancel the sweep and quit
package viz
