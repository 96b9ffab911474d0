// Package dynamo drives a [world.World] through a timed run.
//
// The package defines the run-level types shared by the CLI, storage and
// metrics packages:
//
//   - [State]: one sample of every spring's anchor separation
//   - [Metric]: accumulates a scalar over a run
//   - [Observer]: receives every step with its solver statistics
//   - [Simulator]: orchestrates a run
//   - [Ensemble]: runs independent worlds concurrently
//
// # Example
//
//	w, _, err := config.GetPreset("oscillator").Build()
//	if err != nil {
//		return err
//	}
//	sim := dynamo.New()
//	sim.AddMetric(metrics.NewEnergyDrift())
//	result, err := sim.Run(ctx, w, dynamo.DefaultConfig())
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. For parallel runs, use the
// [Ensemble] type which builds a fresh world and simulator per run.
package dynamo
