// Package realtime drives the pump's two charts once per control cycle.
//
// Every cycle the driver applies the stimulus patches that have fallen due,
// evaluates the alarm chart, hands its output to the infusion chart,
// publishes the cycle record and checks the safety properties. A safety
// violation halts the driver; every later Step returns the same error.
//
// # Example Usage
//
//	d, _ := realtime.NewDriver(alarmChart, infusionChart, realtime.Config{
//		TickRate: 100 * time.Millisecond,
//		Base:     scenario.Base,
//		Patches:  scenario.Patches,
//	})
//	err := d.Run(ctx, scenario.Ticks)
//
// Run executes a fixed number of cycles back to back and is what tests and
// the CLI use. Start runs cycles on a ticker until Stop.
//
// # Patch Ordering
//
// Patches due on the same cycle are ordered by:
//  1. Tick (earlier first, later ticks override)
//  2. Priority (higher first; the first patch to set a signal wins)
//  3. Sequence number (FIFO for same priority)
//
// # Pipeline
//
// Pipeline runs the two charts on separate goroutines. Channels carry the
// alarm output forward and the infusion output back, so a cycle's infusion
// evaluation never overlaps the next cycle's alarm evaluation and the
// results match the sequential driver exactly.
package realtime
