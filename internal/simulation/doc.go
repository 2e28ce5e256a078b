// Package simulation provides a multi-window test harness for validating the
// learning dynamics of the signaling game.
//
// The simulation exercises the real trial engine, urn model, artifact store,
// and classifier; no mocks. A Scenario names a configuration, the trial
// indices to play, and how many windows to split training into. After each
// window the harness captures correctness and the smallest urn weight, so
// tests can assert properties of the whole learning curve rather than only
// its end point.
//
// Each test gets an isolated output root via t.TempDir().
//
// Usage:
//
//	func TestLearnsToSignal(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:    "learns",
//	        Config:  cfg,
//	        Trials:  []int{0, 1, 2},
//	        Windows: 10,
//	    })
//	    simulation.AssertAboveBaseline(t, result, 0.5)
//	}
package simulation
