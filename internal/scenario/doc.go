// Package scenario provides a test harness for validating emergent dynamics
// of the spread process.
//
// The harness exercises the real graph builder, Simulation driver and SQLite
// run log with no mocks. Scenarios are declarative node, edge and sample
// specs; the Runner builds the graph, runs every iteration, and captures a
// per-iteration occupancy snapshot for property-based assertions.
//
// Each test gets an isolated run log via t.TempDir().
//
// Usage:
//
//	func TestChainPropagation(t *testing.T) {
//	    r := scenario.NewRunner(t)
//	    result := r.Run(scenario.Scenario{
//	        Name:  "chain",
//	        Nodes: scenario.Line(3),
//	        Edges: scenario.Chain(1, 2, 3),
//	        Configure: func(p *models.Parameters) { p.Lambda = 40; p.Iterations = 2 },
//	    })
//	    scenario.AssertReachedBy(t, result, 3, 2, 1.0)
//	}
package scenario
