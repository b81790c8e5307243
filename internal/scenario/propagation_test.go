package scenario_test

import (
	"testing"

	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/scenario"
)

// TestChainPropagation checks that a one-hop walk advances the front by one
// node per iteration and never reaches a disconnected cell.
func TestChainPropagation(t *testing.T) {
	r := scenario.NewRunner(t)
	result := r.Run(scenario.Scenario{
		Name:  "chain",
		Nodes: scenario.Line(4),
		Edges: scenario.Chain(1, 2, 3),
		Configure: func(p *models.Parameters) {
			p.Lambda = 40
			p.Iterations = 3
		},
	})

	scenario.AssertReachedBy(t, result, 1, 0, 1.0)
	scenario.AssertReachedBy(t, result, 2, 1, 1.0)
	scenario.AssertNotReachedBefore(t, result, 3, 2)
	scenario.AssertReachedBy(t, result, 3, 2, 1.0)
	scenario.AssertNeverReached(t, result, 4)

	scenario.AssertMonotonicColonization(t, result)
	scenario.AssertOccupancyNonDecreasing(t, result)
	scenario.AssertTallyBalanced(t, result)
	scenario.AssertLineageConsistent(t, result, 1)

	if t.Failed() {
		for _, s := range result.Snapshots {
			t.Log(scenario.FormatSnapshotDebug(s, 1, 2, 3, 4))
		}
	}
}

// TestLongJumpSkipsIntermediate checks that a two-hop walk passes through the
// middle cell without colonizing it.
func TestLongJumpSkipsIntermediate(t *testing.T) {
	r := scenario.NewRunner(t)
	result := r.Run(scenario.Scenario{
		Name:  "long-jump",
		Nodes: scenario.Line(3),
		Edges: scenario.Chain(1, 2, 3),
		Configure: func(p *models.Parameters) {
			p.Lambda = 40
			p.Mu = 2
			p.Iterations = 1
		},
	})

	scenario.AssertReachedBy(t, result, 3, 1, 1.0)
	scenario.AssertNeverReached(t, result, 2)
	for i, ev := range result.Lineage {
		if ev.StartID != 1 || ev.EndID != 3 || ev.Hops != 2 {
			t.Errorf("lineage[%d] = %+v, want 1 -> 3 in 2 hops", i, ev)
		}
		if ev.Euclidean != 2 {
			t.Errorf("lineage[%d].Euclidean = %v, want 2", i, ev.Euclidean)
		}
	}
}

// TestStallIntroducesWhereWalkEnds checks that a walk with no unvisited
// neighbor left ends early on the node it stands on.
func TestStallIntroducesWhereWalkEnds(t *testing.T) {
	r := scenario.NewRunner(t)
	result := r.Run(scenario.Scenario{
		Name:  "stall",
		Nodes: scenario.Line(2),
		Edges: scenario.Chain(1, 2),
		Configure: func(p *models.Parameters) {
			p.Lambda = 10
			p.Mu = 3
			p.Iterations = 1
		},
	})

	tally := result.Snapshots[1].Tally
	if tally.Jumps == 0 {
		t.Fatal("expected jumps from the founded node")
	}
	if tally.Stalled != tally.Jumps || tally.Introductions != tally.Jumps {
		t.Errorf("tally = %+v, want every jump stalled and introduced", tally)
	}
	for i, ev := range result.Lineage {
		if ev.EndID != 2 || ev.Hops != 1 {
			t.Errorf("lineage[%d] = %+v, want end 2 after 1 hop", i, ev)
		}
	}
	scenario.AssertTallyBalanced(t, result)
}

// TestSelfLoopStallsAtStart checks that a walk unable to leave its start node
// still introduces there.
func TestSelfLoopStallsAtStart(t *testing.T) {
	r := scenario.NewRunner(t)
	result := r.Run(scenario.Scenario{
		Name:  "self-loop",
		Nodes: scenario.Line(2),
		Edges: []scenario.EdgeSpec{{From: 1, To: 1, Weight: 1}},
		Configure: func(p *models.Parameters) {
			p.Lambda = 10
			p.Iterations = 2
		},
	})

	for _, s := range result.Snapshots[1:] {
		if s.Tally.Jumps == 0 || s.Tally.Wasted != 0 || s.Tally.Stalled != s.Tally.Jumps {
			t.Errorf("iteration %d: tally = %+v, want every jump stalled", s.Iteration, s.Tally)
		}
	}
	if len(result.Lineage) == 0 {
		t.Fatal("expected lineage events at the start node")
	}
	for i, ev := range result.Lineage {
		if ev.StartID != 1 || ev.EndID != 1 || ev.Hops != 0 {
			t.Errorf("lineage[%d] = %+v, want 1 -> 1 after 0 hops", i, ev)
		}
	}
	scenario.AssertNeverReached(t, result, 2)
	scenario.AssertTallyBalanced(t, result)
}

// TestPartialFounding checks that a founding probability below one leaves
// some repetitions empty and they stay empty without any source.
func TestPartialFounding(t *testing.T) {
	r := scenario.NewRunner(t)
	result := r.Run(scenario.Scenario{
		Name:  "partial-founding",
		Nodes: scenario.Line(2),
		Edges: scenario.Chain(1, 2),
		Configure: func(p *models.Parameters) {
			p.Repetitions = 400
			p.IntroductionProbability = 0.5
			p.Lambda = 40
			p.Iterations = 2
		},
	})

	founded := result.Snapshots[0].Fraction(1)
	if founded < 0.4 || founded > 0.6 {
		t.Errorf("founded fraction = %.3f, want about 0.5", founded)
	}
	final := result.Final()
	for rep, occ := range final.Occupied[2] {
		if occ && !result.Snapshots[0].Occupied[1][rep] {
			t.Errorf("rep %d: node 2 occupied without a founded source", rep)
		}
	}
	scenario.AssertMonotonicColonization(t, result)
}
