package scenario

import (
	"math"
	"reflect"
	"testing"
)

// AssertMonotonicColonization asserts that no repetition ever loses a node:
// once occupied, a node stays occupied in every later snapshot.
func AssertMonotonicColonization(t *testing.T, result Result) {
	t.Helper()
	for i := 1; i < len(result.Snapshots); i++ {
		prev, cur := result.Snapshots[i-1], result.Snapshots[i]
		for id, reps := range prev.Occupied {
			for rep, occ := range reps {
				if occ && !cur.Occupied[id][rep] {
					t.Errorf("AssertMonotonicColonization: node %d rep %d lost occupancy at iteration %d", id, rep, cur.Iteration)
				}
			}
		}
	}
}

// AssertReachedBy asserts that node id is occupied in at least minFraction of
// the repetitions after the given iteration.
func AssertReachedBy(t *testing.T, result Result, id, iteration int, minFraction float64) {
	t.Helper()
	if iteration >= len(result.Snapshots) {
		t.Fatalf("AssertReachedBy: iteration %d not simulated (have %d snapshots)", iteration, len(result.Snapshots))
	}
	if got := result.Snapshots[iteration].Fraction(id); got < minFraction {
		t.Errorf("AssertReachedBy: node %d at iteration %d occupied in %.2f of repetitions, want >= %.2f", id, iteration, got, minFraction)
	}
}

// AssertNotReachedBefore asserts that node id is unoccupied in every
// repetition of every snapshot before the given iteration.
func AssertNotReachedBefore(t *testing.T, result Result, id, iteration int) {
	t.Helper()
	for _, s := range result.Snapshots {
		if s.Iteration >= iteration {
			break
		}
		if got := s.Fraction(id); got > 0 {
			t.Errorf("AssertNotReachedBefore: node %d occupied in %.2f of repetitions at iteration %d (< %d)", id, got, s.Iteration, iteration)
		}
	}
}

// AssertNeverReached asserts that node id stays unoccupied for the whole run.
func AssertNeverReached(t *testing.T, result Result, id int) {
	t.Helper()
	AssertNotReachedBefore(t, result, id, math.MaxInt)
}

// AssertOccupancyNonDecreasing asserts that the overall occupied fraction
// never drops between consecutive iterations.
func AssertOccupancyNonDecreasing(t *testing.T, result Result) {
	t.Helper()
	prev := 0.0
	for _, s := range result.Snapshots[1:] {
		if s.Tally.Occupied+1e-12 < prev {
			t.Errorf("AssertOccupancyNonDecreasing: occupied fraction fell from %.4f to %.4f at iteration %d", prev, s.Tally.Occupied, s.Iteration)
		}
		prev = s.Tally.Occupied
	}
}

// AssertAbsorbedFraction asserts that the share of jumps lost through sink
// edges over the whole run is within tol of want.
func AssertAbsorbedFraction(t *testing.T, result Result, want, tol float64) {
	t.Helper()
	jumps, absorbed := 0, 0
	for _, s := range result.Snapshots {
		jumps += s.Tally.Jumps
		absorbed += s.Tally.Absorbed
	}
	if jumps == 0 {
		t.Fatal("AssertAbsorbedFraction: no jumps were emitted")
	}
	got := float64(absorbed) / float64(jumps)
	if math.Abs(got-want) > tol {
		t.Errorf("AssertAbsorbedFraction: %d/%d = %.4f absorbed, want %.4f +/- %.4f", absorbed, jumps, got, want, tol)
	}
}

// AssertTallyBalanced asserts that every jump of every iteration ended in
// exactly one of introduction, absorption or waste.
func AssertTallyBalanced(t *testing.T, result Result) {
	t.Helper()
	for _, s := range result.Snapshots[1:] {
		r := s.Tally
		if r.Introductions+r.Absorbed+r.Wasted != r.Jumps {
			t.Errorf("AssertTallyBalanced: iteration %d: %d introductions + %d absorbed + %d wasted != %d jumps",
				s.Iteration, r.Introductions, r.Absorbed, r.Wasted, r.Jumps)
		}
		if r.Stalled > r.Introductions {
			t.Errorf("AssertTallyBalanced: iteration %d: %d stalled > %d introductions", s.Iteration, r.Stalled, r.Introductions)
		}
	}
}

// AssertScoreImproves asserts that the final score is strictly below the
// empty baseline.
func AssertScoreImproves(t *testing.T, result Result) {
	t.Helper()
	if result.ScoreErr != nil {
		t.Fatalf("AssertScoreImproves: score error: %v", result.ScoreErr)
	}
	if !(result.Score < result.EmptyScore) {
		t.Errorf("AssertScoreImproves: score %.6g not below empty score %.6g", result.Score, result.EmptyScore)
	}
}

// AssertLineageConsistent asserts that every lineage event lands on a node
// that is occupied in its repetition from the event's iteration on, and that
// no walk took more than maxHops hops.
func AssertLineageConsistent(t *testing.T, result Result, maxHops int) {
	t.Helper()
	for i, ev := range result.Lineage {
		if ev.Hops > maxHops {
			t.Errorf("AssertLineageConsistent: event %d: %d hops > max %d", i, ev.Hops, maxHops)
		}
		if ev.Iteration < 1 || ev.Iteration >= len(result.Snapshots) {
			t.Errorf("AssertLineageConsistent: event %d: iteration %d out of range", i, ev.Iteration)
			continue
		}
		reps, ok := result.Snapshots[ev.Iteration].Occupied[ev.EndID]
		if !ok {
			t.Errorf("AssertLineageConsistent: event %d: unknown end node %d", i, ev.EndID)
			continue
		}
		if !reps[ev.Repetition] {
			t.Errorf("AssertLineageConsistent: event %d: node %d not occupied in rep %d after iteration %d", i, ev.EndID, ev.Repetition, ev.Iteration)
		}
	}
}

// AssertSameTrajectory asserts that two runs committed identical occupancy
// and tallies at every iteration.
func AssertSameTrajectory(t *testing.T, a, b Result) {
	t.Helper()
	if len(a.Snapshots) != len(b.Snapshots) {
		t.Fatalf("AssertSameTrajectory: %d snapshots vs %d", len(a.Snapshots), len(b.Snapshots))
	}
	for i := range a.Snapshots {
		sa, sb := a.Snapshots[i], b.Snapshots[i]
		if !reflect.DeepEqual(sa.Occupied, sb.Occupied) {
			t.Errorf("AssertSameTrajectory: iteration %d: occupancy differs", sa.Iteration)
		}
		ta, tb := sa.Tally, sb.Tally
		ta.Lineage, tb.Lineage = nil, nil
		if !reflect.DeepEqual(ta, tb) {
			t.Errorf("AssertSameTrajectory: iteration %d: tally %+v vs %+v", sa.Iteration, ta, tb)
		}
	}
}

// OccupiedNodes returns the number of nodes occupied in at least one
// repetition of the final snapshot.
func OccupiedNodes(result Result) int {
	count := 0
	for id := range result.Final().Occupied {
		if result.Final().Fraction(id) > 0 {
			count++
		}
	}
	return count
}
