package scenario_test

import (
	"reflect"
	"testing"

	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/scenario"
)

func gridScenario(workers int) scenario.Scenario {
	return scenario.Scenario{
		Name:    "grid",
		Seed:    42,
		Nodes:   scenario.GridNodes(5),
		Edges:   scenario.GridEdges(5),
		Workers: workers,
		Configure: func(p *models.Parameters) {
			p.Lambda = 2
			p.Iterations = 4
			p.JumpLaw = models.JumpNormal
			p.Mu = 1.5
			p.Sigma = 1
		},
	}
}

func TestSameSeedSameTrajectory(t *testing.T) {
	r := scenario.NewRunner(t)
	a := r.Run(gridScenario(1))
	b := r.Run(gridScenario(1))

	scenario.AssertSameTrajectory(t, a, b)
	if !reflect.DeepEqual(a.Lineage, b.Lineage) {
		t.Error("lineage differs between runs with the same seed")
	}
	if a.RunID == b.RunID {
		t.Errorf("expected distinct run ids, both %q", a.RunID)
	}
}

func TestParallelIndependentOfWorkers(t *testing.T) {
	r := scenario.NewRunner(t)
	two := r.Run(gridScenario(2))
	four := r.Run(gridScenario(4))

	scenario.AssertSameTrajectory(t, two, four)
	if !reflect.DeepEqual(two.Lineage, four.Lineage) {
		t.Error("lineage differs between 2 and 4 workers")
	}
	scenario.AssertMonotonicColonization(t, two)
	scenario.AssertTallyBalanced(t, two)
}
