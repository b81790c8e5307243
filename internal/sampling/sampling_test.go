package sampling

import (
	"errors"
	"testing"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/prng"
)

// founded builds three isolated cells where only the introduction cell (id 1)
// is occupied, in every repetition.
func founded(t *testing.T) *graph.Graph {
	t.Helper()
	p := models.DefaultParameters()
	p.Repetitions = 4
	maps := []models.MapRecord{
		{ID: 1, Area: 1, SuitableArea: 1},
		{ID: 2, X: 5, Area: 1, SuitableArea: 1},
		{ID: 3, X: 9, Area: 1, SuitableArea: 1},
	}
	g, err := graph.Build(p, prng.New(1), maps, nil, nil)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	return g
}

func TestDraw_Homogeneous(t *testing.T) {
	g := founded(t)
	got, err := Draw(g, prng.New(3), Homogeneous, 300, nil)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Draw() returned %d records, want 3 (every node sampled with high probability)", len(got))
	}

	total := 0.0
	for i, rec := range got {
		if want := i + 1; rec.ID != want {
			t.Errorf("record %d id = %d, want %d (load order)", i, rec.ID, want)
		}
		total += rec.NObs
		switch rec.ID {
		case 1:
			if rec.YObs != rec.NObs {
				t.Errorf("occupied node: y = %v, want n = %v", rec.YObs, rec.NObs)
			}
		default:
			if rec.YObs != 0 {
				t.Errorf("node %d: y = %v, want 0", rec.ID, rec.YObs)
			}
		}
	}
	if total != 300 {
		t.Errorf("total trials = %v, want 300", total)
	}
}

func TestDraw_Imitate(t *testing.T) {
	g := founded(t)
	template := []models.SampleRecord{{ID: 3, YObs: 0, NObs: 7}, {ID: 1, YObs: 2, NObs: 5}}
	got, err := Draw(g, prng.New(3), Imitate, 0, template)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	want := []models.SampleRecord{{ID: 1, YObs: 5, NObs: 5}, {ID: 3, YObs: 0, NObs: 7}}
	if len(got) != len(want) {
		t.Fatalf("Draw() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDraw_Errors(t *testing.T) {
	g := founded(t)
	if _, err := Draw(g, prng.New(1), Homogeneous, 0, nil); err == nil {
		t.Error("expected error for zero sample size")
	}
	if _, err := Draw(g, prng.New(1), Imitate, 0, nil); err == nil {
		t.Error("expected error for empty template")
	}
	_, err := Draw(g, prng.New(1), Imitate, 0, []models.SampleRecord{{ID: 42, NObs: 1}})
	if !errors.Is(err, graph.ErrUnknownNode) {
		t.Errorf("Draw() error = %v, want ErrUnknownNode", err)
	}
	if _, err := Draw(g, prng.New(1), Strategy("stratified"), 10, nil); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
