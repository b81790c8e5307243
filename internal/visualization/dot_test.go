package visualization

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/prng"
)

// buildPair builds two connected cells; cell 1 is founded in every
// repetition and cell 2 also has a sink edge.
func buildPair(t *testing.T) *graph.Graph {
	t.Helper()
	p := models.DefaultParameters()
	p.Repetitions = 2
	maps := []models.MapRecord{
		{ID: 1, Area: 1, SuitableArea: 1},
		{ID: 2, X: 1, Area: 1, SuitableArea: 1},
	}
	network := []models.NetworkRecord{
		{ID1: 1, ID2: 2, Roads: [6]float64{1}},
		{ID1: 2, ID2: -1, Roads: [6]float64{2}},
	}
	g, err := graph.Build(p, prng.New(1), maps, network, nil)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	return g
}

func TestRenderDOT(t *testing.T) {
	dot := RenderDOT(buildPair(t))

	if !strings.HasPrefix(dot, "graph spread {") {
		t.Error("expected graph header")
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Error("expected closing brace")
	}
	if !strings.Contains(dot, `"n1" [pos="0,0!", fillcolor="#ff0000"`) {
		t.Errorf("founded node should be red:\n%s", dot)
	}
	if !strings.Contains(dot, `"n2" [pos="1,0!", fillcolor="#ffffff"`) {
		t.Errorf("empty node should be white:\n%s", dot)
	}
	if got := strings.Count(dot, `"n1" -- "n2"`); got != 1 {
		t.Errorf("edge n1--n2 rendered %d times, want 1", got)
	}
	if !strings.Contains(dot, `"n2" -- "sink"`) {
		t.Error("expected sink edge")
	}
	if !strings.Contains(dot, `"sink" [shape=doublecircle`) {
		t.Error("expected sink node declaration")
	}
}

func TestRenderJSON(t *testing.T) {
	out := RenderJSON(buildPair(t))
	if got := out["node_count"]; got != 2 {
		t.Errorf("node_count = %v, want 2", got)
	}
	if got := out["edge_count"]; got != 2 {
		t.Errorf("edge_count = %v, want 2", got)
	}
	nodes := out["nodes"].([]map[string]interface{})
	if nodes[0]["p_sim"] != 1.0 {
		t.Errorf("nodes[0].p_sim = %v, want 1", nodes[0]["p_sim"])
	}
	edges := out["edges"].([]map[string]interface{})
	if edges[1]["sink"] != true || edges[1]["target"] != "sink" {
		t.Errorf("edges[1] = %v, want sink edge", edges[1])
	}
}

func TestPrevalenceColor(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "#ffffff"},
		{1, "#ff0000"},
		{0.5, "#ff8080"},
		{-1, "#ffffff"},
		{2, "#ff0000"},
	}
	for _, tt := range tests {
		if got := prevalenceColor(tt.p); got != tt.want {
			t.Errorf("prevalenceColor(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"dot", FormatDOT, false},
		{" JSON ", FormatJSON, false},
		{"html", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderOccupancyPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderOccupancyPNG(&buf, []float64{0.1, 0.3, 0.6, 0.8}); err != nil {
		t.Fatalf("RenderOccupancyPNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestRenderCurvesPNG_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderCurvesPNG(&buf, "y", nil); err == nil {
		t.Error("expected error for no curves")
	}
	if err := RenderCurvesPNG(&buf, "y", []Curve{{Name: "short", Values: []float64{1}}}); err == nil {
		t.Error("expected error for a single-point curve")
	}
}
