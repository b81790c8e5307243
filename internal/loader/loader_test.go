package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/spread/internal/constants"
	"github.com/nvandessel/spread/internal/models"
)

func TestReadMap(t *testing.T) {
	input := `# id x y area suitable
1 0.0 0.0 10 8

2 1.5 -2 4 4 120 30.5 0.25
`
	got, err := ReadMap(strings.NewReader(input), "map.txt")
	if err != nil {
		t.Fatalf("ReadMap() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadMap() returned %d records, want 2", len(got))
	}
	want0 := models.MapRecord{ID: 1, X: 0, Y: 0, Area: 10, SuitableArea: 8}
	if got[0] != want0 {
		t.Errorf("record 0 = %+v, want %+v", got[0], want0)
	}
	want1 := models.MapRecord{ID: 2, X: 1.5, Y: -2, Area: 4, SuitableArea: 4, HasCovariates: true, Population: 120, PopulationDensity: 30.5, RoadDensity: 0.25}
	if got[1] != want1 {
		t.Errorf("record 1 = %+v, want %+v", got[1], want1)
	}
}

func TestReadNetwork(t *testing.T) {
	input := "1 2 1 0 0 0 0 3\n-1 2 0 0 2 0 0 0\n"
	got, err := ReadNetwork(strings.NewReader(input), "network.txt")
	if err != nil {
		t.Fatalf("ReadNetwork() error = %v", err)
	}
	want := []models.NetworkRecord{
		{ID1: 1, ID2: 2, Roads: [constants.RoadCategories]float64{1, 0, 0, 0, 0, 3}},
		{ID1: constants.SinkID, ID2: 2, Roads: [constants.RoadCategories]float64{0, 0, 2, 0, 0, 0}},
	}
	if len(got) != len(want) {
		t.Fatalf("ReadNetwork() returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadSample(t *testing.T) {
	got, err := ReadSample(strings.NewReader("3.0 1 4\n"), "sample.txt")
	if err != nil {
		t.Fatalf("ReadSample() error = %v", err)
	}
	want := models.SampleRecord{ID: 3, YObs: 1, NObs: 4}
	if len(got) != 1 || got[0] != want {
		t.Errorf("ReadSample() = %+v, want [%+v]", got, want)
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		read    func(string) error
		input   string
		wantSub string
	}{
		{"map short record", readMap, "1 0 0 1\n", "map.txt:1: got 4 fields, want 5 or 8"},
		{"map six fields", readMap, "1 0 0 1 1 5\n", "want 5 or 8"},
		{"map bad number", readMap, "\n1 0 x 1 1\n", `map.txt:2: field 3: invalid number "x"`},
		{"map bad id", readMap, "a 0 0 1 1\n", `invalid id "a"`},
		{"map fractional id", readMap, "1.5 0 0 1 1\n", `invalid id "1.5"`},
		{"network short", readNetwork, "1 2 1 1\n", "want 8"},
		{"sample long", readSample, "1 2 3 4\n", "want 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", err, tt.wantSub)
			}
		})
	}
}

func readMap(s string) error {
	_, err := ReadMap(strings.NewReader(s), "map.txt")
	return err
}

func readNetwork(s string) error {
	_, err := ReadNetwork(strings.NewReader(s), "network.txt")
	return err
}

func readSample(s string) error {
	_, err := ReadSample(strings.NewReader(s), "sample.txt")
	return err
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}
	mapPath := write("map.txt", "1 0 0 1 1\n2 1 0 1 1\n")
	netPath := write("network.txt", "1 2 1 1 1 1 1 1\n")
	samplePath := write("sample.txt", "2 1 2\n")

	in, err := LoadAll(mapPath, netPath, samplePath)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(in.Maps) != 2 || len(in.Network) != 1 || len(in.Samples) != 1 {
		t.Errorf("LoadAll() = %d/%d/%d records, want 2/1/1", len(in.Maps), len(in.Network), len(in.Samples))
	}

	_, err = LoadAll(mapPath, filepath.Join(dir, "missing.txt"), samplePath)
	if err == nil || !strings.Contains(err.Error(), "missing.txt") {
		t.Errorf("LoadAll() with missing file error = %v, want path in message", err)
	}
}
