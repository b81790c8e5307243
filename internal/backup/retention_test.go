package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func infos(ages ...time.Duration) []Info {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	out := make([]Info, len(ages))
	for i, age := range ages {
		out[i] = Info{Path: filepath.Join("b", string(rune('a'+i))), Size: 100, CreatedAt: now.Add(-age)}
	}
	return out
}

func TestCountPolicy(t *testing.T) {
	p := &CountPolicy{MaxCount: 2}
	if got := p.Apply(infos(0, time.Hour, 2*time.Hour)); len(got) != 2 {
		t.Errorf("kept %d, want 2", len(got))
	}
	if got := p.Apply(infos(0)); len(got) != 1 {
		t.Errorf("kept %d, want 1", len(got))
	}
}

func TestAgePolicy(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := &AgePolicy{MaxAge: 48 * time.Hour, Now: func() time.Time { return now }}
	got := p.Apply(infos(time.Hour, 24*time.Hour, 72*time.Hour))
	if len(got) != 2 {
		t.Errorf("kept %d, want 2", len(got))
	}
}

func TestSizePolicy(t *testing.T) {
	p := &SizePolicy{MaxTotalBytes: 250}
	if got := p.Apply(infos(0, time.Hour, 2*time.Hour)); len(got) != 2 {
		t.Errorf("kept %d, want 2", len(got))
	}
	tiny := &SizePolicy{MaxTotalBytes: 10}
	if got := tiny.Apply(infos(0, time.Hour)); len(got) != 1 {
		t.Errorf("kept %d, want the newest archive only", len(got))
	}
}

func TestCompositePolicy_Intersects(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := &CompositePolicy{Policies: []RetentionPolicy{
		&CountPolicy{MaxCount: 3},
		&AgePolicy{MaxAge: 36 * time.Hour, Now: func() time.Time { return now }},
	}}
	got := p.Apply(infos(0, 24*time.Hour, 48*time.Hour, 96*time.Hour))
	if len(got) != 2 {
		t.Errorf("kept %d, want 2", len(got))
	}
}

func TestListAndApplyRetention(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"spread-runs-20260301-000000.bak",
		"spread-runs-20260302-000000.bak",
		"spread-runs-20260303-000000.bak",
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	list, err := List(dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 || filepath.Base(list[0].Path) != names[2] {
		t.Fatalf("List() = %+v, want 3 archives newest first", list)
	}

	deleted, err := ApplyRetention(dir, &CountPolicy{MaxCount: 1})
	if err != nil {
		t.Fatalf("ApplyRetention() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted %d, want 2", len(deleted))
	}
	if _, err := os.Stat(filepath.Join(dir, names[2])); err != nil {
		t.Errorf("newest archive removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestList_MissingDir(t *testing.T) {
	list, err := List(filepath.Join(t.TempDir(), "absent"))
	if err != nil || list != nil {
		t.Errorf("List() = %v, %v; want nil, nil", list, err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"720h", 720 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"5y", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"500B", 500, false},
		{"2KB", 2048, false},
		{"100MB", 100 << 20, false},
		{"1GB", 1 << 30, false},
		{"", 0, true},
		{"12", 0, true},
		{"xMB", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSize(%q) = %v, %v", tt.in, got, err)
		}
	}
}
