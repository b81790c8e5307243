package backup

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/store"
)

func testRecord(id string, started time.Time) store.Record {
	return store.Record{
		Run: store.Run{
			ID:         id,
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			Parameters: models.DefaultParameters(),
			MapFile:    "map.txt",
			EmptyScore: math.NaN(),
			Score:      math.NaN(),
			Jumps:      7,
		},
		States: []graph.NodeState{
			{ID: 1, X: 0, Y: 0, PSim: 1, NSim: 20, YSim: 20, MeanFirstAge: 0},
			{ID: 2, X: 1, Y: 0, PSim: 0, NSim: 20, MeanFirstAge: math.NaN(), Score: math.Inf(1)},
		},
		Lineage: []models.LineageEvent{
			{Repetition: 0, StartID: 1, EndID: 2, Hops: 1, Euclidean: 1, Iteration: 1},
		},
	}
}

func seedStore(t *testing.T, ids ...string) *store.InMemoryRunStore {
	t.Helper()
	s := store.NewInMemoryRunStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range ids {
		if _, err := s.SaveRun(context.Background(), testRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}
	return s
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seedStore(t, "run-a", "run-b")
	path := filepath.Join(t.TempDir(), "runs.bak")

	header, err := Backup(ctx, src, path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if header.RunCount != 2 || header.NodeRows != 4 || header.Lineage != 2 {
		t.Errorf("header = %+v, want 2 runs, 4 node rows, 2 lineage events", header)
	}

	dst := store.NewInMemoryRunStore()
	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RunsRestored != 2 || result.RunsSkipped != 0 {
		t.Errorf("result = %+v, want 2 restored", result)
	}

	runs, err := dst.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Fatalf("restored runs = %v, want run-b then run-a", runs)
	}
	if !math.IsNaN(runs[0].EmptyScore) {
		t.Errorf("EmptyScore = %v, want NaN", runs[0].EmptyScore)
	}
	if runs[0].Jumps != 7 || runs[0].MapFile != "map.txt" {
		t.Errorf("run fields lost: %+v", runs[0])
	}

	states, err := dst.NodeStates(ctx, "run-a")
	if err != nil {
		t.Fatalf("NodeStates() error = %v", err)
	}
	if len(states) != 2 || states[0].PSim != 1 || !math.IsNaN(states[1].MeanFirstAge) || !math.IsInf(states[1].Score, 1) {
		t.Errorf("node states not preserved: %+v", states)
	}
	lineage, err := dst.Lineage(ctx, "run-a")
	if err != nil {
		t.Fatalf("Lineage() error = %v", err)
	}
	if len(lineage) != 1 || lineage[0].EndID != 2 {
		t.Errorf("lineage = %+v", lineage)
	}
}

func TestRestore_MergeSkipsExisting(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.bak")
	if _, err := Backup(ctx, seedStore(t, "run-a", "run-b"), path); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	dst := seedStore(t, "run-a")
	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RunsRestored != 1 || result.RunsSkipped != 1 {
		t.Errorf("result = %+v, want 1 restored, 1 skipped", result)
	}
}

func TestRestore_ReplaceClearsStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.bak")
	if _, err := Backup(ctx, seedStore(t, "run-a"), path); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	dst := seedStore(t, "run-a", "run-x")
	result, err := Restore(ctx, dst, path, RestoreReplace)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RunsDeleted != 2 || result.RunsRestored != 1 {
		t.Errorf("result = %+v, want 2 deleted, 1 restored", result)
	}
	if _, err := dst.GetRun(ctx, "run-x"); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("GetRun(run-x) error = %v, want ErrRunNotFound", err)
	}
}

func TestBackup_EmptyStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "runs.bak")
	header, err := Backup(ctx, store.NewInMemoryRunStore(), path)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if header.RunCount != 0 {
		t.Errorf("RunCount = %d, want 0", header.RunCount)
	}
	archive, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(archive.Records) != 0 {
		t.Errorf("Records = %d, want 0", len(archive.Records))
	}
}

func TestBackup_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.bak")
	if _, err := Backup(context.Background(), seedStore(t, "run-a"), path); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestGeneratePath(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)
	got := GeneratePath("/tmp/b", now)
	want := filepath.Join("/tmp/b", "spread-runs-20260301-090507.bak")
	if got != want {
		t.Errorf("GeneratePath() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(filepath.Base(got), FilePrefix) {
		t.Errorf("missing prefix in %q", got)
	}
}
