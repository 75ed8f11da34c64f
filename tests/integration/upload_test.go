package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mpawlak/statsync/internal/checkpoint"
	"github.com/mpawlak/statsync/internal/errlog"
	"github.com/mpawlak/statsync/internal/etl"
	"github.com/mpawlak/statsync/internal/source"
	"github.com/mpawlak/statsync/pkg/models"
)

// memStore stands in for MongoDB: keyed upserts per collection, with an
// optional failure toggle to simulate an outage mid-run.
type memStore struct {
	collections map[string]map[string]models.Document
	failing     bool
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string]map[string]models.Document)}
}

func (s *memStore) UpsertMany(ctx context.Context, collection string, docs []models.Document) error {
	if s.failing {
		return errors.New("destination unavailable")
	}
	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]models.Document)
		s.collections[collection] = coll
	}
	for _, d := range docs {
		coll[d.Key] = d
	}
	return nil
}

func (s *memStore) Count(ctx context.Context, collection string) (int64, error) {
	return int64(len(s.collections[collection])), nil
}

func writeSeasonCSV(t *testing.T, dir string, players int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("season,player_id,passing_yards,team\n")
	for i := 0; i < players; i++ {
		fmt.Fprintf(&b, "2023,00-%07d,%d,BUF\n", i, 100+i)
	}
	if err := os.WriteFile(filepath.Join(dir, "season_stats_2023.csv"), []byte(b.String()), 0644); err != nil {
		t.Fatalf("writing season csv: %v", err)
	}
}

func writeWeeklyCSV(t *testing.T, dir string, players, weeks int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("season,week,player_id,receiving_yards\n")
	for w := 1; w <= weeks; w++ {
		for i := 0; i < players; i++ {
			fmt.Fprintf(&b, "2023,%d,00-%07d,%d\n", w, i, 10*w+i)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "weekly_stats_2023.csv"), []byte(b.String()), 0644); err != nil {
		t.Fatalf("writing weekly csv: %v", err)
	}
}

func newPipeline(store *memStore, dataDir, stateDir string) *etl.Pipeline {
	return &etl.Pipeline{
		Store:       store,
		Source:      source.NewCSVSource(dataDir),
		Checkpoints: checkpoint.NewStore(filepath.Join(stateDir, "checkpoint.json")),
		Errors:      errlog.New(filepath.Join(stateDir, "errors.json")),
		BatchSize:   50,
		BatchDelay:  0,
		Retry:       etl.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond},
	}
}

func TestUploadEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	stateDir := t.TempDir()
	writeSeasonCSV(t, dataDir, 230)
	writeWeeklyCSV(t, dataDir, 30, 4)

	store := newMemStore()
	p := newPipeline(store, dataDir, stateDir)
	cats := []models.Category{models.CategorySeason, models.CategoryWeekly}

	summary, err := p.Run(context.Background(), cats)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Errors() != 0 {
		t.Errorf("expected a clean run, got %d errors", summary.Errors())
	}

	if n, _ := store.Count(context.Background(), "season_stats"); n != 230 {
		t.Errorf("season_stats count = %d, want 230", n)
	}
	if n, _ := store.Count(context.Background(), "weekly_stats"); n != 120 {
		t.Errorf("weekly_stats count = %d, want 120", n)
	}
	if _, err := os.Stat(p.Checkpoints.Path); !os.IsNotExist(err) {
		t.Error("checkpoint should be cleared after both categories complete")
	}
}

func TestUploadSurvivesOutageAndResumes(t *testing.T) {
	dataDir := t.TempDir()
	stateDir := t.TempDir()
	writeSeasonCSV(t, dataDir, 230)

	store := newMemStore()
	cats := []models.Category{models.CategorySeason}

	// First run: the destination goes down entirely. Every batch fails,
	// nothing is applied, the offset stays at zero, but the run itself is
	// not fatal.
	store.failing = true
	p1 := newPipeline(store, dataDir, stateDir)
	summary, err := p1.Run(context.Background(), cats)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if got := summary.Results[0].FailedBatches; got != 5 {
		t.Errorf("failed batches = %d, want 5", got)
	}
	if n, _ := store.Count(context.Background(), "season_stats"); n != 0 {
		t.Errorf("no documents should be applied during the outage, got %d", n)
	}

	// Second run, destination back: everything uploads from offset 0 and
	// the checkpoint is cleared.
	store.failing = false
	p2 := newPipeline(store, dataDir, stateDir)
	summary, err = p2.Run(context.Background(), cats)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if got := summary.Results[0].Uploaded; got != 230 {
		t.Errorf("uploaded = %d, want 230", got)
	}
	if n, _ := store.Count(context.Background(), "season_stats"); n != 230 {
		t.Errorf("season_stats count = %d, want 230", n)
	}
	if _, err := os.Stat(p2.Checkpoints.Path); !os.IsNotExist(err) {
		t.Error("checkpoint should be cleared after the category completes")
	}

	// A third run over the same files is a fresh start (checkpoint gone)
	// and re-upserts everything without changing the count.
	p3 := newPipeline(store, dataDir, stateDir)
	if _, err := p3.Run(context.Background(), cats); err != nil {
		t.Fatalf("third Run failed: %v", err)
	}
	if n, _ := store.Count(context.Background(), "season_stats"); n != 230 {
		t.Errorf("re-upload changed the count to %d", n)
	}
}

func TestUploadInterruptLeavesConsistentCheckpoint(t *testing.T) {
	dataDir := t.TempDir()
	stateDir := t.TempDir()
	writeSeasonCSV(t, dataDir, 230)

	store := newMemStore()
	p := newPipeline(store, dataDir, stateDir)
	// A visible delay between batches so cancellation lands mid-run.
	p.BatchDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(75 * time.Millisecond)
		cancel()
	}()

	summary, err := p.Run(ctx, []models.Category{models.CategorySeason})
	if err != nil {
		t.Fatalf("interrupted Run should not be fatal: %v", err)
	}
	if !summary.Interrupted {
		t.Fatal("summary should be marked interrupted")
	}

	// Whatever was committed is reflected exactly in the checkpoint.
	cp, err := p.Checkpoints.Load()
	if err != nil {
		t.Fatalf("loading checkpoint: %v", err)
	}
	prog := cp.Progress(models.CategorySeason)
	n, _ := store.Count(context.Background(), "season_stats")
	if int64(prog.LastIndex) != n {
		t.Errorf("checkpoint offset %d disagrees with stored count %d", prog.LastIndex, n)
	}
	if prog.Completed {
		t.Error("an interrupted category must not be marked completed")
	}

	// Resuming finishes the job.
	p2 := newPipeline(store, dataDir, stateDir)
	if _, err := p2.Run(context.Background(), []models.Category{models.CategorySeason}); err != nil {
		t.Fatalf("resume Run failed: %v", err)
	}
	if n, _ := store.Count(context.Background(), "season_stats"); n != 230 {
		t.Errorf("final count = %d, want 230", n)
	}
}
