package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
	"github.com/jengzang/taskrank-backend-go/internal/models"
	"github.com/jengzang/taskrank-backend-go/internal/repository"
)

func fixedClock() time.Time {
	return time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, store TaskSetRepository, maxBatch int) *TaskService {
	t.Helper()
	svc, err := NewTaskService(store, maxBatch, analysis.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewTaskService: %v", err)
	}
	return svc
}

func rawBatch(t *testing.T, body string) []json.RawMessage {
	t.Helper()
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return records
}

func scoredIDs(tasks []models.ScoredTask) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

// failingStore fails every operation
type failingStore struct{ err error }

func (f failingStore) Current(context.Context) ([]models.Task, error) { return nil, f.err }
func (f failingStore) Replace(context.Context, []models.Task) error   { return f.err }
func (f failingStore) Clear(context.Context) error                    { return f.err }

const batch = `[
	{"id":"slow","title":"Slow","importance":4,"estimated_hours":20},
	{"id":"bad","title":"","importance":5},
	{"id":"urgent","title":"Urgent","importance":9,"estimated_hours":1,"due_date":"2025-11-19"},
	{"id":"base","title":"Base","importance":6,"estimated_hours":3,"due_date":"2025-12-30"},
	{"id":"next","title":"Next","importance":5,"dependencies":["base"]}
]`

func TestTaskService_AnalyzeStoresValidTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryTaskSetRepository()
	svc := newTestService(t, store, 0)

	result, err := svc.Analyze(ctx, rawBatch(t, batch), models.SortInput)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if diff := cmp.Diff([]string{"slow", "urgent", "base", "next"}, scoredIDs(result.Tasks)); diff != "" {
		t.Errorf("analyzed tasks mismatch (-want +got):\n%s", diff)
	}
	if len(result.Errors) != 1 || result.Errors[0].ID != "bad" {
		t.Errorf("errors = %+v, want one for bad", result.Errors)
	}

	stored, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	storedIDs := make([]string, len(stored))
	for i, task := range stored {
		storedIDs[i] = task.ID
	}
	if diff := cmp.Diff([]string{"slow", "urgent", "base", "next"}, storedIDs); diff != "" {
		t.Errorf("stored set mismatch (-want +got):\n%s", diff)
	}

	suggestion, err := svc.Suggest(ctx)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestion.Top3) != 3 || suggestion.Top3[0].ID != "urgent" {
		t.Errorf("top 3 = %v, want urgent first", scoredIDs(suggestion.Top3))
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	suggestion, err = svc.Suggest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(suggestion.Top3) != 0 {
		t.Errorf("suggestions after clear = %v", scoredIDs(suggestion.Top3))
	}
}

func TestTaskService_AnalyzeSorts(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, repository.NewMemoryTaskSetRepository(), 0)

	tests := []struct {
		sort string
		want []string
	}{
		{models.SortInput, []string{"slow", "urgent", "base", "next"}},
		{models.SortFastest, []string{"next", "urgent", "base", "slow"}},
		{models.SortImpact, []string{"urgent", "base", "next", "slow"}},
		{models.SortDeadline, []string{"urgent", "base", "slow", "next"}},
	}
	for _, tt := range tests {
		t.Run("sort="+tt.sort, func(t *testing.T) {
			result, err := svc.Analyze(context.Background(), rawBatch(t, batch), tt.sort)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if diff := cmp.Diff(tt.want, scoredIDs(result.Tasks)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := svc.Analyze(context.Background(), rawBatch(t, batch), "random"); !errors.Is(err, analysis.ErrUnknownSort) {
		t.Errorf("unknown sort error = %v, want ErrUnknownSort", err)
	}
}

func TestTaskService_StoreFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	errDown := errors.New("store down")
	svc := newTestService(t, failingStore{err: errDown}, 0)

	result, err := svc.Analyze(ctx, rawBatch(t, batch), models.SortInput)
	if err != nil {
		t.Fatalf("Analyze should survive a store failure, got %v", err)
	}
	if len(result.Tasks) != 4 {
		t.Errorf("got %d tasks, want 4", len(result.Tasks))
	}

	if _, err := svc.Suggest(ctx); !errors.Is(err, errDown) {
		t.Errorf("Suggest error = %v, want store error", err)
	}
	if _, err := svc.List(ctx); !errors.Is(err, errDown) {
		t.Errorf("List error = %v, want store error", err)
	}
	if err := svc.Clear(ctx); !errors.Is(err, errDown) {
		t.Errorf("Clear error = %v, want store error", err)
	}

	// Inline suggestions never touch the store.
	suggestion, err := svc.SuggestInline(rawBatch(t, batch))
	if err != nil {
		t.Fatalf("SuggestInline: %v", err)
	}
	if len(suggestion.Top3) != 3 || len(suggestion.Errors) != 1 {
		t.Errorf("inline suggestion = %d tasks, %d errors", len(suggestion.Top3), len(suggestion.Errors))
	}
}

func TestTaskService_BatchLimit(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, repository.NewMemoryTaskSetRepository(), 2)

	if _, err := svc.Analyze(context.Background(), rawBatch(t, batch), models.SortInput); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("Analyze error = %v, want ErrBatchTooLarge", err)
	}
	if _, err := svc.SuggestInline(rawBatch(t, batch)); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("SuggestInline error = %v, want ErrBatchTooLarge", err)
	}
	if _, err := svc.Analyze(context.Background(), rawBatch(t, `[{"title":"a"},{"title":"b"}]`), models.SortInput); err != nil {
		t.Errorf("batch at the limit rejected: %v", err)
	}
}

func TestTaskService_UpdateWeights(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, repository.NewMemoryTaskSetRepository(), 0)
	before := svc.Engine()

	bad := analysis.DefaultWeights()
	bad.UrgencyWindowDays = -1
	if err := svc.UpdateWeights(bad); err == nil {
		t.Fatal("expected error for invalid weights")
	}
	if svc.Engine() != before {
		t.Error("invalid weights replaced the engine")
	}

	w := analysis.DefaultWeights()
	w.ImportanceMax = 60
	if err := svc.UpdateWeights(w); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}
	if got := svc.Engine().Weights().ImportanceMax; got != 60 {
		t.Errorf("ImportanceMax = %v, want 60", got)
	}
	if !svc.Engine().Today().Equal(models.DateOf(fixedClock()).Time) {
		t.Error("clock option lost on weight update")
	}
}
