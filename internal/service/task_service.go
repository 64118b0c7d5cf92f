package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// ErrBatchTooLarge is returned when a batch exceeds the configured limit
var ErrBatchTooLarge = errors.New("batch too large")

// CurrentTaskSetProvider supplies the task set used by suggestions
type CurrentTaskSetProvider interface {
	Current(ctx context.Context) ([]models.Task, error)
}

// TaskSetRepository is a CurrentTaskSetProvider that analysis can update
type TaskSetRepository interface {
	CurrentTaskSetProvider
	Replace(ctx context.Context, tasks []models.Task) error
	Clear(ctx context.Context) error
}

// TaskService connects the analysis engine to the current task set
type TaskService struct {
	store    TaskSetRepository
	engine   atomic.Pointer[analysis.Engine]
	baseOpts []analysis.Option
	maxBatch int
}

// NewTaskService creates a task service. opts are kept and reapplied when
// the scoring weights change. maxBatch <= 0 disables the batch limit.
func NewTaskService(store TaskSetRepository, maxBatch int, opts ...analysis.Option) (*TaskService, error) {
	engine, err := analysis.NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	s := &TaskService{
		store:    store,
		baseOpts: opts,
		maxBatch: maxBatch,
	}
	s.engine.Store(engine)
	return s, nil
}

// Engine returns the engine currently serving requests
func (s *TaskService) Engine() *analysis.Engine {
	return s.engine.Load()
}

// UpdateWeights swaps in an engine using w. Invalid weights leave the
// running engine untouched.
func (s *TaskService) UpdateWeights(w analysis.Weights) error {
	opts := append(append([]analysis.Option{}, s.baseOpts...), analysis.WithWeights(w))
	engine, err := analysis.NewEngine(opts...)
	if err != nil {
		return err
	}
	s.engine.Store(engine)
	log.Printf("Scoring weights updated: %+v", w)
	return nil
}

// Analyze scores a batch, orders it by sortBy and makes the valid tasks the
// current set. A store failure is logged; the analysis is still returned.
func (s *TaskService) Analyze(ctx context.Context, records []json.RawMessage, sortBy string) (models.AnalysisResult, error) {
	if !analysis.IsSortStrategy(sortBy) {
		return models.AnalysisResult{}, fmt.Errorf("%w %q", analysis.ErrUnknownSort, sortBy)
	}
	if err := s.checkBatch(records); err != nil {
		return models.AnalysisResult{}, err
	}

	engine := s.Engine()
	tasks, taskErrors := engine.Validate(records)
	result := engine.AnalyzeTasks(tasks)
	result.Errors = taskErrors

	if err := analysis.Sort(result.Tasks, sortBy); err != nil {
		return models.AnalysisResult{}, err
	}

	if err := s.store.Replace(ctx, tasks); err != nil {
		log.Printf("Failed to store current task set: %v", err)
	}
	return result, nil
}

// Suggest returns the top tasks of the current set
func (s *TaskService) Suggest(ctx context.Context) (models.SuggestionResult, error) {
	tasks, err := s.store.Current(ctx)
	if err != nil {
		return models.SuggestionResult{}, fmt.Errorf("failed to load current tasks: %w", err)
	}
	return s.Engine().Suggest(tasks), nil
}

// SuggestInline returns the top tasks of a batch without touching the store
func (s *TaskService) SuggestInline(records []json.RawMessage) (models.SuggestionResult, error) {
	if err := s.checkBatch(records); err != nil {
		return models.SuggestionResult{}, err
	}
	return s.Engine().SuggestRecords(records), nil
}

// List returns the current task set
func (s *TaskService) List(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.store.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current tasks: %w", err)
	}
	return tasks, nil
}

// Clear empties the current task set
func (s *TaskService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear current tasks: %w", err)
	}
	return nil
}

func (s *TaskService) checkBatch(records []json.RawMessage) error {
	if s.maxBatch > 0 && len(records) > s.maxBatch {
		return fmt.Errorf("%w: %d records, limit is %d", ErrBatchTooLarge, len(records), s.maxBatch)
	}
	return nil
}
