// Package analysis is the task-analysis engine: it validates a task batch,
// builds the dependency graph, detects cycles, scores every task and
// selects suggestions. The engine is pure; every call works on its own
// copy of the batch and holds no state between calls.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// Engine runs the analysis pipeline. It is immutable after construction
// and safe for concurrent use.
type Engine struct {
	validator *Validator
	weights   Weights
	now       func() time.Time
}

// Option configures an Engine
type Option func(*engine)

type engine struct {
	weights Weights
	now     func() time.Time
	newID   func() string
}

// WithWeights sets the scoring weights
func WithWeights(w Weights) Option {
	return func(e *engine) { e.weights = w }
}

// WithClock sets the source of "today"
func WithClock(now func() time.Time) Option {
	return func(e *engine) { e.now = now }
}

// WithIDGenerator sets how IDs are assigned to records without one
func WithIDGenerator(newID func() string) Option {
	return func(e *engine) { e.newID = newID }
}

// NewEngine creates an engine. Weights that fail validation are an error.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := engine{weights: DefaultWeights(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}
	return &Engine{
		validator: NewValidator(cfg.newID),
		weights:   cfg.weights,
		now:       cfg.now,
	}, nil
}

// Weights returns the scoring weights in use
func (e *Engine) Weights() Weights {
	return e.weights
}

// Today returns the current calendar date as seen by the engine
func (e *Engine) Today() models.Date {
	return models.DateOf(e.now())
}

// Validate runs only the validation stage
func (e *Engine) Validate(records []json.RawMessage) ([]models.Task, []models.TaskError) {
	return e.validator.Validate(records)
}

// Analyze validates raw records and scores the valid ones. Rejected
// records are listed in the result's Errors; they never abort the batch.
func (e *Engine) Analyze(records []json.RawMessage) models.AnalysisResult {
	tasks, taskErrors := e.validator.Validate(records)
	result := e.AnalyzeTasks(tasks)
	result.Errors = taskErrors
	return result
}

// AnalyzeTasks scores already validated tasks. Output keeps batch order.
func (e *Engine) AnalyzeTasks(tasks []models.Task) models.AnalysisResult {
	return e.analyzeOn(tasks, e.Today())
}

func (e *Engine) analyzeOn(tasks []models.Task, today models.Date) models.AnalysisResult {
	g := BuildGraph(tasks)
	report := DetectCycles(g)

	result := models.AnalysisResult{
		Tasks:    make([]models.ScoredTask, len(tasks)),
		Cycles:   report.Cycles,
		Errors:   make([]models.TaskError, 0),
		Warnings: make([]string, 0),
	}
	if report.HasCycles() {
		result.Warnings = append(result.Warnings, "circular dependency detected")
	}
	if report.Truncated {
		result.Warnings = append(result.Warnings, "cycle list truncated")
	}

	for i, t := range tasks {
		if t.Dependencies == nil {
			t.Dependencies = []string{}
		}
		pos := Position{
			Blocks:     g.Blocks(i),
			Unresolved: g.Dangling(i),
			InCycle:    report.InCycle[i],
		}
		b := e.weights.Score(t, pos, today)
		score := b.Total()

		result.Tasks[i] = models.ScoredTask{
			Task:                   t,
			Score:                  score,
			Explanation:            b.Explanation(),
			Priority:               PriorityBand(score),
			InCycle:                pos.InCycle,
			Blocks:                 pos.Blocks,
			UnresolvedDependencies: pos.Unresolved,
		}
		if len(pos.Unresolved) > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"task %s has unresolved dependencies: %s", t.ID, strings.Join(pos.Unresolved, ", ")))
		}
	}
	return result
}

// Suggest scores tasks and returns the top SuggestionLimit of them
func (e *Engine) Suggest(tasks []models.Task) models.SuggestionResult {
	today := e.Today()
	analyzed := e.analyzeOn(tasks, today)
	return models.SuggestionResult{
		Top3: SelectTop(analyzed.Tasks, today),
	}
}

// SuggestRecords validates raw records before suggesting
func (e *Engine) SuggestRecords(records []json.RawMessage) models.SuggestionResult {
	tasks, taskErrors := e.validator.Validate(records)
	result := e.Suggest(tasks)
	result.Errors = taskErrors
	return result
}
