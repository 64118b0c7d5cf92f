package models

// Task is a validated task record. Dependencies hold the IDs this task
// waits on, deduplicated in first-seen order; IDs that do not resolve to a
// task in the same batch are kept so clients can still display them.
type Task struct {
	ID             string   `json:"id" yaml:"id" toml:"id"`
	Title          string   `json:"title" yaml:"title" toml:"title"`
	DueDate        *Date    `json:"due_date" yaml:"due_date,omitempty" toml:"due_date,omitempty"`
	EstimatedHours float64  `json:"estimated_hours" yaml:"estimated_hours" toml:"estimated_hours"`
	Importance     int      `json:"importance" yaml:"importance" toml:"importance"`
	Dependencies   []string `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
}

// ScoredTask is a Task enriched with the derived priority data
type ScoredTask struct {
	Task

	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	Priority    string  `json:"priority"` // high, medium, low

	// Graph position
	InCycle                bool     `json:"in_cycle"`
	Blocks                 int      `json:"blocks"`
	UnresolvedDependencies []string `json:"unresolved_dependencies,omitempty"`

	// Only set on suggestions
	Reason string `json:"reason,omitempty"`
}

// Cycle is a closed dependency loop. The first ID is not repeated at the end.
type Cycle []string

// TaskError describes a record rejected by validation
type TaskError struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func (e TaskError) Error() string {
	if e.ID != "" {
		return "task " + e.ID + ": " + e.Message
	}
	return e.Message
}

// AnalysisResult is the payload returned by the analyze endpoint
type AnalysisResult struct {
	Tasks    []ScoredTask `json:"tasks"`
	Cycles   []Cycle      `json:"cycles"`
	Errors   []TaskError  `json:"errors"`
	Warnings []string     `json:"warnings"`
}

// SuggestionResult is the payload returned by the suggest endpoint
type SuggestionResult struct {
	Top3   []ScoredTask `json:"top_3"`
	Errors []TaskError  `json:"errors,omitempty"`
}

// Priority band constants
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Sort strategy constants
const (
	SortInput    = ""
	SortScore    = "score"
	SortFastest  = "fastest"
	SortImpact   = "impact"
	SortDeadline = "deadline"
)

// AnalyzeQuery holds the optional query parameters of the analyze endpoint
type AnalyzeQuery struct {
	Sort string `form:"sort"`
}
