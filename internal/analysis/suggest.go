package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// SuggestionLimit is the number of tasks returned by a suggestion
const SuggestionLimit = 3

// ErrUnknownSort is returned for a sort strategy name that is not recognised
var ErrUnknownSort = errors.New("unknown sort strategy")

// Thresholds for the short suggestion reason
const (
	dueSoonDays         = 3
	highImportance      = 8
	quickWinHours       = 2.0
	maxReasonSignals    = 2
	defaultReasonString = "Highest combined score"
)

// SelectTop returns the best SuggestionLimit tasks, each with a reason.
// Order is score descending, then earlier due date (tasks without one
// last), then task ID.
func SelectTop(scored []models.ScoredTask, today models.Date) []models.ScoredTask {
	ranked := make([]models.ScoredTask, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankBefore(ranked[i], ranked[j])
	})

	if len(ranked) > SuggestionLimit {
		ranked = ranked[:SuggestionLimit]
	}
	for i := range ranked {
		ranked[i].Reason = Reason(ranked[i], today)
	}
	return ranked
}

func rankBefore(a, b models.ScoredTask) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	switch {
	case a.DueDate != nil && b.DueDate == nil:
		return true
	case a.DueDate == nil && b.DueDate != nil:
		return false
	case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(b.DueDate.Time):
		return a.DueDate.Before(b.DueDate.Time)
	}
	return a.ID < b.ID
}

// Reason summarizes why a task was suggested, using at most two signals
// checked in a fixed order: deadline, leverage, importance, effort.
func Reason(t models.ScoredTask, today models.Date) string {
	var signals []string

	if t.DueDate != nil {
		days := today.DaysUntil(*t.DueDate)
		switch {
		case days < 0:
			signals = append(signals, "overdue by "+plural(-days, "day", "days"))
		case days == 0:
			signals = append(signals, "due today")
		case days <= dueSoonDays:
			signals = append(signals, "due in "+plural(days, "day", "days"))
		}
	}
	if t.Blocks > 0 {
		signals = append(signals, "blocks "+plural(t.Blocks, "task", "tasks"))
	}
	if t.Importance >= highImportance {
		signals = append(signals, fmt.Sprintf("high importance (%d/10)", t.Importance))
	}
	if t.EstimatedHours > 0 && t.EstimatedHours <= quickWinHours {
		signals = append(signals, "quick win ("+formatHours(t.EstimatedHours)+")")
	}

	reason := defaultReasonString
	if len(signals) > 0 {
		if len(signals) > maxReasonSignals {
			signals = signals[:maxReasonSignals]
		}
		reason = strings.Join(signals, " + ")
		reason = strings.ToUpper(reason[:1]) + reason[1:]
	}
	if t.InCycle {
		reason += " (in dependency cycle)"
	}
	return reason
}

// sortStrategies maps a strategy name to its ordering. Every strategy
// falls back to batch order for ties because sorting is stable.
var sortStrategies = map[string]func(a, b models.ScoredTask) bool{
	models.SortScore: func(a, b models.ScoredTask) bool {
		return a.Score > b.Score
	},
	models.SortFastest: func(a, b models.ScoredTask) bool {
		return a.EstimatedHours < b.EstimatedHours
	},
	models.SortImpact: func(a, b models.ScoredTask) bool {
		return a.Importance > b.Importance
	},
	models.SortDeadline: func(a, b models.ScoredTask) bool {
		if a.DueDate == nil || b.DueDate == nil {
			return a.DueDate != nil
		}
		return a.DueDate.Before(b.DueDate.Time)
	},
}

// IsSortStrategy reports whether name is a known strategy. The empty
// name keeps batch order.
func IsSortStrategy(name string) bool {
	if name == models.SortInput {
		return true
	}
	_, ok := sortStrategies[name]
	return ok
}

// Sort orders tasks in place by the named strategy
func Sort(tasks []models.ScoredTask, strategy string) error {
	if strategy == models.SortInput {
		return nil
	}
	less, ok := sortStrategies[strategy]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownSort, strategy)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j])
	})
	return nil
}
