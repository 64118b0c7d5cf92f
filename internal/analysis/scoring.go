package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// Weights configures the priority score. A score is the sum of four
// components, each bounded by its Max, minus the cycle penalty:
//
//	urgency    = NoDueDateUrgency                      (no due date)
//	           = UrgencyMax                            (overdue)
//	           = max(0, (window-days)/window) * UrgencyMax
//	importance = importance/10 * ImportanceMax
//	effort     = EffortMax / (1 + hours)
//	leverage   = min(blocks, LeverageCap)/LeverageCap * LeverageMax
//
// The total is floored at zero and rounded to two decimals.
type Weights struct {
	UrgencyMax        float64
	UrgencyWindowDays int
	NoDueDateUrgency  float64
	ImportanceMax     float64
	EffortMax         float64
	LeverageMax       float64
	LeverageCap       int
	CyclePenalty      float64
}

// DefaultWeights returns production defaults: urgency 40, importance 30,
// effort 15 and leverage 15, for a 100 point scale, and a 10 point cycle
// penalty.
func DefaultWeights() Weights {
	return Weights{
		UrgencyMax:        40,
		UrgencyWindowDays: 30,
		NoDueDateUrgency:  5,
		ImportanceMax:     30,
		EffortMax:         15,
		LeverageMax:       15,
		LeverageCap:       5,
		CyclePenalty:      10,
	}
}

// Validate rejects weights that would make scores meaningless
func (w Weights) Validate() error {
	var errs []error
	if w.UrgencyWindowDays <= 0 {
		errs = append(errs, errors.New("urgency window must be at least one day"))
	}
	if w.LeverageCap <= 0 {
		errs = append(errs, errors.New("leverage cap must be positive"))
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"urgency max", w.UrgencyMax},
		{"no due date urgency", w.NoDueDateUrgency},
		{"importance max", w.ImportanceMax},
		{"effort max", w.EffortMax},
		{"leverage max", w.LeverageMax},
		{"cycle penalty", w.CyclePenalty},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			errs = append(errs, fmt.Errorf("%s must be a non-negative number", f.name))
		}
	}
	return errors.Join(errs...)
}

// Position is what the scorer needs to know about a task's place in the graph
type Position struct {
	Blocks     int
	Unresolved []string
	InCycle    bool
}

// Breakdown is the itemized score of one task
type Breakdown struct {
	Urgency    float64
	Importance float64
	Effort     float64
	Leverage   float64
	Penalty    float64

	// DaysUntilDue is nil when the task has no due date; negative when overdue.
	DaysUntilDue *int
	Task         models.Task
	Position     Position
}

// Total returns the rounded score
func (b Breakdown) Total() float64 {
	total := b.Urgency + b.Importance + b.Effort + b.Leverage - b.Penalty
	if total < 0 {
		total = 0
	}
	return round2(total)
}

// Score computes the breakdown of one task on the given day
func (w Weights) Score(t models.Task, pos Position, today models.Date) Breakdown {
	b := Breakdown{Task: t, Position: pos}

	if t.DueDate == nil {
		b.Urgency = w.NoDueDateUrgency
	} else {
		days := today.DaysUntil(*t.DueDate)
		b.DaysUntilDue = &days
		window := float64(w.UrgencyWindowDays)
		switch {
		case days < 0:
			b.Urgency = w.UrgencyMax
		default:
			b.Urgency = math.Max(0, (window-float64(days))/window) * w.UrgencyMax
		}
	}

	b.Importance = float64(t.Importance) / 10 * w.ImportanceMax

	hours := math.Max(0, t.EstimatedHours)
	b.Effort = w.EffortMax / (1 + hours)

	blocks := pos.Blocks
	if blocks > w.LeverageCap {
		blocks = w.LeverageCap
	}
	b.Leverage = float64(blocks) / float64(w.LeverageCap) * w.LeverageMax

	if pos.InCycle {
		b.Penalty = w.CyclePenalty
	}
	return b
}

// Explanation lists the contributing factors in a fixed order.
func (b Breakdown) Explanation() string {
	parts := []string{
		fmt.Sprintf("urgency %.2f (%s)", b.Urgency, b.dueNote()),
		fmt.Sprintf("importance %.2f (%d/10)", b.Importance, b.Task.Importance),
		fmt.Sprintf("effort %.2f (%s)", b.Effort, effortNote(b.Task.EstimatedHours)),
		fmt.Sprintf("leverage %.2f (%s)", b.Leverage, blocksNote(b.Position.Blocks)),
	}
	if n := len(b.Position.Unresolved); n > 0 {
		parts = append(parts, plural(n, "unresolved dependency", "unresolved dependencies"))
	}
	if b.Position.InCycle {
		parts = append(parts, fmt.Sprintf("in dependency cycle (-%.2f)", b.Penalty))
	}
	return strings.Join(parts, "; ")
}

func (b Breakdown) dueNote() string {
	if b.DaysUntilDue == nil {
		return "no due date"
	}
	days := *b.DaysUntilDue
	switch {
	case days < 0:
		return "overdue by " + plural(-days, "day", "days")
	case days == 0:
		return "due today"
	default:
		return "due in " + plural(days, "day", "days")
	}
}

func effortNote(hours float64) string {
	if hours <= 0 {
		return "no estimate"
	}
	return formatHours(hours) + " estimated"
}

func blocksNote(blocks int) string {
	if blocks == 0 {
		return "blocks no other tasks"
	}
	return "blocks " + plural(blocks, "other task", "other tasks")
}

// PriorityBand maps a score to the band used for display
func PriorityBand(score float64) string {
	switch {
	case score >= 70:
		return models.PriorityHigh
	case score >= 50:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
