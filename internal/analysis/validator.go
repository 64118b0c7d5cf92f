package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// DefaultImportance is used when a record carries no importance
const DefaultImportance = 5

// taskFields holds the normalized scalar fields checked by struct tags
type taskFields struct {
	Title          string  `json:"title" validate:"required,max=255"`
	Importance     float64 `json:"importance" validate:"integral,gte=1,lte=10"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0"`
	DueDate        string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// Validator turns raw task records into models.Task values. A record that
// fails validation is reported and skipped; the rest of the batch goes on.
type Validator struct {
	validate *validator.Validate
	newID    func() string
}

// NewValidator creates a validator. newID may be nil, in which case IDs are
// derived from random UUIDs.
func NewValidator(newID func() string) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("integral", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f)
	})

	if newID == nil {
		newID = NewTaskID
	}
	return &Validator{validate: v, newID: newID}
}

// NewTaskID returns an identifier in the same shape the browser client uses.
func NewTaskID() string {
	return "task_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Validate normalizes every record. Valid tasks keep their input order.
func (v *Validator) Validate(records []json.RawMessage) ([]models.Task, []models.TaskError) {
	tasks := make([]models.Task, 0, len(records))
	taskErrors := make([]models.TaskError, 0)
	seen := make(map[string]bool, len(records))

	for i, raw := range records {
		task, err := v.ValidateRecord(raw)
		if err == nil && seen[task.ID] && task.ID != "" {
			err = fmt.Errorf("%w: duplicate id %q", models.ErrInvalidTask, task.ID)
		}
		if err != nil {
			taskErrors = append(taskErrors, models.TaskError{
				Index:   i,
				ID:      task.ID,
				Message: err.Error(),
			})
			continue
		}

		if task.ID == "" {
			task.ID = v.freshID(seen)
		}
		seen[task.ID] = true
		tasks = append(tasks, task)
	}

	return tasks, taskErrors
}

// ValidateRecord normalizes one record. An absent ID is left empty for the
// caller to assign; when the error is non-nil the returned task still
// carries whatever ID could be read, for diagnostics.
func (v *Validator) ValidateRecord(raw json.RawMessage) (models.Task, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Task{}, fmt.Errorf("%w: record must be a JSON object", models.ErrInvalidTask)
	}

	var in models.TaskInput
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return models.Task{ID: partialID(trimmed)}, fmt.Errorf("%w: %s", models.ErrInvalidTask, describeDecodeError(err))
	}

	task := models.Task{ID: in.ID.Value}

	fields := taskFields{
		Importance:     DefaultImportance,
		EstimatedHours: 0,
	}
	if in.Title != nil {
		fields.Title = strings.TrimSpace(*in.Title)
	}
	if in.Importance.Valid {
		fields.Importance = in.Importance.Value
	}
	if in.EstimatedHours.Valid {
		fields.EstimatedHours = in.EstimatedHours.Value
	}
	if in.DueDate != nil {
		fields.DueDate = normalizeDueDate(*in.DueDate)
	}

	if err := v.validate.Struct(fields); err != nil {
		return task, fmt.Errorf("%w: %s", models.ErrInvalidTask, describeValidationError(err))
	}
	if math.IsInf(fields.EstimatedHours, 0) || math.IsNaN(fields.EstimatedHours) {
		return task, fmt.Errorf("%w: estimated_hours must be a finite number", models.ErrInvalidTask)
	}

	task.Title = fields.Title
	task.Importance = int(fields.Importance)
	task.EstimatedHours = fields.EstimatedHours
	if fields.DueDate != "" {
		due, err := models.ParseDate(fields.DueDate)
		if err != nil {
			return task, fmt.Errorf("%w: %v", models.ErrInvalidTask, err)
		}
		task.DueDate = &due
	}
	task.Dependencies = dedupeDependencies(in.Dependencies)

	return task, nil
}

func (v *Validator) freshID(seen map[string]bool) string {
	for {
		id := v.newID()
		if !seen[id] {
			return id
		}
	}
}

// normalizeDueDate maps empty input to "no deadline" and cuts RFC 3339
// timestamps down to their date so the datetime rule can check them.
func normalizeDueDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > len(models.DateLayout) {
		if d, err := models.ParseDate(s); err == nil {
			return d.String()
		}
	}
	return s
}

func dedupeDependencies(deps []models.FlexString) []string {
	out := make([]string, 0, len(deps))
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		if !d.Valid || d.Value == "" || seen[d.Value] {
			continue
		}
		seen[d.Value] = true
		out = append(out, d.Value)
	}
	return out
}

// partialID recovers the id of a record whose other fields failed to decode.
func partialID(raw []byte) string {
	var probe struct {
		ID models.FlexString `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.ID.Value
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s has the wrong type (%s)", typeErr.Field, typeErr.Value)
	}
	return err.Error()
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "title":
			if fe.Tag() == "max" {
				msgs = append(msgs, "title must be at most 255 characters")
			} else {
				msgs = append(msgs, "title is required")
			}
		case "importance":
			if fe.Tag() == "integral" {
				msgs = append(msgs, "importance must be a whole number")
			} else {
				msgs = append(msgs, "importance must be between 1 and 10")
			}
		case "estimated_hours":
			msgs = append(msgs, "estimated_hours must not be negative")
		case "due_date":
			msgs = append(msgs, fmt.Sprintf("due_date %q is not a valid YYYY-MM-DD date", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
