package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTask marks a single record that failed validation
var ErrInvalidTask = errors.New("invalid task")

// ErrMalformedRequest marks a request body that is not a task batch at all
var ErrMalformedRequest = errors.New("malformed request")

// TaskInput is the loosely typed record accepted on the wire. Bulk-pasted
// JSON often carries numeric IDs or quoted numbers, so scalar fields accept
// both forms and are tightened by the validator.
type TaskInput struct {
	ID             FlexString   `json:"id"`
	Title          *string      `json:"title"`
	DueDate        *string      `json:"due_date"`
	EstimatedHours FlexFloat    `json:"estimated_hours"`
	Importance     FlexFloat    `json:"importance"`
	Dependencies   []FlexString `json:"dependencies"`
}

// FlexString is a JSON string or number, normalized to a string
type FlexString struct {
	Value string
	Valid bool
}

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s.Value, s.Valid = strings.TrimSpace(v), true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	s.Value, s.Valid = formatNumber(n), true
	return nil
}

func (s FlexString) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// FlexFloat is a JSON number or numeric string
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("expected a number, got %q", v)
		}
		f.Value, f.Valid = parsed, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expected a number, got %s", data)
	}
	f.Value, f.Valid = v, true
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func formatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		return n.String()
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}
