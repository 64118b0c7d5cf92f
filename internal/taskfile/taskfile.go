// Package taskfile reads task batches from JSON, YAML and TOML files and
// writes validated tasks back out in any of those formats.
//
// A file holds either a bare list of task records or a document with a
// top-level "tasks" list. TOML has no bare top-level arrays, so TOML files
// always use [[tasks]] tables.
package taskfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// Format is a task file encoding
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Stdin is the path that reads a JSON batch from standard input
const Stdin = "-"

var (
	// ErrUnsupportedFormat is returned for an unknown extension or format name
	ErrUnsupportedFormat = errors.New("unsupported task file format")

	// ErrNoTasks is returned when a document has no task list
	ErrNoTasks = errors.New("no task list found")
)

// ParseFormat resolves a format name such as "yml" or "TOML"
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatOf infers the format from a file extension
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Read loads the task records in path. Records are returned as raw JSON so
// they go through the same validation as records posted to the API.
func Read(path string, stdin io.Reader) ([]json.RawMessage, error) {
	if path == Stdin {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return Decode(data, JSON)
	}

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	records, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// Decode parses data in the given format into raw JSON records
func Decode(data []byte, format Format) ([]json.RawMessage, error) {
	var doc interface{}
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	case TOML:
		var table map[string]interface{}
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		doc = table
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	list, err := taskList(doc)
	if err != nil {
		return nil, err
	}

	records := make([]json.RawMessage, 0, len(list))
	for i, item := range list {
		raw, err := json.Marshal(normalize(item))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, raw)
	}
	return records, nil
}

func taskList(doc interface{}) ([]interface{}, error) {
	switch v := doc.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		tasks, ok := v["tasks"]
		if !ok {
			return nil, ErrNoTasks
		}
		list, ok := tasks.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: \"tasks\" is not a list", ErrNoTasks)
		}
		return list, nil
	case nil:
		return []interface{}{}, nil
	}
	return nil, fmt.Errorf("%w: document is neither a list nor a table", ErrNoTasks)
}

// normalize converts decoder specific values into plain JSON values.
// Dates become YYYY-MM-DD strings.
func normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = normalize(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = normalize(val)
		}
		return out
	case time.Time:
		return models.DateOf(v).String()
	case toml.LocalDate:
		return v.String()
	case toml.LocalDateTime:
		return v.LocalDate.String()
	}
	return v
}

// Encode writes tasks in the given format. YAML and TOML documents carry
// the list under a top-level "tasks" key so they read back with Decode.
func Encode(w io.Writer, tasks []models.Task, format Format) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	doc := struct {
		Tasks []models.Task `yaml:"tasks" toml:"tasks"`
	}{Tasks: tasks}

	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case TOML:
		return toml.NewEncoder(w).Encode(doc)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
