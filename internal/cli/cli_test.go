package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

const sampleYAML = `tasks:
  - id: report
    title: Write report
    importance: 9
    estimated_hours: 2
    due_date: 2020-01-01
  - id: data
    title: Collect data
    importance: 5
    estimated_hours: 6
  - id: review
    title: Review
    importance: 3
    estimated_hours: 1
    dependencies: [report, ghost]
  - id: broken
    title: Broken
    importance: 11
`

// run executes the command tree with args and returns stdout and stderr
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeCmd_JSON(t *testing.T) {
	path := writeFile(t, "tasks.yaml", sampleYAML)

	out, _, err := run(t, "", "analyze", path, "--format", "json", "--sort", "fastest")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not an analysis result: %v\n%s", err, out)
	}

	got := make([]string, len(result.Tasks))
	for i, task := range result.Tasks {
		got[i] = task.ID
	}
	if diff := cmp.Diff([]string{"review", "report", "data"}, got); diff != "" {
		t.Errorf("fastest order mismatch (-want +got):\n%s", diff)
	}
	if len(result.Errors) != 1 || result.Errors[0].ID != "broken" {
		t.Errorf("errors = %+v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "ghost") {
		t.Errorf("warnings = %v", result.Warnings)
	}
}

func TestAnalyzeCmd_Table(t *testing.T) {
	path := writeFile(t, "tasks.yaml", sampleYAML)

	out, _, err := run(t, "", "analyze", path)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"report", "Collect data", "Priority", "missing deps", "rejected record 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeCmd_CyclesFromStdin(t *testing.T) {
	stdin := `[{"id":"a","title":"A","dependencies":["b"]},{"id":"b","title":"B","dependencies":["a"]}]`

	out, _, err := run(t, stdin, "analyze", "-")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Dependency cycles") || !strings.Contains(out, "cycle") {
		t.Errorf("cycle not reported:\n%s", out)
	}
}

func TestAnalyzeCmd_BadFlags(t *testing.T) {
	path := writeFile(t, "tasks.json", `[]`)

	if _, _, err := run(t, "", "analyze", path, "--sort", "random"); err == nil {
		t.Error("expected error for unknown sort")
	}
	if _, _, err := run(t, "", "analyze", path, "--format", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}
	if _, _, err := run(t, "", "analyze", filepath.Join(t.TempDir(), "tasks.csv")); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestSuggestCmd(t *testing.T) {
	path := writeFile(t, "tasks.yaml", sampleYAML)

	out, _, err := run(t, "", "suggest", path, "--format", "json")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	var result models.SuggestionResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not a suggestion: %v\n%s", err, out)
	}
	if len(result.Top3) != 3 || result.Top3[0].ID != "report" {
		t.Errorf("top 3 = %+v", result.Top3)
	}
	for _, task := range result.Top3 {
		if task.Reason == "" {
			t.Errorf("task %s has no reason", task.ID)
		}
	}

	out, _, err = run(t, "", "suggest", path)
	if err != nil {
		t.Fatalf("suggest table: %v", err)
	}
	if !strings.Contains(out, "Why") || !strings.Contains(out, "report") {
		t.Errorf("table output:\n%s", out)
	}

	empty := writeFile(t, "empty.json", `[]`)
	out, _, err = run(t, "", "suggest", empty)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No tasks to suggest.") {
		t.Errorf("empty output:\n%s", out)
	}
}

func TestConvertCmd(t *testing.T) {
	path := writeFile(t, "tasks.yaml", sampleYAML)

	out, stderr, err := run(t, "", "convert", path, "--to", "toml")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if strings.Count(out, "[[tasks]]") != 3 {
		t.Errorf("expected 3 TOML tasks:\n%s", out)
	}
	if !strings.Contains(out, "due_date = '2020-01-01'") && !strings.Contains(out, `due_date = "2020-01-01"`) {
		t.Errorf("due date missing from TOML output:\n%s", out)
	}
	if !strings.Contains(stderr, "skipped record 3") {
		t.Errorf("stderr = %q", stderr)
	}

	if _, _, err := run(t, "", "convert", path, "--to", "ini"); err == nil {
		t.Error("expected error for unknown target format")
	}
}

func TestConfigFileWeights(t *testing.T) {
	tasks := writeFile(t, "tasks.json", `[{"id":"a","title":"A","importance":10,"estimated_hours":0}]`)
	cfg := writeFile(t, "taskrank.yaml", "scoring:\n  importance_max: 0\n  effort_max: 0\n  no_due_date_urgency: 0\n")

	out, _, err := run(t, "", "--config", cfg, "analyze", tasks, "--format", "json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatal(err)
	}
	if result.Tasks[0].Score != 0 {
		t.Errorf("score = %v, want 0 with zeroed weights", result.Tasks[0].Score)
	}

	bad := writeFile(t, "bad.yaml", "scoring:\n  leverage_cap: 0\n")
	if _, _, err := run(t, "", "--config", bad, "analyze", tasks); err == nil {
		t.Error("expected error for invalid weights in config")
	}
}
