package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
	"github.com/jengzang/taskrank-backend-go/internal/taskfile"
)

// Output formats for analyze and suggest
const (
	outputJSON  = "json"
	outputTable = "table"
)

func (a *app) newAnalyzeCmd() *cobra.Command {
	var sortBy, format string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Score every task in a JSON, YAML or TOML file",
		Long:  "Score every task in a task file. Use - to read a JSON array from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !analysis.IsSortStrategy(sortBy) {
				return fmt.Errorf("%w %q (want score, fastest, impact or deadline)", analysis.ErrUnknownSort, sortBy)
			}
			if err := checkOutput(format); err != nil {
				return err
			}

			records, err := taskfile.Read(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			engine, err := a.newEngine()
			if err != nil {
				return err
			}

			result := engine.Analyze(records)
			if err := analysis.Sort(result.Tasks, sortBy); err != nil {
				return err
			}

			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderAnalysis(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "order by score, fastest, impact or deadline (default: file order)")
	cmd.Flags().StringVar(&format, "format", outputTable, "output format: table or json")
	return cmd
}

func (a *app) newSuggestCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "suggest <file>",
		Short: "Show the top three tasks to work on next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(format); err != nil {
				return err
			}

			records, err := taskfile.Read(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			engine, err := a.newEngine()
			if err != nil {
				return err
			}

			result := engine.SuggestRecords(records)
			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderSuggestions(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", outputTable, "output format: table or json")
	return cmd
}

func (a *app) newConvertCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Validate a task file and rewrite it in another format",
		Long: "Validate a task file and write the accepted tasks as JSON, YAML or TOML.\n" +
			"Rejected records are reported on stderr and left out.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := taskfile.ParseFormat(to)
			if err != nil {
				return err
			}
			records, err := taskfile.Read(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			engine, err := a.newEngine()
			if err != nil {
				return err
			}

			tasks, taskErrors := engine.Validate(records)
			for _, e := range taskErrors {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped record %d: %s\n", e.Index, e.Error())
			}
			return taskfile.Encode(cmd.OutOrStdout(), tasks, format)
		},
	}

	cmd.Flags().StringVar(&to, "to", string(taskfile.YAML), "output format: json, yaml or toml")
	return cmd
}

func checkOutput(format string) error {
	if format != outputJSON && format != outputTable {
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

