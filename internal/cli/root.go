// Package cli holds the taskrank command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
	"github.com/jengzang/taskrank-backend-go/internal/config"
)

// app carries state shared by the subcommands of one command tree
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the taskrank command tree with its own viper instance
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "taskrank",
		Short: "Task prioritization engine",
		Long: "taskrank scores tasks by urgency, importance, effort and how many other tasks\n" +
			"they unblock, flags dependency cycles and suggests what to work on next.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Init(a.v, a.cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default taskrank.yaml or taskrank.toml)")

	root.AddCommand(
		a.newServeCmd(),
		a.newAnalyzeCmd(),
		a.newSuggestCmd(),
		a.newConvertCmd(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig decodes the configuration after flags and files are applied
func (a *app) loadConfig() (config.Config, error) {
	return config.Load(a.v)
}

// newEngine builds an engine with the configured weights
func (a *app) newEngine() (*analysis.Engine, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return analysis.NewEngine(analysis.WithWeights(cfg.Scoring.Weights()))
}
