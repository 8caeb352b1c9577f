package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agentx-labs/blueprint/internal/branding"
	"github.com/agentx-labs/blueprint/internal/config"
	"github.com/agentx-labs/blueprint/internal/logging"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` generates the agent, skill, command, and documentation files an AI
coding assistant needs for a project, chosen from a template catalog by
project type, tech stack, and features.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		logger = newLogger()

		// Commands that manage the catalog or settings report on it themselves.
		name := cmd.Name()
		if name == "catalog" || name == "update" || name == "status" || name == "config" || name == "version" {
			return
		}

		// Freshness check only, no network.
		if st := remoteCatalog().Status(); st.Installed && st.Stale {
			fmt.Fprintf(os.Stderr, "Template catalog is more than 7 days old. Run '%s catalog update'.\n", branding.CLIName())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline steps to stderr")
}

func newLogger() *slog.Logger {
	level := config.Get(config.KeyLogLevel)
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: logging.Format(config.Get(config.KeyLogFormat)),
		Writer: os.Stderr,
	})
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
