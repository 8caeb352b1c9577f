package cli

import (
	"fmt"
	"strconv"

	"github.com/agentx-labs/blueprint/internal/config"
	"github.com/agentx-labs/blueprint/internal/materialize"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write settings stored at ~/.blueprint/config.yaml.

Keys:
  templates.dirs     extra template directories, highest priority first
  generate.policy    default conflict policy (skip, overwrite, backup, merge)
  generate.workers   concurrent template renders
  layout.base_dir    directory for agents, skills, and commands
  catalog.repo       git URL of the remote template catalog
  log.level          debug, info, warn, or error
  log.format         text or json`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := checkConfigValue(key, value); err != nil {
			return err
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.Get(args[0]))
		return nil
	},
}

// checkConfigValue rejects values the generator could not use later.
func checkConfigValue(key, value string) error {
	switch key {
	case config.KeyPolicy:
		if _, err := materialize.ParsePolicy(value); err != nil {
			return err
		}
	case config.KeyWorkers:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
	}
	return nil
}
