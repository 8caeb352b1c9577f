package cli

import (
	"fmt"
	"time"

	"github.com/agentx-labs/blueprint/internal/branding"
	"github.com/spf13/cobra"
)

func init() {
	catalogCmd.AddCommand(catalogUpdateCmd)
	catalogCmd.AddCommand(catalogStatusCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the remote template catalog",
	Long: `Manage the shared template catalog.

The catalog is a shallow clone of the templates/ directory of the repository
set by catalog.repo, stored at ~/.blueprint/catalog/. Its templates take
precedence over the built-in set.`,
}

var catalogUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Clone or update the template catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := remoteCatalog()
		fmt.Fprintf(cmd.OutOrStdout(), "Updating catalog at %s from %s...\n", r.Dir, r.URL)

		rec, err := r.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("updating catalog: %w", err)
		}
		logger.Debug("catalog synced", "dir", r.Dir, "revision", rec.Revision)

		fmt.Fprintf(cmd.OutOrStdout(), "Catalog updated to revision %s.\n", revisionOrUnknown(rec.Revision))
		return nil
	},
}

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog status and location",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		r := remoteCatalog()
		fmt.Fprintf(out, "Catalog path: %s\n", r.Dir)
		fmt.Fprintf(out, "Repo URL:     %s\n", r.URL)

		st := r.Status()
		if !st.Installed {
			fmt.Fprintln(out, "Status:       not installed")
			fmt.Fprintf(out, "\nRun '%s catalog update' to install.\n", branding.CLIName())
			return nil
		}

		if st.Last.SyncedAt.IsZero() {
			fmt.Fprintln(out, "Last updated: unknown")
		} else {
			age := time.Since(st.Last.SyncedAt).Truncate(time.Minute)
			fmt.Fprintf(out, "Last updated: %s (%s ago)\n", st.Last.SyncedAt.Local().Format(time.RFC3339), age)
			fmt.Fprintf(out, "Revision:     %s\n", revisionOrUnknown(st.Last.Revision))
		}

		if st.Stale {
			fmt.Fprintf(out, "Status:       stale (run '%s catalog update')\n", branding.CLIName())
		} else {
			fmt.Fprintln(out, "Status:       up to date")
		}
		return nil
	},
}

func revisionOrUnknown(rev string) string {
	if rev == "" {
		return "unknown"
	}
	return rev
}
