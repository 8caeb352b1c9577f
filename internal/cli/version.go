package cli

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/agentx-labs/blueprint/internal/branding"
	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version info as JSON")
	rootCmd.AddCommand(versionCmd)
}

// versionInfo is the build identity of the running binary.
type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Release bool   `json:"release"`
}

func currentVersion() versionInfo {
	info := versionInfo{Version: buildVersion, Commit: buildCommit, Date: buildDate}
	if v, err := semver.NewVersion(buildVersion); err == nil {
		info.Version = v.String()
		info.Release = v.Prerelease() == ""
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		out := cmd.OutOrStdout()

		if versionShort {
			fmt.Fprintln(out, info.Version)
			return nil
		}

		if versionJSON {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		suffix := ""
		if !info.Release {
			suffix = " (development build)"
		}
		fmt.Fprintf(out, "%s version %s%s (commit: %s, built: %s)\n",
			branding.CLIName(), info.Version, suffix, info.Commit, info.Date)
		return nil
	},
}
