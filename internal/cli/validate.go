package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/blueprint/internal/catalog"
	"github.com/agentx-labs/blueprint/internal/project"
	"github.com/agentx-labs/blueprint/internal/render"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check template or project files",
	Long: `Validate template files (.md) against the descriptor schema and template
syntax, or project files (.yaml, .yml, .json) against the project schema.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			if err := validateFile(path); err != nil {
				failed++
				fmt.Fprintln(cmd.OutOrStdout(), failedStyle.Render("FAIL")+" "+path+": "+err.Error())
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), createdStyle.Render("ok")+"   "+path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) invalid", failed, len(args))
		}
		return nil
	},
}

func validateFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		d, err := catalog.ParseFile(path)
		if err != nil {
			return err
		}
		return render.Check(d)
	case ".yaml", ".yml", ".json":
		_, err := project.Load(path)
		return err
	}
	return fmt.Errorf("unsupported file type %q: want .md, .yaml, .yml, or .json", filepath.Ext(path))
}
