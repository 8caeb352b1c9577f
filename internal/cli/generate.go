package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentx-labs/blueprint/internal/config"
	"github.com/agentx-labs/blueprint/internal/materialize"
	"github.com/agentx-labs/blueprint/internal/scaffold"
)

var (
	generateFlags  projectFlags
	generateOutput string
	generatePolicy string
	generateDryRun bool
	generateJSON   bool

	planFlags projectFlags
	planJSON  bool
)

func init() {
	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", ".", "Output directory")
	generateCmd.Flags().StringVar(&generatePolicy, "policy", "", "What to do with existing files: skip, overwrite, backup, merge (default from generate.policy)")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Report what would be written without writing")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(generateCmd)

	planFlags.register(planCmd)
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the plan as JSON")
	rootCmd.AddCommand(planCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate assistant files for a project",
	Long: `Select templates for the project, render them, and write the results.

Nothing is written when any selected template fails to render. Existing files
are handled by --policy; merge is supported for ignore files and JSON, YAML,
and TOML manifests.

Examples:
  blueprint generate --name "My Shop" --type saas-web-app --stack backend=python-fastapi
  blueprint generate --config project.yaml --output ./my-shop --policy merge
  blueprint generate --config project.yaml --dry-run --json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which templates would be generated and why",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

// newGenerator wires a generator from settings and flags.
func newGenerator(f *projectFlags) (*scaffold.Generator, error) {
	store, err := openStore(f.templateDirs)
	if err != nil {
		return nil, err
	}
	rules, err := f.rules()
	if err != nil {
		return nil, err
	}
	g := scaffold.New(store, materialize.New(nil, logger))
	g.Rules = rules
	g.Layout = configuredLayout()
	g.Workers = config.GetInt(config.KeyWorkers)
	g.Logger = logger
	return g, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	policyName := generatePolicy
	if policyName == "" {
		policyName = config.Get(config.KeyPolicy)
	}
	policy, err := materialize.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	cfg, err := generateFlags.configuration()
	if err != nil {
		return err
	}
	g, err := newGenerator(&generateFlags)
	if err != nil {
		return err
	}

	res, err := g.Generate(cmd.Context(), cfg, generateOutput, policy, scaffold.Options{DryRun: generateDryRun})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if generateJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printNotes(out, res.Plan.Notes)
		printManifest(out, res.Manifest)
	}

	if n := len(res.Manifest.Failed); n > 0 {
		return fmt.Errorf("%d file(s) could not be written", n)
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := planFlags.configuration()
	if err != nil {
		return err
	}
	g, err := newGenerator(&planFlags)
	if err != nil {
		return err
	}
	plan, err := g.Plan(cfg)
	if err != nil {
		return err
	}
	if planJSON {
		return printJSON(cmd.OutOrStdout(), plan)
	}
	printPlan(cmd.OutOrStdout(), plan)
	return nil
}
