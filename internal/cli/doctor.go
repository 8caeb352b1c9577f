package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"

	"github.com/agentx-labs/blueprint/internal/catalog"
	"github.com/agentx-labs/blueprint/internal/config"
	"github.com/agentx-labs/blueprint/internal/materialize"
	"github.com/agentx-labs/blueprint/internal/project"
	"github.com/agentx-labs/blueprint/internal/render"
	"github.com/agentx-labs/blueprint/internal/selector"
	"github.com/spf13/cobra"
)

var (
	doctorTemplates []string
	doctorRules     string
)

func init() {
	doctorCmd.Flags().StringArrayVar(&doctorTemplates, "templates", nil, "Extra template directory to check (repeatable)")
	doctorCmd.Flags().StringVar(&doctorRules, "rules", "", "Selection rules file to check")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for settings and templates",
	Long: `Run diagnostic checks on settings, the template catalog, and every
template source. Exits non-zero when a check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &doctor{out: cmd.OutOrStdout()}
		d.checkEnvironment()
		d.checkSettings()
		d.checkCatalog()
		d.checkTemplates(doctorTemplates, doctorRules)
		if d.failures > 0 {
			return fmt.Errorf("%d check(s) failed", d.failures)
		}
		return nil
	},
}

// doctor prints one line per check and counts failures.
type doctor struct {
	out      io.Writer
	failures int
}

func (d *doctor) section(title string) { fmt.Fprintln(d.out, title+":") }

func (d *doctor) ok(format string, args ...any) {
	fmt.Fprintf(d.out, "  [ OK ] "+format+"\n", args...)
}

func (d *doctor) warn(format string, args ...any) {
	fmt.Fprintf(d.out, "  [WARN] "+format+"\n", args...)
}

func (d *doctor) info(format string, args ...any) {
	fmt.Fprintf(d.out, "  [INFO] "+format+"\n", args...)
}

func (d *doctor) fail(format string, args ...any) {
	d.failures++
	fmt.Fprintf(d.out, "  [FAIL] "+format+"\n", args...)
}

func (d *doctor) checkEnvironment() {
	d.section("Environment check")
	path, err := exec.LookPath("git")
	if err != nil {
		d.warn("git not found (needed only for 'catalog update')")
		return
	}
	d.ok("git found at %s", path)
}

func (d *doctor) checkSettings() {
	d.section("Settings check")
	if _, err := os.Stat(config.FilePath()); err != nil {
		d.info("no config file at %s, using defaults", config.FilePath())
	} else {
		d.ok("config file %s", config.FilePath())
	}

	if _, err := materialize.ParsePolicy(config.Get(config.KeyPolicy)); err != nil {
		d.fail("%s: %v", config.KeyPolicy, err)
	} else {
		d.ok("%s = %s", config.KeyPolicy, config.Get(config.KeyPolicy))
	}
	if n, err := strconv.Atoi(config.Get(config.KeyWorkers)); err != nil || n < 1 {
		d.fail("%s must be a positive integer, got %q", config.KeyWorkers, config.Get(config.KeyWorkers))
	} else {
		d.ok("%s = %d", config.KeyWorkers, n)
	}
	for _, dir := range config.GetStringSlice(config.KeyTemplateDirs) {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			d.fail("template directory %s is not readable", dir)
		}
	}
}

func (d *doctor) checkCatalog() {
	d.section("Catalog check")
	r := remoteCatalog()
	st := r.Status()
	switch {
	case !st.Installed:
		d.info("remote catalog not installed (built-in templates only)")
	case st.Stale:
		d.warn("catalog at %s is stale, run 'catalog update'", r.Dir)
	default:
		d.ok("catalog at %s is up to date (revision %s)", r.Dir, revisionOrUnknown(st.Last.Revision))
	}
}

func (d *doctor) checkTemplates(extra []string, rulesFile string) {
	d.section("Templates check")
	store, err := openStore(extra)
	if err != nil {
		d.fail("%v", err)
		return
	}
	for _, w := range store.Warnings() {
		d.warn("%s", w)
	}
	for _, k := range catalog.Kinds {
		if n := len(store.ByKind(k)); n > 0 {
			d.ok("%d %s template(s)", n, k)
		}
	}

	broken := 0
	for _, desc := range store.All() {
		if err := render.Check(desc); err != nil {
			broken++
			d.fail("%s: %v", desc.ID, err)
		}
	}
	if broken == 0 {
		d.ok("every template parses")
	}

	rules := selector.DefaultRules()
	if rulesFile != "" {
		if rules, err = selector.LoadRules(rulesFile); err != nil {
			d.fail("%v", err)
			return
		}
	}
	for _, t := range project.Types {
		for _, id := range rules.RequiredFor(t) {
			if !store.Has(id) {
				d.fail("%s requires template %q, which no source provides", t, id)
			}
		}
	}
	for _, id := range sortedTargets(rules) {
		if !store.Has(id) {
			d.warn("selection rule points at missing template %q", id)
		}
	}
}

func sortedTargets(rules *selector.Rules) []string {
	var ids []string
	for id := range rules.TriggerTargets() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
