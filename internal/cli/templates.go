package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/agentx-labs/blueprint/internal/catalog"
)

var (
	templatesDirs     []string
	templatesKind     string
	templatesListJSON bool
	templatesRender   bool
)

func init() {
	templatesCmd.PersistentFlags().StringArrayVar(&templatesDirs, "templates", nil, "Extra template directory, searched before the built-in set (repeatable)")
	templatesListCmd.Flags().StringVar(&templatesKind, "kind", "", "Filter by kind ("+kindNames()+")")
	templatesListCmd.Flags().BoolVar(&templatesListJSON, "json", false, "Output in JSON format")
	templatesShowCmd.Flags().BoolVar(&templatesRender, "render", false, "Render the template body as formatted markdown")

	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	rootCmd.AddCommand(templatesCmd)
}

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"tpl"},
	Short:   "Browse the template catalog",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a template's metadata and body",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

// templateEntry is a descriptor as shown by "templates list".
type templateEntry struct {
	ID                string   `json:"id"`
	Kind              string   `json:"kind"`
	Version           string   `json:"version"`
	Description       string   `json:"description,omitempty"`
	AppliesTo         []string `json:"applies_to,omitempty"`
	RequiredVariables []string `json:"required_variables,omitempty"`
	OptionalVariables []string `json:"optional_variables,omitempty"`
	Source            string   `json:"source"`
}

func newTemplateEntry(d *catalog.Descriptor) templateEntry {
	return templateEntry{
		ID:                d.ID,
		Kind:              string(d.Kind),
		Version:           d.VersionString(),
		Description:       d.Description,
		AppliesTo:         d.AppliesTo,
		RequiredVariables: d.RequiredVariables,
		OptionalVariables: d.OptionalNames(),
		Source:            d.Source,
	}
}

func kindNames() string {
	names := make([]string, len(catalog.Kinds))
	for i, k := range catalog.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// filterKind returns descriptors of the named kind, or all of them when kind
// is empty.
func filterKind(descs []*catalog.Descriptor, kind string) ([]*catalog.Descriptor, error) {
	if kind == "" {
		return descs, nil
	}
	known := false
	for _, k := range catalog.Kinds {
		if string(k) == kind {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown kind %q (want one of %s)", kind, kindNames())
	}
	var out []*catalog.Descriptor
	for _, d := range descs {
		if string(d.Kind) == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	store, err := openStore(templatesDirs)
	if err != nil {
		return err
	}
	descs, err := filterKind(store.All(), templatesKind)
	if err != nil {
		return err
	}

	entries := make([]templateEntry, 0, len(descs))
	for _, d := range descs {
		entries = append(entries, newTemplateEntry(d))
	}
	sortEntries(entries)

	if templatesListJSON {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No templates found.")
		return nil
	}
	return printTemplateTable(cmd.OutOrStdout(), entries)
}

// sortEntries orders by kind in catalog order, then id.
func sortEntries(entries []templateEntry) {
	rank := make(map[string]int, len(catalog.Kinds))
	for i, k := range catalog.Kinds {
		rank[string(k)] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if ri, rj := rank[entries[i].Kind], rank[entries[j].Kind]; ri != rj {
			return ri < rj
		}
		return entries[i].ID < entries[j].ID
	})
}

func printTemplateTable(out io.Writer, entries []templateEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tVERSION\tAPPLIES TO\tSOURCE")
	for _, e := range entries {
		applies := strings.Join(e.AppliesTo, ",")
		if applies == "" {
			applies = "all"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Kind, e.ID, e.Version, applies, e.Source)
	}
	return w.Flush()
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(templatesDirs)
	if err != nil {
		return err
	}
	id := args[0]
	d, ok := store.Get(id)
	if !ok {
		if s := store.Suggest(id); len(s) > 0 {
			return fmt.Errorf("template %q not found (did you mean %s?)", id, strings.Join(s, ", "))
		}
		return fmt.Errorf("template %q not found", id)
	}

	out := cmd.OutOrStdout()
	e := newTemplateEntry(d)
	fmt.Fprintln(out, titleStyle.Render(e.ID)+" "+skippedStyle.Render(e.Kind+" "+e.Version))
	if e.Description != "" {
		fmt.Fprintln(out, e.Description)
	}
	fmt.Fprintf(out, "Source:    %s (%s)\n", e.Source, d.Path)
	if len(e.AppliesTo) > 0 {
		fmt.Fprintf(out, "Applies:   %s\n", strings.Join(e.AppliesTo, ", "))
	}
	if d.Output != "" {
		fmt.Fprintf(out, "Output:    %s\n", d.Output)
	}
	if len(e.RequiredVariables) > 0 {
		fmt.Fprintf(out, "Requires:  %s\n", strings.Join(e.RequiredVariables, ", "))
	}
	for _, name := range e.OptionalVariables {
		v, _ := d.Default(name)
		fmt.Fprintf(out, "Default:   %s = %q\n", name, v)
	}
	fmt.Fprintln(out)

	if !templatesRender {
		fmt.Fprint(out, d.Body)
		return nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	rendered, err := r.Render(d.Body)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	fmt.Fprint(out, rendered)
	return nil
}
