package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentx-labs/blueprint/internal/materialize"
	"github.com/agentx-labs/blueprint/internal/selector"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	createdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	reasonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printPlan(w io.Writer, plan *selector.Plan) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Selected %d templates", len(plan.Entries))))
	for _, e := range plan.Entries {
		line := fmt.Sprintf("  %-32s %s", e.ID, reasonStyle.Render(string(e.Reason)))
		if e.Trigger != "" {
			line += skippedStyle.Render(" (" + e.Trigger + ")")
		}
		if e.Path != "" {
			line += skippedStyle.Render("  " + e.Path)
		}
		fmt.Fprintln(w, line)
	}
	if len(plan.Superseded) > 0 {
		fmt.Fprintln(w, titleStyle.Render("\nSuperseded"))
		for _, e := range plan.Superseded {
			fmt.Fprintf(w, "  %-32s %s\n", e.ID, skippedStyle.Render("replaced by "+e.SupersededBy))
		}
	}
	printNotes(w, plan.Notes)
}

func printNotes(w io.Writer, notes []string) {
	if len(notes) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("\nNotes"))
	for _, n := range notes {
		fmt.Fprintln(w, noteStyle.Render("  - "+n))
	}
}

func printManifest(w io.Writer, man *materialize.Manifest) {
	verb := "Created"
	if man.DryRun {
		verb = "Would write"
	}
	if len(man.Created) > 0 {
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s under %s", verb, man.Root)))
		for _, e := range man.Created {
			line := fmt.Sprintf("  %s %s", createdStyle.Render(actionLabel(e.Action)), e.Path)
			if e.Backup != "" {
				line += skippedStyle.Render(" (previous copy in " + e.Backup + ")")
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(man.Skipped) > 0 {
		fmt.Fprintln(w, titleStyle.Render("\nSkipped"))
		for _, e := range man.Skipped {
			fmt.Fprintln(w, skippedStyle.Render(fmt.Sprintf("  %s: %s", e.Path, e.Reason)))
		}
	}
	if len(man.Failed) > 0 {
		fmt.Fprintln(w, titleStyle.Render("\nFailed"))
		for _, f := range man.Failed {
			fmt.Fprintln(w, failedStyle.Render(fmt.Sprintf("  %s [%s] %s", f.Path, f.Code, f.Reason)))
		}
	}
	printNotes(w, man.Warnings)
	fmt.Fprintln(w, "\n"+man.Summary())
}

func actionLabel(a materialize.Action) string {
	return fmt.Sprintf("%-9s", strings.ToLower(string(a)))
}
