package taskmanager

import (
	"fmt"
	"strings"
)

var statusColors = map[Status]string{
	StatusPending:   "lightgrey",
	StatusRunning:   "lightblue",
	StatusCompleted: "lightgreen",
	StatusFailed:    "salmon",
	StatusSkipped:   "orange",
	StatusResumed:   "palegreen",
}

// DOT renders the workflow as a Graphviz digraph. When report is non-nil the
// nodes are coloured by their final status and labelled with durations.
func (w *Workflow) DOT(report *Report) (string, error) {
	order, err := w.Order()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %q {\n", w.ID)
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled];\n")

	if report != nil {
		label := "succeeded"
		if !report.Success {
			label = "failed"
		}
		fmt.Fprintf(&sb, "  label=\"%s: %s in %s\";\n  labelloc=\"t\";\n", w.ID, label, report.Duration.Round(1e6))
	}
	sb.WriteString("\n")

	for _, id := range order {
		task := w.Tasks[id]
		label := id
		if task.Agent != "" {
			label += "\\n" + task.Agent
		}
		color := "white"
		if report != nil {
			if r, ok := report.Results[id]; ok {
				color = statusColors[r.Status]
				label += "\\n" + r.Status.String()
				if r.Duration > 0 {
					label += " " + r.Duration.Round(1e6).String()
				}
			}
		}
		fmt.Fprintf(&sb, "  %q [label=\"%s\", fillcolor=%q];\n", id, label, color)
	}

	sb.WriteString("\n")
	for _, id := range order {
		for _, dep := range w.Tasks[id].DependsOn {
			fmt.Fprintf(&sb, "  %q -> %q;\n", dep, id)
		}
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}
