package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/enriqueman/articlecrew/internal/utils"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the tasks and their execution order without running them",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().Bool("dot", false, "Print the task graph in Graphviz DOT format")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setup, err := buildCrew(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer setup.Close()

	plan, err := setup.crew.Plan()
	if err != nil {
		return err
	}
	if jsonLogs {
		return printJSON(cmd.OutOrStdout(), plan)
	}
	if dot, _ := cmd.Flags().GetBool("dot"); dot {
		graph, err := setup.crew.Graph(nil)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), graph)
		return err
	}

	table := utils.NewTableFormatter("#", "Task", "Agent", "Depends on", "Section")
	position := make(map[string]int, len(plan.Order))
	for i, id := range plan.Order {
		position[id] = i + 1
	}
	for _, def := range plan.Tasks {
		deps := strings.Join(def.DependsOn, ", ")
		if deps == "" {
			deps = "-"
		}
		section := def.Title
		if section == "" {
			section = "-"
		}
		table.AddRow(fmt.Sprint(position[def.ID]), def.ID, def.Agent, deps, section)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, table.String())
	fmt.Fprintf(out, "\nSequential order: %s\n", strings.Join(plan.Order, " → "))
	fmt.Fprintln(out, "Parallel levels:")
	for i, level := range plan.Levels {
		fmt.Fprintf(out, "  %d. %s\n", i+1, strings.Join(level, ", "))
	}
	return nil
}
