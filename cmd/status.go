package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/enriqueman/articlecrew/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how the crew is configured",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int("parallel", 1, "Parallelism to report")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setup, err := buildCrew(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer setup.Close()

	status := setup.crew.Status()
	if jsonLogs {
		return printJSON(cmd.OutOrStdout(), status)
	}

	tools := strings.Join(status.Tools, ", ")
	if tools == "" {
		tools = "none"
	}

	rb := utils.NewReportBuilder().
		Header("Crew status").
		AddKeyValue("Agents", status.Agents).
		AddKeyValue("Tasks", status.Tasks).
		AddKeyValue("Process", status.Process).
		AddKeyValue("Provider", status.Provider).
		AddKeyValue("Tools", tools).
		Section("Sections")
	for i, s := range status.Sections {
		rb.AddNumbered(i+1, s)
	}
	rb.Section("Agents")
	for _, a := range status.AgentIDs {
		rb.AddBullet(a)
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), rb.Build())
	return err
}
