package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enriqueman/articlecrew/internal/checkpoint"
	"github.com/enriqueman/articlecrew/internal/crew"
	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/utils"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List checkpointed runs, newest first",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	runsCmd.Flags().String("store", "", "Checkpoint database path")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled {
		return apperrors.NewConfigurationError(apperrors.CodeConfigInvalid,
			"The checkpoint store is disabled", "List runs").
			WithTroubleshooting("Enable store in the config file or pass --store")
	}

	store, err := checkpoint.Open(cmd.Context(), cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonLogs {
		return printJSON(cmd.OutOrStdout(), runs)
	}
	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No runs in %s\n", store.Path())
		return nil
	}

	table := utils.NewTableFormatter("Run", "Topic", "Provider", "Status", "Sections", "Updated").
		WithMaxColumnWidth(40)
	for _, r := range runs {
		table.AddRow(r.ID, r.Topic, r.Provider, r.Status,
			fmt.Sprintf("%d/%d", r.Tasks, len(crew.ArticleTasks)), shortTime(r.UpdatedAt))
	}
	return table.Render(cmd.OutOrStdout())
}
