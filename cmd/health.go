package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enriqueman/articlecrew/internal/utils"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check credentials, cache and checkpoint store",
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().String("provider", "", "LLM provider to check")
	healthCmd.Flags().String("redis-url", "", "Redis cache to probe")
	healthCmd.Flags().String("store", "", "Checkpoint database to probe")
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setup, err := buildCrew(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer setup.Close()

	health := setup.crew.Health(cmd.Context())
	if jsonLogs {
		return printJSON(cmd.OutOrStdout(), health)
	}

	rb := utils.NewReportBuilder().
		Header(fmt.Sprintf("Health: %s", health.Status)).
		AddKeyValue("Provider", health.Provider).
		AddCheck("Provider key", health.ProviderConfigured).
		AddCheck("Anthropic key", health.AnthropicKey).
		AddCheck("Gemini key", health.GeminiKey).
		AddCheck("Web search", health.SearchConfigured).
		AddKeyValue("Cache", health.Cache).
		AddKeyValue("Store", health.Store)
	if len(health.Problems) > 0 {
		rb.Section("Problems")
		for _, p := range health.Problems {
			rb.AddBullet(p)
		}
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), rb.Build())
	return err
}
