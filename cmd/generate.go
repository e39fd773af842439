package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/enriqueman/articlecrew/internal/crew"
	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/logger"
	"github.com/enriqueman/articlecrew/internal/progress"
	"github.com/enriqueman/articlecrew/internal/utils"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an article on a topic",
	Long: `Generate an article by running every task of the crew in dependency order.

Each section is cached by its inputs and saved to the checkpoint store as soon
as it is written. If a run fails, resume it with --resume and only the missing
sections are generated.

EXAMPLES:
# Draft an article with Claude
articlecrew generate --topic "Marketing de contenidos B2B" --output articulo.md

# Let independent sections run side by side
articlecrew generate --topic "Email marketing" --parallel 2

# Continue a failed run
articlecrew generate --resume 4f0c2d9e-...

# Offline run with deterministic drafts
articlecrew generate --dry-run
`,
	PreRunE: validateGenerateFlags,
	RunE:    runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringP("topic", "t", "", "Article topic (default \"Tendencias generales en content marketing\")")
	f.String("provider", "", "LLM provider: anthropic, gemini or static")
	f.String("model", "", "Model name (provider default when empty)")
	f.Float64("temperature", 0.7, "Sampling temperature")
	f.Float64("rps", 0, "Maximum LLM requests per second (0 disables the limit)")
	f.Int("parallel", 1, "Run up to N independent sections at once")
	f.Duration("task-timeout", 0, "Timeout per task attempt, e.g. 90s or 5m")
	f.Int("retries", 3, "Attempts per task, including the first")
	f.String("resume", "", "Resume the checkpointed run with this ID")
	f.StringP("output", "o", "", "Write the article to this file instead of stdout")
	f.BoolP("force", "f", false, "Overwrite the output file without asking")
	f.String("redis-url", "", "Cache sections in Redis, e.g. redis://localhost:6379/0")
	f.Bool("no-cache", false, "Disable the section cache")
	f.String("store", "", "Checkpoint database path")
	f.Bool("no-store", false, "Disable checkpointing")
	f.Bool("no-search", false, "Do not attach web search to the researcher")
	f.Bool("dry-run", false, "Use the offline static provider")
	f.String("graph", "", "Write the task graph with final statuses to this DOT file")
}

func validateGenerateFlags(cmd *cobra.Command, args []string) error {
	resume, _ := cmd.Flags().GetString("resume")
	topic, _ := cmd.Flags().GetString("topic")
	noStore, _ := cmd.Flags().GetBool("no-store")

	if resume != "" && topic != "" {
		return apperrors.NewValidationError(
			apperrors.CodeValidationInput,
			"--resume and --topic cannot be combined",
			"Parameter validation").
			WithContext("resume", resume).
			WithTroubleshooting("A resumed run keeps the topic it was started with")
	}
	if resume != "" && noStore {
		return apperrors.NewValidationError(
			apperrors.CodeValidationInput,
			"--resume needs the checkpoint store",
			"Parameter validation").
			WithTroubleshooting("Remove --no-store")
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")
	if output != "" {
		if ok, err := confirmOverwrite(cmd, output, force); err != nil {
			return err
		} else if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), utils.Warning("Aborted", "Output file left untouched: "+output))
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := progress.NewReporter(len(crew.ArticleTasks))
	setup, err := buildCrew(ctx, cfg, false, reporter)
	if err != nil {
		return err
	}
	defer setup.Close()

	var result *crew.Result
	if resume, _ := cmd.Flags().GetString("resume"); resume != "" {
		result, err = setup.crew.Resume(ctx, resume)
	} else {
		result, err = setup.crew.Run(ctx, cfg.ResolvedTopic())
	}
	if result == nil {
		return err
	}

	logger.User.Info(progress.Report(reporter.Snapshot()))
	if graph, _ := cmd.Flags().GetString("graph"); graph != "" {
		writeGraph(setup.crew, result, graph)
	}

	if err != nil {
		printFailure(cmd, result)
		if errors.Is(err, context.Canceled) {
			return apperrors.NewTaskError(apperrors.CodeTaskFailed, "Run interrupted", "Generate article").
				WithOriginalError(err).
				WithTroubleshooting(fmt.Sprintf("Resume with: articlecrew generate --resume %s", result.RunID))
		}
		return err
	}

	if err := writeArticle(cmd, output, result); err != nil {
		return err
	}
	printSummary(cmd, output, result)
	return nil
}

func confirmOverwrite(cmd *cobra.Command, path string, force bool) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	return utils.PromptForConfirmation(cmd.InOrStdin(), cmd.ErrOrStderr(), force,
		"overwrite "+path, "The file already exists and will be replaced")
}

func writeArticle(cmd *cobra.Command, path string, result *crew.Result) error {
	if jsonLogs {
		return printJSON(cmd.OutOrStdout(), result)
	}
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), result.Article)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(result.Article), 0o644); err != nil {
		return fmt.Errorf("failed to write article to %s: %w", path, err)
	}
	return nil
}

func writeGraph(c *crew.Crew, result *crew.Result, path string) {
	dot, err := c.Graph(result)
	if err == nil {
		err = os.WriteFile(path, []byte(dot), 0o644)
	}
	if err != nil {
		logger.User.Warnf("Could not write task graph to %s: %v", path, err)
		return
	}
	logger.User.Infof("Task graph written to %s", path)
}

func printSummary(cmd *cobra.Command, output string, result *crew.Result) {
	if quiet || jsonLogs {
		return
	}
	box := utils.NewBox(utils.SuccessMessage, "Article generated").
		AddKeyValue("Topic", result.Topic).
		AddKeyValue("Sections", fmt.Sprintf("%d generated, %d cached, %d resumed",
			result.Stats.Completed-result.Stats.Cached, result.Stats.Cached, result.Stats.Resumed)).
		AddKeyValue("Tokens", fmt.Sprintf("%d in / %d out", result.Stats.InputTokens, result.Stats.OutputTokens)).
		AddKeyValue("Duration", progress.FormatDuration(result.Stats.Duration))
	if result.RunID != "" {
		box.AddKeyValue("Run", result.RunID)
	}
	if output != "" {
		box.AddKeyValue("Output", output)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), box.Render())
}

func printFailure(cmd *cobra.Command, result *crew.Result) {
	if jsonLogs {
		_ = printJSON(cmd.OutOrStdout(), result)
		return
	}
	if quiet {
		return
	}
	box := utils.NewBox(utils.ErrorMessage, "Article generation stopped")
	for _, t := range result.Tasks {
		box.AddBullet(fmt.Sprintf("%s: %s", t.ID, t.Status))
	}
	if result.RunID != "" {
		box.AddLine("")
		box.AddLine("Completed sections were saved. Resume with:")
		box.AddLine("  articlecrew generate --resume " + result.RunID)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), box.Render())
}
