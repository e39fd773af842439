package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enriqueman/articlecrew/internal/config"
	"github.com/enriqueman/articlecrew/internal/llm"
	"github.com/enriqueman/articlecrew/internal/logger"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.String("topic", "", "")
	f.String("provider", "", "")
	f.Int("parallel", 1, "")
	f.Int("retries", 3, "")
	f.Duration("task-timeout", 0, "")
	f.Bool("no-cache", false, "")
	f.String("store", "", "")
	f.Bool("dry-run", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "unset flags keep config values",
			args: nil,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default().LLM.Provider, cfg.LLM.Provider)
				assert.Equal(t, 5*time.Minute, cfg.Pipeline.TaskTimeout)
				assert.Equal(t, 3, cfg.Pipeline.Retry.MaxAttempts)
				assert.True(t, cfg.Cache.Enabled)
			},
		},
		{
			name: "explicit flags override",
			args: []string{"--topic", "SEO local", "--parallel", "3", "--retries", "1", "--task-timeout", "90s", "--no-cache"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "SEO local", cfg.Topic)
				assert.Equal(t, 3, cfg.Pipeline.Parallel)
				assert.Equal(t, 1, cfg.Pipeline.Retry.MaxAttempts)
				assert.Equal(t, 90*time.Second, cfg.Pipeline.TaskTimeout)
				assert.False(t, cfg.Cache.Enabled)
			},
		},
		{
			name: "dry run forces the static provider",
			args: []string{"--provider", "gemini", "--dry-run"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, llm.ProviderStatic, cfg.LLM.Provider)
				assert.False(t, cfg.Search.Enabled)
			},
		},
		{
			name: "empty store path disables the store",
			args: []string{"--store", ""},
			check: func(t *testing.T, cfg *config.Config) {
				assert.False(t, cfg.Store.Enabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			applyFlags(newFlagCommand(t, tt.args...), cfg)
			tt.check(t, cfg)
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateDryRunAndRuns(t *testing.T) {
	defer logger.Setup(false, false, false)

	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	article := filepath.Join(dir, "out", "articulo.md")
	graph := filepath.Join(dir, "graph.dot")

	_, err := execute(t, "generate", "--dry-run", "-q",
		"--topic", "Tema de prueba", "--store", db, "--output", article, "--graph", graph)
	require.NoError(t, err)

	dot, err := os.ReadFile(graph)
	require.NoError(t, err)
	assert.Contains(t, string(dot), `"conclusiones" -> "bibliografia";`)

	data, err := os.ReadFile(article)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Tema de prueba")
	assert.Contains(t, string(data), "## Bibliografía")

	out, err := execute(t, "runs", "--store", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Tema de prueba")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "8/8")
}

func TestGenerateRejectsResumeWithTopic(t *testing.T) {
	defer logger.Setup(false, false, false)

	_, err := execute(t, "generate", "--dry-run", "-q", "--topic", "x", "--resume", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--resume and --topic cannot be combined")
}

func TestGenerateDeclinedOverwriteLeavesFile(t *testing.T) {
	defer logger.Setup(false, false, false)

	article := filepath.Join(t.TempDir(), "articulo.md")
	require.NoError(t, os.WriteFile(article, []byte("previous"), 0o644))

	out, err := executeWithInput(t, "no\n", "generate", "--dry-run", "-q",
		"--resume", "", "--topic", "Tema", "--output", article)
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")
	assert.Contains(t, out, "Output file left untouched")

	data, err := os.ReadFile(article)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestPlanCommand(t *testing.T) {
	defer logger.Setup(false, false, false)
	t.Setenv("ARTICLECREW_STORE", filepath.Join(t.TempDir(), "runs.db"))

	out, err := execute(t, "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "research → analysis → abstract_keywords → resultados")
	assert.Contains(t, out, "3. abstract_keywords, resultados")
	assert.Contains(t, out, "Discusión")

	out, err = execute(t, "plan", "--dot")
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "article"`)
}
