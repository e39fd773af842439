package cmd

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/enriqueman/articlecrew/internal/agent"
	"github.com/enriqueman/articlecrew/internal/cache"
	"github.com/enriqueman/articlecrew/internal/checkpoint"
	"github.com/enriqueman/articlecrew/internal/config"
	"github.com/enriqueman/articlecrew/internal/crew"
	"github.com/enriqueman/articlecrew/internal/llm"
	"github.com/enriqueman/articlecrew/internal/logger"
	"github.com/enriqueman/articlecrew/internal/taskmanager"
	"github.com/enriqueman/articlecrew/internal/tools"
)

// loadConfig reads the config file and environment, then applies any flags
// the user set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Op.WithFields(map[string]interface{}{
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
		"parallel": cfg.Pipeline.Parallel,
		"cache":    cfg.Cache.Enabled,
		"store":    cfg.Store.Path,
	}).Debug("Configuration loaded")
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg. Flags a command does not
// define are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("topic") {
		cfg.Topic, _ = flags.GetString("topic")
	}
	if changed("provider") {
		cfg.LLM.Provider, _ = flags.GetString("provider")
	}
	if changed("model") {
		cfg.LLM.Model, _ = flags.GetString("model")
	}
	if changed("temperature") {
		cfg.LLM.Temperature, _ = flags.GetFloat64("temperature")
	}
	if changed("rps") {
		cfg.LLM.RequestsPerSecond, _ = flags.GetFloat64("rps")
	}
	if changed("parallel") {
		cfg.Pipeline.Parallel, _ = flags.GetInt("parallel")
	}
	if changed("task-timeout") {
		cfg.Pipeline.TaskTimeout, _ = flags.GetDuration("task-timeout")
	}
	if changed("retries") {
		cfg.Pipeline.Retry.MaxAttempts, _ = flags.GetInt("retries")
	}
	if changed("redis-url") {
		cfg.Cache.RedisURL, _ = flags.GetString("redis-url")
	}
	if changed("no-cache") {
		noCache, _ := flags.GetBool("no-cache")
		cfg.Cache.Enabled = !noCache
	}
	if changed("store") {
		cfg.Store.Path, _ = flags.GetString("store")
		cfg.Store.Enabled = cfg.Store.Path != ""
	}
	if changed("no-store") {
		noStore, _ := flags.GetBool("no-store")
		cfg.Store.Enabled = !noStore
	}
	if changed("no-search") {
		noSearch, _ := flags.GetBool("no-search")
		cfg.Search.Enabled = !noSearch
	}
	if dryRun, _ := flags.GetBool("dry-run"); dryRun {
		cfg.LLM.Provider = llm.ProviderStatic
		cfg.Search.Enabled = false
	}
}

// crewSetup holds a crew and the resources it owns.
type crewSetup struct {
	crew  *crew.Crew
	store *checkpoint.Store
	cache cache.Cache
}

func (s *crewSetup) Close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// buildCrew wires the LLM client, tools, cache and store described by cfg.
// With offline set a static client stands in for the configured provider, so
// commands that never call a model work without credentials.
func buildCrew(ctx context.Context, cfg *config.Config, offline bool, observers ...taskmanager.Observer) (*crewSetup, error) {
	setup := &crewSetup{}

	provider := cfg.LLM.Provider
	if offline {
		provider = llm.ProviderStatic
	}
	client, err := llm.New(ctx, llm.Options{
		Provider:          provider,
		Model:             cfg.LLM.Model,
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	})
	if err != nil {
		return nil, err
	}

	var search agent.Tool
	if cfg.Search.Enabled {
		searchCfg := tools.SearchConfig{
			APIKey:     cfg.Search.APIKey,
			CX:         cfg.Search.CX,
			MaxResults: cfg.Search.MaxResults,
		}.WithEnv()
		if searchCfg.Configured() {
			ws, err := tools.NewWebSearch(ctx, searchCfg)
			if err != nil {
				return nil, err
			}
			search = ws
		} else {
			logger.Op.Debug("Web search not configured, researcher runs without it")
		}
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cache.Options{RedisURL: cfg.Cache.RedisURL, TTL: cfg.Cache.TTL})
		if err != nil {
			return nil, err
		}
		setup.cache = c
	}

	if cfg.Store.Enabled {
		store, err := checkpoint.Open(ctx, cfg.Store.Path)
		if err != nil {
			setup.Close()
			return nil, err
		}
		setup.store = store
	}

	c, err := crew.New(crew.Options{
		Client:        client,
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		Tokenizer:     llm.NewTokenizer(),
		ContextBudget: cfg.Pipeline.ContextBudget,
		SearchTool:    search,
		Cache:         setup.cache,
		Store:         setup.store,
		MaxParallel:   cfg.Pipeline.Parallel,
		TaskTimeout:   cfg.Pipeline.TaskTimeout,
		Retry:         cfg.RetryPolicy(),
		Observers:     observers,
	})
	if err != nil {
		setup.Close()
		return nil, err
	}
	setup.crew = c
	return setup, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
