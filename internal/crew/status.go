package crew

import (
	"context"
	"time"

	"github.com/enriqueman/articlecrew/internal/cache"
	"github.com/enriqueman/articlecrew/internal/llm"
)

// Status describes how the crew is put together.
type Status struct {
	Agents   int      `json:"agents"`
	Tasks    int      `json:"tasks"`
	Process  Process  `json:"process"`
	Provider string   `json:"provider"`
	Sections []string `json:"sections"`
	AgentIDs []string `json:"agent_ids"`
	Tools    []string `json:"tools"`
}

// Status reports the crew composition.
func (c *Crew) Status() Status {
	s := Status{
		Agents:   len(c.agents),
		Tasks:    len(c.tasks),
		Process:  c.Process(),
		Provider: c.providerName(),
		AgentIDs: append([]string(nil), c.agentOrder...),
	}

	titled := make(map[string]bool)
	for _, def := range c.tasks {
		titled[def.ID] = def.Title != ""
	}
	for _, id := range ArticleSections {
		if titled[id] {
			s.Sections = append(s.Sections, id)
		}
	}

	seen := make(map[string]bool)
	for _, name := range c.agentOrder {
		for _, tool := range c.agents[name].Tools {
			if !seen[tool.Name()] {
				seen[tool.Name()] = true
				s.Tools = append(s.Tools, tool.Name())
			}
		}
	}
	return s
}

// Health reports which backends are configured and reachable.
type Health struct {
	Status             string    `json:"status"`
	Provider           string    `json:"provider"`
	ProviderConfigured bool      `json:"provider_configured"`
	AnthropicKey       bool      `json:"anthropic_key"`
	GeminiKey          bool      `json:"gemini_key"`
	SearchConfigured   bool      `json:"search_configured"`
	Cache              string    `json:"cache"`
	Store              string    `json:"store"`
	Problems           []string  `json:"problems,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Health probes the cache and the store and reports credential presence.
func (c *Crew) Health(ctx context.Context) Health {
	h := Health{
		Status:             "healthy",
		Provider:           c.providerName(),
		ProviderConfigured: llm.ProviderConfigured(c.providerName()),
		AnthropicKey:       llm.ProviderConfigured(llm.ProviderAnthropic),
		GeminiKey:          llm.ProviderConfigured(llm.ProviderGemini),
		SearchConfigured:   c.opts.SearchTool != nil,
		Cache:              "disabled",
		Store:              "disabled",
		Timestamp:          time.Now().UTC(),
	}

	switch c.opts.Cache.(type) {
	case nil:
	case *cache.RedisCache:
		h.Cache = "redis"
	default:
		h.Cache = "memory"
	}
	if c.opts.Cache != nil {
		if _, _, err := c.opts.Cache.Get(ctx, "healthcheck"); err != nil {
			h.Problems = append(h.Problems, "cache: "+err.Error())
		}
	}

	if c.opts.Store != nil {
		h.Store = c.opts.Store.Path()
		if _, err := c.opts.Store.ListRuns(ctx, 1); err != nil {
			h.Problems = append(h.Problems, "store: "+err.Error())
		}
	}

	if !h.ProviderConfigured {
		h.Problems = append(h.Problems, "provider "+h.Provider+" has no API key")
	}
	if len(h.Problems) > 0 {
		h.Status = "degraded"
	}
	return h
}

// providerName is the configured provider, falling back to the client's.
func (c *Crew) providerName() string {
	if c.opts.Provider != "" {
		return c.opts.Provider
	}
	return c.opts.Client.Name()
}
