// Package tools holds research tools agents can run before prompting the model.
package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/logger"
)

// Environment variables for Google Programmable Search.
const (
	EnvSearchAPIKey = "GOOGLE_SEARCH_API_KEY"
	EnvSearchCX     = "GOOGLE_SEARCH_CX"
)

const defaultResults = 5

// SearchConfig configures WebSearch.
type SearchConfig struct {
	APIKey     string
	CX         string
	MaxResults int
	// Endpoint overrides the API base URL.
	Endpoint string
}

// WithEnv fills missing fields from the environment.
func (c SearchConfig) WithEnv() SearchConfig {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvSearchAPIKey)
	}
	if c.CX == "" {
		c.CX = os.Getenv(EnvSearchCX)
	}
	return c
}

// Configured reports whether both credentials are present.
func (c SearchConfig) Configured() bool {
	return c.APIKey != "" && c.CX != ""
}

// WebSearch queries Google Programmable Search and formats the top hits.
type WebSearch struct {
	svc        *customsearch.Service
	cx         string
	maxResults int64
}

func NewWebSearch(ctx context.Context, cfg SearchConfig) (*WebSearch, error) {
	if !cfg.Configured() {
		return nil, apperrors.NewMissingAPIKeyError("web_search", EnvSearchAPIKey+" and "+EnvSearchCX)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search client: %w", err)
	}

	n := cfg.MaxResults
	if n <= 0 || n > 10 {
		n = defaultResults
	}
	return &WebSearch{svc: svc, cx: cfg.CX, maxResults: int64(n)}, nil
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Description() string {
	return "Searches the web and returns the top results with title, snippet and URL"
}

// Run searches for input and returns one block per result.
func (w *WebSearch) Run(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", apperrors.NewValidationFailedError("query", input, "Web search")
	}

	res, err := w.svc.Cse.List().Q(query).Cx(w.cx).Num(w.maxResults).Context(ctx).Do()
	if err != nil {
		return "", apperrors.NewPipelineError(apperrors.ErrorCategoryTool, "001",
			"Web search request failed", "Web search").
			WithContext("query", query).
			WithOriginalError(err)
	}

	logger.Op.WithFields(map[string]interface{}{
		"query":   query,
		"results": len(res.Items),
	}).Debug("Web search finished")

	if len(res.Items) == 0 {
		return fmt.Sprintf("No web results for %q.", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Web results for %q:\n", query)
	for i, item := range res.Items {
		fmt.Fprintf(&sb, "\n%d. %s\n   %s\n   %s\n", i+1, item.Title,
			strings.Join(strings.Fields(item.Snippet), " "), item.Link)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
