package llm

import (
	"context"
	"fmt"
	"strings"
)

// StaticClient produces deterministic drafts without calling any service. It
// backs --dry-run and offline tests.
type StaticClient struct {
	model string
}

func NewStaticClient(model string) *StaticClient {
	if model == "" {
		model = DefaultStaticModel
	}
	return &StaticClient{model: model}
}

func (c *StaticClient) Name() string { return ProviderStatic }

func (c *StaticClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	label := req.Label
	if label == "" {
		label = "response"
	}

	text := fmt.Sprintf("Draft %s.\n\n%s", label, firstLine(req.Prompt))
	return &Response{
		Text:         text,
		Model:        firstNonEmpty(req.Model, c.model),
		InputTokens:  len(strings.Fields(req.System)) + len(strings.Fields(req.Prompt)),
		OutputTokens: len(strings.Fields(text)),
		FinishReason: "end_turn",
	}, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
