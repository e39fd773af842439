package crew

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/enriqueman/articlecrew/internal/cache"
	"github.com/enriqueman/articlecrew/internal/checkpoint"
	"github.com/enriqueman/articlecrew/internal/config"
	"github.com/enriqueman/articlecrew/internal/llm"
)

var sequentialOrder = []string{
	"research", "analysis", "abstract_keywords", "resultados",
	"desarrollo", "discusion", "conclusiones", "bibliografia",
}

// recordingClient wraps the static client, remembers call order and fails
// on the labels listed in failOn.
type recordingClient struct {
	mu     sync.Mutex
	next   llm.Client
	calls  []string
	failOn map[string]bool
}

func newRecordingClient(failOn ...string) *recordingClient {
	rc := &recordingClient{next: llm.NewStaticClient(""), failOn: make(map[string]bool)}
	for _, id := range failOn {
		rc.failOn[id] = true
	}
	return rc
}

func (r *recordingClient) Name() string { return llm.ProviderStatic }

func (r *recordingClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req.Label)
	fail := r.failOn[req.Label]
	r.mu.Unlock()
	if fail {
		return nil, errors.New("model refused")
	}
	return r.next.Generate(ctx, req)
}

func (r *recordingClient) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func openStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{
		Client: llm.NewStaticClient(""),
		Agents: []AgentDef{{Name: "writer"}},
		Tasks:  []TaskDef{{ID: "draft", Agent: "editor"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent 'editor'")
}

func TestCrew_Plan(t *testing.T) {
	c, err := New(Options{Client: llm.NewStaticClient("")})
	require.NoError(t, err)

	plan, err := c.Plan()
	require.NoError(t, err)
	assert.Equal(t, sequentialOrder, plan.Order)
	assert.Equal(t, [][]string{
		{"research"},
		{"analysis"},
		{"abstract_keywords", "resultados"},
		{"desarrollo", "discusion"},
		{"conclusiones"},
		{"bibliografia"},
	}, plan.Levels)
	assert.Len(t, plan.Tasks, 8)
}

func TestCrew_RunSequential(t *testing.T) {
	client := newRecordingClient()
	c, err := New(Options{Client: client})
	require.NoError(t, err)

	result, err := c.Run(context.Background(), "Marketing de contenidos B2B")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.RunID)
	assert.Equal(t, sequentialOrder, client.Calls())
	assert.Len(t, result.Sections, 8)
	assert.Equal(t, 8, result.Stats.Completed)
	assert.Equal(t, 0, result.Stats.Cached)
	assert.Greater(t, result.Stats.InputTokens, 0)
	assert.Greater(t, result.Stats.OutputTokens, 0)

	require.Len(t, result.Tasks, 8)
	for i, ts := range result.Tasks {
		assert.Equal(t, sequentialOrder[i], ts.ID)
		assert.Equal(t, "completed", ts.Status)
		assert.Equal(t, 1, ts.Attempts)
	}
	assert.Equal(t, "researcher", result.Tasks[0].Agent)

	article := result.Article
	assert.True(t, strings.HasPrefix(article, "# Marketing de contenidos B2B\n"))
	assert.NotContains(t, article, "Draft research.")
	headings := []string{
		"## Resumen y palabras clave", "## Desarrollo", "## Resultados",
		"## Discusión", "## Conclusiones", "## Bibliografía",
	}
	last := -1
	for _, h := range headings {
		idx := strings.Index(article, h)
		require.GreaterOrEqual(t, idx, 0, h)
		assert.Greater(t, idx, last, h)
		last = idx
	}
	assert.Contains(t, article, "Draft discusion.")
}

func TestCrew_RunDefaultTopic(t *testing.T) {
	c, err := New(Options{Client: llm.NewStaticClient("")})
	require.NoError(t, err)

	result, err := c.Run(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTopic, result.Topic)
	assert.Contains(t, result.Article, "# "+config.DefaultTopic)
}

func TestCrew_CacheHitSkipsModel(t *testing.T) {
	mem := cache.NewMemoryCache(0)

	first := newRecordingClient()
	c, err := New(Options{Client: first, Cache: mem})
	require.NoError(t, err)
	_, err = c.Run(context.Background(), "cache topic")
	require.NoError(t, err)
	assert.Len(t, first.Calls(), 8)

	second := newRecordingClient()
	c, err = New(Options{Client: second, Cache: mem})
	require.NoError(t, err)
	result, err := c.Run(context.Background(), "cache topic")
	require.NoError(t, err)

	assert.Empty(t, second.Calls())
	assert.Equal(t, 8, result.Stats.Cached)
	assert.Equal(t, 0, result.Stats.InputTokens)
	for _, ts := range result.Tasks {
		assert.True(t, ts.Cached, ts.ID)
	}

	third := newRecordingClient()
	c, err = New(Options{Client: third, Cache: mem})
	require.NoError(t, err)
	_, err = c.Run(context.Background(), "another topic")
	require.NoError(t, err)
	assert.Len(t, third.Calls(), 8)
}

func TestCrew_FailureKeepsPartialOutputsAndResumes(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	failing := newRecordingClient("discusion")
	c, err := New(Options{Client: failing, Store: store})
	require.NoError(t, err)

	result, err := c.Run(ctx, "resumable topic")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, 5, result.Stats.Completed)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, 2, result.Stats.Skipped)

	statuses := map[string]string{}
	for _, ts := range result.Tasks {
		statuses[ts.ID] = ts.Status
	}
	assert.Equal(t, "failed", statuses["discusion"])
	assert.Equal(t, "skipped", statuses["conclusiones"])
	assert.Equal(t, "skipped", statuses["bibliografia"])

	run, err := store.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.StatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	saved, err := store.LoadOutputs(ctx, result.RunID)
	require.NoError(t, err)
	assert.Len(t, saved, 5)
	assert.NotContains(t, saved, "discusion")

	healthy := newRecordingClient()
	c, err = New(Options{Client: healthy, Store: store})
	require.NoError(t, err)

	resumed, err := c.Resume(ctx, result.RunID)
	require.NoError(t, err)
	assert.True(t, resumed.Success)
	assert.Equal(t, "resumable topic", resumed.Topic)
	assert.Equal(t, []string{"discusion", "conclusiones", "bibliografia"}, healthy.Calls())
	assert.Equal(t, 5, resumed.Stats.Resumed)
	assert.Equal(t, 3, resumed.Stats.Completed)

	run, err = store.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.StatusCompleted, run.Status)
	assert.Equal(t, 8, run.Tasks)
}

func TestCrew_ResumeErrors(t *testing.T) {
	c, err := New(Options{Client: llm.NewStaticClient("")})
	require.NoError(t, err)
	_, err = c.Resume(context.Background(), "missing")
	require.Error(t, err)

	c, err = New(Options{Client: llm.NewStaticClient(""), Store: openStore(t)})
	require.NoError(t, err)
	_, err = c.Resume(context.Background(), "missing")
	require.ErrorIs(t, err, checkpoint.ErrRunNotFound)
}

func TestCrew_RunParallel(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newRecordingClient()
	c, err := New(Options{Client: client, MaxParallel: 2})
	require.NoError(t, err)
	assert.Equal(t, ProcessParallel, c.Process())

	result, err := c.Run(context.Background(), "parallel topic")
	require.NoError(t, err)
	assert.True(t, result.Success)

	calls := client.Calls()
	require.Len(t, calls, 8)
	pos := make(map[string]int, len(calls))
	for i, id := range calls {
		pos[id] = i
	}
	for _, def := range ArticleTasks {
		for _, dep := range def.DependsOn {
			assert.Less(t, pos[dep], pos[def.ID], "%s must run after %s", def.ID, dep)
		}
	}
}

func TestCrew_StatusAndHealth(t *testing.T) {
	search := &namedTool{name: "web_search"}
	mem := cache.NewMemoryCache(0)
	store := openStore(t)

	c, err := New(Options{
		Client:     llm.NewStaticClient(""),
		SearchTool: search,
		Cache:      mem,
		Store:      store,
	})
	require.NoError(t, err)

	status := c.Status()
	assert.Equal(t, 8, status.Agents)
	assert.Equal(t, 8, status.Tasks)
	assert.Equal(t, ProcessSequential, status.Process)
	assert.Equal(t, llm.ProviderStatic, status.Provider)
	assert.Equal(t, ArticleSections, status.Sections)
	assert.Equal(t, []string{"web_search"}, status.Tools)
	assert.Equal(t, "researcher", status.AgentIDs[0])

	health := c.Health(context.Background())
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.ProviderConfigured)
	assert.True(t, health.SearchConfigured)
	assert.Equal(t, "memory", health.Cache)
	assert.Equal(t, store.Path(), health.Store)
	assert.Empty(t, health.Problems)
}

func TestCrew_SearchToolFeedsResearcher(t *testing.T) {
	search := &namedTool{name: "web_search", output: "1. Informe de tendencias"}
	c, err := New(Options{Client: llm.NewStaticClient(""), SearchTool: search})
	require.NoError(t, err)

	_, err = c.Run(context.Background(), "search topic")
	require.NoError(t, err)
	assert.Equal(t, []string{"search topic"}, search.Inputs())
}

func TestCrew_Graph(t *testing.T) {
	c, err := New(Options{Client: newRecordingClient("resultados")})
	require.NoError(t, err)

	dot, err := c.Graph(nil)
	require.NoError(t, err)
	assert.Contains(t, dot, `"analysis" -> "resultados";`)

	result, runErr := c.Run(context.Background(), "graph topic")
	require.Error(t, runErr)
	dot, err = c.Graph(result)
	require.NoError(t, err)
	assert.Contains(t, dot, `fillcolor="salmon"`)
	assert.Contains(t, dot, "skipped")
}

func TestAssembleArticle(t *testing.T) {
	sections := map[string]string{
		"research":          "notes",
		"abstract_keywords": "## Resumen y palabras clave\n\nUn resumen.",
		"conclusiones":      "Cierre.",
		"discusion":         "   ",
	}
	article := AssembleArticle("Tema", ArticleTasks, sections)

	assert.Equal(t, "# Tema\n\n## Resumen y palabras clave\n\nUn resumen.\n\n## Conclusiones\n\nCierre.\n", article)
}

type namedTool struct {
	mu     sync.Mutex
	name   string
	output string
	inputs []string
}

func (n *namedTool) Name() string        { return n.name }
func (n *namedTool) Description() string { return "test tool" }

func (n *namedTool) Run(ctx context.Context, input string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inputs = append(n.inputs, input)
	return n.output, nil
}

func (n *namedTool) Inputs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.inputs...)
}
