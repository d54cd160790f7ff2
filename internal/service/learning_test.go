package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flowgen/internal/config"
	"flowgen/internal/db"
	"flowgen/internal/model"
	"flowgen/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docsPage = `<html><body>
<pre><code class="language-json">{"nodes":[{"type":"n8n-nodes-base.webhook"},{"type":"n8n-nodes-base.set"}],"connections":{"Webhook":{}}}</code></pre>
<pre><code class="language-json">not a workflow at all</code></pre>
</body></html>`

const templatesPage = `<html><body>
<div class="template-card"><h3>Slack digest</h3><a href="/templates/1">open</a></div>
<div class="template-card"><h3></h3></div>
</body></html>`

func newDocsTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/workflows/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, docsPage)
	})
	mux.HandleFunc("/integrations/", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/templates", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, templatesPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLearningCycle_DedupAcrossCycles(t *testing.T) {
	setupTestDB(t)
	srv := newDocsTestServer(t)

	svc := NewLearningService(config.LearningConfig{
		DocsURL:      srv.URL,
		TemplatesURL: srv.URL + "/templates",
	}, logger.NewNop())
	ctx := context.Background()

	first := svc.RunLearningCycle(ctx)
	require.Contains(t, first.Sources, "docs")
	require.Contains(t, first.Sources, "templates")
	assert.NotContains(t, first.Sources, "github") // no token configured
	assert.NotEmpty(t, first.CycleID)
	assert.False(t, first.CompletedAt.Before(first.StartedAt))

	assert.Equal(t, 1, first.Sources["docs"].ExamplesFound)
	assert.Equal(t, 1, first.Sources["docs"].ExamplesAdded)
	assert.Empty(t, first.Sources["docs"].Error)

	// template cards are previews: counted found, nothing downloadable
	assert.Equal(t, 1, first.Sources["templates"].ExamplesFound)
	assert.Equal(t, 0, first.Sources["templates"].ExamplesAdded)

	second := svc.RunLearningCycle(ctx)
	assert.Equal(t, 1, second.Sources["docs"].ExamplesFound)
	assert.Equal(t, 0, second.Sources["docs"].ExamplesAdded)

	var count int64
	require.NoError(t, db.DB.Model(&model.LearnedExample{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var example model.LearnedExample
	require.NoError(t, db.DB.First(&example).Error)
	assert.Equal(t, model.SourceDocs, example.Source)
	assert.Equal(t, model.ComplexitySimple, example.ComplexityLevel)
	assert.Equal(t, []string{"n8n-nodes-base.webhook", "n8n-nodes-base.set"}, decodeStringList(example.NodesUsed))

	var logs []model.LearningLog
	require.NoError(t, db.DB.Order("id").Find(&logs).Error)
	require.Len(t, logs, 4)
	for _, logRow := range logs {
		assert.Equal(t, model.LogStatusCompleted, logRow.Status)
		assert.NotNil(t, logRow.CompletedAt)
		assert.Empty(t, logRow.ErrorMessage)
	}
}

func TestLearningCycle_SourceFailureIsIsolated(t *testing.T) {
	setupTestDB(t)
	srv := newDocsTestServer(t)

	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	svc := NewLearningService(config.LearningConfig{
		DocsURL:      srv.URL,
		TemplatesURL: deadURL,
	}, logger.NewNop())

	result := svc.RunLearningCycle(context.Background())

	assert.Empty(t, result.Sources["docs"].Error)
	assert.Equal(t, 1, result.Sources["docs"].ExamplesAdded)
	assert.NotEmpty(t, result.Sources["templates"].Error)

	var logs []model.LearningLog
	require.NoError(t, db.DB.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)

	byType := map[string]model.LearningLog{}
	for _, logRow := range logs {
		byType[logRow.LearningType] = logRow
		require.NotNil(t, logRow.CompletedAt)
	}
	assert.Equal(t, model.LogStatusCompleted, byType["docs"].Status)
	assert.Equal(t, model.LogStatusFailed, byType["templates"].Status)
	assert.NotEmpty(t, byType["templates"].ErrorMessage)
}

func TestGitHubCrawler_MinStarsFilterAndAdmission(t *testing.T) {
	setupTestDB(t)

	lowStarContentsHits := 0
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token tok", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `{"items":[
			{"name":"tiny","description":"","stargazers_count":2,"contents_url":"%s/repos/tiny/contents/{+path}"},
			{"name":"flows","description":"popular workflows","stargazers_count":50,"contents_url":"%s/repos/flows/contents/{+path}"}
		]}`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/repos/tiny/contents/", func(w http.ResponseWriter, _ *http.Request) {
		lowStarContentsHits++
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/repos/flows/contents/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[
			{"name":"readme.md","download_url":"%s/dl/readme.md"},
			{"name":"big.json","download_url":"%s/dl/big.json"}
		]`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/dl/big.json", func(w http.ResponseWriter, _ *http.Request) {
		nodes := make([]map[string]string, 15)
		for i := range nodes {
			nodes[i] = map[string]string{"type": fmt.Sprintf("node-%d", i)}
		}
		conns := make(map[string]interface{}, 20)
		for i := 0; i < 20; i++ {
			conns[fmt.Sprintf("c%d", i)] = map[string]interface{}{}
		}
		payload, _ := json.Marshal(map[string]interface{}{"nodes": nodes, "connections": conns})
		w.Write(payload)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := NewLearningService(config.LearningConfig{
		GitHubToken:       "tok",
		GitHubAPIURL:      srv.URL,
		GitHubSearchQuery: "n8n workflow",
		GitHubMinStars:    10,
	}, logger.NewNop())

	var counts crawlCounts
	require.NoError(t, svc.learnFromGitHub(context.Background(), &counts))

	assert.Equal(t, 1, counts.found)
	assert.Equal(t, 1, counts.added)
	assert.Equal(t, 1, counts.skipped) // the low-star repo
	assert.Zero(t, lowStarContentsHits, "min-stars filter must run before any contents fetch")

	var example model.LearnedExample
	require.NoError(t, db.DB.First(&example).Error)
	assert.Equal(t, model.SourceGitHub, example.Source)
	assert.Equal(t, "flows", example.Title)
	assert.Equal(t, 50, example.Stars)
	assert.Equal(t, model.ComplexityComplex, example.ComplexityLevel)
	assert.Contains(t, example.SourceURL, "/dl/big.json")
}

func seedExample(t *testing.T, source string, stars int, learnedAt time.Time, nodes []string) {
	t.Helper()
	nodesJSON, _ := json.Marshal(nodes)
	example := model.LearnedExample{
		Title:           fmt.Sprintf("%s-%d-%d", source, stars, learnedAt.UnixNano()),
		Source:          source,
		WorkflowJSON:    `{"nodes":[]}`,
		DedupKey:        fmt.Sprintf("%s|%d|%d", source, stars, learnedAt.UnixNano()),
		NodesUsed:       nodesJSON,
		ComplexityLevel: model.ComplexitySimple,
		Stars:           stars,
		LearnedAt:       learnedAt,
	}
	require.NoError(t, db.DB.Create(&example).Error)
}

func TestRelevantExamples_PopularityThenRecency(t *testing.T) {
	setupTestDB(t)
	svc := NewLearningService(config.LearningConfig{}, logger.NewNop())

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	// two equally popular examples and one unpopular
	seedExample(t, model.SourceGitHub, 10, base, nil)
	seedExample(t, model.SourceGitHub, 10, base.Add(time.Hour), nil)
	seedExample(t, model.SourceDocs, 0, base.Add(2*time.Hour), nil)

	examples, err := svc.RelevantExamples(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Len(t, examples, 3, "smaller corpus returns everything")

	assert.Equal(t, 10, examples[0].Stars)
	assert.Equal(t, base.Add(time.Hour).Unix(), examples[0].LearnedAt.Unix())
	assert.Equal(t, 10, examples[1].Stars)
	assert.Equal(t, base.Unix(), examples[1].LearnedAt.Unix())
	assert.Equal(t, 0, examples[2].Stars)
}

func TestStats_AggregatesAndTopNodeCap(t *testing.T) {
	setupTestDB(t)
	svc := NewLearningService(config.LearningConfig{}, logger.NewNop())

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seedExample(t, model.SourceDocs, 0, base, []string{"http", "set"})
	seedExample(t, model.SourceDocs, 0, base.Add(time.Minute), []string{"http"})
	seedExample(t, model.SourceGitHub, 3, base.Add(2*time.Minute), []string{"http", "slack"})
	seedExample(t, model.SourceGitHub, 1, base.Add(3*time.Minute), nil)

	var extraNodes []string
	for i := 0; i < 25; i++ {
		extraNodes = append(extraNodes, fmt.Sprintf("rare-node-%02d", i))
	}
	seedExample(t, model.SourceGitHub, 0, base.Add(4*time.Minute), extraNodes)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalExamples)
	assert.Equal(t, map[string]int{model.SourceDocs: 2, model.SourceGitHub: 3}, stats.BySource)
	assert.Equal(t, map[string]int{model.ComplexitySimple: 5}, stats.ByComplexity)

	require.Len(t, stats.TopNodes, 20, "top nodes are capped")
	assert.Equal(t, NodeCount{Node: "http", Count: 3}, stats.TopNodes[0])
	for i := 1; i < len(stats.TopNodes); i++ {
		assert.GreaterOrEqual(t, stats.TopNodes[i-1].Count, stats.TopNodes[i].Count)
	}
}

func TestParseWorkflowArtifact(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		ok    bool
		nodes int
		conns int
	}{
		{"plain text", "not json", false, 0, 0},
		{"json without nodes", `{"connections":{}}`, false, 0, 0},
		{"nodes not a list", `{"nodes":"x"}`, false, 0, 0},
		{"minimal workflow", `{"nodes":[{"type":"a"}]}`, true, 1, 0},
		{"typed and untyped nodes", `{"nodes":[{"type":"a"},{"name":"no type"}],"connections":{"a":{},"b":{}}}`, true, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, ok := parseWorkflowArtifact(tt.raw)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Len(t, shape.nodeTypes, tt.nodes)
			assert.Equal(t, tt.conns, shape.connectionGroups)
		})
	}
}

func TestAdmitExample_DedupByURLAndContent(t *testing.T) {
	setupTestDB(t)
	svc := NewLearningService(config.LearningConfig{}, logger.NewNop())
	ctx := context.Background()

	shape, ok := parseWorkflowArtifact(`{"nodes":[{"type":"a"}]}`)
	require.True(t, ok)

	byURL := exampleCandidate{
		title:    "first",
		source:   model.SourceGitHub,
		dedupURL: "https://example.com/wf.json",
		raw:      `{"nodes":[{"type":"a"}]}`,
		parsed:   shape,
	}
	added, err := svc.admitExample(ctx, byURL)
	require.NoError(t, err)
	assert.True(t, added)

	byURL.title = "second crawl, same file"
	added, err = svc.admitExample(ctx, byURL)
	require.NoError(t, err)
	assert.False(t, added)

	// no canonical URL: the content hash is the key
	byContent := exampleCandidate{
		title:  "doc block",
		source: model.SourceDocs,
		raw:    `{"nodes":[{"type":"a"}]}`,
		parsed: shape,
	}
	added, err = svc.admitExample(ctx, byContent)
	require.NoError(t, err)
	assert.True(t, added, "same content under a different source is a different artifact")

	added, err = svc.admitExample(ctx, byContent)
	require.NoError(t, err)
	assert.False(t, added)

	var count int64
	require.NoError(t, db.DB.Model(&model.LearnedExample{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
