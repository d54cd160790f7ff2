package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"flowgen/internal/config"
	"flowgen/internal/db"
	"flowgen/internal/model"
	"flowgen/internal/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// LearningService owns the example corpus: it runs ingestion cycles
// over the external sources, serves retrieval for the generation
// pipeline, and aggregates corpus statistics.
type LearningService struct {
	cfg    config.LearningConfig
	log    *logger.Logger
	client *http.Client
}

func NewLearningService(cfg config.LearningConfig, log *logger.Logger) *LearningService {
	return &LearningService{
		cfg: cfg,
		log: log,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SourceResult is one source's outcome within a cycle.
type SourceResult struct {
	ExamplesFound int    `json:"examples_found"`
	ExamplesAdded int    `json:"examples_added"`
	Skipped       int    `json:"skipped"`
	Error         string `json:"error,omitempty"`
}

// CycleResult is the always-complete report of one ingestion cycle.
// A failed source shows up in Sources with its error; it never aborts
// the cycle or its siblings.
type CycleResult struct {
	CycleID     string                  `json:"cycle_id"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
	Sources     map[string]SourceResult `json:"sources"`
}

// crawlCounts accumulates per-item outcomes during one crawl. It is
// passed by pointer so counts gathered before a fatal error survive
// into the closed log.
type crawlCounts struct {
	found   int
	added   int
	skipped int
}

// RunLearningCycle runs every configured crawler once. The github
// source only runs when an access token is configured.
func (s *LearningService) RunLearningCycle(ctx context.Context) *CycleResult {
	result := &CycleResult{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Sources:   make(map[string]SourceResult),
	}

	result.Sources["docs"] = s.runSource(ctx, "docs", s.learnFromDocs)
	result.Sources["templates"] = s.runSource(ctx, "templates", s.learnFromTemplates)
	if s.cfg.GitHubToken != "" {
		result.Sources["github"] = s.runSource(ctx, "github", s.learnFromGitHub)
	}

	result.CompletedAt = time.Now().UTC()
	s.log.Info("learning cycle finished",
		"cycle_id", result.CycleID, "sources", len(result.Sources))
	return result
}

// runSource brackets one crawl with its audit log: the log row opens
// as running before the crawl and always closes as completed or failed,
// keeping whatever counts the crawl accumulated.
func (s *LearningService) runSource(ctx context.Context, learningType string, crawl func(context.Context, *crawlCounts) error) SourceResult {
	logRow := model.LearningLog{
		LearningType: learningType,
		Status:       model.LogStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	if err := db.DB.WithContext(ctx).Create(&logRow).Error; err != nil {
		s.log.Error("open learning log", "type", learningType, "error", err)
		return SourceResult{Error: err.Error()}
	}

	var counts crawlCounts
	crawlErr := crawl(ctx, &counts)

	now := time.Now().UTC()
	logRow.ExamplesFound = counts.found
	logRow.ExamplesAdded = counts.added
	logRow.CompletedAt = &now
	if crawlErr != nil {
		logRow.Status = model.LogStatusFailed
		logRow.ErrorMessage = crawlErr.Error()
		if logRow.ErrorMessage == "" {
			logRow.ErrorMessage = "crawl failed"
		}
	} else {
		logRow.Status = model.LogStatusCompleted
	}
	if err := db.DB.WithContext(ctx).Save(&logRow).Error; err != nil {
		s.log.Error("close learning log", "type", learningType, "error", err)
	}

	res := SourceResult{
		ExamplesFound: counts.found,
		ExamplesAdded: counts.added,
		Skipped:       counts.skipped,
	}
	if crawlErr != nil {
		res.Error = logRow.ErrorMessage
		s.log.Warn("source crawl failed", "type", learningType, "error", crawlErr)
	} else {
		s.log.Info("source crawl finished",
			"type", learningType, "found", counts.found, "added", counts.added, "skipped", counts.skipped)
	}
	return res
}

// exampleCandidate is a crawler's normalized view of one artifact
// before admission.
type exampleCandidate struct {
	title       string
	description string
	source      string
	sourceURL   string
	// dedupURL is the canonical per-artifact URL; empty when the
	// artifact has none (dedup then falls back to the content hash).
	dedupURL string
	raw      string
	parsed   *workflowShape
	stars    int
}

// workflowShape is the structural skeleton ingestion cares about: a
// nodes collection with optional types, and connection groups counted
// for the complexity tier.
type workflowShape struct {
	nodeTypes        []string
	connectionGroups int
}

// parseWorkflowArtifact admits any JSON object carrying a "nodes"
// collection. Anything else is rejected.
func parseWorkflowArtifact(raw string) (*workflowShape, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	nodesRaw, ok := obj["nodes"]
	if !ok {
		return nil, false
	}

	var nodes []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(nodesRaw, &nodes); err != nil {
		return nil, false
	}

	shape := &workflowShape{}
	for _, n := range nodes {
		shape.nodeTypes = append(shape.nodeTypes, n.Type)
	}

	if connsRaw, ok := obj["connections"]; ok {
		var conns map[string]json.RawMessage
		if err := json.Unmarshal(connsRaw, &conns); err == nil {
			shape.connectionGroups = len(conns)
		}
	}
	return shape, true
}

// admitExample inserts a candidate unless its dedup key already exists.
// The unique index resolves concurrent admissions; a conflicting insert
// simply counts as not added.
func (s *LearningService) admitExample(ctx context.Context, cand exampleCandidate) (bool, error) {
	dedupKey := cand.source + "|" + cand.dedupURL
	if cand.dedupURL == "" {
		sum := sha256.Sum256([]byte(cand.raw))
		dedupKey = cand.source + "|" + hex.EncodeToString(sum[:])
	}

	nodesUsed, _ := json.Marshal(cand.parsed.nodeTypes)
	example := model.LearnedExample{
		Title:           cand.title,
		Description:     cand.description,
		Source:          cand.source,
		SourceURL:       cand.sourceURL,
		WorkflowJSON:    cand.raw,
		DedupKey:        dedupKey,
		NodesUsed:       nodesUsed,
		ComplexityLevel: EstimateComplexity(len(cand.parsed.nodeTypes), cand.parsed.connectionGroups),
		Stars:           cand.stars,
		LearnedAt:       time.Now().UTC(),
	}

	res := db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&example)
	if res.Error != nil {
		return false, fmt.Errorf("insert example: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RelevantExamples ranks the corpus for a requirement: stars
// descending, then recency. The requirement text is accepted for a
// future smarter ranking but does not influence the current one.
func (s *LearningService) RelevantExamples(ctx context.Context, requirement string, limit int) ([]model.LearnedExample, error) {
	_ = requirement

	var examples []model.LearnedExample
	err := db.DB.WithContext(ctx).
		Order("stars DESC").
		Order("learned_at DESC").
		Limit(limit).
		Find(&examples).Error
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	return examples, nil
}

// ListExamples pages the corpus, optionally filtered by source, in the
// same popularity/recency order retrieval uses.
func (s *LearningService) ListExamples(ctx context.Context, source string, skip, limit int) ([]model.LearnedExample, error) {
	query := db.DB.WithContext(ctx).Model(&model.LearnedExample{})
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var examples []model.LearnedExample
	err := query.
		Order("stars DESC").
		Order("learned_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&examples).Error
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	return examples, nil
}

func (s *LearningService) GetExample(ctx context.Context, id uint) (*model.LearnedExample, error) {
	var example model.LearnedExample
	if err := db.DB.WithContext(ctx).First(&example, id).Error; err != nil {
		return nil, fmt.Errorf("%w: example %d", ErrNotFound, id)
	}
	return &example, nil
}

func (s *LearningService) ListLogs(ctx context.Context, skip, limit int) ([]model.LearningLog, error) {
	var logs []model.LearningLog
	err := db.DB.WithContext(ctx).
		Order("started_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	return logs, nil
}

// NodeCount is one node type's corpus-wide usage.
type NodeCount struct {
	Node  string `json:"node"`
	Count int    `json:"count"`
}

// LearningStats is the on-demand corpus aggregate.
type LearningStats struct {
	TotalExamples int            `json:"total_examples"`
	BySource      map[string]int `json:"by_source"`
	ByComplexity  map[string]int `json:"by_complexity"`
	TopNodes      []NodeCount    `json:"top_nodes"`
}

const topNodesLimit = 20

// Stats scans the corpus and aggregates counts by source, complexity
// and node type, the node types reduced to the top 20 by frequency.
func (s *LearningService) Stats(ctx context.Context) (*LearningStats, error) {
	var examples []model.LearnedExample
	if err := db.DB.WithContext(ctx).Find(&examples).Error; err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}

	stats := &LearningStats{
		TotalExamples: len(examples),
		BySource:      make(map[string]int),
		ByComplexity:  make(map[string]int),
	}

	nodeCounts := make(map[string]int)
	for _, example := range examples {
		stats.BySource[example.Source]++

		complexity := example.ComplexityLevel
		if complexity == "" {
			complexity = "unknown"
		}
		stats.ByComplexity[complexity]++

		for _, node := range decodeStringList(example.NodesUsed) {
			nodeCounts[node]++
		}
	}

	for node, count := range nodeCounts {
		stats.TopNodes = append(stats.TopNodes, NodeCount{Node: node, Count: count})
	}
	sort.Slice(stats.TopNodes, func(i, j int) bool {
		if stats.TopNodes[i].Count != stats.TopNodes[j].Count {
			return stats.TopNodes[i].Count > stats.TopNodes[j].Count
		}
		return stats.TopNodes[i].Node < stats.TopNodes[j].Node
	})
	if len(stats.TopNodes) > topNodesLimit {
		stats.TopNodes = stats.TopNodes[:topNodesLimit]
	}

	return stats, nil
}
