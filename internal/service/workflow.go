package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"flowgen/internal/config"
	"flowgen/internal/db"
	"flowgen/internal/model"
	"flowgen/internal/pkg/logger"
)

// WorkflowService drives a request through its pipeline stages. Every
// stage advance is a compare-and-swap on the status column, so a
// concurrent duplicate call observes ErrStageConflict instead of
// racing, and a provider failure leaves the stage where it was so the
// same call can simply be repeated.
type WorkflowService struct {
	defaultLLM config.LLMConfig
	learning   *LearningService
	log        *logger.Logger

	// provider construction, replaceable in tests
	newProvider func(ProviderOptions) (Provider, error)
}

func NewWorkflowService(defaultLLM config.LLMConfig, learning *LearningService, log *logger.Logger) *WorkflowService {
	return &WorkflowService{
		defaultLLM:  defaultLLM,
		learning:    learning,
		log:         log,
		newProvider: NewProvider,
	}
}

// generator resolves the active provider configuration: the activated
// LLMConfig row wins, the file config is the fallback.
func (s *WorkflowService) generator(ctx context.Context) (*Generator, error) {
	opts := ProviderOptions{
		Provider:    s.defaultLLM.Provider,
		APIKey:      s.defaultLLM.APIKey,
		APIURL:      s.defaultLLM.APIURL,
		ModelName:   s.defaultLLM.ModelName,
		Temperature: s.defaultLLM.Temperature,
		MaxTokens:   s.defaultLLM.MaxTokens,
	}

	var row model.LLMConfig
	if err := db.DB.WithContext(ctx).Where("is_active = ?", true).First(&row).Error; err == nil {
		opts = ProviderOptions{
			Provider:    row.Provider,
			APIKey:      row.APIKey,
			APIURL:      row.APIURL,
			ModelName:   row.ModelName,
			Temperature: row.Temperature,
			MaxTokens:   row.MaxTokens,
		}
	}

	provider, err := s.newProvider(opts)
	if err != nil {
		return nil, err
	}
	return NewGenerator(provider), nil
}

// Create inserts a new request at the pending stage.
func (s *WorkflowService) Create(ctx context.Context, requirement string) (*model.WorkflowRequest, error) {
	if strings.TrimSpace(requirement) == "" {
		return nil, fmt.Errorf("%w: requirement is empty", ErrValidation)
	}

	request := model.WorkflowRequest{
		UserRequirement: requirement,
		Status:          model.StagePending,
	}
	if err := db.DB.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return &request, nil
}

func (s *WorkflowService) Get(ctx context.Context, id uint) (*model.WorkflowRequest, error) {
	var request model.WorkflowRequest
	if err := db.DB.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, id)
	}
	return &request, nil
}

// List returns the total count plus one page, newest first.
func (s *WorkflowService) List(ctx context.Context, skip, limit int) (int64, []model.WorkflowRequest, error) {
	var total int64
	if err := db.DB.WithContext(ctx).Model(&model.WorkflowRequest{}).Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("count requests: %w", err)
	}

	var requests []model.WorkflowRequest
	err := db.DB.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(skip).
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return 0, nil, fmt.Errorf("query requests: %w", err)
	}
	return total, requests, nil
}

// advance performs one stage-guarded write: the update only applies
// while the request sits in one of the allowed stages.
func (s *WorkflowService) advance(ctx context.Context, id uint, allowed []model.Stage, updates map[string]interface{}) error {
	res := db.DB.WithContext(ctx).
		Model(&model.WorkflowRequest{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		db.DB.WithContext(ctx).Model(&model.WorkflowRequest{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return fmt.Errorf("%w: request %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: request %d", ErrStageConflict, id)
	}
	return nil
}

// Analyze runs requirement analysis and stores the produced questions.
// Entry from analyzing/awaiting_answers is allowed so a failed or
// unsatisfying analysis can be replayed.
func (s *WorkflowService) Analyze(ctx context.Context, id uint) (*AnalyzedRequirement, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := []model.Stage{model.StagePending, model.StageAnalyzing, model.StageAwaitingAnswers}
	if err := s.advance(ctx, id, entry, map[string]interface{}{"status": model.StageAnalyzing}); err != nil {
		return nil, err
	}

	gen, err := s.generator(ctx)
	if err != nil {
		return nil, err
	}

	analysis, err := gen.AnalyzeRequirement(ctx, request.UserRequirement, "")
	if err != nil {
		return nil, err
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	questionsJSON, err := json.Marshal(analysis.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}

	err = s.advance(ctx, id, []model.Stage{model.StageAnalyzing}, map[string]interface{}{
		"analyzed_requirement": analysisJSON,
		"questions_asked":      questionsJSON,
		"status":               model.StageAwaitingAnswers,
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// SubmitAnswers joins the submitted answers to the asked questions by
// question id and moves the request to spec generation. An answer whose
// id matches no question is kept with an empty question text.
func (s *WorkflowService) SubmitAnswers(ctx context.Context, id uint, answers []model.Answer) ([]model.JoinedAnswer, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(request.QuestionsAsked) == 0 {
		return nil, fmt.Errorf("%w: request %d has no questions to answer", ErrValidation, id)
	}

	var questions []model.Question
	if err := json.Unmarshal(request.QuestionsAsked, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	questionText := make(map[string]string, len(questions))
	for _, q := range questions {
		questionText[q.ID] = q.Question
	}

	joined := make([]model.JoinedAnswer, 0, len(answers))
	for _, ans := range answers {
		joined = append(joined, model.JoinedAnswer{
			QuestionID: ans.QuestionID,
			Question:   questionText[ans.QuestionID],
			Answer:     ans.Answer,
		})
	}

	joinedJSON, err := json.Marshal(joined)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}

	entry := []model.Stage{model.StageAwaitingAnswers, model.StageGeneratingSpec}
	err = s.advance(ctx, id, entry, map[string]interface{}{
		"user_answers": joinedJSON,
		"status":       model.StageGeneratingSpec,
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// GenerateSpec drafts the development specification from the
// requirement, answers and up to ten retrieved examples.
func (s *WorkflowService) GenerateSpec(ctx context.Context, id uint) (string, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if request.Status != model.StageGeneratingSpec {
		return "", fmt.Errorf("%w: request %d is at %s", ErrStageConflict, id, request.Status)
	}

	var answers []model.JoinedAnswer
	if len(request.UserAnswers) > 0 {
		if err := json.Unmarshal(request.UserAnswers, &answers); err != nil {
			return "", fmt.Errorf("decode answers: %w", err)
		}
	}

	examples, err := s.learning.RelevantExamples(ctx, request.UserRequirement, 10)
	if err != nil {
		return "", err
	}

	gen, err := s.generator(ctx)
	if err != nil {
		return "", err
	}

	spec, err := gen.GenerateSpec(ctx, request.UserRequirement, answers, examples)
	if err != nil {
		return "", err
	}

	err = s.advance(ctx, id, []model.Stage{model.StageGeneratingSpec}, map[string]interface{}{
		"development_spec": spec,
		"status":           model.StageSpecReview,
	})
	if err != nil {
		return "", err
	}
	return spec, nil
}

// UpdateSpec replaces the specification with the user-edited version.
// Human review is the transition trigger: the request advances to
// spec_approved, never backward.
func (s *WorkflowService) UpdateSpec(ctx context.Context, id uint, spec string) error {
	if strings.TrimSpace(spec) == "" {
		return fmt.Errorf("%w: development spec is empty", ErrValidation)
	}
	return s.advance(ctx, id, []model.Stage{model.StageSpecReview}, map[string]interface{}{
		"development_spec": spec,
		"status":           model.StageSpecApproved,
	})
}

// GenerateJSON emits the workflow artifact from the approved spec and
// up to five retrieved examples. Entry from generating_json is allowed
// so a provider failure can be replayed.
func (s *WorkflowService) GenerateJSON(ctx context.Context, id uint) (string, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if request.DevelopmentSpec == "" {
		return "", fmt.Errorf("%w: request %d has no development spec", ErrStageConflict, id)
	}

	entry := []model.Stage{model.StageSpecApproved, model.StageGeneratingJSON}
	if err := s.advance(ctx, id, entry, map[string]interface{}{"status": model.StageGeneratingJSON}); err != nil {
		return "", err
	}

	examples, err := s.learning.RelevantExamples(ctx, request.UserRequirement, 5)
	if err != nil {
		return "", err
	}

	gen, err := s.generator(ctx)
	if err != nil {
		return "", err
	}

	workflowJSON, err := gen.GenerateJSON(ctx, request.DevelopmentSpec, examples)
	if err != nil {
		return "", err
	}

	err = s.advance(ctx, id, []model.Stage{model.StageGeneratingJSON}, map[string]interface{}{
		"generated_json": workflowJSON,
		"status":         model.StageTesting,
	})
	if err != nil {
		return "", err
	}
	return workflowJSON, nil
}

// TestAndOptimize reviews the generated artifact against the spec and
// completes the request. The final artifact is the provider's optimized
// version when one is supplied, otherwise the generated one unchanged.
func (s *WorkflowService) TestAndOptimize(ctx context.Context, id uint) (*TestResult, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != model.StageTesting {
		return nil, fmt.Errorf("%w: request %d is at %s", ErrStageConflict, id, request.Status)
	}

	gen, err := s.generator(ctx)
	if err != nil {
		return nil, err
	}

	result, err := gen.TestAndOptimize(ctx, request.GeneratedJSON, request.DevelopmentSpec)
	if err != nil {
		return nil, err
	}

	finalJSON := result.OptimizedJSON
	if finalJSON == "" {
		finalJSON = request.GeneratedJSON
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal test result: %w", err)
	}

	err = s.advance(ctx, id, []model.Stage{model.StageTesting}, map[string]interface{}{
		"test_results": resultJSON,
		"final_json":   finalJSON,
		"status":       model.StageCompleted,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
