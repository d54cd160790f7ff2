package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"flowgen/internal/model"
)

// AnalyzedRequirement is the structured output of requirement analysis.
type AnalyzedRequirement struct {
	Summary              string           `json:"summary"`
	IdentifiedComponents []string         `json:"identified_components"`
	MissingInformation   []string         `json:"missing_information"`
	Questions            []model.Question `json:"questions"`
	EstimatedComplexity  string           `json:"estimated_complexity"`
}

// TestResult is the structured output of the workflow review step.
type TestResult struct {
	Passed                    bool     `json:"passed"`
	Issues                    []string `json:"issues"`
	Suggestions               []string `json:"suggestions"`
	OptimizationOpportunities []string `json:"optimization_opportunities"`
	OptimizedJSON             string   `json:"optimized_json,omitempty"`
}

// Generator layers the pipeline's four reasoning capabilities on top of
// a Provider: analyze a requirement, draft a development spec, emit the
// workflow JSON, review the result. Malformed provider output is handled
// by substitution, never by failing the stage.
type Generator struct {
	provider Provider
}

func NewGenerator(provider Provider) *Generator {
	return &Generator{provider: provider}
}

const analyzeSystemPrompt = `You are an expert n8n workflow analyst. Your task is to analyze user requirements
and identify what information is needed to create a perfect n8n workflow.

IMPORTANT: Do NOT make assumptions. If information is unclear or missing, you MUST ask questions.

Analyze the requirement and return a JSON response with:
1. summary: Brief summary of what the user wants
2. identified_components: List of components you identified
3. missing_information: List of information that is missing or unclear
4. questions: Array of questions to ask the user (each with id, question, question_type, options if applicable, required)
5. estimated_complexity: "simple", "medium", or "complex"

Question types: "text", "choice", "multiple_choice"`

// AnalyzeRequirement asks the provider for a structured analysis of the
// requirement. A provider transport error surfaces as ProviderError; a
// response that is not valid analysis JSON degrades to a minimal
// analysis carrying the raw text as its summary.
func (g *Generator) AnalyzeRequirement(ctx context.Context, requirement, extraContext string) (*AnalyzedRequirement, error) {
	if extraContext == "" {
		extraContext = "None provided"
	}
	user := fmt.Sprintf("Requirement: %s\n\nContext: %s", requirement, extraContext)

	raw, err := g.provider.Complete(ctx, analyzeSystemPrompt, user)
	if err != nil {
		return nil, &ProviderError{Op: "analyze", Err: err}
	}

	var analysis AnalyzedRequirement
	if err := json.Unmarshal([]byte(extractJSONBlock(raw)), &analysis); err != nil {
		return degradedAnalysis(raw), nil
	}
	if analysis.IdentifiedComponents == nil {
		analysis.IdentifiedComponents = []string{}
	}
	if analysis.MissingInformation == nil {
		analysis.MissingInformation = []string{}
	}
	if analysis.Questions == nil {
		analysis.Questions = []model.Question{}
	}
	if analysis.EstimatedComplexity == "" {
		analysis.EstimatedComplexity = model.ComplexityMedium
	}
	return &analysis, nil
}

func degradedAnalysis(raw string) *AnalyzedRequirement {
	summary := raw
	if len(summary) > 200 {
		summary = summary[:200]
	}
	return &AnalyzedRequirement{
		Summary:              summary,
		IdentifiedComponents: []string{},
		MissingInformation:   []string{},
		Questions:            []model.Question{},
		EstimatedComplexity:  model.ComplexityMedium,
	}
}

const specSystemPrompt = `You are an expert n8n workflow architect. Create a comprehensive development specification
document for building an n8n workflow based on user requirements and answers.

The specification should include:
1. Title: Clear title for the workflow
2. Objective: What the workflow aims to achieve
3. User Requirements: Detailed breakdown of requirements
4. Workflow Steps: Step-by-step execution flow
5. Required Nodes: List of n8n nodes needed
6. Node Configurations: Configuration for each node
7. Data Flow: How data moves between nodes
8. Error Handling: Error handling strategies
9. Testing Criteria: How to test the workflow
10. Estimated Cost: If using paid APIs or services

Use the learned examples as reference for best practices.
Be specific and detailed. Focus on efficiency and cost-effectiveness.`

// GenerateSpec drafts the development specification from the
// requirement, the joined answers and up to five reference examples.
func (g *Generator) GenerateSpec(ctx context.Context, requirement string, answers []model.JoinedAnswer, examples []model.LearnedExample) (string, error) {
	var answerLines []string
	for i, ans := range answers {
		answerLines = append(answerLines, fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, ans.Question, i+1, ans.Answer))
	}

	var exampleLines []string
	for i, ex := range examples {
		if i >= 5 {
			break
		}
		exampleLines = append(exampleLines, fmt.Sprintf(
			"Example %d: %s\nDescription: %s\nNodes: %s\nComplexity: %s",
			i+1, ex.Title, ex.Description, strings.Join(decodeStringList(ex.NodesUsed), ", "), ex.ComplexityLevel))
	}

	user := fmt.Sprintf(`Original Requirement: %s

User Answers:
%s

Relevant Examples:
%s

Generate a comprehensive development specification document.`,
		requirement, strings.Join(answerLines, "\n"), strings.Join(exampleLines, "\n\n"))

	spec, err := g.provider.Complete(ctx, specSystemPrompt, user)
	if err != nil {
		return "", &ProviderError{Op: "generate_spec", Err: err}
	}
	return spec, nil
}

const jsonSystemPrompt = `You are an expert n8n workflow developer. Generate a complete, valid n8n workflow JSON
based on the development specification.

IMPORTANT:
1. The JSON must be valid n8n format
2. Include all necessary nodes and connections
3. Configure each node properly
4. Use appropriate node types from n8n's latest nodes
5. Ensure proper error handling
6. Optimize for performance and cost
7. Follow n8n best practices

Return ONLY the JSON workflow, no explanations.`

// GenerateJSON emits the workflow JSON from the approved specification
// and up to three reference artifacts.
func (g *Generator) GenerateJSON(ctx context.Context, developmentSpec string, examples []model.LearnedExample) (string, error) {
	var exampleLines []string
	for i, ex := range examples {
		if i >= 3 {
			break
		}
		payload := ex.WorkflowJSON
		if len(payload) > 500 {
			payload = payload[:500] + "..."
		}
		exampleLines = append(exampleLines, fmt.Sprintf("Example %d (%s):\n%s", i+1, ex.Title, payload))
	}

	user := fmt.Sprintf(`Development Specification:
%s

Reference Examples (for structure):
%s

Generate the complete n8n workflow JSON:`, developmentSpec, strings.Join(exampleLines, "\n\n"))

	workflowJSON, err := g.provider.Complete(ctx, jsonSystemPrompt, user)
	if err != nil {
		return "", &ProviderError{Op: "generate_json", Err: err}
	}
	return workflowJSON, nil
}

const reviewSystemPrompt = `You are an expert n8n workflow reviewer. Analyze the generated workflow JSON and:

1. Check for errors or invalid configurations
2. Verify it meets the development specification
3. Identify optimization opportunities
4. Suggest improvements for efficiency and cost
5. Check for security concerns
6. Validate error handling

Return a JSON response with:
- passed: boolean (true if workflow is valid and meets spec)
- issues: array of issues found
- suggestions: array of improvement suggestions
- optimization_opportunities: array of optimization ideas
- optimized_json: improved version of the workflow JSON (if changes needed)`

// TestAndOptimize reviews the generated workflow against the spec. A
// non-JSON review degrades to a passing result that leaves the workflow
// unchanged.
func (g *Generator) TestAndOptimize(ctx context.Context, workflowJSON, developmentSpec string) (*TestResult, error) {
	user := fmt.Sprintf(`Development Specification:
%s

Generated Workflow JSON:
%s

Analyze and optimize:`, developmentSpec, workflowJSON)

	raw, err := g.provider.Complete(ctx, reviewSystemPrompt, user)
	if err != nil {
		return nil, &ProviderError{Op: "test_optimize", Err: err}
	}

	var result TestResult
	if err := json.Unmarshal([]byte(extractJSONBlock(raw)), &result); err != nil {
		return &TestResult{
			Passed:                    true,
			Issues:                    []string{},
			Suggestions:               []string{},
			OptimizationOpportunities: []string{},
			OptimizedJSON:             workflowJSON,
		}, nil
	}
	if result.Issues == nil {
		result.Issues = []string{}
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	if result.OptimizationOpportunities == nil {
		result.OptimizationOpportunities = []string{}
	}
	return &result, nil
}

// extractJSONBlock tolerates markdown fences and prose around a JSON
// object: it returns the span from the first '{' to the last '}'.
func extractJSONBlock(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
