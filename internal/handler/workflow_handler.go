package handler

import (
	"net/http"

	"flowgen/internal/model"
	"flowgen/internal/service"

	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	workflowService *service.WorkflowService
}

func NewWorkflowHandler(workflowService *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

// CreateWorkflow opens a new generation request at the pending stage.
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	var req struct {
		Requirement string `json:"requirement" binding:"required"`
		Context     string `json:"context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.workflowService.Create(c.Request.Context(), req.Requirement)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// AnalyzeRequirement runs the analysis stage and returns the clarifying
// questions.
func (h *WorkflowHandler) AnalyzeRequirement(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	analysis, err := h.workflowService.Analyze(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// SubmitAnswers stores the answers to the clarifying questions.
func (h *WorkflowHandler) SubmitAnswers(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	var answers []model.Answer
	if err := c.ShouldBindJSON(&answers); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	joined, err := h.workflowService.SubmitAnswers(c.Request.Context(), id, answers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "answers submitted",
		"answers": joined,
	})
}

// GenerateSpec drafts the development specification.
func (h *WorkflowHandler) GenerateSpec(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	spec, err := h.workflowService.GenerateSpec(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"development_spec": spec})
}

// UpdateSpec stores the user-edited specification and approves it.
func (h *WorkflowHandler) UpdateSpec(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	var req struct {
		DevelopmentSpec string `json:"development_spec" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.workflowService.UpdateSpec(c.Request.Context(), id, req.DevelopmentSpec); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "development spec updated"})
}

// GenerateJSON emits the workflow artifact.
func (h *WorkflowHandler) GenerateJSON(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	workflowJSON, err := h.workflowService.GenerateJSON(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workflow_json": workflowJSON})
}

// TestOptimize reviews the artifact and completes the request.
func (h *WorkflowHandler) TestOptimize(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	result, err := h.workflowService.TestAndOptimize(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetWorkflow returns one request with everything produced so far.
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	request, err := h.workflowService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListWorkflows pages requests newest first.
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	skip, limit := pagination(c, 20)

	total, requests, err := h.workflowService.List(c.Request.Context(), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"items": requests,
	})
}
