package handler

import (
	"net/http"
	"strconv"

	"flowgen/internal/service"

	"github.com/gin-gonic/gin"
)

type LearningHandler struct {
	learningService *service.LearningService
	scheduler       *service.Scheduler
}

func NewLearningHandler(learningService *service.LearningService, scheduler *service.Scheduler) *LearningHandler {
	return &LearningHandler{
		learningService: learningService,
		scheduler:       scheduler,
	}
}

// RunLearningCycle fires one cycle detached from the request.
func (h *LearningHandler) RunLearningCycle(c *gin.Context) {
	h.scheduler.TriggerNow()
	c.JSON(http.StatusOK, gin.H{"message": "learning cycle started in background"})
}

// ListExamples pages the corpus, optionally filtered by source.
func (h *LearningHandler) ListExamples(c *gin.Context) {
	skip, limit := pagination(c, 50)
	source := c.Query("source")

	examples, err := h.learningService.ListExamples(c.Request.Context(), source, skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"examples": examples})
}

// GetExample returns one example including its full workflow JSON.
func (h *LearningHandler) GetExample(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	example, err := h.learningService.GetExample(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":               example.ID,
		"title":            example.Title,
		"description":      example.Description,
		"source":           example.Source,
		"source_url":       example.SourceURL,
		"workflow_json":    example.WorkflowJSON,
		"tags":             example.Tags,
		"nodes_used":       example.NodesUsed,
		"complexity_level": example.ComplexityLevel,
		"stars":            example.Stars,
		"learned_at":       example.LearnedAt,
	})
}

// GetLogs pages the ingestion audit logs, newest first.
func (h *LearningHandler) GetLogs(c *gin.Context) {
	skip, limit := pagination(c, 20)

	logs, err := h.learningService.ListLogs(c.Request.Context(), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// GetStats aggregates the corpus by source, complexity and node usage.
func (h *LearningHandler) GetStats(c *gin.Context) {
	stats, err := h.learningService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
