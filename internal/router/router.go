package router

import (
	"net/http"

	"flowgen/internal/handler"
	"flowgen/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(svcCtx *service.ServiceContext) *gin.Engine {
	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	workflowHandler := handler.NewWorkflowHandler(svcCtx.WorkflowService)
	learningHandler := handler.NewLearningHandler(svcCtx.LearningService, svcCtx.Scheduler)
	llmConfigHandler := handler.NewLLMConfigHandler()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := r.Group("/api")
	{
		workflow := api.Group("/workflow")
		{
			workflow.POST("/create", workflowHandler.CreateWorkflow)
			workflow.GET("", workflowHandler.ListWorkflows)
			workflow.GET("/:id", workflowHandler.GetWorkflow)
			workflow.POST("/:id/analyze", workflowHandler.AnalyzeRequirement)
			workflow.POST("/:id/answers", workflowHandler.SubmitAnswers)
			workflow.POST("/:id/generate-spec", workflowHandler.GenerateSpec)
			workflow.PUT("/:id/update-spec", workflowHandler.UpdateSpec)
			workflow.POST("/:id/generate-json", workflowHandler.GenerateJSON)
			workflow.POST("/:id/test-optimize", workflowHandler.TestOptimize)
		}

		learning := api.Group("/learning")
		{
			learning.POST("/run", learningHandler.RunLearningCycle)
			learning.GET("/examples", learningHandler.ListExamples)
			learning.GET("/examples/:id", learningHandler.GetExample)
			learning.GET("/logs", learningHandler.GetLogs)
			learning.GET("/stats", learningHandler.GetStats)
		}

		llm := api.Group("/llm")
		{
			llm.POST("/config", llmConfigHandler.CreateConfig)
			llm.GET("/config", llmConfigHandler.ListConfigs)
			llm.GET("/config/:id", llmConfigHandler.GetConfig)
			llm.PUT("/config/:id/activate", llmConfigHandler.ActivateConfig)
			llm.DELETE("/config/:id", llmConfigHandler.DeleteConfig)
		}
	}

	return r
}
