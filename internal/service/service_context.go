package service

import (
	"flowgen/internal/config"
	"flowgen/internal/pkg/logger"
)

type ServiceContext struct {
	Config          *config.Config
	Logger          *logger.Logger
	LearningService *LearningService
	WorkflowService *WorkflowService
	Scheduler       *Scheduler
}

func NewServiceContext(cfg *config.Config, log *logger.Logger) *ServiceContext {
	learningService := NewLearningService(cfg.Learning, log)
	workflowService := NewWorkflowService(cfg.LLM, learningService, log)
	scheduler := NewScheduler(learningService, cfg.Learning, log)

	return &ServiceContext{
		Config:          cfg,
		Logger:          log,
		LearningService: learningService,
		WorkflowService: workflowService,
		Scheduler:       scheduler,
	}
}
