package handler

import (
	"net/http"
	"strconv"

	"flowgen/internal/db"
	"flowgen/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LLMConfigHandler struct {
}

func NewLLMConfigHandler() *LLMConfigHandler {
	return &LLMConfigHandler{}
}

// CreateConfig stores a new provider configuration. Marking it default
// clears the default flag everywhere else and activates it.
func (h *LLMConfigHandler) CreateConfig(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Provider    string `json:"provider" binding:"required"`
		APIKey      string `json:"api_key"`
		APIURL      string `json:"api_url"`
		ModelName   string `json:"model_name" binding:"required"`
		Temperature int    `json:"temperature" binding:"omitempty,gte=0,lte=100"`
		MaxTokens   int    `json:"max_tokens" binding:"omitempty,gte=100,lte=32000"`
		IsDefault   bool   `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Temperature == 0 {
		req.Temperature = 70
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 4000
	}

	if req.IsDefault {
		if err := db.DB.Model(&model.LLMConfig{}).Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	llmConfig := model.LLMConfig{
		Name:        req.Name,
		Provider:    req.Provider,
		APIKey:      req.APIKey,
		APIURL:      req.APIURL,
		ModelName:   req.ModelName,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		IsDefault:   req.IsDefault,
		IsActive:    req.IsDefault, // a new default is active immediately
	}
	if err := db.DB.Create(&llmConfig).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, llmConfig)
}

// ListConfigs returns all provider configurations.
func (h *LLMConfigHandler) ListConfigs(c *gin.Context) {
	var configs []model.LLMConfig
	if err := db.DB.Find(&configs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// GetConfig returns one provider configuration.
func (h *LLMConfigHandler) GetConfig(c *gin.Context) {
	id := c.Param("id")

	var llmConfig model.LLMConfig
	if err := db.DB.First(&llmConfig, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "configuration not found"})
		return
	}

	c.JSON(http.StatusOK, llmConfig)
}

// ActivateConfig makes one configuration the active provider; every
// other configuration is deactivated first.
func (h *LLMConfigHandler) ActivateConfig(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var llmConfig model.LLMConfig
	if err := db.DB.First(&llmConfig, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "configuration not found"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.LLMConfig{}).Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&llmConfig).Update("is_active", true).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "configuration '" + llmConfig.Name + "' activated"})
}

// DeleteConfig removes one configuration.
func (h *LLMConfigHandler) DeleteConfig(c *gin.Context) {
	id := c.Param("id")

	var llmConfig model.LLMConfig
	if err := db.DB.First(&llmConfig, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "configuration not found"})
		return
	}

	if err := db.DB.Delete(&llmConfig).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "configuration deleted"})
}
