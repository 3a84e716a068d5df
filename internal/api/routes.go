package api

import (
	"net/http"
	"strconv"

	"iap-verification-api/internal/config"
	"iap-verification-api/internal/middleware"
	"iap-verification-api/internal/models"
	"iap-verification-api/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	// Initialize project manager
	middleware.InitProjectManager()

	receiptService := services.NewReceiptVerificationService(cfg)

	// API route group
	api := r.Group("/api")
	{
		// Receipt verification routes (require project authentication)
		verify := api.Group("/verify")
		verify.Use(middleware.ProjectAuthMiddleware())
		{
			verify.POST("/receipt", VerifyReceipt(receiptService))
		}

		// Project management routes (for admin use)
		admin := api.Group("/admin")
		{
			admin.GET("/projects", GetProjects)
			admin.POST("/projects", CreateProject)
			admin.PUT("/projects/:id", UpdateProject)
			admin.DELETE("/projects/:id", DeleteProject)
			admin.GET("/projects/:id/stats", GetProjectStats)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": cfg.ServiceName,
		})
	})
}

// GetProjects gets all projects
func GetProjects(c *gin.Context) {
	projectService := services.NewProjectService()
	projects, err := projectService.GetAllProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get projects",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    projects,
	})
}

// CreateProjectRequest represents create project request
type CreateProjectRequest struct {
	ProjectID          string `json:"project_id" binding:"required"`
	ProjectName        string `json:"project_name" binding:"required"`
	APIKey             string `json:"api_key" binding:"required"`
	Description        string `json:"description"`
	BundleID           string `json:"bundle_id"`           // iOS bundle ID
	AppleSharedSecret  string `json:"apple_shared_secret"` // per-project App Store shared secret
	RateLimit          int    `json:"rate_limit"`
	ContactEmail       string `json:"contact_email"`
	WebhookCallbackURL string `json:"webhook_callback_url"`
	WebhookSecret      string `json:"webhook_secret"`
}

// CreateProject creates a new project
func CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	project := &models.Project{
		ProjectID:          req.ProjectID,
		ProjectName:        req.ProjectName,
		APIKey:             req.APIKey,
		IsActive:           true,
		Description:        req.Description,
		BundleID:           req.BundleID,
		AppleSharedSecret:  req.AppleSharedSecret,
		RateLimit:          req.RateLimit,
		ContactEmail:       req.ContactEmail,
		WebhookCallbackURL: req.WebhookCallbackURL,
		WebhookSecret:      req.WebhookSecret,
	}

	projectService := services.NewProjectService()
	if err := projectService.CreateProject(project); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    project,
	})
}

// UpdateProject updates an existing project
func UpdateProject(c *gin.Context) {
	projectID := c.Param("id")

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	projectService := services.NewProjectService()
	if err := projectService.UpdateProject(projectID, updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Project updated successfully",
	})
}

// DeleteProject deletes a project
func DeleteProject(c *gin.Context) {
	projectID := c.Param("id")

	projectService := services.NewProjectService()
	if err := projectService.DeleteProject(projectID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Project deleted successfully",
	})
}

// GetProjectStats gets verification statistics for a project
func GetProjectStats(c *gin.Context) {
	projectID := c.Param("id")

	days := 7
	if v := c.Query("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}

	projectService := services.NewProjectService()
	stats, err := projectService.GetProjectStats(projectID, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get project stats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
