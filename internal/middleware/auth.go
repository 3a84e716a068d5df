package middleware

import (
	"net/http"
	"time"

	"iap-verification-api/internal/models"
	"iap-verification-api/internal/response"
	"iap-verification-api/internal/services"

	"github.com/gin-gonic/gin"
)

var ProjectService *services.ProjectService

// InitProjectManager initializes the project manager
func InitProjectManager() {
	ProjectService = services.NewProjectService()
}

// ProjectAuthMiddleware provides project authentication middleware
func ProjectAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get project ID and API key
		projectID := c.GetHeader("X-Project-ID")
		apiKey := c.GetHeader("X-API-Key")

		// If not passed via header, try to get from query parameters
		if projectID == "" {
			projectID = c.Query("project_id")
		}
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if projectID == "" || apiKey == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing project_id or api_key"))
			c.Abort()
			return
		}

		// Validate project using database
		project, ok := ProjectService.ValidateProject(projectID, apiKey)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid project_id or api_key"))
			c.Abort()
			return
		}

		// The verify handler needs the whole project for secret resolution
		// and alert settings, not just the id.
		c.Set("project", project)
		c.Set("project_id", projectID)
		c.Set("request_time", time.Now())
		c.Next()
	}
}

// ProjectFromContext returns the authenticated project set by
// ProjectAuthMiddleware.
func ProjectFromContext(c *gin.Context) (*models.Project, bool) {
	v, exists := c.Get("project")
	if !exists {
		return nil, false
	}
	project, ok := v.(*models.Project)
	return project, ok
}
