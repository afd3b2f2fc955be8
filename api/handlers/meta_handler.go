// api/handlers/meta_handler.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/models"
)

var startedAt = time.Now()

// Health reports service liveness for load balancers and uptime checks.
func Health(c *gin.Context) {
	models.RespondOK(c, gin.H{
		"status":    "ok",
		"uptime":    time.Since(startedAt).Truncate(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, "")
}

// APIIndex lists the resource roots so clients can discover the surface.
func APIIndex(c *gin.Context) {
	models.RespondOK(c, gin.H{
		"name":    "PromptVault API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"auth":       "/api/auth",
			"categories": "/api/categories",
			"tags":       "/api/tags",
			"prompts":    "/api/prompts",
		},
	}, "")
}
