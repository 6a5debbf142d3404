package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
)

// RegisterUserRoutes mounts the recipient picker on an authenticated group.
func RegisterUserRoutes(rg *gin.RouterGroup, svc *users.Service) {
	rg.GET("/users", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			logger.Errorf("list users: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": list})
	})
}
