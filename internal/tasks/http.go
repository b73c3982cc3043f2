package tasks

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holocron-api/holocron/internal/authkit"
)

type controlRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// MountRoutes registers the task control and task output endpoints. Toggles
// need the ADMIN role; reading task output needs a session.
func MountRoutes(router gin.IRouter, state *StateStore, gate *authkit.AuthorizationGate) {
	taskGroup := router.Group("/tasks")
	taskGroup.POST("/weather/control", gate.RequireAdmin(), controlHandler(state, TaskFetchWeather))
	taskGroup.POST("/message/control", gate.RequireAdmin(), controlHandler(state, TaskSaveMessage))

	router.GET("/weather/:location", gate.RequireSession(), func(contextGin *gin.Context) {
		snapshot, weatherErr := state.Weather(contextGin.Request.Context(), contextGin.Param("location"))
		if weatherErr != nil {
			contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "weather storage failure"})
			return
		}
		if snapshot == nil {
			contextGin.JSON(http.StatusNotFound, gin.H{"error": "no weather snapshot for location"})
			return
		}
		contextGin.Data(http.StatusOK, "application/json", snapshot)
	})

	router.GET("/messages", gate.RequireSession(), func(contextGin *gin.Context) {
		messages, listErr := state.Messages(contextGin.Request.Context())
		if listErr != nil {
			contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "message storage failure"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"messages": messages})
	})
}

func controlHandler(state *StateStore, taskName string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound controlRequest
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || inbound.Enabled == nil {
			contextGin.JSON(http.StatusBadRequest, gin.H{"error": "invalid control payload"})
			return
		}
		if setErr := state.SetTaskEnabled(contextGin.Request.Context(), taskName, *inbound.Enabled); setErr != nil {
			contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "task state storage failure"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"task": taskName, "enabled": *inbound.Enabled})
	}
}
