package keyphrase

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holocron-api/holocron/internal/authkit"
)

// MountRoutes registers the key-phrase endpoints. Extraction calls the paid
// external service, so it is ADMIN-only; reads need a session.
func MountRoutes(router gin.IRouter, service *Service, gate *authkit.AuthorizationGate) {
	group := router.Group("/keyphrase")
	group.POST("/extract", gate.RequireAdmin(), func(contextGin *gin.Context) {
		var inbound struct {
			CharacterID string `json:"character_id" binding:"required"`
			Text        string `json:"text" binding:"required"`
			Language    string `json:"language"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
			contextGin.JSON(http.StatusBadRequest, gin.H{"error": "invalid extraction payload"})
			return
		}
		phrases, extractErr := service.ExtractAndSave(contextGin.Request.Context(), inbound.CharacterID, inbound.Text, inbound.Language)
		if extractErr != nil {
			if errors.Is(extractErr, ErrExtractionFailed) {
				contextGin.JSON(http.StatusBadRequest, gin.H{"error": "key phrase extraction failed"})
				return
			}
			contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "could not store key phrases"})
			return
		}
		contextGin.JSON(http.StatusCreated, gin.H{"key_phrases": phrases})
	})
	group.GET("/character/:id", gate.RequireSession(), func(contextGin *gin.Context) {
		phrases, listErr := service.ListByCharacter(contextGin.Request.Context(), contextGin.Param("id"))
		if listErr != nil {
			contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "could not list key phrases"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"key_phrases": phrases})
	})
}
