package characters

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holocron-api/holocron/internal/authkit"
)

type characterRequest struct {
	Name      string `json:"name" binding:"required"`
	Height    int    `json:"height"`
	Mass      int    `json:"mass"`
	HairColor string `json:"hair_color"`
	SkinColor string `json:"skin_color"`
	EyeColor  string `json:"eye_color" binding:"required"`
}

// MountRoutes registers the character and eye-color endpoints. Reads need a
// session; mutations need the ADMIN role.
func MountRoutes(router gin.IRouter, service *Service, gate *authkit.AuthorizationGate) {
	characterGroup := router.Group("/character")
	characterGroup.GET("/getAll", gate.RequireSession(), func(contextGin *gin.Context) {
		listing, listErr := service.List(contextGin.Request.Context())
		if listErr != nil {
			writeCharacterError(contextGin, listErr)
			return
		}
		contextGin.JSON(http.StatusOK, listing)
	})
	characterGroup.GET("/get/:name", gate.RequireSession(), func(contextGin *gin.Context) {
		matched, listErr := service.GetByName(contextGin.Request.Context(), contextGin.Param("name"))
		if listErr != nil {
			writeCharacterError(contextGin, listErr)
			return
		}
		contextGin.JSON(http.StatusOK, matched)
	})
	characterGroup.POST("/add", gate.RequireAdmin(), func(contextGin *gin.Context) {
		var inbound characterRequest
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
			contextGin.JSON(http.StatusBadRequest, gin.H{"error": "invalid character payload"})
			return
		}
		created, createErr := service.Create(contextGin.Request.Context(), toDomain(inbound))
		if createErr != nil {
			writeCharacterError(contextGin, createErr)
			return
		}
		contextGin.JSON(http.StatusCreated, created)
	})
	characterGroup.PUT("/update/:id", gate.RequireAdmin(), func(contextGin *gin.Context) {
		var inbound characterRequest
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
			contextGin.JSON(http.StatusBadRequest, gin.H{"error": "invalid character payload"})
			return
		}
		updated, updateErr := service.Update(contextGin.Request.Context(), contextGin.Param("id"), toDomain(inbound))
		if updateErr != nil {
			writeCharacterError(contextGin, updateErr)
			return
		}
		contextGin.JSON(http.StatusOK, updated)
	})
	characterGroup.DELETE("/delete/:id", gate.RequireAdmin(), func(contextGin *gin.Context) {
		if deleteErr := service.Delete(contextGin.Request.Context(), contextGin.Param("id")); deleteErr != nil {
			writeCharacterError(contextGin, deleteErr)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	eyeColorGroup := router.Group("/eye_color")
	eyeColorGroup.GET("/getAll", gate.RequireSession(), func(contextGin *gin.Context) {
		colors, listErr := service.ListEyeColors(contextGin.Request.Context())
		if listErr != nil {
			writeCharacterError(contextGin, listErr)
			return
		}
		contextGin.JSON(http.StatusOK, colors)
	})
	eyeColorGroup.POST("/add", gate.RequireAdmin(), func(contextGin *gin.Context) {
		var inbound struct {
			Color string `json:"color" binding:"required"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
			contextGin.JSON(http.StatusBadRequest, gin.H{"error": "invalid eye color payload"})
			return
		}
		created, createErr := service.CreateEyeColor(contextGin.Request.Context(), inbound.Color)
		if createErr != nil {
			writeCharacterError(contextGin, createErr)
			return
		}
		contextGin.JSON(http.StatusCreated, created)
	})
}

func toDomain(inbound characterRequest) Character {
	return Character{
		Name:      inbound.Name,
		Height:    inbound.Height,
		Mass:      inbound.Mass,
		HairColor: inbound.HairColor,
		SkinColor: inbound.SkinColor,
		EyeColor:  inbound.EyeColor,
	}
}

func writeCharacterError(contextGin *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCharacterNotFound):
		contextGin.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
	case errors.Is(err, ErrUnknownEyeColor):
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "eye color not found"})
	case errors.Is(err, ErrEyeColorExists):
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "eye color already exists"})
	default:
		contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "character storage failure"})
	}
}
