package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"habbit-backend-go/internal/cache"
	"habbit-backend-go/internal/middleware"
	"habbit-backend-go/internal/models"
)

// PreferencesHandler serves the device-local settings kept in the local cache
// store: theme, language and the tutorial-seen flag. These never require an active
// reconciler session, only an authenticated identity.
type PreferencesHandler struct {
	cache cache.Store
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(cacheStore cache.Store) *PreferencesHandler {
	return &PreferencesHandler{cache: cacheStore}
}

// GetPreferences handles GET /api/v1/preferences.
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: identity not found in context"})
		return
	}
	prefs := h.cache.GetPreferences(c.Request.Context(), identity.UID)
	c.JSON(http.StatusOK, gin.H{
		"theme":        prefs.Theme,
		"language":     prefs.Language,
		"tutorialSeen": h.cache.GetTutorialSeen(c.Request.Context(), identity.UID),
	})
}

// UpdatePreferences handles PUT /api/v1/preferences.
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: identity not found in context"})
		return
	}

	var req models.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	var prefs cache.Preferences
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.Language != nil {
		prefs.Language = *req.Language
	}
	if err := h.cache.PutPreferences(c.Request.Context(), identity.UID, prefs); err != nil {
		// Best effort, same as the rest of the local cache store.
		log.Printf("UpdatePreferences: cache write failed for uid %s: %v", identity.UID, err)
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "preferences updated"})
}

// MarkTutorialSeen handles POST /api/v1/tutorial/seen.
func (h *PreferencesHandler) MarkTutorialSeen(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: identity not found in context"})
		return
	}
	if err := h.cache.PutTutorialSeen(c.Request.Context(), identity.UID); err != nil {
		log.Printf("MarkTutorialSeen: cache write failed for uid %s: %v", identity.UID, err)
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "tutorial marked as seen"})
}
