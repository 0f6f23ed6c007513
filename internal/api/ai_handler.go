package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habbit-backend-go/internal/ai"
	"habbit-backend-go/internal/core"
)

// AIHandler handles the synchronous AI suggestion endpoints. Failures map to the
// three-way taxonomy so the client can show the right notification; they never
// affect core task data.
type AIHandler struct {
	sessions    *core.SessionManager
	suggestions core.SuggestionService
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(sessions *core.SessionManager, suggestions core.SuggestionService) *AIHandler {
	return &AIHandler{sessions: sessions, suggestions: suggestions}
}

// aiErrorStatus maps the service error taxonomy onto HTTP statuses.
func aiErrorStatus(err error) (int, AIErrorResponse) {
	kind := ai.KindOf(err)
	switch kind {
	case ai.KindRateLimit:
		return http.StatusTooManyRequests, AIErrorResponse{Kind: string(kind), Error: "AI quota exceeded, try again later"}
	case ai.KindCredential:
		return http.StatusBadGateway, AIErrorResponse{Kind: string(kind), Error: "AI service credentials rejected"}
	default:
		return http.StatusBadGateway, AIErrorResponse{Kind: string(kind), Error: "AI service unavailable"}
	}
}

// RefreshPriority handles POST /api/v1/ai/priority: ask the AI which of today's
// pending tasks to do now and reorder today's list accordingly.
func (h *AIHandler) RefreshPriority(c *gin.Context) {
	r, ok := session(c, h.sessions)
	if !ok {
		return
	}

	priorityID, err := h.suggestions.RefreshPriority(c.Request.Context(), r)
	if err != nil {
		status, payload := aiErrorStatus(err)
		c.JSON(status, payload)
		return
	}
	c.JSON(http.StatusOK, PriorityResponse{PriorityTaskID: priorityID})
}

// GetBriefing handles GET /api/v1/ai/briefing. The briefing is computed once per
// user per day and served from the cache afterwards. 204 means the feature is
// disabled (no API key configured).
func (h *AIHandler) GetBriefing(c *gin.Context) {
	r, ok := session(c, h.sessions)
	if !ok {
		return
	}

	briefing, err := h.suggestions.MorningBriefing(c.Request.Context(), r)
	if err != nil {
		status, payload := aiErrorStatus(err)
		c.JSON(status, payload)
		return
	}
	if briefing == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, briefing)
}
