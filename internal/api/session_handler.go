package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"habbit-backend-go/internal/core"
	"habbit-backend-go/internal/middleware"
)

// SessionHandler handles identity session lifecycle endpoints.
type SessionHandler struct {
	sessions *core.SessionManager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *core.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Attach handles POST /api/v1/session/attach. Called by a client after a Firebase
// login to attach the backend session to the identity's remote document. The
// response always carries a renderable snapshot: the cached one immediately, with
// `loaded` reporting whether remote data has arrived yet.
func (h *SessionHandler) Attach(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: identity not found in context"})
		return
	}

	r, err := h.sessions.Attach(c.Request.Context(), identity)
	if err != nil {
		// The session still exists with its cached bootstrap snapshot; the
		// persistence gate stays closed. Report the attach failure alongside.
		log.Printf("Attach: remote attach failed for uid %s: %v", identity.UID, err)
	}
	c.JSON(http.StatusOK, SnapshotResponse{Snapshot: r.Snapshot()})
}

// Detach handles DELETE /api/v1/session. In-memory state for the identity is
// cleared; the local cache is kept.
func (h *SessionHandler) Detach(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: identity not found in context"})
		return
	}
	h.sessions.Detach(identity.UID)
	c.JSON(http.StatusOK, SuccessResponse{Message: "session detached"})
}

// session fetches the active reconciler for the authenticated identity; shared by
// the other handlers.
func session(c *gin.Context, sessions *core.SessionManager) (*core.Reconciler, bool) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: identity not found in context"})
		return nil, false
	}
	r, ok := sessions.Get(identity.UID)
	if !ok {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "No active session; call /session/attach first"})
		return nil, false
	}
	return r, true
}
