package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"habbit-backend-go/internal/core"
	"habbit-backend-go/internal/models"
)

// HabitHandler handles habit CRUD, notes and progress endpoints. All mutations are
// optimistic: the response carries the already-updated snapshot while the remote
// merge-write completes in the background (or is suppressed behind the loaded gate).
type HabitHandler struct {
	sessions    *core.SessionManager
	suggestions core.SuggestionService
}

// NewHabitHandler creates a new HabitHandler.
func NewHabitHandler(sessions *core.SessionManager, suggestions core.SuggestionService) *HabitHandler {
	return &HabitHandler{sessions: sessions, suggestions: suggestions}
}

func (h *HabitHandler) respondSnapshot(c *gin.Context, r *core.Reconciler, snap core.Snapshot) {
	c.JSON(http.StatusOK, SnapshotResponse{
		Snapshot:   snap,
		WriteError: r.TakeWriteError(),
		AIError:    r.TakeAIError(),
	})
}

func (h *HabitHandler) dispatch(c *gin.Context, op func(core.Snapshot, string) core.Snapshot) (*core.Reconciler, core.Snapshot, bool) {
	r, ok := session(c, h.sessions)
	if !ok {
		return nil, core.Snapshot{}, false
	}
	snap, err := r.Dispatch(c.Request.Context(), op)
	if err != nil {
		if errors.Is(err, core.ErrNoIdentity) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "No identity attached to session"})
		} else {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to apply operation", Details: err.Error()})
		}
		return nil, core.Snapshot{}, false
	}
	return r, snap, true
}

// GetSnapshot handles GET /api/v1/snapshot.
func (h *HabitHandler) GetSnapshot(c *gin.Context) {
	r, ok := session(c, h.sessions)
	if !ok {
		return
	}
	h.respondSnapshot(c, r, r.Snapshot())
}

// AddHabit handles POST /api/v1/habits. The new habit lands before the rest of
// today's list and a background tag suggestion is kicked off for it.
func (h *HabitHandler) AddHabit(c *gin.Context) {
	var req models.AddHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	var added models.Habit
	r, snap, ok := h.dispatch(c, func(snap core.Snapshot, today string) core.Snapshot {
		out, habit := core.AddHabit(snap, req.Text, today)
		added = habit
		return out
	})
	if !ok {
		return
	}

	// Fire-and-forget; a failure surfaces as a transient AI toast, never as a
	// failure of the add itself.
	h.suggestions.AnalyzeHabit(r, added)

	h.respondSnapshot(c, r, snap)
}

// DeleteHabit handles DELETE /api/v1/habits/:habitId. No cascade into completions
// or notes. A pending tag analysis for the habit is invalidated.
func (h *HabitHandler) DeleteHabit(c *gin.Context) {
	habitID := c.Param("habitId")
	if habitID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "habitId is required"})
		return
	}

	h.suggestions.CancelAnalysis(habitID)

	r, snap, ok := h.dispatch(c, func(snap core.Snapshot, _ string) core.Snapshot {
		return core.DeleteHabit(snap, habitID)
	})
	if !ok {
		return
	}
	h.respondSnapshot(c, r, snap)
}

// ToggleHabit handles POST /api/v1/habits/:habitId/toggle. The optional request
// body names the day-bucket; default is today.
func (h *HabitHandler) ToggleHabit(c *gin.Context) {
	habitID := c.Param("habitId")
	if habitID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "habitId is required"})
		return
	}

	var req models.ToggleHabitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
			return
		}
	}

	r, snap, ok := h.dispatch(c, func(snap core.Snapshot, today string) core.Snapshot {
		day := req.Date
		if day == "" {
			day = today
		}
		return core.ToggleCompletion(snap, habitID, day, today)
	})
	if !ok {
		return
	}
	h.respondSnapshot(c, r, snap)
}

// CopyHabits handles POST /api/v1/habits/copy: copy one or many habits from a past
// day into today, each with a fresh id.
func (h *HabitHandler) CopyHabits(c *gin.Context) {
	var req models.CopyHabitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	r, snap, ok := h.dispatch(c, func(snap core.Snapshot, today string) core.Snapshot {
		out, _ := core.CopyToToday(snap, req.HabitIDs, today)
		return out
	})
	if !ok {
		return
	}
	h.respondSnapshot(c, r, snap)
}

// SetNote handles PUT /api/v1/notes/:date (replace-or-insert; empty text clears).
func (h *HabitHandler) SetNote(c *gin.Context) {
	date := c.Param("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date is required"})
		return
	}

	var req models.SetNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	r, snap, ok := h.dispatch(c, func(snap core.Snapshot, _ string) core.Snapshot {
		return core.SetNote(snap, date, req.Text)
	})
	if !ok {
		return
	}
	h.respondSnapshot(c, r, snap)
}

// GetProgress handles GET /api/v1/progress/:date.
func (h *HabitHandler) GetProgress(c *gin.Context) {
	date := c.Param("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date is required"})
		return
	}
	r, ok := session(c, h.sessions)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ProgressResponse{
		Date:     date,
		Progress: core.Progress(r.Snapshot(), date),
	})
}
