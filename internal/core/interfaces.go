package core

import (
	"context"

	"habbit-backend-go/internal/ai"
	"habbit-backend-go/internal/models"
)

// SuggestionService defines the AI-backed operations layered on top of a session's
// reconciler. All three are independent of core task CRUD: a failing suggestion
// never blocks a mutation.
type SuggestionService interface {
	// AnalyzeHabit launches a fire-and-forget tag suggestion for a habit. The
	// result is applied to the snapshot by id-match; a habit deleted in the
	// meantime drops the result. On failure the habit gets the fallback emoji
	// and its analyzing flag is cleared.
	AnalyzeHabit(r *Reconciler, habit models.Habit)
	// CancelAnalysis invalidates a pending tag suggestion for a habit id.
	CancelAnalysis(habitID string)
	// RefreshPriority asks the AI to designate today's priority task among the
	// pending habits and re-applies the ordering rule.
	RefreshPriority(ctx context.Context, r *Reconciler) (string, error)
	// MorningBriefing returns the (per uid, per day, cached) morning briefing.
	MorningBriefing(ctx context.Context, r *Reconciler) (*ai.MorningBriefing, error)
}
