package core

import (
	"time"

	"habbit-backend-go/internal/models"
)

// DayBucket formats t as the "YYYY-MM-DD" day-bucket string.
func DayBucket(t time.Time) string {
	return t.Format("2006-01-02")
}

// Snapshot is the single consistent in-memory view the reconciler produces for the
// presentation layer. The habit order in Habits IS the display order; there is no
// separate sort key.
type Snapshot struct {
	Habits      []models.Habit     `json:"habits"`
	Completions models.Completions `json:"completions"`
	Notes       models.Notes       `json:"notes"`
	// PriorityTaskID is the habit designated "most relevant now" by the AI
	// service. Display-order only; empty when none is designated.
	PriorityTaskID string `json:"priorityTaskId,omitempty"`
	// Loaded reports whether the first remote snapshot for the current identity
	// has been received. Remote persistence is suppressed while false.
	Loaded bool `json:"loaded"`
	// SyncError is the persistent remote-read error banner, empty when healthy.
	SyncError string `json:"syncError,omitempty"`
	// WriteError is the transient remote-write error banner from the last
	// failed persist. Cleared once served.
	WriteError string `json:"writeError,omitempty"`
}

// EmptySnapshot returns a snapshot with empty/default collections.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Habits:      []models.Habit{},
		Completions: models.Completions{},
		Notes:       models.Notes{},
	}
}

// Clone returns a deep copy so pure mutation operations never alias the stored
// snapshot's slices and maps.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Habits = make([]models.Habit, len(s.Habits))
	copy(out.Habits, s.Habits)
	out.Completions = make(models.Completions, len(s.Completions))
	for day, ids := range s.Completions {
		cp := make([]string, len(ids))
		copy(cp, ids)
		out.Completions[day] = cp
	}
	out.Notes = make(models.Notes, len(s.Notes))
	for day, note := range s.Notes {
		out.Notes[day] = note
	}
	return out
}
