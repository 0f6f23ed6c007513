// Package cache implements the local cache store: a string-keyed persistent
// key/value layer namespaced per data kind. It is a best-effort fallback beside the
// authoritative remote document store; every failure degrades to "no cached data".
package cache

import (
	"context"

	"habbit-backend-go/internal/models"
)

// CachedSnapshot is the last-known local copy of a user's collections, used to
// render before remote data arrives and as fallback source of truth when remote
// writes fail.
type CachedSnapshot struct {
	Habits      []models.Habit     `json:"habits"`
	Completions models.Completions `json:"completions"`
	Notes       models.Notes       `json:"notes"`
}

// Preferences are the device-local settings that never travel through Firestore.
type Preferences struct {
	Theme    string `json:"theme,omitempty"`
	Language string `json:"language,omitempty"`
}

// Store defines the local cache operations. Implementations must be best-effort:
// a read miss or decode failure yields empty defaults, never an application error
// that would block the mutation flow.
type Store interface {
	// GetSnapshot returns the cached snapshot for a user, or an empty snapshot
	// when nothing (or garbage) is cached.
	GetSnapshot(ctx context.Context, uid string) CachedSnapshot
	// PutSnapshot caches the snapshot for a user. Errors are returned for
	// logging only; callers ignore them.
	PutSnapshot(ctx context.Context, uid string, snap CachedSnapshot) error

	GetPreferences(ctx context.Context, uid string) Preferences
	PutPreferences(ctx context.Context, uid string, prefs Preferences) error

	// GetBriefing returns the cached morning briefing for a uid and day-bucket;
	// ok is false when none is cached.
	GetBriefing(ctx context.Context, uid, day string) (string, bool)
	PutBriefing(ctx context.Context, uid, day, briefingJSON string) error

	GetTutorialSeen(ctx context.Context, uid string) bool
	PutTutorialSeen(ctx context.Context, uid string) error
}
