package db

import (
	"context"

	"habbit-backend-go/internal/models"
)

// SnapshotEvent is one delivery from a live document subscription. Exactly one of
// Doc/Err is meaningful: Err carries a subscription failure, otherwise Doc holds the
// decoded document (nil when the document does not exist yet).
type SnapshotEvent struct {
	Doc *models.UserDocument
	Err error
}

// SnapshotRepository defines the interface for the remote document store: one user
// document per identity key, read either point-in-time or via a live subscription,
// written via merge-upsert so fields not included are preserved server-side.
type SnapshotRepository interface {
	// GetByKey retrieves the document stored under a key (UID or legacy email).
	// Returns ErrNotFound when no such document exists.
	GetByKey(ctx context.Context, key string) (*models.UserDocument, error)
	// MergeSet merge-writes the given fields into the document under key,
	// creating it if absent.
	MergeSet(ctx context.Context, key string, fields map[string]interface{}) error
	// Watch subscribes to the document under key. Events are delivered on the
	// returned channel until ctx is cancelled; the channel is closed afterwards.
	Watch(ctx context.Context, key string) (<-chan SnapshotEvent, error)
}
