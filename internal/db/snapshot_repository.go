package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"habbit-backend-go/internal/models"
)

const usersCollection = "users"

// ErrNotFound is a common error for when a document is not found in Firestore.
var ErrNotFound = errors.New("document not found")

// firestoreSnapshotRepository implements the SnapshotRepository interface using Firestore.
type firestoreSnapshotRepository struct {
	client *firestore.Client
}

// NewFirestoreSnapshotRepository creates a new instance of firestoreSnapshotRepository.
func NewFirestoreSnapshotRepository(client *firestore.Client) SnapshotRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for SnapshotRepository.")
	}
	return &firestoreSnapshotRepository{client: client}
}

// GetByKey retrieves a user document from Firestore. The key is either the Firebase
// Auth UID (current scheme) or the account email (legacy scheme); the reconciler
// decides which one wins when both documents exist.
func (r *firestoreSnapshotRepository) GetByKey(ctx context.Context, key string) (*models.UserDocument, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty for GetByKey operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user document '%s' not found: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user document '%s': %w", key, err)
	}

	var doc models.UserDocument
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode user document '%s': %w", key, err)
	}
	doc.Normalize()
	return &doc, nil
}

// MergeSet merge-writes fields into the document under key. Fields not named in the
// map are preserved server-side, which is what lets the reconciler persist partial
// state (habits + completions + notes + metadata) without clobbering anything else.
func (r *firestoreSnapshotRepository) MergeSet(ctx context.Context, key string, fields map[string]interface{}) error {
	if key == "" {
		return errors.New("key cannot be empty for MergeSet operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(key).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to merge-write user document '%s': %w", key, err)
	}
	return nil
}

// Watch opens a live subscription on the document under key and forwards decoded
// snapshots on the returned channel. The first event arrives as soon as Firestore
// delivers the initial snapshot; a non-existent document is forwarded as Doc == nil
// rather than an error, since "no document yet" is a normal state for new users.
func (r *firestoreSnapshotRepository) Watch(ctx context.Context, key string) (<-chan SnapshotEvent, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty for Watch operation")
	}

	events := make(chan SnapshotEvent, 1)
	iter := r.client.Collection(usersCollection).Doc(key).Snapshots(ctx)

	go func() {
		defer close(events)
		defer iter.Stop()
		for {
			docSnap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				select {
				case events <- SnapshotEvent{Err: fmt.Errorf("snapshot stream for '%s': %w", key, err)}:
				case <-ctx.Done():
				}
				return
			}

			var ev SnapshotEvent
			if docSnap.Exists() {
				var doc models.UserDocument
				if decodeErr := docSnap.DataTo(&doc); decodeErr != nil {
					ev = SnapshotEvent{Err: fmt.Errorf("failed to decode snapshot for '%s': %w", key, decodeErr)}
				} else {
					doc.Normalize()
					ev = SnapshotEvent{Doc: &doc}
				}
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Err != nil {
				return
			}
		}
	}()

	return events, nil
}
