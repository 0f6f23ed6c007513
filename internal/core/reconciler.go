package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"habbit-backend-go/internal/cache"
	"habbit-backend-go/internal/db"
	"habbit-backend-go/internal/models"
)

// SessionState tracks the per-identity session lifecycle:
// NoIdentity → AttachingRemote → Loaded ⇄ Mutating.
type SessionState int32

const (
	StateNoIdentity SessionState = iota
	StateAttachingRemote
	StateLoaded
	StateMutating
)

func (s SessionState) String() string {
	switch s {
	case StateNoIdentity:
		return "NoIdentity"
	case StateAttachingRemote:
		return "AttachingRemote"
	case StateLoaded:
		return "Loaded"
	case StateMutating:
		return "Mutating"
	default:
		return "Unknown"
	}
}

// ErrNoIdentity is returned when a mutation is dispatched without an attached identity.
var ErrNoIdentity = errors.New("no identity attached")

// remoteWriteTimeout bounds every asynchronous Firestore merge-write.
const remoteWriteTimeout = 15 * time.Second

// AIError is the transient, auto-dismissing notification produced when a background
// AI call fails. Kind distinguishes rate-limit from credential from generic failures.
type AIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Reconciler mediates between the local cache store and the remote document store
// for one identity. It owns the canonical in-memory snapshot, the remote
// subscription, legacy migration, and the persistence gate.
//
// The single most important invariant: remote writes are suppressed until the first
// remote snapshot for the current identity has been received, so a fast local
// mutation can never overwrite not-yet-loaded remote state.
type Reconciler struct {
	repo   db.SnapshotRepository
	cache  cache.Store
	logger *zap.Logger

	mu       sync.Mutex
	identity models.Identity
	state    SessionState
	snap     Snapshot
	// loaded is the persistence gate. frozen closes it for the rest of the
	// session after a subscription error (deliberately conservative: never
	// overwrite cloud data while erroring).
	loaded bool
	frozen bool

	aiErr *AIError

	cancelWatch context.CancelFunc
	writes      sync.WaitGroup
	listeners   []func(Snapshot)

	// now is swappable for tests.
	now func() time.Time
}

// NewReconciler creates a reconciler in the NoIdentity state.
func NewReconciler(repo db.SnapshotRepository, cacheStore cache.Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		repo:   repo,
		cache:  cacheStore,
		logger: logger,
		state:  StateNoIdentity,
		snap:   EmptySnapshot(),
		now:    time.Now,
	}
}

// Bootstrap loads the last locally cached snapshot for an identity, without waiting
// on the network, so the presentation layer can render before remote data arrives.
// An empty cache yields an empty/default snapshot; there is no error condition.
func (r *Reconciler) Bootstrap(ctx context.Context, uid string) Snapshot {
	cached := r.cache.GetSnapshot(ctx, uid)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Habits = cached.Habits
	r.snap.Completions = cached.Completions
	r.snap.Notes = cached.Notes
	return r.snap.Clone()
}

// AttachRemote resolves the identity's document key, runs the legacy migrations,
// and subscribes to the remote document. Any prior subscription is replaced; there
// is exactly one active subscription per identity at a time.
func (r *Reconciler) AttachRemote(ctx context.Context, identity models.Identity) error {
	if identity.UID == "" {
		return errors.New("identity UID is required to attach")
	}

	r.mu.Lock()
	if r.cancelWatch != nil {
		r.cancelWatch()
		r.cancelWatch = nil
	}
	r.identity = identity
	r.state = StateAttachingRemote
	r.loaded = false
	r.frozen = false
	r.snap.Loaded = false
	r.snap.SyncError = ""
	r.mu.Unlock()

	// Render from cache first.
	r.Bootstrap(ctx, identity.UID)

	doc, err := r.resolveRemote(ctx, identity)
	if err != nil {
		r.recordSyncError(err)
		return err
	}
	if doc == nil {
		// New user. A non-empty local cache is promoted to be the remote
		// document's initial content and persisted immediately; an empty cache
		// starts the user with empty collections.
		if err := r.promoteGuestData(ctx, identity); err != nil {
			r.recordSyncError(err)
			return err
		}
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	events, err := r.repo.Watch(watchCtx, identity.UID)
	if err != nil {
		cancel()
		r.recordSyncError(err)
		return err
	}

	r.mu.Lock()
	r.cancelWatch = cancel
	r.mu.Unlock()

	go r.consume(watchCtx, identity.UID, events)
	return nil
}

// resolveRemote implements the legacy key resolution. A user may have data under
// either an email-keyed document (historical scheme) or a UID-keyed document. When
// both exist the one with the larger habits array wins; when only one exists it is
// used; when none exists the user is new (nil, nil). The chosen content is always
// carried forward under the UID key — the email key is read-only legacy.
func (r *Reconciler) resolveRemote(ctx context.Context, identity models.Identity) (*models.UserDocument, error) {
	uidDoc, err := r.repo.GetByKey(ctx, identity.UID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("resolve uid document: %w", err)
	}

	var emailDoc *models.UserDocument
	if identity.Email != "" {
		emailDoc, err = r.repo.GetByKey(ctx, identity.Email)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("resolve legacy email document: %w", err)
		}
	}

	switch {
	case uidDoc != nil && emailDoc != nil:
		if len(emailDoc.Habits) > len(uidDoc.Habits) {
			r.logger.Info("legacy key resolution: email-keyed document wins",
				zap.String("uid", identity.UID),
				zap.Int("emailHabits", len(emailDoc.Habits)),
				zap.Int("uidHabits", len(uidDoc.Habits)))
			// Carry the legacy content onto the UID key so the subscription
			// (and all future writes) see one authoritative document.
			if err := r.writeDocument(ctx, identity, emailDoc.Habits, emailDoc.Completions, emailDoc.Notes); err != nil {
				return nil, fmt.Errorf("migrate legacy email document: %w", err)
			}
			return emailDoc, nil
		}
		return uidDoc, nil
	case uidDoc != nil:
		return uidDoc, nil
	case emailDoc != nil:
		r.logger.Info("legacy key resolution: only email-keyed document exists",
			zap.String("uid", identity.UID))
		if err := r.writeDocument(ctx, identity, emailDoc.Habits, emailDoc.Completions, emailDoc.Notes); err != nil {
			return nil, fmt.Errorf("migrate legacy email document: %w", err)
		}
		return emailDoc, nil
	default:
		return nil, nil
	}
}

// promoteGuestData turns a non-empty local cache into the new remote document's
// initial content. The local cache itself is left unchanged.
func (r *Reconciler) promoteGuestData(ctx context.Context, identity models.Identity) error {
	cached := r.cache.GetSnapshot(ctx, identity.UID)
	if len(cached.Habits) == 0 {
		return nil
	}
	r.logger.Info("promoting guest data to new remote document",
		zap.String("uid", identity.UID),
		zap.Int("habits", len(cached.Habits)))
	return r.writeDocument(ctx, identity, cached.Habits, cached.Completions, cached.Notes)
}

// consume processes remote change notifications. Every successful notification
// fully recomputes and replaces the in-memory snapshot (last message wins) and
// opens the persistence gate; a subscription error freezes the gate closed.
func (r *Reconciler) consume(ctx context.Context, uid string, events <-chan db.SnapshotEvent) {
	for ev := range events {
		if ev.Err != nil {
			r.recordSyncError(ev.Err)
			return
		}
		r.applyRemote(ctx, uid, ev.Doc)
	}
}

// applyRemote derives the canonical snapshot from a remote document snapshot.
func (r *Reconciler) applyRemote(ctx context.Context, uid string, doc *models.UserDocument) {
	today := DayBucket(r.now())

	var habits []models.Habit
	completions := models.Completions{}
	notes := models.Notes{}
	backfilled := false
	if doc != nil {
		habits, backfilled = BackfillCreatedAt(doc.Habits, today)
		if doc.Completions != nil {
			completions = doc.Completions
		}
		if doc.Notes != nil {
			notes = doc.Notes
		}
	}
	if habits == nil {
		habits = []models.Habit{}
	}

	r.mu.Lock()
	if r.frozen {
		r.mu.Unlock()
		return
	}
	r.snap.Habits = habits
	r.snap.Completions = completions
	r.snap.Notes = notes
	r.snap = ApplyOrdering(r.snap, today)
	r.snap.SyncError = ""
	r.loaded = true
	r.snap.Loaded = true
	if r.state == StateAttachingRemote {
		r.state = StateLoaded
	}
	snap := r.snap.Clone()
	identity := r.identity
	r.mu.Unlock()

	// Keep the local fallback current with every remote notification.
	if err := r.cache.PutSnapshot(ctx, uid, cache.CachedSnapshot{
		Habits:      snap.Habits,
		Completions: snap.Completions,
		Notes:       snap.Notes,
	}); err != nil {
		r.logger.Warn("failed to cache remote snapshot", zap.String("uid", uid), zap.Error(err))
	}

	// Write the corrected habits array back once so the legacy-field migration
	// converges; the next snapshot passes with backfilled == false.
	if backfilled {
		r.logger.Info("backfilling missing createdAt fields", zap.String("uid", uid))
		if err := r.writeDocument(context.Background(), identity, snap.Habits, snap.Completions, snap.Notes); err != nil {
			r.logger.Warn("createdAt backfill write failed", zap.String("uid", uid), zap.Error(err))
		}
	}

	r.notify(snap)
}

// Dispatch applies a pure operation to the current snapshot optimistically, then
// persists: local cache synchronously (best effort), remote asynchronously behind
// the loaded gate.
func (r *Reconciler) Dispatch(ctx context.Context, op func(Snapshot, string) Snapshot) (Snapshot, error) {
	r.mu.Lock()
	if r.state == StateNoIdentity {
		r.mu.Unlock()
		return EmptySnapshot(), ErrNoIdentity
	}
	today := DayBucket(r.now())
	r.snap = op(r.snap, today)
	snap := r.snap.Clone()
	identity := r.identity
	gateOpen := r.loaded && !r.frozen
	if gateOpen {
		r.state = StateMutating
	}
	r.mu.Unlock()

	if err := r.cache.PutSnapshot(ctx, identity.UID, cache.CachedSnapshot{
		Habits:      snap.Habits,
		Completions: snap.Completions,
		Notes:       snap.Notes,
	}); err != nil {
		// Best effort only; the mutation flow is never blocked by the cache.
		r.logger.Warn("failed to cache snapshot", zap.String("uid", identity.UID), zap.Error(err))
	}

	if gateOpen {
		r.writes.Add(1)
		go func() {
			defer r.writes.Done()
			writeCtx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
			defer cancel()
			err := r.writeDocument(writeCtx, identity, snap.Habits, snap.Completions, snap.Notes)

			r.mu.Lock()
			if r.state == StateMutating {
				r.state = StateLoaded
			}
			if err != nil {
				// Reported, not retried; the next mutation attempts again.
				r.snap.WriteError = "failed to save to cloud, data kept locally"
				r.logger.Error("remote write failed", zap.String("uid", identity.UID), zap.Error(err))
			} else {
				r.snap.WriteError = ""
			}
			r.mu.Unlock()
		}()
	}

	return snap, nil
}

// writeDocument merge-writes the canonical fields of the user document under the
// UID key. Fields not included (e.g. tutorialSeen) are preserved server-side.
func (r *Reconciler) writeDocument(ctx context.Context, identity models.Identity, habits []models.Habit, completions models.Completions, notes models.Notes) error {
	fields := map[string]interface{}{
		"habits":      habits,
		"completions": completions,
		"notes":       notes,
		"lastUpdated": r.now().UTC(),
		"email":       identity.Email,
		"name":        identity.DisplayName,
	}
	return r.repo.MergeSet(ctx, identity.UID, fields)
}

// Detach leaves the session: the subscription is cancelled and in-memory state is
// cleared. The local cache is deliberately kept.
func (r *Reconciler) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelWatch != nil {
		r.cancelWatch()
		r.cancelWatch = nil
	}
	r.identity = models.Identity{}
	r.state = StateNoIdentity
	r.snap = EmptySnapshot()
	r.loaded = false
	r.frozen = false
	r.aiErr = nil
}

// Snapshot returns a copy of the current canonical snapshot.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone()
}

// TakeWriteError returns and clears the transient write-error banner.
func (r *Reconciler) TakeWriteError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.snap.WriteError
	r.snap.WriteError = ""
	return msg
}

// RecordAIError stores a transient AI failure notification.
func (r *Reconciler) RecordAIError(kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aiErr = &AIError{Kind: kind, Message: message}
}

// TakeAIError returns and clears the pending AI failure notification, mirroring an
// auto-dismissing toast.
func (r *Reconciler) TakeAIError() *AIError {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.aiErr
	r.aiErr = nil
	return e
}

// State returns the current session state.
func (r *Reconciler) State() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Identity returns the attached identity (zero value in NoIdentity).
func (r *Reconciler) Identity() models.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

// Subscribe registers a listener invoked with a snapshot copy after every remote
// replacement. Listeners must not call back into the reconciler synchronously.
func (r *Reconciler) Subscribe(fn func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Reconciler) notify(snap Snapshot) {
	r.mu.Lock()
	listeners := make([]func(Snapshot), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Flush waits for in-flight remote writes; used in tests and shutdown.
func (r *Reconciler) Flush() {
	r.writes.Wait()
}

func (r *Reconciler) recordSyncError(err error) {
	r.logger.Error("remote subscription error; freezing persistence gate",
		zap.String("uid", r.Identity().UID), zap.Error(err))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	r.loaded = false
	r.snap.Loaded = false
	r.snap.SyncError = "cloud sync error: check connection"
	if r.state == StateAttachingRemote || r.state == StateMutating {
		r.state = StateLoaded
	}
}
