package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habbit-backend-go/internal/cache"
	"habbit-backend-go/internal/db"
	"habbit-backend-go/internal/models"
)

// fakeRepo is an in-memory SnapshotRepository. Tests drive the subscription by
// pushing events onto the channel Watch hands out.
type fakeRepo struct {
	mu     sync.Mutex
	docs   map[string]*models.UserDocument
	writes []mergeWrite
	events chan db.SnapshotEvent
}

type mergeWrite struct {
	key    string
	fields map[string]interface{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:   map[string]*models.UserDocument{},
		events: make(chan db.SnapshotEvent, 16),
	}
}

func (f *fakeRepo) GetByKey(ctx context.Context, key string) (*models.UserDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[key]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeRepo) MergeSet(ctx context.Context, key string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, mergeWrite{key: key, fields: fields})

	doc, ok := f.docs[key]
	if !ok {
		doc = &models.UserDocument{}
		f.docs[key] = doc
	}
	if habits, ok := fields["habits"].([]models.Habit); ok {
		doc.Habits = habits
	}
	if comps, ok := fields["completions"].(models.Completions); ok {
		doc.Completions = comps
	}
	if notes, ok := fields["notes"].(models.Notes); ok {
		doc.Notes = notes
	}
	return nil
}

func (f *fakeRepo) Watch(ctx context.Context, key string) (<-chan db.SnapshotEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeRepo) lastWrite() mergeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[len(f.writes)-1]
}

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, msg)
}

func TestDispatchWithoutIdentityIsRejected(t *testing.T) {
	r := NewReconciler(newFakeRepo(), newTestStore(t), nil)

	_, err := r.Dispatch(context.Background(), func(s Snapshot, today string) Snapshot {
		out, _ := AddHabit(s, "never persisted", today)
		return out
	})
	require.ErrorIs(t, err, ErrNoIdentity)
	assert.Equal(t, StateNoIdentity, r.State())
}

func TestRemoteWritesSuppressedUntilFirstSnapshot(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["uid-1"] = &models.UserDocument{Habits: []models.Habit{habit("r1", "from cloud", day)}}
	r := NewReconciler(repo, newTestStore(t), nil)

	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-1"}))

	// No remote notification has arrived yet: mutations apply in memory only.
	snap, err := r.Dispatch(context.Background(), func(s Snapshot, today string) Snapshot {
		out, _ := AddHabit(s, "too fast", today)
		return out
	})
	require.NoError(t, err)
	assert.False(t, snap.Loaded)
	r.Flush()
	assert.Equal(t, 0, repo.writeCount())

	// First remote snapshot opens the gate and replaces local state wholesale.
	repo.events <- db.SnapshotEvent{Doc: repo.docs["uid-1"]}
	waitFor(t, func() bool { return r.Snapshot().Loaded }, "gate should open after first remote snapshot")
	require.Equal(t, []string{"r1"}, habitIDs(r.Snapshot().Habits))

	_, err = r.Dispatch(context.Background(), func(s Snapshot, today string) Snapshot {
		out, _ := AddHabit(s, "now persisted", today)
		return out
	})
	require.NoError(t, err)
	r.Flush()
	require.Equal(t, 1, repo.writeCount())

	w := repo.lastWrite()
	assert.Equal(t, "uid-1", w.key)
	assert.Len(t, w.fields["habits"], 2)
}

func TestGuestDataPromotedToNewRemoteDocument(t *testing.T) {
	repo := newFakeRepo()
	store := newTestStore(t)
	guest := []models.Habit{habit("g1", "local only", day), habit("g2", "also local", day)}
	require.NoError(t, store.PutSnapshot(context.Background(), "uid-new", cache.CachedSnapshot{
		Habits:      guest,
		Completions: models.Completions{day: {"g1"}},
		Notes:       models.Notes{},
	}))

	r := NewReconciler(repo, store, nil)
	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-new", Email: "new@example.com"}))

	// The cached guest collections become the remote document, nothing lost.
	require.Equal(t, 1, repo.writeCount())
	w := repo.lastWrite()
	assert.Equal(t, "uid-new", w.key)
	assert.Len(t, w.fields["habits"], 2)
	assert.Equal(t, models.Completions{day: {"g1"}}, w.fields["completions"])
}

func TestEmptyGuestCacheIsNotPromoted(t *testing.T) {
	repo := newFakeRepo()
	r := NewReconciler(repo, newTestStore(t), nil)

	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-empty"}))
	assert.Equal(t, 0, repo.writeCount())
}

func TestLegacyEmailDocumentWinsWhenLarger(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["uid-1"] = &models.UserDocument{Habits: []models.Habit{habit("n1", "newer scheme", day)}}
	repo.docs["user@example.com"] = &models.UserDocument{Habits: []models.Habit{
		habit("l1", "legacy one", otherDay),
		habit("l2", "legacy two", otherDay),
	}}

	r := NewReconciler(repo, newTestStore(t), nil)
	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-1", Email: "user@example.com"}))

	// The larger legacy collection is migrated onto the UID key; the email
	// document itself is left alone.
	require.Equal(t, 1, repo.writeCount())
	assert.Equal(t, "uid-1", repo.lastWrite().key)
	migrated, err := repo.GetByKey(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2"}, habitIDs(migrated.Habits))
	legacy, err := repo.GetByKey(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Len(t, legacy.Habits, 2)
}

func TestUIDDocumentWinsWhenLargerOrEqual(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["uid-1"] = &models.UserDocument{Habits: []models.Habit{habit("n1", "one", day), habit("n2", "two", day)}}
	repo.docs["user@example.com"] = &models.UserDocument{Habits: []models.Habit{habit("l1", "legacy", otherDay)}}

	r := NewReconciler(repo, newTestStore(t), nil)
	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-1", Email: "user@example.com"}))

	assert.Equal(t, 0, repo.writeCount())
}

func TestSubscriptionErrorFreezesGate(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["uid-1"] = &models.UserDocument{Habits: []models.Habit{habit("r1", "cloud", day)}}
	r := NewReconciler(repo, newTestStore(t), nil)

	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-1"}))
	repo.events <- db.SnapshotEvent{Doc: repo.docs["uid-1"]}
	waitFor(t, func() bool { return r.Snapshot().Loaded }, "gate should open first")

	repo.events <- db.SnapshotEvent{Err: context.DeadlineExceeded}
	waitFor(t, func() bool { return r.Snapshot().SyncError != "" }, "sync error banner should appear")
	assert.False(t, r.Snapshot().Loaded)

	// Mutations keep working locally but never reach the remote store again.
	before := repo.writeCount()
	_, err := r.Dispatch(context.Background(), func(s Snapshot, today string) Snapshot {
		out, _ := AddHabit(s, "offline", today)
		return out
	})
	require.NoError(t, err)
	r.Flush()
	assert.Equal(t, before, repo.writeCount())
}

func TestCreatedAtBackfillWritesBackOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["uid-1"] = &models.UserDocument{Habits: []models.Habit{{ID: "legacy", Text: "no createdAt"}}}
	r := NewReconciler(repo, newTestStore(t), nil)

	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-1"}))
	repo.events <- db.SnapshotEvent{Doc: repo.docs["uid-1"]}

	waitFor(t, func() bool { return repo.writeCount() == 1 }, "backfill should write the corrected habits back")
	habits := repo.lastWrite().fields["habits"].([]models.Habit)
	require.Len(t, habits, 1)
	assert.NotEmpty(t, habits[0].CreatedAt)

	// The corrected document comes around again; no further write this time.
	corrected, err := repo.GetByKey(context.Background(), "uid-1")
	require.NoError(t, err)
	repo.events <- db.SnapshotEvent{Doc: corrected}
	waitFor(t, func() bool {
		return len(r.Snapshot().Habits) == 1 && r.Snapshot().Habits[0].CreatedAt != ""
	}, "corrected snapshot should be applied")
	assert.Equal(t, 1, repo.writeCount())
}

func TestDetachClearsMemoryButKeepsCache(t *testing.T) {
	repo := newFakeRepo()
	store := newTestStore(t)
	repo.docs["uid-1"] = &models.UserDocument{Habits: []models.Habit{habit("r1", "cloud", day)}}
	r := NewReconciler(repo, store, nil)

	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-1"}))
	repo.events <- db.SnapshotEvent{Doc: repo.docs["uid-1"]}
	waitFor(t, func() bool { return len(r.Snapshot().Habits) == 1 }, "remote snapshot should land")

	r.Detach()

	assert.Equal(t, StateNoIdentity, r.State())
	assert.Empty(t, r.Snapshot().Habits)
	// The local cache survives the detach for the next bootstrap.
	cached := store.GetSnapshot(context.Background(), "uid-1")
	assert.Len(t, cached.Habits, 1)
}

func TestBootstrapRendersFromCacheBeforeRemote(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutSnapshot(context.Background(), "uid-1", cache.CachedSnapshot{
		Habits:      []models.Habit{habit("c1", "cached", day)},
		Completions: models.Completions{},
		Notes:       models.Notes{day: "hello"},
	}))
	r := NewReconciler(newFakeRepo(), store, nil)

	snap := r.Bootstrap(context.Background(), "uid-1")

	assert.Equal(t, []string{"c1"}, habitIDs(snap.Habits))
	assert.Equal(t, "hello", snap.Notes[day])
	assert.False(t, snap.Loaded)
}

func TestSubscribeReceivesRemoteReplacements(t *testing.T) {
	repo := newFakeRepo()
	repo.docs["uid-1"] = &models.UserDocument{Habits: []models.Habit{habit("r1", "cloud", day)}}
	r := NewReconciler(repo, newTestStore(t), nil)

	var mu sync.Mutex
	var seen []Snapshot
	r.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	require.NoError(t, r.AttachRemote(context.Background(), models.Identity{UID: "uid-1"}))
	repo.events <- db.SnapshotEvent{Doc: repo.docs["uid-1"]}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, "listener should be notified once per remote snapshot")
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen[0].Loaded)
	assert.Equal(t, []string{"r1"}, habitIDs(seen[0].Habits))
}

func TestTakeWriteErrorClearsBanner(t *testing.T) {
	r := NewReconciler(newFakeRepo(), newTestStore(t), nil)
	r.mu.Lock()
	r.snap.WriteError = "failed to save to cloud, data kept locally"
	r.mu.Unlock()

	assert.NotEmpty(t, r.TakeWriteError())
	assert.Empty(t, r.TakeWriteError())
}

func TestAIErrorIsTakenOnce(t *testing.T) {
	r := NewReconciler(newFakeRepo(), newTestStore(t), nil)

	r.RecordAIError("rate_limit", "quota exhausted")
	e := r.TakeAIError()
	require.NotNil(t, e)
	assert.Equal(t, "rate_limit", e.Kind)
	assert.Nil(t, r.TakeAIError())
}
