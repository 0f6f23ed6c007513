package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"habbit-backend-go/internal/models"
)

// briefingTTL keeps a cached morning briefing around for a couple of days; the key
// includes the day-bucket so a stale entry is never served for the wrong day.
const briefingTTL = 48 * time.Hour

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed local cache store from a redis URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Keys are namespaced per data kind, one namespace per kind the application caches.
func habitsKey(uid string) string      { return "habits:" + uid }
func completionsKey(uid string) string { return "completions:" + uid }
func notesKey(uid string) string       { return "notes:" + uid }
func themeKey(uid string) string       { return "theme:" + uid }
func languageKey(uid string) string    { return "language:" + uid }
func tutorialKey(uid string) string    { return "tutorial:" + uid }
func briefingKey(uid, day string) string {
	return "briefing:" + uid + ":" + day
}

// GetSnapshot returns the cached snapshot for a user. A missing key or a JSON
// decode failure is treated as "no cache" and yields empty collections.
func (s *RedisStore) GetSnapshot(ctx context.Context, uid string) CachedSnapshot {
	snap := CachedSnapshot{
		Habits:      []models.Habit{},
		Completions: models.Completions{},
		Notes:       models.Notes{},
	}

	if raw, err := s.client.Get(ctx, habitsKey(uid)).Result(); err == nil {
		var habits []models.Habit
		if json.Unmarshal([]byte(raw), &habits) == nil && habits != nil {
			snap.Habits = habits
		}
	}
	if raw, err := s.client.Get(ctx, completionsKey(uid)).Result(); err == nil {
		var comps models.Completions
		if json.Unmarshal([]byte(raw), &comps) == nil && comps != nil {
			snap.Completions = comps
		}
	}
	if raw, err := s.client.Get(ctx, notesKey(uid)).Result(); err == nil {
		var notes models.Notes
		if json.Unmarshal([]byte(raw), &notes) == nil && notes != nil {
			snap.Notes = notes
		}
	}
	return snap
}

// PutSnapshot caches the snapshot under the per-kind keys.
func (s *RedisStore) PutSnapshot(ctx context.Context, uid string, snap CachedSnapshot) error {
	habitsJSON, err := json.Marshal(snap.Habits)
	if err != nil {
		return fmt.Errorf("marshal habits: %w", err)
	}
	compsJSON, err := json.Marshal(snap.Completions)
	if err != nil {
		return fmt.Errorf("marshal completions: %w", err)
	}
	notesJSON, err := json.Marshal(snap.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, habitsKey(uid), habitsJSON, 0)
	pipe.Set(ctx, completionsKey(uid), compsJSON, 0)
	pipe.Set(ctx, notesKey(uid), notesJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache snapshot for '%s': %w", uid, err)
	}
	return nil
}

func (s *RedisStore) GetPreferences(ctx context.Context, uid string) Preferences {
	var prefs Preferences
	if theme, err := s.client.Get(ctx, themeKey(uid)).Result(); err == nil {
		prefs.Theme = theme
	}
	if lang, err := s.client.Get(ctx, languageKey(uid)).Result(); err == nil {
		prefs.Language = lang
	}
	return prefs
}

func (s *RedisStore) PutPreferences(ctx context.Context, uid string, prefs Preferences) error {
	pipe := s.client.Pipeline()
	if prefs.Theme != "" {
		pipe.Set(ctx, themeKey(uid), prefs.Theme, 0)
	}
	if prefs.Language != "" {
		pipe.Set(ctx, languageKey(uid), prefs.Language, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache preferences for '%s': %w", uid, err)
	}
	return nil
}

func (s *RedisStore) GetBriefing(ctx context.Context, uid, day string) (string, bool) {
	raw, err := s.client.Get(ctx, briefingKey(uid, day)).Result()
	if err != nil {
		return "", false
	}
	return raw, true
}

func (s *RedisStore) PutBriefing(ctx context.Context, uid, day, briefingJSON string) error {
	if err := s.client.Set(ctx, briefingKey(uid, day), briefingJSON, briefingTTL).Err(); err != nil {
		return fmt.Errorf("cache briefing for '%s' day '%s': %w", uid, day, err)
	}
	return nil
}

func (s *RedisStore) GetTutorialSeen(ctx context.Context, uid string) bool {
	val, err := s.client.Get(ctx, tutorialKey(uid)).Result()
	return err == nil && val == "1"
}

func (s *RedisStore) PutTutorialSeen(ctx context.Context, uid string) error {
	if err := s.client.Set(ctx, tutorialKey(uid), "1", 0).Err(); err != nil {
		return fmt.Errorf("cache tutorial flag for '%s': %w", uid, err)
	}
	return nil
}
