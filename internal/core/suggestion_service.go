package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"habbit-backend-go/internal/ai"
	"habbit-backend-go/internal/cache"
	"habbit-backend-go/internal/models"
)

// analysisTimeout bounds one background tag-suggestion call.
const analysisTimeout = 30 * time.Second

// suggestionService implements SuggestionService on top of the Gemini client.
type suggestionService struct {
	client *ai.Client
	cache  cache.Store
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]context.CancelFunc // habit id → cancel for in-flight analysis
}

// NewSuggestionService creates a SuggestionService.
func NewSuggestionService(client *ai.Client, cacheStore cache.Store, logger *zap.Logger) SuggestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &suggestionService{
		client:  client,
		cache:   cacheStore,
		logger:  logger,
		pending: make(map[string]context.CancelFunc),
	}
}

// AnalyzeHabit launches the tag suggestion in the background. The task is keyed and
// cancellable by habit id; a second analysis for the same id supersedes the first.
func (s *suggestionService) AnalyzeHabit(r *Reconciler, habit models.Habit) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)

	s.mu.Lock()
	if prior, ok := s.pending[habit.ID]; ok {
		prior()
	}
	s.pending[habit.ID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.pending, habit.ID)
			s.mu.Unlock()
		}()

		suggestion, err := s.client.SuggestTaskDetails(ctx, habit.Text)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Warn("tag suggestion failed",
				zap.String("habitId", habit.ID), zap.Error(err))
			r.RecordAIError(string(ai.KindOf(err)), "could not analyze task")
			// suggestion already holds the fallback emoji/category.
		}

		// Applied by id-match; a deleted habit makes this a no-op.
		if _, dispatchErr := r.Dispatch(context.Background(), func(snap Snapshot, _ string) Snapshot {
			return ApplySuggestion(snap, habit.ID, suggestion.Emoji, suggestion.Category)
		}); dispatchErr != nil && !errors.Is(dispatchErr, ErrNoIdentity) {
			s.logger.Warn("failed to apply tag suggestion",
				zap.String("habitId", habit.ID), zap.Error(dispatchErr))
		}
	}()
}

// CancelAnalysis invalidates the pending analysis for a habit id, typically because
// the habit was deleted.
func (s *suggestionService) CancelAnalysis(habitID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.pending[habitID]; ok {
		cancel()
		delete(s.pending, habitID)
	}
}

// RefreshPriority designates today's priority task among the pending (incomplete)
// habits and re-applies the ordering rule. Returns the designated id ("" when the
// AI declines or the feature is disabled).
func (s *suggestionService) RefreshPriority(ctx context.Context, r *Reconciler) (string, error) {
	snap := r.Snapshot()
	today := DayBucket(time.Now())

	var pending []ai.TaskRef
	for _, h := range snap.Habits {
		if h.CreatedAt == today && !snap.Completions.IsDone(today, h.ID) {
			pending = append(pending, ai.TaskRef{ID: h.ID, Text: h.Text})
		}
	}
	if len(pending) == 0 {
		return "", nil
	}

	priorityID, err := s.client.IdentifyPriorityTask(ctx, pending, time.Now())
	if err != nil {
		return "", err
	}

	// Guard against ids the model made up.
	valid := false
	for _, t := range pending {
		if t.ID == priorityID {
			valid = true
			break
		}
	}
	if !valid {
		priorityID = ""
	}

	if _, err := r.Dispatch(ctx, func(snap Snapshot, today string) Snapshot {
		return SetPriorityTask(snap, priorityID, today)
	}); err != nil {
		return "", err
	}
	return priorityID, nil
}

// MorningBriefing computes (or serves from the per-day cache) the user's briefing.
// Yesterday's completion rate and count come from yesterday's day-bucket; the
// language preference comes from the local cache store.
func (s *suggestionService) MorningBriefing(ctx context.Context, r *Reconciler) (*ai.MorningBriefing, error) {
	identity := r.Identity()
	if identity.UID == "" {
		return nil, ErrNoIdentity
	}

	today := DayBucket(time.Now())
	if cached, ok := s.cache.GetBriefing(ctx, identity.UID, today); ok {
		var briefing ai.MorningBriefing
		if json.Unmarshal([]byte(cached), &briefing) == nil {
			return &briefing, nil
		}
		// Garbage in the cache is treated as a miss.
	}

	snap := r.Snapshot()
	yesterday := DayBucket(time.Now().AddDate(0, 0, -1))

	yesterdayTotal := 0
	for _, h := range snap.Habits {
		if h.CreatedAt == yesterday {
			yesterdayTotal++
		}
	}
	rate := float64(Progress(snap, yesterday)) / 100

	var todayTexts []string
	for _, h := range snap.Habits {
		if h.CreatedAt == today {
			todayTexts = append(todayTexts, h.Text)
		}
	}

	language := s.cache.GetPreferences(ctx, identity.UID).Language
	if language == "" {
		language = "id"
	}

	briefing, err := s.client.GenerateMorningBriefing(ctx, ai.BriefingInput{
		UserName:                identity.DisplayName,
		YesterdayCompletionRate: rate,
		YesterdayTaskCount:      yesterdayTotal,
		TodayHabits:             todayTexts,
		Language:                language,
	})
	if err != nil {
		return nil, err
	}
	if briefing == nil {
		return nil, nil
	}

	if raw, marshalErr := json.Marshal(briefing); marshalErr == nil {
		if cacheErr := s.cache.PutBriefing(ctx, identity.UID, today, string(raw)); cacheErr != nil {
			s.logger.Warn(fmt.Sprintf("failed to cache briefing for '%s'", identity.UID), zap.Error(cacheErr))
		}
	}
	return briefing, nil
}
