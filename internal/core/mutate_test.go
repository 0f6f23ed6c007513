package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habbit-backend-go/internal/models"
)

const (
	day       = "2026-01-18"
	otherDay  = "2026-01-17"
	futureDay = "2026-01-19"
)

func habit(id, text, createdAt string) models.Habit {
	return models.Habit{ID: id, Text: text, CreatedAt: createdAt}
}

func snapshotWith(habits ...models.Habit) Snapshot {
	snap := EmptySnapshot()
	snap.Habits = habits
	return snap
}

func TestAddHabitPrependsAndMarksAnalyzing(t *testing.T) {
	snap := snapshotWith(habit("a", "older", day))

	out, added := AddHabit(snap, "drink water", day)

	require.Len(t, out.Habits, 2)
	assert.Equal(t, added.ID, out.Habits[0].ID)
	assert.Equal(t, "drink water", out.Habits[0].Text)
	assert.Equal(t, day, out.Habits[0].CreatedAt)
	assert.True(t, out.Habits[0].IsAiAnalyzing)
	assert.NotEmpty(t, added.ID)

	// The input snapshot must be untouched.
	assert.Len(t, snap.Habits, 1)
}

func TestDeleteHabitLeavesCompletionsAndNotesBehind(t *testing.T) {
	snap := snapshotWith(habit("a", "run", day), habit("b", "read", day))
	snap.Completions[day] = []string{"a"}
	snap.Notes[day] = "good day"

	out := DeleteHabit(snap, "a")

	require.Len(t, out.Habits, 1)
	assert.Equal(t, "b", out.Habits[0].ID)
	// Dangling entries are tolerated, not cascaded.
	assert.Equal(t, []string{"a"}, out.Completions[day])
	assert.Equal(t, "good day", out.Notes[day])
}

func TestDeleteHabitClearsPriorityDesignation(t *testing.T) {
	snap := snapshotWith(habit("a", "run", day))
	snap.PriorityTaskID = "a"

	out := DeleteHabit(snap, "a")
	assert.Empty(t, out.PriorityTaskID)

	snap.PriorityTaskID = "other"
	out = DeleteHabit(snap, "a")
	assert.Equal(t, "other", out.PriorityTaskID)
}

func TestToggleCompletionIsItsOwnInverse(t *testing.T) {
	snap := snapshotWith(habit("a", "run", day))

	once := ToggleCompletion(snap, "a", day, day)
	assert.True(t, once.Completions.IsDone(day, "a"))

	twice := ToggleCompletion(once, "a", day, day)
	assert.False(t, twice.Completions.IsDone(day, "a"))
}

func TestToggleCompletionOnPastDayKeepsOrder(t *testing.T) {
	snap := snapshotWith(
		habit("a", "first", otherDay),
		habit("b", "second", otherDay),
	)

	out := ToggleCompletion(snap, "a", otherDay, day)

	assert.True(t, out.Completions.IsDone(otherDay, "a"))
	// Not today's bucket: positions stay exactly as stored.
	assert.Equal(t, "a", out.Habits[0].ID)
	assert.Equal(t, "b", out.Habits[1].ID)
}

func TestSetNoteEmptyTextClearsEntry(t *testing.T) {
	snap := EmptySnapshot()

	out := SetNote(snap, day, "remember the milk")
	assert.Equal(t, "remember the milk", out.Notes[day])

	out = SetNote(out, day, "")
	_, exists := out.Notes[day]
	assert.False(t, exists)
}

func TestCopyToTodayCreatesFreshRecords(t *testing.T) {
	src1 := habit("a", "run", otherDay)
	src1.Emoji = "🏃"
	src1.Category = models.CategoryHealth
	src2 := habit("b", "read", otherDay)
	snap := snapshotWith(src1, src2)
	snap.Completions[otherDay] = []string{"a"}

	out, copies := CopyToToday(snap, []string{"a", "b", "missing"}, day)

	require.Len(t, copies, 2)
	require.Len(t, out.Habits, 4)

	// Copies are prepended, carry text and tag but a fresh id and today's bucket.
	assert.Equal(t, "run", out.Habits[0].Text)
	assert.Equal(t, day, out.Habits[0].CreatedAt)
	assert.Equal(t, "🏃", out.Habits[0].Emoji)
	assert.Equal(t, models.CategoryHealth, out.Habits[0].Category)
	assert.NotEqual(t, "a", out.Habits[0].ID)
	assert.NotEqual(t, out.Habits[0].ID, out.Habits[1].ID)

	// Sources are untouched, and the copies start incomplete.
	assert.Equal(t, "a", out.Habits[2].ID)
	assert.Equal(t, otherDay, out.Habits[2].CreatedAt)
	assert.False(t, out.Completions.IsDone(day, out.Habits[0].ID))
}

func TestCopyToTodayAllUnknownIDsIsNoOp(t *testing.T) {
	snap := snapshotWith(habit("a", "run", otherDay))

	out, copies := CopyToToday(snap, []string{"x", "y"}, day)

	assert.Empty(t, copies)
	assert.Len(t, out.Habits, 1)
}

func TestApplySuggestionMatchesByID(t *testing.T) {
	h := habit("a", "run", day)
	h.IsAiAnalyzing = true
	snap := snapshotWith(h)

	out := ApplySuggestion(snap, "a", "🏃", models.CategoryHealth)

	assert.Equal(t, "🏃", out.Habits[0].Emoji)
	assert.Equal(t, models.CategoryHealth, out.Habits[0].Category)
	assert.False(t, out.Habits[0].IsAiAnalyzing)
}

func TestApplySuggestionDropsResultForDeletedHabit(t *testing.T) {
	snap := snapshotWith(habit("b", "read", day))

	out := ApplySuggestion(snap, "a", "🏃", models.CategoryHealth)

	assert.Equal(t, snap.Habits, out.Habits)
}

func TestApplySuggestionCoercesUnknownCategory(t *testing.T) {
	snap := snapshotWith(habit("a", "run", day))

	out := ApplySuggestion(snap, "a", "🏃", models.Category("Gaming"))

	assert.Equal(t, models.CategoryOther, out.Habits[0].Category)
}

func TestApplyOrderingIncompleteBeforeComplete(t *testing.T) {
	snap := snapshotWith(
		habit("a", "done already", day),
		habit("b", "still pending", day),
		habit("c", "also pending", day),
	)
	snap.Completions[day] = []string{"a"}

	out := ApplyOrdering(snap, day)

	assert.Equal(t, []string{"b", "c", "a"}, habitIDs(out.Habits))
}

func TestApplyOrderingPriorityFirstAmongIncomplete(t *testing.T) {
	snap := snapshotWith(
		habit("a", "pending", day),
		habit("b", "the frog", day),
		habit("c", "done", day),
	)
	snap.Completions[day] = []string{"c"}
	snap.PriorityTaskID = "b"

	out := ApplyOrdering(snap, day)

	assert.Equal(t, []string{"b", "a", "c"}, habitIDs(out.Habits))
}

func TestApplyOrderingCompletedPriorityLosesFrontSpot(t *testing.T) {
	snap := snapshotWith(
		habit("a", "pending", day),
		habit("b", "the frog, already done", day),
	)
	snap.Completions[day] = []string{"b"}
	snap.PriorityTaskID = "b"

	out := ApplyOrdering(snap, day)

	assert.Equal(t, []string{"a", "b"}, habitIDs(out.Habits))
}

func TestApplyOrderingOtherBucketsKeepSlots(t *testing.T) {
	snap := snapshotWith(
		habit("old", "yesterday", otherDay),
		habit("a", "done", day),
		habit("future", "tomorrow", futureDay),
		habit("b", "pending", day),
	)
	snap.Completions[day] = []string{"a"}

	out := ApplyOrdering(snap, day)

	// Today's habits swap within the slots they occupied; the rest stay fixed.
	assert.Equal(t, []string{"old", "b", "future", "a"}, habitIDs(out.Habits))
}

func TestApplyOrderingSingleTodayHabitIsNoOp(t *testing.T) {
	snap := snapshotWith(habit("old", "yesterday", otherDay), habit("a", "only one", day))
	snap.Completions[day] = []string{"a"}

	out := ApplyOrdering(snap, day)

	assert.Equal(t, habitIDs(snap.Habits), habitIDs(out.Habits))
}

func TestProgressRoundsPerDayBucket(t *testing.T) {
	snap := snapshotWith(
		habit("a", "one", day),
		habit("b", "two", day),
		habit("c", "three", day),
		habit("d", "yesterday", otherDay),
	)
	snap.Completions[day] = []string{"a", "b"}
	snap.Completions[otherDay] = []string{"d"}

	assert.Equal(t, 67, Progress(snap, day))
	assert.Equal(t, 100, Progress(snap, otherDay))
}

func TestProgressEmptyBucketIsZero(t *testing.T) {
	assert.Equal(t, 0, Progress(EmptySnapshot(), day))
}

func TestProgressIgnoresDanglingCompletionIDs(t *testing.T) {
	snap := snapshotWith(habit("a", "one", day), habit("b", "two", day))
	snap.Completions[day] = []string{"a", "deleted-long-ago"}

	assert.Equal(t, 50, Progress(snap, day))
}

func TestBackfillCreatedAtIsIdempotent(t *testing.T) {
	habits := []models.Habit{
		{ID: "a", Text: "legacy record"},
		habit("b", "modern record", otherDay),
	}

	out, changed := BackfillCreatedAt(habits, day)
	require.True(t, changed)
	assert.Equal(t, day, out[0].CreatedAt)
	assert.Equal(t, otherDay, out[1].CreatedAt)

	again, changed := BackfillCreatedAt(out, futureDay)
	assert.False(t, changed)
	assert.Equal(t, out, again)
}

func TestSetPriorityTaskReorders(t *testing.T) {
	snap := snapshotWith(habit("a", "first", day), habit("b", "second", day))

	out := SetPriorityTask(snap, "b", day)

	assert.Equal(t, "b", out.PriorityTaskID)
	assert.Equal(t, []string{"b", "a"}, habitIDs(out.Habits))
}

func habitIDs(habits []models.Habit) []string {
	ids := make([]string, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	return ids
}
