package core

import (
	"math"

	"habbit-backend-go/internal/models"
	"habbit-backend-go/internal/util"
)

// Pure snapshot transformations. Every operation takes a snapshot and returns a new
// one; the caller (the reconciler) owns locking and persistence. "today" is always
// passed in so the operations stay deterministic under test.

// AddHabit inserts a new habit before the rest of today's list and marks it as
// awaiting AI analysis.
func AddHabit(snap Snapshot, text, today string) (Snapshot, models.Habit) {
	out := snap.Clone()
	habit := models.Habit{
		ID:            util.NewHabitID(),
		Text:          text,
		CreatedAt:     today,
		IsAiAnalyzing: true,
	}
	out.Habits = append([]models.Habit{habit}, out.Habits...)
	return out, habit
}

// DeleteHabit filters the habit out of the collection. Completion and note entries
// referencing the id are deliberately left behind; readers tolerate dangling ids.
func DeleteHabit(snap Snapshot, habitID string) Snapshot {
	out := snap.Clone()
	filtered := out.Habits[:0]
	for _, h := range out.Habits {
		if h.ID != habitID {
			filtered = append(filtered, h)
		}
	}
	out.Habits = filtered
	if out.PriorityTaskID == habitID {
		out.PriorityTaskID = ""
	}
	return out
}

// ToggleCompletion flips the habit's membership in the day's completion set, then
// re-applies the ordering rule when the affected day is today.
func ToggleCompletion(snap Snapshot, habitID, day, today string) Snapshot {
	out := snap.Clone()
	ids := out.Completions[day]
	found := false
	next := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == habitID {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, habitID)
	}
	out.Completions[day] = next

	if day == today {
		out = ApplyOrdering(out, today)
	}
	return out
}

// SetNote replaces (or inserts) the free-text note for a day.
func SetNote(snap Snapshot, day, text string) Snapshot {
	out := snap.Clone()
	if text == "" {
		delete(out.Notes, day)
	} else {
		out.Notes[day] = text
	}
	return out
}

// CopyToToday duplicates the selected habits into today's bucket. Each copy gets a
// freshly generated unique id and CreatedAt set to today; source habits are
// untouched. Unknown ids are skipped.
func CopyToToday(snap Snapshot, habitIDs []string, today string) (Snapshot, []models.Habit) {
	out := snap.Clone()

	byID := make(map[string]models.Habit, len(out.Habits))
	for _, h := range out.Habits {
		byID[h.ID] = h
	}

	var copies []models.Habit
	for _, id := range habitIDs {
		src, ok := byID[id]
		if !ok {
			continue
		}
		copies = append(copies, models.Habit{
			ID:        util.NewHabitID(),
			Text:      src.Text,
			CreatedAt: today,
			Emoji:     src.Emoji,
			Category:  src.Category,
		})
	}
	if len(copies) > 0 {
		out.Habits = append(append([]models.Habit{}, copies...), out.Habits...)
	}
	return out, copies
}

// ApplySuggestion backfills the AI tag onto a habit by id-match and clears the
// transient analyzing flag. A habit deleted while the suggestion was in flight is
// simply not there anymore: the result is dropped, not reconciled.
func ApplySuggestion(snap Snapshot, habitID, emoji string, category models.Category) Snapshot {
	out := snap.Clone()
	if !models.ValidCategory(category) {
		category = models.CategoryOther
	}
	for i := range out.Habits {
		if out.Habits[i].ID == habitID {
			out.Habits[i].Emoji = emoji
			out.Habits[i].Category = category
			out.Habits[i].IsAiAnalyzing = false
			break
		}
	}
	return out
}

// SetPriorityTask records the AI-designated priority habit and re-applies the
// ordering rule. An empty id clears the designation.
func SetPriorityTask(snap Snapshot, habitID, today string) Snapshot {
	out := snap.Clone()
	out.PriorityTaskID = habitID
	return ApplyOrdering(out, today)
}

// ApplyOrdering enforces the display-order rule for today's bucket: incomplete
// habits before completed ones, with the designated priority task first among the
// incomplete. Habits from other day-buckets keep their stored positions, so the
// reordered habits are written back into the exact slots today's habits occupied.
func ApplyOrdering(snap Snapshot, today string) Snapshot {
	out := snap.Clone()

	var slots []int
	var todays []models.Habit
	for i, h := range out.Habits {
		if h.CreatedAt == today {
			slots = append(slots, i)
			todays = append(todays, h)
		}
	}
	if len(todays) < 2 {
		return out
	}

	var priority, incomplete, complete []models.Habit
	for _, h := range todays {
		switch {
		case h.ID == out.PriorityTaskID && !out.Completions.IsDone(today, h.ID):
			priority = append(priority, h)
		case out.Completions.IsDone(today, h.ID):
			complete = append(complete, h)
		default:
			incomplete = append(incomplete, h)
		}
	}

	reordered := append(append(priority, incomplete...), complete...)
	for i, slot := range slots {
		out.Habits[slot] = reordered[i]
	}
	return out
}

// Progress returns the completion percentage for a day-bucket: the rounded share of
// that day's habits whose ids are in the day's completion set. Empty buckets are 0,
// never a division by zero, and dangling completion ids do not count.
func Progress(snap Snapshot, day string) int {
	total := 0
	done := 0
	for _, h := range snap.Habits {
		if h.CreatedAt != day {
			continue
		}
		total++
		if snap.Completions.IsDone(day, h.ID) {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// BackfillCreatedAt assigns today's day-bucket to any habit missing createdAt (a
// legacy record shape). Returns the corrected slice and whether anything changed,
// so a second pass over already-backfilled data is a no-op.
func BackfillCreatedAt(habits []models.Habit, today string) ([]models.Habit, bool) {
	changed := false
	out := make([]models.Habit, len(habits))
	copy(out, habits)
	for i := range out {
		if out[i].CreatedAt == "" {
			out[i].CreatedAt = today
			changed = true
		}
	}
	return out, changed
}
