package models

// AddHabitRequest represents the request body for creating a new habit.
type AddHabitRequest struct {
	Text string `json:"text" binding:"required"`
}

// ToggleHabitRequest optionally names the day-bucket to toggle in.
// An empty Date means "today".
type ToggleHabitRequest struct {
	Date string `json:"date,omitempty"`
}

// CopyHabitsRequest represents the request body for copying habits from a past
// day-bucket into today. Unknown ids are skipped.
type CopyHabitsRequest struct {
	HabitIDs []string `json:"habitIds" binding:"required"`
}

// SetNoteRequest represents the request body for replacing a day's note.
// An empty Text clears the note for that day.
type SetNoteRequest struct {
	Text string `json:"text"`
}

// UpdatePreferencesRequest carries the device-local preferences.
// Pointers distinguish "not provided" from "set to empty".
type UpdatePreferencesRequest struct {
	Theme    *string `json:"theme,omitempty"`
	Language *string `json:"language,omitempty"`
}
