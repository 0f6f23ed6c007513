package api

import "habbit-backend-go/internal/core"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SnapshotResponse wraps the canonical snapshot together with transient,
// once-per-read notifications (write failures and AI toasts).
type SnapshotResponse struct {
	Snapshot   core.Snapshot `json:"snapshot"`
	WriteError string        `json:"writeError,omitempty"`
	AIError    *core.AIError `json:"aiError,omitempty"`
}

// AIErrorResponse is the toast payload for a failed AI call. Kind is one of
// "rate_limit", "credential", "generic".
type AIErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ProgressResponse reports the completion percentage for one day-bucket.
type ProgressResponse struct {
	Date     string `json:"date"`
	Progress int    `json:"progress"`
}

// PriorityResponse reports the AI-designated priority task, empty when none.
type PriorityResponse struct {
	PriorityTaskID string `json:"priorityTaskId"`
}
