package models

import "time"

// UserDocument is the remote aggregate: one Firestore document per identity holding
// everything the tracker knows about a user. Historically the document was keyed by
// email; the current scheme keys it by the Firebase Auth UID (see the reconciler's
// legacy key resolution).
type UserDocument struct {
	Habits       []Habit     `json:"habits" firestore:"habits"`
	Completions  Completions `json:"completions" firestore:"completions"`
	Notes        Notes       `json:"notes" firestore:"notes"`
	LastUpdated  time.Time   `json:"lastUpdated" firestore:"lastUpdated"`
	Email        string      `json:"email,omitempty" firestore:"email,omitempty"`
	Name         string      `json:"name,omitempty" firestore:"name,omitempty"`
	TutorialSeen bool        `json:"tutorialSeen,omitempty" firestore:"tutorialSeen,omitempty"`
}

// Normalize fills in defaults for optional fields so downstream code never has to
// nil-check the maps. Fields absent in the stored document stay absent on write
// because persistence always merge-writes explicit fields.
func (d *UserDocument) Normalize() {
	if d.Habits == nil {
		d.Habits = []Habit{}
	}
	if d.Completions == nil {
		d.Completions = Completions{}
	}
	if d.Notes == nil {
		d.Notes = Notes{}
	}
}

// Identity carries the profile fields produced by the auth provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}
