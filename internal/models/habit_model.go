package models

// Category is the set of task categories the AI tagger may assign.
// Anything outside this set coming back from the AI is coerced to CategoryOther.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryHealth   Category = "Health"
	CategoryFinance  Category = "Finance"
	CategoryLearning Category = "Learning"
	CategorySocial   Category = "Social"
	CategoryOther    Category = "Other"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryHealth, CategoryFinance,
		CategoryLearning, CategorySocial, CategoryOther:
		return true
	}
	return false
}

// Habit is a single task record. Habits are not recurring: each day's tasks are
// distinct records keyed into their day-bucket by CreatedAt ("YYYY-MM-DD").
type Habit struct {
	ID        string   `json:"id" firestore:"id"`
	Text      string   `json:"text" firestore:"text"`
	CreatedAt string   `json:"createdAt" firestore:"createdAt"`
	Emoji     string   `json:"emoji,omitempty" firestore:"emoji,omitempty"`
	Category  Category `json:"category,omitempty" firestore:"category,omitempty"`
	// IsAiAnalyzing is a transient flag for the presentation layer while a tag
	// suggestion is in flight. It is never written to Firestore.
	IsAiAnalyzing bool `json:"isAiAnalyzing,omitempty" firestore:"-"`
}

// Completions maps a day-bucket ("YYYY-MM-DD") to the set of habit ids marked done
// that day. Ids may dangle after a habit delete; readers must tolerate that.
type Completions map[string][]string

// Notes maps a day-bucket to a single free-text note.
type Notes map[string]string

// IsDone reports whether habitID is marked done on the given day.
func (c Completions) IsDone(day, habitID string) bool {
	for _, id := range c[day] {
		if id == habitID {
			return true
		}
	}
	return false
}
