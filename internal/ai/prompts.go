package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"habbit-backend-go/internal/models"
)

// TagSuggestion is the tagger's answer for one task.
type TagSuggestion struct {
	Emoji    string          `json:"emoji"`
	Category models.Category `json:"category"`
}

// SuggestTaskDetails asks for a relevant emoji and category for a task. A disabled
// client returns the fallback suggestion without error.
func (c *Client) SuggestTaskDetails(ctx context.Context, taskText string) (TagSuggestion, error) {
	fallback := TagSuggestion{Emoji: FallbackEmoji, Category: models.CategoryOther}
	if !c.Enabled() {
		return fallback, nil
	}

	prompt := fmt.Sprintf(`Analyze the following task and suggest a relevant emoji and a category.
Task: %q

Categories: Work, Personal, Health, Finance, Learning, Social, Other.

Return valid JSON format:
{
    "emoji": "🎯",
    "category": "Work"
}`, taskText)

	var suggestion TagSuggestion
	if err := c.generateJSON(ctx, prompt, &suggestion); err != nil {
		return fallback, err
	}
	if suggestion.Emoji == "" {
		suggestion.Emoji = FallbackEmoji
	}
	if !models.ValidCategory(suggestion.Category) {
		suggestion.Category = models.CategoryOther
	}
	return suggestion, nil
}

// TaskRef identifies one pending task for priority selection.
type TaskRef struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type prioritySelection struct {
	PriorityTaskID string `json:"priorityTaskId"`
	Reason         string `json:"reason"`
}

// IdentifyPriorityTask picks the single task most relevant to do now, "Eat The
// Frog" style, given the caller's current local time. Returns "" when no task is
// designated or the client is disabled.
func (c *Client) IdentifyPriorityTask(ctx context.Context, tasks []TaskRef, now time.Time) (string, error) {
	if !c.Enabled() || len(tasks) == 0 {
		return "", nil
	}

	var list strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&list, "- [%s] %s\n", t.ID, t.Text)
	}

	prompt := fmt.Sprintf(`You are a productivity expert using the "Eat The Frog" method.
Current Time: %s

Analyze the following list of tasks and identify the ONE single task that is the most relevant to do NOW.

Rules:
1. TIME AWARENESS:
   - Late (> 18:00): Avoid heavy "Work". Prioritize family, relax, or prep for tomorrow.
   - Work Hours (9-17): Prioritize high-impact professional tasks.
   - Lunch/Break (12-13): Suggest lighter tasks or break-related habits.

2. DAY AWARENESS:
   - Weekend (Saturday/Sunday): Prioritize personal hobbies, social, family, or chores. AVOID strictly office work unless it says "Urgent".

3. FROG DEFINITION:
   - The "Frog" is the task that best fits effective time management for the CURRENT moment.

Tasks:
%s
Return valid JSON with the ID of the priority task and a short reason (max 10 words).
Example:
{
    "priorityTaskId": "12345",
    "reason": "Best to do in evening"
}`, now.Format("Monday 15:04"), list.String())

	var sel prioritySelection
	if err := c.generateJSON(ctx, prompt, &sel); err != nil {
		return "", err
	}
	return sel.PriorityTaskID, nil
}

// MorningBriefing is the coach's daily opener.
type MorningBriefing struct {
	Greeting   string `json:"greeting"`
	Summary    string `json:"summary"`
	Suggestion string `json:"suggestion"`
	Motivation string `json:"motivation"`
}

// BriefingInput carries everything the briefing prompt needs.
type BriefingInput struct {
	UserName                string
	YesterdayCompletionRate float64 // 0..1
	YesterdayTaskCount      int
	TodayHabits             []string
	Language                string // "id" or "en"
}

// GenerateMorningBriefing produces the daily briefing. A disabled client returns
// (nil, nil); callers treat that as "feature off". Missing response fields fall
// back to canned strings so the result is always fully populated.
func (c *Client) GenerateMorningBriefing(ctx context.Context, in BriefingInput) (*MorningBriefing, error) {
	if !c.Enabled() {
		return nil, nil
	}

	lang := "English (Casual, Upbeat, Gen-Z friendly)"
	langName := "English"
	if in.Language == "id" {
		lang = `Indonesian (Casual, Gen-Z friendly, Use slang like "Semangat", "Gaspol")`
		langName = "Indonesian"
	}

	var list strings.Builder
	for _, h := range in.TodayHabits {
		fmt.Fprintf(&list, "- %s\n", h)
	}

	prompt := fmt.Sprintf(`You are a friendly, energetic, and supportive AI productivity coach.
User Name: %s
Language: %s

Context:
- Yesterday, the user completed %d%% of their habits (Total items: %d).
- Today, they have these habits planned:
%s
Generate a morning briefing in valid JSON format with the following fields:
1. "greeting": A warm, personalized morning greeting.
2. "summary": A 1-sentence comment on yesterday's performance. Be encouraging if low, celebratory if high.
3. "suggestion": Pick 1-2 habits from today's list to focus on first, or suggest a general mindset based on the list. Max 1 sentence.
4. "motivation": A short, punchy motivational quote or sentence to start the day.

IMPORTANT: Output MUST be in %s.`,
		in.UserName, lang, int(in.YesterdayCompletionRate*100+0.5), in.YesterdayTaskCount, list.String(), langName)

	var briefing MorningBriefing
	if err := c.generateJSON(ctx, prompt, &briefing); err != nil {
		return nil, err
	}

	if briefing.Greeting == "" {
		briefing.Greeting = fmt.Sprintf("Hi %s!", in.UserName)
	}
	if briefing.Summary == "" {
		briefing.Summary = "Let's make today count!"
	}
	if briefing.Suggestion == "" {
		briefing.Suggestion = "Focus on your top priority."
	}
	if briefing.Motivation == "" {
		briefing.Motivation = "You got this!"
	}
	return &briefing, nil
}
