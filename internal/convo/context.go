// Package convo holds per-user conversation state: a bounded recent-history
// ring, inferred hackathon state and preferences, and feedback counters. The
// store persists contexts to SQLite in batches rather than per turn.
package convo

import (
	"sync"
	"time"
)

// HackathonState is what the bot has inferred about the user's event.
type HackathonState struct {
	Phase          string `json:"phase"` // setup, judging, results
	EventName      string `json:"event_name"`
	JudgingEnabled bool   `json:"judging_enabled"`
}

// Preferences captures judging-mode interest and recurring concern tags.
type Preferences struct {
	JudgingMode string   `json:"judging_mode"` // online, offline, sponsor
	Concerns    []string `json:"concerns"`
}

// QA is one stored question/answer pair.
type QA struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	ScenarioID string    `json:"scenario_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FeedbackStats tracks sentiment over the conversation.
type FeedbackStats struct {
	Positive     int  `json:"positive"`
	Negative     int  `json:"negative"`
	NeedsSupport bool `json:"needs_support"`
}

// Context is one user's mutable conversation state. A user's messages arrive
// strictly one at a time from the transport, but the store's background
// flusher reads contexts concurrently, so all access goes through the mutex.
type Context struct {
	mu sync.Mutex

	UserID       string
	Hackathon    HackathonState
	Preferences  Preferences
	History      []QA // bounded ring, newest last
	LastScenario string
	Interactions int
	LastActive   time.Time
	Feedback     FeedbackStats

	window int
	dirty  bool
}

// NewContext creates a context with sensible defaults.
func NewContext(userID string, window int) *Context {
	if window <= 0 {
		window = 10
	}
	return &Context{
		UserID:     userID,
		Hackathon:  HackathonState{Phase: "setup"},
		LastActive: time.Now(),
		window:     window,
	}
}

// TurnCount returns the number of stored question/answer pairs.
func (c *Context) TurnCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.History)
}

// LastAnswer returns the most recent bot answer.
func (c *Context) LastAnswer() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.History) == 0 {
		return "", false
	}
	return c.History[len(c.History)-1].Answer, true
}

// RecordTurn appends a question/answer pair, trimming the ring to the window.
func (c *Context) RecordTurn(question, answer, scenarioID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.History = append(c.History, QA{
		Question:   question,
		Answer:     answer,
		ScenarioID: scenarioID,
		Timestamp:  time.Now(),
	})
	if len(c.History) > c.window {
		c.History = c.History[len(c.History)-c.window:]
	}

	if scenarioID != "" {
		c.LastScenario = scenarioID
	}
	c.Interactions++
	c.LastActive = time.Now()
	c.dirty = true
}

// Summary renders the recent history as a short plain-text block for the
// generative collaborator.
func (c *Context) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.History) == 0 {
		return ""
	}

	var b []byte
	start := len(c.History) - 3
	if start < 0 {
		start = 0
	}
	for _, qa := range c.History[start:] {
		b = append(b, "Q: "...)
		b = append(b, qa.Question...)
		b = append(b, "\nA: "...)
		answer := qa.Answer
		if len(answer) > 200 {
			answer = answer[:200] + "..."
		}
		b = append(b, answer...)
		b = append(b, '\n')
	}
	return string(b)
}

// record is the serializable snapshot persisted to SQLite.
type record struct {
	UserID       string         `json:"user_id"`
	Hackathon    HackathonState `json:"hackathon"`
	Preferences  Preferences    `json:"preferences"`
	History      []QA           `json:"history"`
	LastScenario string         `json:"last_scenario,omitempty"`
	Interactions int            `json:"interactions"`
	LastActive   time.Time      `json:"last_active"`
	Feedback     FeedbackStats  `json:"feedback"`
}

// snapshot copies the context for persistence and clears the dirty flag.
// Returns ok=false when nothing changed since the last snapshot.
func (c *Context) snapshot() (record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return record{}, false
	}
	c.dirty = false

	history := make([]QA, len(c.History))
	copy(history, c.History)
	concerns := make([]string, len(c.Preferences.Concerns))
	copy(concerns, c.Preferences.Concerns)

	return record{
		UserID:       c.UserID,
		Hackathon:    c.Hackathon,
		Preferences:  Preferences{JudgingMode: c.Preferences.JudgingMode, Concerns: concerns},
		History:      history,
		LastScenario: c.LastScenario,
		Interactions: c.Interactions,
		LastActive:   c.LastActive,
		Feedback:     c.Feedback,
	}, true
}

// restore loads a persisted record into the context.
func (c *Context) restore(r record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Hackathon = r.Hackathon
	c.Preferences = r.Preferences
	c.History = r.History
	if len(c.History) > c.window {
		c.History = c.History[len(c.History)-c.window:]
	}
	c.LastScenario = r.LastScenario
	c.Interactions = r.Interactions
	c.LastActive = r.LastActive
	c.Feedback = r.Feedback
	c.dirty = false
}
