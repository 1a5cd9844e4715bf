package convo

import (
	"strings"

	"askbot/internal/logging"
)

// Phase keywords, checked in order. Later phases win so a question touching
// both setup and results is treated as the further-along phase.
var phaseKeywords = []struct {
	phase string
	words []string
}{
	{"setup", []string{"create", "set up", "setup", "invite", "add judges", "configure", "criteria"}},
	{"judging", []string{"scoring", "score", "evaluate", "judging round", "review submissions", "assign"}},
	{"results", []string{"results", "winner", "leaderboard", "announce", "publish", "export scores"}},
}

var positiveWords = []string{"thanks", "thank you", "great", "perfect", "awesome", "helpful", "works now"}
var negativeWords = []string{"not helpful", "wrong", "useless", "didn't work", "doesn't help", "bad answer"}
var escalationWords = []string{"talk to a human", "real person", "support team", "contact support", "escalate"}

// UpdateFromTurn folds inferences from a completed turn into the context:
// event phase, named event, judging-mode interest, concern tags and feedback
// sentiment.
func (c *Context) UpdateFromTurn(question string, entities map[string]string, intentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.ToLower(question)

	for _, pk := range phaseKeywords {
		for _, w := range pk.words {
			if strings.Contains(q, w) {
				if c.Hackathon.Phase != pk.phase {
					logging.ConvoDebug("user %s phase inferred: %s -> %s", c.UserID, c.Hackathon.Phase, pk.phase)
				}
				c.Hackathon.Phase = pk.phase
				break
			}
		}
	}

	if name := entities["hackathon_name"]; name != "" {
		c.Hackathon.EventName = name
	}
	if mode := entities["judging_mode"]; mode != "" {
		c.Preferences.JudgingMode = mode
		c.Hackathon.JudgingEnabled = true
	}

	if intentType == "problem" {
		c.addConcern(concernTag(q))
	}

	for _, w := range positiveWords {
		if strings.Contains(q, w) {
			c.Feedback.Positive++
			break
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(q, w) {
			c.Feedback.Negative++
			break
		}
	}
	for _, w := range escalationWords {
		if strings.Contains(q, w) {
			c.Feedback.NeedsSupport = true
			break
		}
	}

	c.dirty = true
}

// EventName returns the inferred named event, if any.
func (c *Context) EventName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Hackathon.EventName
}

// Phase returns the inferred event phase.
func (c *Context) Phase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Hackathon.Phase
}

// addConcern appends a concern tag once. Caller holds the lock.
func (c *Context) addConcern(tag string) {
	if tag == "" {
		return
	}
	for _, existing := range c.Preferences.Concerns {
		if existing == tag {
			return
		}
	}
	c.Preferences.Concerns = append(c.Preferences.Concerns, tag)
}

// concernTag maps a problem statement to a coarse concern category.
func concernTag(q string) string {
	switch {
	case strings.Contains(q, "judge"):
		return "judges"
	case strings.Contains(q, "score") || strings.Contains(q, "scoring"):
		return "scoring"
	case strings.Contains(q, "submission"):
		return "submissions"
	case strings.Contains(q, "result"):
		return "results"
	default:
		return "general"
	}
}
