package convo

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(StoreConfig{
		DatabasePath:  filepath.Join(t.TempDir(), "contexts.db"),
		SaveInterval:  time.Hour, // keep the periodic flusher quiet in tests
		SaveEvery:     1000,
		HistoryWindow: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGetCreatesDefaultContext(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	c := s.Get("user1")
	if c.UserID != "user1" {
		t.Errorf("user id %q", c.UserID)
	}
	if c.Phase() != "setup" {
		t.Errorf("default phase %q, want setup", c.Phase())
	}
	if c.TurnCount() != 0 {
		t.Errorf("new context has %d turns", c.TurnCount())
	}
}

func TestGetReturnsSameContext(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if s.Get("user1") != s.Get("user1") {
		t.Error("repeated Get returned different contexts")
	}
}

func TestRecordTurnBoundsHistory(t *testing.T) {
	c := NewContext("u", 3)

	for i := 0; i < 5; i++ {
		c.RecordTurn("q", "a", "")
	}
	if c.TurnCount() != 3 {
		t.Errorf("history len %d, want 3", c.TurnCount())
	}
}

func TestLastAnswer(t *testing.T) {
	c := NewContext("u", 10)

	if _, ok := c.LastAnswer(); ok {
		t.Error("empty history returned an answer")
	}

	c.RecordTurn("first?", "first answer", "")
	c.RecordTurn("second?", "second answer", "s1")

	answer, ok := c.LastAnswer()
	if !ok || answer != "second answer" {
		t.Errorf("got %q, %v", answer, ok)
	}
	if c.LastScenario != "s1" {
		t.Errorf("last scenario %q", c.LastScenario)
	}
}

func TestFlushAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contexts.db")

	s, err := NewStore(StoreConfig{DatabasePath: path, SaveInterval: time.Hour, SaveEvery: 1000, HistoryWindow: 10})
	if err != nil {
		t.Fatal(err)
	}

	c := s.Get("user1")
	c.RecordTurn("How do I add judges?", "Open the judging tab.", "judge_invitation")
	c.UpdateFromTurn("How do I add judges for the Summer AI hackathon?", map[string]string{
		"hackathon_name": "Summer AI hackathon",
	}, "question")

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: the context must come back from disk.
	s2, err := NewStore(StoreConfig{DatabasePath: path, SaveInterval: time.Hour, SaveEvery: 1000, HistoryWindow: 10})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	restored := s2.Get("user1")
	if restored.TurnCount() != 1 {
		t.Fatalf("restored %d turns, want 1", restored.TurnCount())
	}
	answer, _ := restored.LastAnswer()
	if answer != "Open the judging tab." {
		t.Errorf("restored answer %q", answer)
	}
	if restored.EventName() != "Summer AI hackathon" {
		t.Errorf("restored event name %q", restored.EventName())
	}
}

func TestUpdateFromTurnInference(t *testing.T) {
	c := NewContext("u", 10)

	c.UpdateFromTurn("the scoring page is not working", map[string]string{"judging_mode": "offline"}, "problem")

	if c.Phase() != "judging" {
		t.Errorf("phase %q, want judging", c.Phase())
	}
	c.mu.Lock()
	if c.Preferences.JudgingMode != "offline" {
		t.Errorf("judging mode %q", c.Preferences.JudgingMode)
	}
	if len(c.Preferences.Concerns) != 1 || c.Preferences.Concerns[0] != "scoring" {
		t.Errorf("concerns %v", c.Preferences.Concerns)
	}
	c.mu.Unlock()
}

func TestUpdateFromTurnSentiment(t *testing.T) {
	c := NewContext("u", 10)

	c.UpdateFromTurn("thanks, that was helpful", nil, "feedback")
	c.UpdateFromTurn("that didn't work at all", nil, "feedback")
	c.UpdateFromTurn("can I talk to a human on the support team?", nil, "question")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Feedback.Positive != 1 {
		t.Errorf("positive %d, want 1", c.Feedback.Positive)
	}
	if c.Feedback.Negative != 1 {
		t.Errorf("negative %d, want 1", c.Feedback.Negative)
	}
	if !c.Feedback.NeedsSupport {
		t.Error("escalation not flagged")
	}
}

func TestStoreCloseStopsFlusher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newTestStore(t)
	s.Get("user1").RecordTurn("q", "a", "")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
