package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"askbot/internal/catalog"
	"askbot/internal/convo"
	"askbot/internal/plan"
	"askbot/internal/query"
	"askbot/internal/respond"
)

func testBot(t *testing.T) *Bot {
	t.Helper()

	scenarios := []catalog.Scenario{
		{
			ScenarioID:         "judge_invitation",
			Title:              "Adding Judges",
			CanonicalQuestions: []string{"How do I add judges?"},
			QuestionPatterns:   []string{`.*add.*judge.*`},
			Keywords:           []string{"judge", "invite", "add"},
			AnswerTemplate:     "To add judges to {hackathon_name}:\n\n{steps}",
			AnswerComponents: catalog.AnswerComponents{
				Steps: []string{"Open the Speakers and Judges tab", "Enter the judge's email", "Save"},
			},
		},
	}
	for i := range scenarios {
		if err := scenarios[i].Compile(); err != nil {
			t.Fatal(err)
		}
	}
	cat, err := catalog.NewFromScenarios(scenarios)
	if err != nil {
		t.Fatal(err)
	}

	scorer := catalog.NewScorer(cat, catalog.ScorerConfig{
		NearDuplicateRatio: 0.85,
		KeywordWeight:      0.1,
		SemanticWeight:     0.9,
		MinBlendedScore:    0.4,
		AlternateFloor:     0.3,
		MaxAlternates:      3,
	})
	processor := query.NewProcessor(cat, scorer, nil, nil, query.Config{})
	selector := plan.NewSelector(nil, plan.SelectorConfig{DirectConfidence: 0.75, HybridConfidence: 0.5})
	executor := plan.NewExecutor(cat, respond.NewEngine(), nil, nil)
	validator := respond.NewValidator(respond.DefaultValidatorConfig())

	contexts, err := convo.NewStore(convo.StoreConfig{
		DatabasePath:  filepath.Join(t.TempDir(), "contexts.db"),
		SaveInterval:  time.Hour,
		SaveEvery:     1000,
		HistoryWindow: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { contexts.Close() })

	return New(cat, processor, selector, executor, validator, contexts, nil)
}

func TestHandleMessageAppendsDefaultPhaseGuidance(t *testing.T) {
	b := testBot(t)

	reply := b.HandleMessage(context.Background(), "user-1", "How do I add judges?")
	if !strings.Contains(reply, "Speakers and Judges") {
		t.Fatalf("scenario answer missing:\n%s", reply)
	}
	if !strings.Contains(reply, "still setting up") {
		t.Errorf("setup-phase guidance missing:\n%s", reply)
	}
}

func TestHandleMessageGuidanceFollowsInferredPhase(t *testing.T) {
	b := testBot(t)

	c := b.contexts.Get("user-2")
	c.UpdateFromTurn("the judges can't score their projects", nil, "problem")
	if c.Phase() != "judging" {
		t.Fatalf("phase %q, want judging", c.Phase())
	}

	reply := b.HandleMessage(context.Background(), "user-2", "Can someone explain how to add judges to the dashboard?")
	if !strings.Contains(reply, "With judging in progress") {
		t.Errorf("judging-phase guidance missing:\n%s", reply)
	}
	if strings.Contains(reply, "still setting up") {
		t.Errorf("stale setup guidance present:\n%s", reply)
	}
}
