package plan

import (
	"context"
	"errors"
	"testing"

	"askbot/internal/catalog"
	"askbot/internal/query"
)

// fakePlanner returns a fixed plan or error.
type fakePlanner struct {
	plan *ReasoningPlan
	err  error
}

func (f *fakePlanner) BuildPlan(ctx context.Context, question, intent string) (*ReasoningPlan, error) {
	return f.plan, f.err
}

func scenario(id, title string) catalog.Scenario {
	return catalog.Scenario{ScenarioID: id, Title: title, CanonicalQuestions: []string{title + "?"}}
}

func processed(scored ...catalog.ScoredScenario) *query.ProcessedQuery {
	return &query.ProcessedQuery{
		CleanedQuery:      "how do I add judges?",
		Intent:            query.Intent{Type: query.IntentQuestion, Confidence: 0.8},
		RelevantScenarios: scored,
	}
}

func TestSelectFollowupWins(t *testing.T) {
	s := NewSelector(nil, DefaultSelectorConfig())
	prev := scenario("judging_criteria", "Judging Criteria")

	pq := processed(catalog.ScoredScenario{Scenario: scenario("other", "Other"), Score: 0.99})
	pq.IsFollowup = true
	pq.PreviousScenario = &prev

	p := s.Select(context.Background(), pq)
	if p.Kind != KindFollowup {
		t.Fatalf("got %s, want followup", p.Kind)
	}
	if p.Followup.ScenarioID != "judging_criteria" {
		t.Errorf("followup scenario %s, want judging_criteria", p.Followup.ScenarioID)
	}
}

func TestSelectDirectAboveThreshold(t *testing.T) {
	s := NewSelector(nil, DefaultSelectorConfig())

	pq := processed(
		catalog.ScoredScenario{Scenario: scenario("judge_invitation", "Inviting Judges"), Score: 0.95},
		catalog.ScoredScenario{Scenario: scenario("judging_criteria", "Judging Criteria"), Score: 0.6},
		catalog.ScoredScenario{Scenario: scenario("results", "Results"), Score: 0.5},
		catalog.ScoredScenario{Scenario: scenario("extra", "Extra"), Score: 0.4},
	)

	p := s.Select(context.Background(), pq)
	if p.Kind != KindDirect {
		t.Fatalf("got %s, want direct", p.Kind)
	}
	if p.Direct.ScenarioID != "judge_invitation" {
		t.Errorf("direct scenario %s", p.Direct.ScenarioID)
	}
	if p.Direct.Confidence != 0.95 {
		t.Errorf("confidence %v", p.Direct.Confidence)
	}
	if len(p.Direct.RelatedIDs) != 2 {
		t.Fatalf("got %d related ids, want 2", len(p.Direct.RelatedIDs))
	}
	if p.Direct.RelatedIDs[0] != "judging_criteria" || p.Direct.RelatedIDs[1] != "results" {
		t.Errorf("related ids %v", p.Direct.RelatedIDs)
	}
}

func TestSelectHybridBetweenThresholds(t *testing.T) {
	s := NewSelector(nil, DefaultSelectorConfig())

	pq := processed(catalog.ScoredScenario{Scenario: scenario("judging_criteria", "Judging Criteria"), Score: 0.6})

	p := s.Select(context.Background(), pq)
	if p.Kind != KindHybrid {
		t.Fatalf("got %s, want hybrid", p.Kind)
	}
	if !p.Hybrid.BlendWithGenerative {
		t.Error("hybrid plan must request generative blending")
	}
}

func TestSelectReasoningWhenNoConfidentMatch(t *testing.T) {
	planner := &fakePlanner{plan: &ReasoningPlan{ReasoningSteps: []string{"look it up"}}}
	s := NewSelector(planner, DefaultSelectorConfig())

	p := s.Select(context.Background(), processed())
	if p.Kind != KindReasoning {
		t.Fatalf("got %s, want reasoning", p.Kind)
	}
}

func TestSelectBasicWhenPlannerFails(t *testing.T) {
	planner := &fakePlanner{err: errors.New("malformed plan")}
	s := NewSelector(planner, DefaultSelectorConfig())

	p := s.Select(context.Background(), processed())
	if p.Kind != KindBasic {
		t.Fatalf("got %s, want basic", p.Kind)
	}
}

func TestSelectBasicWithoutPlanner(t *testing.T) {
	s := NewSelector(nil, DefaultSelectorConfig())

	p := s.Select(context.Background(), processed())
	if p.Kind != KindBasic {
		t.Fatalf("got %s, want basic", p.Kind)
	}
}

func TestSelectLowScoreDoesNotMatchDirect(t *testing.T) {
	s := NewSelector(nil, DefaultSelectorConfig())

	pq := processed(catalog.ScoredScenario{Scenario: scenario("x", "X"), Score: 0.45})
	p := s.Select(context.Background(), pq)
	if p.Kind == KindDirect || p.Kind == KindHybrid {
		t.Errorf("score 0.45 selected %s", p.Kind)
	}
}

func TestPlanValidate(t *testing.T) {
	good := NewDirect("x", 0.9, nil)
	if err := good.Validate(); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}

	bad := Plan{Kind: KindDirect}
	if err := bad.Validate(); err == nil {
		t.Error("kind with no payload accepted")
	}

	twoPayloads := Plan{Kind: KindDirect, Direct: &DirectScenario{}, Basic: &BasicPlan{}}
	if err := twoPayloads.Validate(); err == nil {
		t.Error("plan with two payloads accepted")
	}
}
