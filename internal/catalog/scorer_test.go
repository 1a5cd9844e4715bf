package catalog

import "testing"

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	scenarios := []Scenario{
		{
			ScenarioID:         "judge_invitation",
			Title:              "Inviting Judges",
			CanonicalQuestions: []string{"How do I add judges?", "How can I invite judges to my hackathon?"},
			QuestionPatterns:   []string{`\binvite\b.*\bjudges?\b`},
			Keywords:           []string{"judge", "invite", "add"},
			AnswerComponents: AnswerComponents{
				Steps: []string{"Open the judging tab", "Click invite", "Enter the judge's email"},
			},
			RelatedScenarios: []string{"judging_criteria"},
		},
		{
			ScenarioID:         "judging_criteria",
			Title:              "Judging Criteria",
			CanonicalQuestions: []string{"How do I set up judging criteria?"},
			Keywords:           []string{"criteria", "rubric", "scoring"},
		},
		{
			ScenarioID:         "results_publish",
			Title:              "Publishing Results",
			CanonicalQuestions: []string{"How do I publish the results?"},
			Keywords:           []string{"results", "publish", "winner"},
		},
	}
	for i := range scenarios {
		if err := scenarios[i].Compile(); err != nil {
			t.Fatalf("compile: %v", err)
		}
	}

	cat, err := NewFromScenarios(scenarios)
	if err != nil {
		t.Fatalf("NewFromScenarios: %v", err)
	}
	return cat
}

func TestScorerExactPattern(t *testing.T) {
	sc := NewScorer(testCatalog(t), DefaultScorerConfig())

	result := sc.Score("Can you invite more judges for me?")
	if result.Best == nil {
		t.Fatal("expected a pattern match")
	}
	if result.Best.ScenarioID != "judge_invitation" {
		t.Errorf("got %s, want judge_invitation", result.Best.ScenarioID)
	}
	if result.Confidence != 1.0 {
		t.Errorf("pattern match confidence = %v, want 1.0", result.Confidence)
	}
	if len(result.Alternates) != 0 {
		t.Errorf("pattern match returned %d alternates, want 0", len(result.Alternates))
	}
}

func TestScorerNearDuplicate(t *testing.T) {
	sc := NewScorer(testCatalog(t), DefaultScorerConfig())

	// One character off the canonical phrasing, no pattern hit.
	result := sc.Score("How do I set up judging criteria")
	if result.Best == nil {
		t.Fatal("expected a near-duplicate match")
	}
	if result.Best.ScenarioID != "judging_criteria" {
		t.Errorf("got %s, want judging_criteria", result.Best.ScenarioID)
	}
	if result.Confidence < 0.95 {
		t.Errorf("near-duplicate confidence = %v, want >= 0.95", result.Confidence)
	}
	if len(result.Alternates) != 0 {
		t.Errorf("near-duplicate returned %d alternates, want 0", len(result.Alternates))
	}
}

func TestScorerBlendedNoConfidentMatch(t *testing.T) {
	sc := NewScorer(testCatalog(t), DefaultScorerConfig())

	result := sc.Score("xyzzy plugh quux frobnicate")
	if result.Best != nil {
		t.Errorf("unrelated query matched %s at %v", result.Best.ScenarioID, result.Confidence)
	}
}

func TestScorerConfidenceBounds(t *testing.T) {
	sc := NewScorer(testCatalog(t), DefaultScorerConfig())

	queries := []string{
		"How do I add judges?",
		"tell me about publishing winner results",
		"judging criteria scoring rubric setup",
		"completely unrelated gibberish xyzzy",
	}
	for _, q := range queries {
		result := sc.Score(q)
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("Score(%q) confidence %v out of [0,1]", q, result.Confidence)
		}
		for _, alt := range result.Alternates {
			if alt.Score < 0 || alt.Score > 1 {
				t.Errorf("Score(%q) alternate score %v out of [0,1]", q, alt.Score)
			}
			if alt.Score > result.Confidence {
				t.Errorf("Score(%q) alternate %v exceeds best %v", q, alt.Score, result.Confidence)
			}
		}
	}
}

func TestScorerAlternatesSortedAndCapped(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.AlternateFloor = 0.0
	sc := NewScorer(testCatalog(t), cfg)

	result := sc.Score("judge criteria results something")
	if len(result.Alternates) > cfg.MaxAlternates {
		t.Errorf("got %d alternates, cap is %d", len(result.Alternates), cfg.MaxAlternates)
	}
	for i := 1; i < len(result.Alternates); i++ {
		if result.Alternates[i].Score > result.Alternates[i-1].Score {
			t.Errorf("alternates not sorted descending at %d", i)
		}
	}
}
