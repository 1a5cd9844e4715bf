package respond

import (
	"strings"
	"testing"

	"askbot/internal/catalog"
)

func stepsScenario() *catalog.Scenario {
	return &catalog.Scenario{
		ScenarioID:         "judge_invitation",
		Title:              "Inviting Judges",
		CanonicalQuestions: []string{"How do I add judges?"},
		AnswerComponents: catalog.AnswerComponents{
			Steps: []string{"Open the judging tab", "Click invite", "Enter the email"},
		},
	}
}

func TestValidateInsertsMissingSteps(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	text := "You can invite judges from the judging tab in your dashboard settings."

	repaired, _ := v.Validate(text, stepsScenario(), "question", nil)

	for _, marker := range []string{"1.", "2.", "3."} {
		if !strings.Contains(repaired, marker) {
			t.Errorf("repaired text missing %q:\n%s", marker, repaired)
		}
	}
}

func TestValidateKeepsExistingSteps(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	text := "Here's how:\n1. Open the judging tab\n2. Click invite\n3. Enter the email"

	repaired, _ := v.Validate(text, stepsScenario(), "question", nil)

	if strings.Contains(repaired, "Here are the steps:") {
		t.Errorf("steps inserted despite existing list:\n%s", repaired)
	}
}

func TestValidatePersonalizesEventName(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	text := "Judging for your hackathon opens once submissions close and judges accept."

	repaired, _ := v.Validate(text, nil, "question", map[string]string{
		"hackathon_name": "Summer AI hackathon",
	})

	if strings.Contains(repaired, "your hackathon") {
		t.Errorf("generic phrase not replaced:\n%s", repaired)
	}
	if !strings.Contains(repaired, "Summer AI hackathon") {
		t.Errorf("event name missing:\n%s", repaired)
	}
}

func TestValidateFlagsTooShort(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	_, result := v.Validate("ok", nil, "question", nil)

	found := false
	for _, issue := range result.Issues {
		if issue == "response too short" {
			found = true
		}
	}
	if !found {
		t.Errorf("short response not flagged: %v", result.Issues)
	}
}

func TestValidateFlagsTooLongWithoutTruncating(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	long := strings.Repeat("This sentence pads the response well past the limit. ", 40)

	repaired, result := v.Validate(long, nil, "question", nil)

	if len(repaired) < len(long) {
		t.Error("long response was truncated")
	}
	flagged := false
	for _, issue := range result.Issues {
		if strings.Contains(issue, "length") {
			flagged = true
		}
	}
	if !flagged {
		t.Errorf("long response not flagged: %v", result.Issues)
	}
}

func TestValidateSplitsSingleBlock(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	block := "Judges are invited by email from the judging tab. Each judge gets a personal link to accept. " +
		"Once they accept they appear in the judges list. You can resend an invitation from the same place. " +
		"Expired invitations can be renewed with one click."

	repaired, _ := v.Validate(block, nil, "question", nil)

	if strings.Count(repaired, "\n\n") < 2 {
		t.Errorf("single block not re-split:\n%q", repaired)
	}
}

func TestValidateAddsProblemOpening(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	text := "Check that judging is enabled in the event settings, then refresh the page and try again."

	repaired, _ := v.Validate(text, nil, "problem", nil)

	if !strings.Contains(strings.ToLower(repaired[:40]), "i understand") {
		t.Errorf("problem opening not added:\n%s", repaired)
	}
}

func TestValidateDisclaimerByTermOverlap(t *testing.T) {
	cfg := DefaultValidatorConfig()
	cfg.Disclaimers = map[string][]string{
		"judge_invitation": {"scores become final after publishing"},
	}
	v := NewValidator(cfg)

	// Wording differs but the significant terms are present.
	withTerms := "After you publish, the scores become locked and final for every judge in the event round."
	_, result := v.Validate(withTerms, stepsScenario(), "question", nil)
	for _, issue := range result.Issues {
		if strings.Contains(issue, "disclaimer") {
			t.Errorf("disclaimer flagged despite term overlap: %v", result.Issues)
		}
	}

	without := "Invitations are sent to each address you enter in the judging dashboard tab every single time."
	_, result = v.Validate(without, stepsScenario(), "question", nil)
	found := false
	for _, issue := range result.Issues {
		if strings.Contains(issue, "disclaimer") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing disclaimer not flagged: %v", result.Issues)
	}
}

func TestValidateAcceptableWithAtMostOneIssue(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	_, result := v.Validate("This answer is long enough to pass the minimum length requirement easily.", nil, "question", nil)
	if !result.Acceptable {
		t.Errorf("clean response not acceptable: %v", result.Issues)
	}
}
