package respond

import (
	"strings"
	"testing"

	"askbot/internal/catalog"
)

func inviteScenario() catalog.Scenario {
	return catalog.Scenario{
		ScenarioID:         "judge_invitation",
		Title:              "Inviting Judges",
		CanonicalQuestions: []string{"How do I add judges?"},
		AnswerTemplate:     "To invite judges to {hackathon_name}:\n{steps}\n\nNote: {notes}",
		AnswerComponents: catalog.AnswerComponents{
			Steps: []string{"Open the judging tab", "Click invite"},
			Notes: "Judges receive an email invitation.",
		},
	}
}

func TestSubstituteLiteralTokens(t *testing.T) {
	got := Substitute("hello {name}, welcome to {event}", map[string]string{
		"name":  "Sam",
		"event": "DemoDay",
	})
	if got != "hello Sam, welcome to DemoDay" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteUnresolvedBecomesEmpty(t *testing.T) {
	got := Substitute("value: {missing}!", nil)
	if got != "value: !" {
		t.Errorf("got %q", got)
	}
}

func TestResolveFallbackChain(t *testing.T) {
	e := NewEngine()
	e.byScenario["judge_invitation"] = map[string]Triple{
		"question":    {Greeting: "scenario+question"},
		GenericIntent: {Greeting: "scenario+generic"},
	}

	if got := e.Resolve("judge_invitation", "question").Greeting; got != "scenario+question" {
		t.Errorf("scenario+intent: got %q", got)
	}
	if got := e.Resolve("judge_invitation", "problem").Greeting; got != "scenario+generic" {
		t.Errorf("scenario+generic: got %q", got)
	}
	if got := e.Resolve("other_scenario", "problem").Greeting; got == "" {
		t.Error("default+intent: empty greeting")
	}
	// Unknown intent on an unknown scenario still resolves.
	if got := e.Resolve("other_scenario", "made_up_intent"); got.Body == "" {
		t.Error("default+generic: empty body")
	}
}

func TestRenderScenarioIdempotent(t *testing.T) {
	e := NewEngine()
	s := inviteScenario()
	entities := map[string]string{"hackathon_name": "Summer AI hackathon"}

	first := e.RenderScenario(s, "question", entities, "")
	second := e.RenderScenario(s, "question", entities, "")
	if first != second {
		t.Errorf("rendering not idempotent:\n%q\nvs\n%q", first, second)
	}
}

func TestRenderScenarioSubstitutesComponents(t *testing.T) {
	e := NewEngine()
	got := e.RenderScenario(inviteScenario(), "question", nil, "")

	if !strings.Contains(got, "your hackathon") {
		t.Errorf("default event name missing:\n%s", got)
	}
	if !strings.Contains(got, "1. Open the judging tab") || !strings.Contains(got, "2. Click invite") {
		t.Errorf("numbered steps missing:\n%s", got)
	}
	if !strings.Contains(got, "Judges receive an email invitation.") {
		t.Errorf("notes missing:\n%s", got)
	}
}

func TestRenderScenarioGreetingOverride(t *testing.T) {
	e := NewEngine()
	got := e.RenderScenario(inviteScenario(), "question", nil, "Continuing from before:")

	if !strings.HasPrefix(got, "Continuing from before:") {
		t.Errorf("override not applied:\n%s", got)
	}
}

func TestRenderScenarioWithoutTemplateUsesComponents(t *testing.T) {
	e := NewEngine()
	s := inviteScenario()
	s.AnswerTemplate = ""

	got := e.RenderScenario(s, "question", nil, "")
	if !strings.Contains(got, "1. Open the judging tab") {
		t.Errorf("component fallback missing steps:\n%s", got)
	}
}

func TestNumberSteps(t *testing.T) {
	got := NumberSteps([]string{"first", "second", "third"})
	want := "1. first\n2. second\n3. third"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if NumberSteps(nil) != "" {
		t.Error("empty steps should render empty")
	}
}
