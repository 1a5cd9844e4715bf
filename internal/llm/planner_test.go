package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"askbot/internal/plan"
)

// fakeClient returns a canned completion and records prompts.
type fakeClient struct {
	response string
	err      error
	prompts  []string
	systems  []string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userPrompt)
	return f.response, f.err
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
		{"plain text answer", "plain text answer"},
	}
	for _, c := range cases {
		if got := stripCodeFences(c.in); got != c.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNewPlannerNilClient(t *testing.T) {
	if p := NewPlanner(nil); p != nil {
		t.Error("nil client should yield nil planner")
	}
}

func TestBuildPlanParsesFencedJSON(t *testing.T) {
	client := &fakeClient{response: "```json\n" + `{
		"information_needed": ["judging mode"],
		"knowledge_sources": ["scenarios", "documentation"],
		"reasoning_steps": ["check the docs"],
		"response_structure": "short answer",
		"clarifications_needed": []
	}` + "\n```"}
	p := NewPlanner(client)

	rp, err := p.BuildPlan(context.Background(), "how does sponsor judging work?", "question")
	if err != nil {
		t.Fatal(err)
	}
	if len(rp.KnowledgeSources) != 2 {
		t.Errorf("sources %v", rp.KnowledgeSources)
	}
	if len(rp.ReasoningSteps) != 1 || rp.ReasoningSteps[0] != "check the docs" {
		t.Errorf("steps %v", rp.ReasoningSteps)
	}
}

func TestBuildPlanRejectsMalformedResponse(t *testing.T) {
	p := NewPlanner(&fakeClient{response: "I think you should check the docs."})

	if _, err := p.BuildPlan(context.Background(), "q", "question"); err == nil {
		t.Error("malformed plan accepted")
	}
}

func TestBuildPlanPropagatesClientError(t *testing.T) {
	p := NewPlanner(&fakeClient{err: errors.New("rate limited")})

	if _, err := p.BuildPlan(context.Background(), "q", "question"); err == nil {
		t.Error("client error swallowed")
	}
}

func TestReasonFallsBackToPlainText(t *testing.T) {
	p := NewPlanner(&fakeClient{response: "Judges need accounts before they can score."})

	result, err := p.Reason(context.Background(), plan.ReasoningRequest{
		Question: "why can't my judge score?",
		Plan:     plan.ReasoningPlan{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Conclusion != "Judges need accounts before they can score." {
		t.Errorf("conclusion %q", result.Conclusion)
	}
}

func TestReasonParsesStructuredResult(t *testing.T) {
	p := NewPlanner(&fakeClient{response: `{
		"findings": ["judge has no account"],
		"connections": "account gates scoring",
		"conclusion": "ask the judge to accept the invitation"
	}`})

	result, err := p.Reason(context.Background(), plan.ReasoningRequest{
		Question: "why can't my judge score?",
		Plan:     plan.ReasoningPlan{ReasoningSteps: []string{"check account"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Findings) != 1 {
		t.Errorf("findings %v", result.Findings)
	}
	if result.Conclusion != "ask the judge to accept the invitation" {
		t.Errorf("conclusion %q", result.Conclusion)
	}
}

func TestSynthesizeIncludesContextAndSummary(t *testing.T) {
	client := &fakeClient{response: "answer"}
	p := NewPlanner(client)

	_, err := p.Synthesize(context.Background(), plan.SynthesisRequest{
		System:              "you are a support bot",
		ContextDocs:         []string{"doc one", "doc two"},
		Question:            "how do I publish results?",
		ConversationSummary: "Q: earlier question\nA: earlier answer",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(client.systems) != 1 || client.systems[0] != "you are a support bot" {
		t.Errorf("system prompt %v", client.systems)
	}
	prompt := client.prompts[0]
	for _, want := range []string{"doc one", "doc two", "earlier question", "how do I publish results?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
