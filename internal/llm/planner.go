package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"askbot/internal/logging"
	"askbot/internal/plan"
)

// Planner implements the executor's Collaborator and the selector's
// ReasoningPlanner on top of a completion client. Structured outputs are
// parsed defensively: code fences stripped, plain-text fallbacks on parse
// failure.
type Planner struct {
	client Client
}

// NewPlanner wraps a completion client. A nil client yields a nil planner;
// callers treat that as "generative features unavailable".
func NewPlanner(client Client) *Planner {
	if client == nil {
		return nil
	}
	return &Planner{client: client}
}

const planPrompt = `You are planning how to answer a support question about a hackathon-judging platform.
Question: %q
Intent: %s

Respond with ONLY a JSON object:
{
  "information_needed": ["..."],
  "knowledge_sources": ["scenarios", "documentation"],
  "reasoning_steps": ["..."],
  "response_structure": "...",
  "clarifications_needed": ["..."]
}`

// BuildPlan asks the collaborator for a structured reasoning plan. A
// malformed response is an error; the caller falls back to the basic plan.
func (p *Planner) BuildPlan(ctx context.Context, question string, intent string) (*plan.ReasoningPlan, error) {
	raw, err := p.client.Complete(ctx, fmt.Sprintf(planPrompt, question, intent))
	if err != nil {
		return nil, fmt.Errorf("plan request failed: %w", err)
	}

	var rp plan.ReasoningPlan
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &rp); err != nil {
		logging.Get(logging.CategoryLLM).Warn("unparseable reasoning plan: %v", err)
		return nil, fmt.Errorf("failed to parse reasoning plan: %w", err)
	}

	logging.LLM("built reasoning plan: %d steps, sources=%v", len(rp.ReasoningSteps), rp.KnowledgeSources)
	return &rp, nil
}

// Synthesize asks for final prose grounded in the supplied context documents.
func (p *Planner) Synthesize(ctx context.Context, req plan.SynthesisRequest) (string, error) {
	var b strings.Builder
	if len(req.ContextDocs) > 0 {
		b.WriteString("Context:\n")
		for i, doc := range req.ContextDocs {
			fmt.Fprintf(&b, "--- document %d ---\n%s\n", i+1, doc)
		}
		b.WriteString("\n")
	}
	if req.ConversationSummary != "" {
		fmt.Fprintf(&b, "Recent conversation:\n%s\n\n", req.ConversationSummary)
	}
	fmt.Fprintf(&b, "Question: %s", req.Question)

	return p.client.CompleteWithSystem(ctx, req.System, b.String())
}

const reasonPrompt = `Work through this question step by step using the provided material.
Question: %q

Steps to follow:
%s

Material:
%s

Respond with ONLY a JSON object:
{
  "findings": ["one finding per step"],
  "connections": "how the findings relate",
  "conclusion": "the answer"
}`

// Reason executes a structured reasoning request. When the structured result
// cannot be parsed, the raw text becomes the conclusion rather than failing
// the turn.
func (p *Planner) Reason(ctx context.Context, req plan.ReasoningRequest) (plan.ReasoningResult, error) {
	steps := strings.Join(req.Plan.ReasoningSteps, "\n")
	if steps == "" {
		steps = "Answer the question directly from the material."
	}
	material := strings.Join(req.Material, "\n---\n")
	if material == "" {
		material = "(no material retrieved)"
	}

	raw, err := p.client.Complete(ctx, fmt.Sprintf(reasonPrompt, req.Question, steps, material))
	if err != nil {
		return plan.ReasoningResult{}, fmt.Errorf("reasoning request failed: %w", err)
	}

	var result plan.ReasoningResult
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &result); err != nil {
		logging.Get(logging.CategoryLLM).Warn("unparseable reasoning result, using plain text: %v", err)
		return plan.ReasoningResult{Conclusion: raw}, nil
	}

	return result, nil
}
