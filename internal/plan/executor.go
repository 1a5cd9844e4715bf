package plan

import (
	"context"
	"fmt"
	"strings"

	"askbot/internal/catalog"
	"askbot/internal/logging"
	"askbot/internal/query"
	"askbot/internal/respond"
)

// Collaborator is the generative completion service as the executor sees it.
// Implementations must already handle timeouts and retries; the executor
// degrades to canned answers when calls fail anyway.
type Collaborator interface {
	// Synthesize returns free-form prose grounded in the supplied context
	// documents.
	Synthesize(ctx context.Context, req SynthesisRequest) (string, error)
	// Reason executes a structured reasoning request and returns the parsed
	// result, falling back to plain text internally when parsing fails.
	Reason(ctx context.Context, req ReasoningRequest) (ReasoningResult, error)
}

// SynthesisRequest carries everything the collaborator needs for one prose
// synthesis call.
type SynthesisRequest struct {
	System              string
	ContextDocs         []string
	Question            string
	ConversationSummary string
}

// ReasoningRequest asks the collaborator to work through a reasoning plan
// against retrieved material.
type ReasoningRequest struct {
	Question string
	Plan     ReasoningPlan
	Material []string
}

// ReasoningResult is the collaborator's structured reasoning output.
type ReasoningResult struct {
	Findings    []string `json:"findings"`
	Connections string   `json:"connections"`
	Conclusion  string   `json:"conclusion"`
}

// DocSearcher retrieves general-documentation snippets by keyword.
type DocSearcher interface {
	Search(query string, limit int) []string
}

// Turn carries per-turn conversation state the executor reads: the recent
// history summary for the collaborator, and the inferred event phase that
// drives the guidance appended to scenario answers.
type Turn struct {
	Summary string
	Phase   string
}

// Result is the executor's output for one turn.
type Result struct {
	Text       string
	ScenarioID string // empty when the answer did not come from the catalog
	Generative bool   // true when the collaborator produced the prose
}

// NoInformationMessage ships when the basic plan retrieves nothing. Static
// text beats invented content.
const NoInformationMessage = "I don't have specific information about that yet. " +
	"Could you rephrase your question, or ask about judging setup, judge invitations, scoring, or results?"

const followupOpening = "Continuing from what we discussed:"

// Per-phase guidance appended to scenario answers. An unknown or empty phase
// appends nothing.
var phaseGuidance = map[string]string{
	"setup": "Since you're still setting up, remember to also configure your judging criteria " +
		"and add your judges under the Speakers and Judges tab.",
	"judging": "With judging in progress, make sure every judge has accepted their invitation " +
		"and knows how to score their assigned submissions.",
	"results": "Since you're at the results stage, check that every judge has finished scoring " +
		"before you publish the leaderboard.",
}

// Executor runs a selected plan to completion, producing the response text.
type Executor struct {
	catalog  *catalog.Catalog
	renderer *respond.Engine
	docs     DocSearcher
	gen      Collaborator
}

// NewExecutor wires the executor. docs and gen may be nil; the affected plan
// kinds then degrade to their canned fallbacks.
func NewExecutor(cat *catalog.Catalog, renderer *respond.Engine, docs DocSearcher, gen Collaborator) *Executor {
	return &Executor{catalog: cat, renderer: renderer, docs: docs, gen: gen}
}

// Execute dispatches on the plan kind. Every case is handled; an invalid
// union is the only error path.
func (e *Executor) Execute(ctx context.Context, p Plan, pq *query.ProcessedQuery, turn Turn) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("refusing to execute malformed plan: %w", err)
	}

	timer := logging.StartTimer(logging.CategoryExecutor, fmt.Sprintf("execute %s", p.Kind))
	defer timer.Stop()

	switch p.Kind {
	case KindDirect:
		return e.executeScenario(p.Direct.ScenarioID, p.Direct.RelatedIDs, pq, "", turn.Phase), nil
	case KindFollowup:
		return e.executeScenario(p.Followup.ScenarioID, nil, pq, followupOpening, turn.Phase), nil
	case KindHybrid:
		return e.executeHybrid(ctx, p.Hybrid, pq, turn), nil
	case KindReasoning:
		return e.executeReasoning(ctx, p.Reasoning, pq, turn.Summary), nil
	case KindBasic:
		return e.executeBasic(pq), nil
	default:
		return Result{}, fmt.Errorf("unknown plan kind %q", p.Kind)
	}
}

// executeScenario renders a catalog scenario with variable substitution and
// appends related-topic suggestions plus phase guidance. A scenario id that
// vanished from the catalog (hot reload) degrades to the basic plan.
func (e *Executor) executeScenario(scenarioID string, relatedIDs []string, pq *query.ProcessedQuery, greetingOverride, phase string) Result {
	s, ok := e.catalog.ByID(scenarioID)
	if !ok {
		logging.Get(logging.CategoryExecutor).Warn("scenario %s not in catalog, degrading to basic", scenarioID)
		return e.executeBasic(pq)
	}

	text := e.renderer.RenderScenario(s, pq.Intent.Type, pq.Entities, greetingOverride)

	if related := e.relatedTopics(relatedIDs, s); related != "" {
		text += related
	}
	if tip, ok := phaseGuidance[phase]; ok {
		text += "\n\n" + tip
	}

	return Result{Text: text, ScenarioID: s.ScenarioID}
}

// executeHybrid assembles a composite context block and asks the
// collaborator for blended prose. Collaborator failure degrades to the
// scenario-only rendering.
func (e *Executor) executeHybrid(ctx context.Context, h *HybridScenario, pq *query.ProcessedQuery, turn Turn) Result {
	s, ok := e.catalog.ByID(h.PrimaryID)
	if !ok {
		logging.Get(logging.CategoryExecutor).Warn("scenario %s not in catalog, degrading to basic", h.PrimaryID)
		return e.executeBasic(pq)
	}

	if e.gen == nil || !h.BlendWithGenerative {
		return e.executeScenario(h.PrimaryID, h.RelatedIDs, pq, "", turn.Phase)
	}

	docs := []string{e.scenarioContext(s)}
	if e.docs != nil {
		docs = append(docs, e.docs.Search(pq.CleanedQuery, 3)...)
	}

	text, err := e.gen.Synthesize(ctx, SynthesisRequest{
		System: "You are a support assistant for a hackathon-judging platform. " +
			"Answer using the provided context. Be concrete and concise.",
		ContextDocs:         docs,
		Question:            pq.CleanedQuery,
		ConversationSummary: turn.Summary,
	})
	if err != nil {
		logging.Get(logging.CategoryExecutor).Warn("hybrid synthesis failed, using scenario only: %v", err)
		return e.executeScenario(h.PrimaryID, h.RelatedIDs, pq, "", turn.Phase)
	}

	if related := e.relatedTopics(h.RelatedIDs, s); related != "" {
		text += related
	}

	return Result{Text: text, ScenarioID: s.ScenarioID, Generative: true}
}

// executeReasoning retrieves material per declared knowledge source, runs the
// structured reasoning request, then asks for a final humanized response.
// Any collaborator failure degrades to the basic plan.
func (e *Executor) executeReasoning(ctx context.Context, rp *ReasoningPlan, pq *query.ProcessedQuery, convoSummary string) Result {
	if e.gen == nil {
		return e.executeBasic(pq)
	}

	material := e.gatherMaterial(rp.KnowledgeSources, pq)
	logging.Executor("reasoning over %d retrieved documents", len(material))

	result, err := e.gen.Reason(ctx, ReasoningRequest{
		Question: pq.CleanedQuery,
		Plan:     *rp,
		Material: material,
	})
	if err != nil {
		logging.Get(logging.CategoryExecutor).Warn("reasoning failed, degrading to basic: %v", err)
		return e.executeBasic(pq)
	}

	findings := append([]string{}, result.Findings...)
	if result.Connections != "" {
		findings = append(findings, result.Connections)
	}
	if result.Conclusion != "" {
		findings = append(findings, result.Conclusion)
	}

	text, err := e.gen.Synthesize(ctx, SynthesisRequest{
		System: "You are a support assistant for a hackathon-judging platform. " +
			"Turn the following findings into a clear, friendly answer.",
		ContextDocs:         findings,
		Question:            pq.CleanedQuery,
		ConversationSummary: convoSummary,
	})
	if err != nil {
		logging.Get(logging.CategoryExecutor).Warn("humanization failed, degrading to basic: %v", err)
		return e.executeBasic(pq)
	}

	return Result{Text: text, Generative: true}
}

// executeBasic is keyword retrieval only. Nothing retrieved means a static
// no-information message.
func (e *Executor) executeBasic(pq *query.ProcessedQuery) Result {
	if e.docs != nil {
		if snippets := e.docs.Search(pq.CleanedQuery, 3); len(snippets) > 0 {
			return Result{Text: "Here's what I found:\n\n" + strings.Join(snippets, "\n\n")}
		}
	}
	return Result{Text: NoInformationMessage}
}

// gatherMaterial maps declared knowledge sources to retrieval calls:
// "scenarios" takes the top query matches, "documentation" runs a keyword
// search. Unknown sources are skipped.
func (e *Executor) gatherMaterial(sources []string, pq *query.ProcessedQuery) []string {
	if len(sources) == 0 {
		sources = []string{"scenarios", "documentation"}
	}

	var material []string
	for _, src := range sources {
		switch strings.ToLower(src) {
		case "scenarios", "scenario_catalog":
			for i, sc := range pq.RelevantScenarios {
				if i >= 3 {
					break
				}
				material = append(material, e.scenarioContext(sc.Scenario))
			}
		case "documentation", "docs", "general":
			if e.docs != nil {
				material = append(material, e.docs.Search(pq.CleanedQuery, 3)...)
			}
		default:
			logging.Get(logging.CategoryExecutor).Debug("skipping unknown knowledge source %q", src)
		}
	}
	return material
}

// scenarioContext flattens a scenario into one context document for the
// collaborator.
func (e *Executor) scenarioContext(s catalog.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", s.Title)
	if s.AnswerTemplate != "" {
		fmt.Fprintf(&b, "%s\n", s.AnswerTemplate)
	}
	if steps := respond.NumberSteps(s.AnswerComponents.Steps); steps != "" {
		fmt.Fprintf(&b, "Steps:\n%s\n", steps)
	}
	if s.AnswerComponents.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", s.AnswerComponents.Notes)
	}
	if s.AnswerComponents.CommonIssues != "" {
		fmt.Fprintf(&b, "Common issues: %s\n", s.AnswerComponents.CommonIssues)
	}
	return b.String()
}

// relatedTopics renders the appended suggestion list. Explicit carried ids
// win; the scenario's own related references fill in otherwise.
func (e *Executor) relatedTopics(carried []string, s catalog.Scenario) string {
	var titles []string
	if len(carried) > 0 {
		for _, id := range carried {
			if r, ok := e.catalog.ByID(id); ok {
				titles = append(titles, r.Title)
			}
		}
	} else {
		related := e.catalog.Related(s.ScenarioID)
		if len(related) > 2 {
			related = related[:2]
		}
		for _, r := range related {
			titles = append(titles, r.Title)
		}
	}
	if len(titles) == 0 {
		return ""
	}

	return "\n\nRelated topics you might find helpful:\n• " + strings.Join(titles, "\n• ")
}
