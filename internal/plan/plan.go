// Package plan maps a processed query to a response strategy and executes
// it. A Plan is a tagged union with exactly one active case; the executor
// handles every case exhaustively with no silent default beyond the explicit
// basic fallback.
package plan

import "fmt"

// Kind identifies the active plan case.
type Kind string

const (
	KindDirect    Kind = "direct_scenario"
	KindFollowup  Kind = "followup_scenario"
	KindHybrid    Kind = "hybrid_scenario"
	KindReasoning Kind = "reasoning_plan"
	KindBasic     Kind = "basic_plan"
)

// Plan is the tagged union. Exactly one payload pointer is non-nil,
// matching Kind.
type Plan struct {
	Kind      Kind
	Direct    *DirectScenario
	Followup  *FollowupScenario
	Hybrid    *HybridScenario
	Reasoning *ReasoningPlan
	Basic     *BasicPlan
}

// DirectScenario answers from a single confidently matched scenario.
type DirectScenario struct {
	ScenarioID string
	Confidence float64
	RelatedIDs []string
}

// FollowupScenario re-answers the previously discussed scenario in light of
// the new question.
type FollowupScenario struct {
	ScenarioID string
	Question   string
}

// HybridScenario blends a moderately confident scenario with generative
// synthesis.
type HybridScenario struct {
	PrimaryID           string
	Confidence          float64
	RelatedIDs          []string
	BlendWithGenerative bool
}

// ReasoningPlan is the structured plan produced by the generative
// collaborator when no scenario matched confidently.
type ReasoningPlan struct {
	InformationNeeded    []string `json:"information_needed"`
	KnowledgeSources     []string `json:"knowledge_sources"`
	ReasoningSteps       []string `json:"reasoning_steps"`
	ResponseStructure    string   `json:"response_structure"`
	ClarificationsNeeded []string `json:"clarifications_needed"`
}

// BasicPlan is the last-resort fallback: keyword retrieval only.
type BasicPlan struct{}

// NewDirect builds a direct-scenario plan.
func NewDirect(scenarioID string, confidence float64, relatedIDs []string) Plan {
	return Plan{Kind: KindDirect, Direct: &DirectScenario{
		ScenarioID: scenarioID, Confidence: confidence, RelatedIDs: relatedIDs,
	}}
}

// NewFollowup builds a follow-up plan.
func NewFollowup(scenarioID, question string) Plan {
	return Plan{Kind: KindFollowup, Followup: &FollowupScenario{
		ScenarioID: scenarioID, Question: question,
	}}
}

// NewHybrid builds a hybrid plan.
func NewHybrid(primaryID string, confidence float64, relatedIDs []string) Plan {
	return Plan{Kind: KindHybrid, Hybrid: &HybridScenario{
		PrimaryID: primaryID, Confidence: confidence, RelatedIDs: relatedIDs,
		BlendWithGenerative: true,
	}}
}

// NewReasoning builds a reasoning plan.
func NewReasoning(rp *ReasoningPlan) Plan {
	return Plan{Kind: KindReasoning, Reasoning: rp}
}

// NewBasic builds the fallback plan.
func NewBasic() Plan {
	return Plan{Kind: KindBasic, Basic: &BasicPlan{}}
}

// Validate checks that exactly the payload matching Kind is set.
func (p Plan) Validate() error {
	set := 0
	for _, present := range []bool{
		p.Direct != nil, p.Followup != nil, p.Hybrid != nil,
		p.Reasoning != nil, p.Basic != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("plan has %d payloads set, want exactly 1", set)
	}

	ok := false
	switch p.Kind {
	case KindDirect:
		ok = p.Direct != nil
	case KindFollowup:
		ok = p.Followup != nil
	case KindHybrid:
		ok = p.Hybrid != nil
	case KindReasoning:
		ok = p.Reasoning != nil
	case KindBasic:
		ok = p.Basic != nil
	}
	if !ok {
		return fmt.Errorf("plan kind %q does not match its payload", p.Kind)
	}
	return nil
}
