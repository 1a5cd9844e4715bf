package plan

import (
	"context"

	"askbot/internal/logging"
	"askbot/internal/query"
)

// SelectorConfig holds the confidence thresholds. The defaults are the
// hand-tuned values; they are configuration, not truths.
type SelectorConfig struct {
	DirectConfidence float64 // above this a scenario answers directly
	HybridConfidence float64 // above this a scenario anchors a blended answer
	MaxRelated       int     // related scenario ids carried alongside
}

// DefaultSelectorConfig returns the standard thresholds.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		DirectConfidence: 0.75,
		HybridConfidence: 0.5,
		MaxRelated:       2,
	}
}

// ReasoningPlanner asks the generative collaborator for a structured plan.
// A nil planner means reasoning is unavailable and the selector falls
// straight to the basic plan.
type ReasoningPlanner interface {
	BuildPlan(ctx context.Context, question string, intent string) (*ReasoningPlan, error)
}

// Selector is the deterministic plan-selection policy. Greetings never reach
// it; the orchestrator answers those before planning.
type Selector struct {
	planner ReasoningPlanner
	cfg     SelectorConfig
}

// NewSelector creates a selector. Zero config fields fall back to defaults.
func NewSelector(planner ReasoningPlanner, cfg SelectorConfig) *Selector {
	def := DefaultSelectorConfig()
	if cfg.DirectConfidence <= 0 {
		cfg.DirectConfidence = def.DirectConfidence
	}
	if cfg.HybridConfidence <= 0 {
		cfg.HybridConfidence = def.HybridConfidence
	}
	if cfg.MaxRelated <= 0 {
		cfg.MaxRelated = def.MaxRelated
	}
	return &Selector{planner: planner, cfg: cfg}
}

// Select applies the ordered rules: follow-up with an anchored previous
// scenario, then direct above the direct threshold, then hybrid above the
// hybrid threshold, then a collaborator-built reasoning plan, then basic.
// First matching rule wins.
func (s *Selector) Select(ctx context.Context, pq *query.ProcessedQuery) Plan {
	if pq.IsFollowup && pq.PreviousScenario != nil {
		logging.Planner("followup plan: %s", pq.PreviousScenario.ScenarioID)
		return NewFollowup(pq.PreviousScenario.ScenarioID, pq.CleanedQuery)
	}

	if len(pq.RelevantScenarios) > 0 {
		top := pq.RelevantScenarios[0]
		related := s.relatedIDs(pq)

		if top.Score > s.cfg.DirectConfidence {
			logging.Planner("direct plan: %s (confidence=%.3f)", top.Scenario.ScenarioID, top.Score)
			return NewDirect(top.Scenario.ScenarioID, top.Score, related)
		}
		if top.Score > s.cfg.HybridConfidence {
			logging.Planner("hybrid plan: %s (confidence=%.3f)", top.Scenario.ScenarioID, top.Score)
			return NewHybrid(top.Scenario.ScenarioID, top.Score, related)
		}
	}

	if s.planner != nil {
		rp, err := s.planner.BuildPlan(ctx, pq.CleanedQuery, pq.Intent.Type)
		if err == nil && rp != nil {
			logging.Planner("reasoning plan with %d steps", len(rp.ReasoningSteps))
			return NewReasoning(rp)
		}
		if err != nil {
			logging.Get(logging.CategoryPlanner).Warn("reasoning plan failed, falling back to basic: %v", err)
		}
	}

	logging.Planner("basic plan")
	return NewBasic()
}

// relatedIDs returns the 2nd and 3rd ranked scenario ids as suggestions.
func (s *Selector) relatedIDs(pq *query.ProcessedQuery) []string {
	var ids []string
	for _, sc := range pq.RelevantScenarios[1:] {
		ids = append(ids, sc.Scenario.ScenarioID)
		if len(ids) >= s.cfg.MaxRelated {
			break
		}
	}
	return ids
}
