package conflict

import (
	"fmt"

	"lerian-normative-engine/pkg/types"
)

// ResolutionStatus is the verdict a strategy reaches for a conflict.
type ResolutionStatus string

const (
	StatusResolved             ResolutionStatus = "resolved"
	StatusRequiresManualReview ResolutionStatus = "requires_manual_review"
	StatusRequiresExpertReview ResolutionStatus = "requires_expert_review"
	StatusEscalated            ResolutionStatus = "escalated"
)

// Outcome is a resolution recommendation. It never changes the frameworks
// involved.
type Outcome struct {
	Strategy          types.ResolutionStrategy `json:"strategy"`
	Status            ResolutionStatus         `json:"status"`
	Reasoning         string                   `json:"reasoning"`
	RecommendedAction string                   `json:"recommended_action"`
}

type strategyHandler func(c *types.NormativeConflict) Outcome

// StrategyManager maps conflict types to ordered candidate strategies and
// evaluates a chosen strategy against a conflict.
type StrategyManager struct {
	candidates map[types.ConflictType][]types.ResolutionStrategy
	handlers   map[types.ResolutionStrategy]strategyHandler
}

// NewStrategyManager returns a manager with the default candidate table.
func NewStrategyManager() *StrategyManager {
	m := &StrategyManager{
		candidates: map[types.ConflictType][]types.ResolutionStrategy{
			types.ConflictTypeDirectContradiction: {
				types.StrategyHigherJurisdictionPrecedence,
				types.StrategyExpertMediation,
				types.StrategyStricterRequirement,
			},
			types.ConflictTypeJurisdictionalOverlap: {
				types.StrategyHigherJurisdictionPrecedence,
				types.StrategyScopeDelineation,
				types.StrategyConsensusBuilding,
			},
			types.ConflictTypeTemporalInconsistency: {
				types.StrategyMoreRecentVersion,
				types.StrategyTemporalSequencing,
			},
		},
	}
	m.handlers = map[types.ResolutionStrategy]strategyHandler{
		types.StrategyHigherJurisdictionPrecedence: fixed(StatusResolved,
			"Higher jurisdiction framework takes precedence",
			"Apply higher jurisdiction requirements"),
		types.StrategyMoreRecentVersion: fixed(StatusResolved,
			"More recent version takes precedence",
			"Apply most recent framework version"),
		types.StrategyStricterRequirement: fixed(StatusResolved,
			"Stricter requirement provides better protection",
			"Apply more stringent requirements"),
		types.StrategyExpertMediation: fixed(StatusRequiresExpertReview,
			"Complex conflict requires expert mediation",
			"Escalate to domain experts for resolution"),
	}
	return m
}

func fixed(status ResolutionStatus, reasoning, action string) strategyHandler {
	return func(*types.NormativeConflict) Outcome {
		return Outcome{Status: status, Reasoning: reasoning, RecommendedAction: action}
	}
}

// Strategies returns the candidates for a conflict type in preference order.
// Types without candidates yield an empty slice.
func (m *StrategyManager) Strategies(ct types.ConflictType) []types.ResolutionStrategy {
	list := m.candidates[ct]
	out := make([]types.ResolutionStrategy, len(list))
	copy(out, list)
	return out
}

// SetStrategies replaces the candidate list of a conflict type.
func (m *StrategyManager) SetStrategies(ct types.ConflictType, strategies []types.ResolutionStrategy) {
	list := make([]types.ResolutionStrategy, len(strategies))
	copy(list, strategies)
	m.candidates[ct] = list
}

// ApplyStrategy evaluates strategy against c. Strategies without a handler
// fall back to manual review.
func (m *StrategyManager) ApplyStrategy(c *types.NormativeConflict, strategy types.ResolutionStrategy) Outcome {
	handler, ok := m.handlers[strategy]
	if !ok {
		return Outcome{
			Strategy:          strategy,
			Status:            StatusRequiresManualReview,
			Reasoning:         "Strategy not fully implemented",
			RecommendedAction: "Manual review required",
		}
	}
	out := handler(c)
	out.Strategy = strategy
	return out
}

// Recommend applies the first candidate strategy for c's type. Conflicts with
// no candidates are escalated.
func (m *StrategyManager) Recommend(c *types.NormativeConflict) Outcome {
	list := m.candidates[c.Type]
	if len(list) == 0 {
		return Outcome{
			Status:            StatusEscalated,
			Reasoning:         fmt.Sprintf("No resolution strategy registered for %s", c.Type),
			RecommendedAction: "Escalate to compliance owners",
		}
	}
	return m.ApplyStrategy(c, list[0])
}
