package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConflictType classifies the tension between two frameworks.
type ConflictType string

const (
	ConflictTypeDirectContradiction    ConflictType = "direct_contradiction"
	ConflictTypeImplicitConflict       ConflictType = "implicit_conflict"
	ConflictTypeJurisdictionalOverlap  ConflictType = "jurisdictional_overlap"
	ConflictTypeTemporalInconsistency  ConflictType = "temporal_inconsistency"
	ConflictTypeScopeAmbiguity         ConflictType = "scope_ambiguity"
	ConflictTypeAuthorityConflict      ConflictType = "authority_conflict"
	ConflictTypeRequirementConflict    ConflictType = "requirement_conflict"
	ConflictTypeImplementationConflict ConflictType = "implementation_conflict"
)

// Valid returns true if the conflict type is known
func (ct ConflictType) Valid() bool {
	switch ct {
	case ConflictTypeDirectContradiction, ConflictTypeImplicitConflict,
		ConflictTypeJurisdictionalOverlap, ConflictTypeTemporalInconsistency,
		ConflictTypeScopeAmbiguity, ConflictTypeAuthorityConflict,
		ConflictTypeRequirementConflict, ConflictTypeImplementationConflict:
		return true
	}
	return false
}

// ConflictSeverity grades how urgently a conflict needs attention.
type ConflictSeverity string

const (
	SeverityCritical      ConflictSeverity = "critical"
	SeverityHigh          ConflictSeverity = "high"
	SeverityMedium        ConflictSeverity = "medium"
	SeverityLow           ConflictSeverity = "low"
	SeverityInformational ConflictSeverity = "informational"
)

// Valid returns true if the severity is known
func (s ConflictSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInformational:
		return true
	}
	return false
}

// ResolutionStrategy names a way of settling a conflict.
type ResolutionStrategy string

const (
	StrategyHigherJurisdictionPrecedence ResolutionStrategy = "higher_jurisdiction_precedence"
	StrategyMoreRecentVersion            ResolutionStrategy = "more_recent_version"
	StrategyStricterRequirement          ResolutionStrategy = "stricter_requirement"
	StrategyConsensusBuilding            ResolutionStrategy = "consensus_building"
	StrategyExpertMediation              ResolutionStrategy = "expert_mediation"
	StrategyRiskBasedDecision            ResolutionStrategy = "risk_based_decision"
	StrategyTemporalSequencing           ResolutionStrategy = "temporal_sequencing"
	StrategyScopeDelineation             ResolutionStrategy = "scope_delineation"
)

// Valid returns true if the strategy is known
func (rs ResolutionStrategy) Valid() bool {
	switch rs {
	case StrategyHigherJurisdictionPrecedence, StrategyMoreRecentVersion,
		StrategyStricterRequirement, StrategyConsensusBuilding,
		StrategyExpertMediation, StrategyRiskBasedDecision,
		StrategyTemporalSequencing, StrategyScopeDelineation:
		return true
	}
	return false
}

// NormativeConflict is a detected tension between two frameworks.
// The resolution fields stay nil until an operator records an outcome.
type NormativeConflict struct {
	ID                   uuid.UUID           `json:"id"`
	Type                 ConflictType        `json:"conflict_type"`
	Severity             ConflictSeverity    `json:"severity"`
	NormativeA           uuid.UUID           `json:"normative_a"`
	NormativeB           uuid.UUID           `json:"normative_b"`
	InvolvedFrameworks   []uuid.UUID         `json:"involved_frameworks"`
	Description          string              `json:"description"`
	AffectedRequirements []uuid.UUID         `json:"affected_requirements,omitempty"`
	Context              map[string]string   `json:"context,omitempty"`
	DiscoveredAt         time.Time           `json:"discovered_at"`
	ResolutionStrategy   *ResolutionStrategy `json:"resolution_strategy,omitempty"`
	ResolutionNotes      *string             `json:"resolution_notes,omitempty"`
	ResolvedAt           *time.Time          `json:"resolved_at,omitempty"`
	ResolvedBy           *string             `json:"resolved_by,omitempty"`
}

// NewConflict creates a conflict between a and b discovered now.
func NewConflict(ct ConflictType, severity ConflictSeverity, a, b uuid.UUID, description string) *NormativeConflict {
	return &NormativeConflict{
		ID:                 uuid.New(),
		Type:               ct,
		Severity:           severity,
		NormativeA:         a,
		NormativeB:         b,
		InvolvedFrameworks: []uuid.UUID{a, b},
		Description:        description,
		Context:            map[string]string{},
		DiscoveredAt:       time.Now().UTC(),
	}
}

// Validate checks enum values and that the endpoints differ.
func (c *NormativeConflict) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidConflictType, c.Type)
	}
	if !c.Severity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, c.Severity)
	}
	if c.NormativeA == c.NormativeB {
		return ErrSelfConflict
	}
	return nil
}

// IsResolved reports whether a resolution has been recorded.
func (c *NormativeConflict) IsResolved() bool {
	return c.ResolvedAt != nil
}

// Resolve records the outcome of a resolution.
func (c *NormativeConflict) Resolve(strategy ResolutionStrategy, notes, by string, at time.Time) {
	c.ResolutionStrategy = &strategy
	c.ResolutionNotes = &notes
	c.ResolvedBy = &by
	c.ResolvedAt = &at
}

// Clone returns a deep copy.
func (c *NormativeConflict) Clone() *NormativeConflict {
	out := *c
	out.InvolvedFrameworks = cloneSlice(c.InvolvedFrameworks)
	out.AffectedRequirements = cloneSlice(c.AffectedRequirements)
	if c.Context != nil {
		out.Context = make(map[string]string, len(c.Context))
		for k, v := range c.Context {
			out.Context[k] = v
		}
	}
	if c.ResolutionStrategy != nil {
		s := *c.ResolutionStrategy
		out.ResolutionStrategy = &s
	}
	if c.ResolutionNotes != nil {
		n := *c.ResolutionNotes
		out.ResolutionNotes = &n
	}
	if c.ResolvedBy != nil {
		b := *c.ResolvedBy
		out.ResolvedBy = &b
	}
	out.ResolvedAt = cloneTime(c.ResolvedAt)
	return &out
}
