// Package conflict scores, aggregates and proposes resolutions for conflicts
// between normative frameworks.
package conflict

import (
	"fmt"

	"github.com/google/uuid"

	"lerian-normative-engine/pkg/types"
)

// ResolutionComplexity estimates the effort needed to settle a conflict.
type ResolutionComplexity string

const (
	ComplexitySimple               ResolutionComplexity = "simple"
	ComplexityModerate             ResolutionComplexity = "moderate"
	ComplexityComplex              ResolutionComplexity = "complex"
	ComplexityRequiresIntervention ResolutionComplexity = "requires_intervention"
)

// Assessment is the scored view of a single conflict.
type Assessment struct {
	ConflictID           uuid.UUID            `json:"conflict_id"`
	SeverityScore        float64              `json:"severity_score"`
	ImpactAssessment     string               `json:"impact_assessment"`
	ResolutionComplexity ResolutionComplexity `json:"resolution_complexity"`
	Recommendations      []string             `json:"recommendations"`
}

var severityScores = map[types.ConflictType]float64{
	types.ConflictTypeDirectContradiction:    9.0,
	types.ConflictTypeAuthorityConflict:      8.0,
	types.ConflictTypeRequirementConflict:    7.5,
	types.ConflictTypeJurisdictionalOverlap:  7.0,
	types.ConflictTypeImplementationConflict: 6.5,
	types.ConflictTypeImplicitConflict:       6.0,
	types.ConflictTypeTemporalInconsistency:  5.0,
	types.ConflictTypeScopeAmbiguity:         4.0,
}

// SeverityScore returns the fixed score of a conflict type on a 0-10 scale.
func SeverityScore(ct types.ConflictType) float64 {
	return severityScores[ct]
}

// Analyzer scores conflicts and keeps the latest assessment per conflict id.
// Not safe for concurrent use.
type Analyzer struct {
	cache map[uuid.UUID]Assessment
}

// NewAnalyzer creates an analyzer with an empty cache.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cache: make(map[uuid.UUID]Assessment)}
}

// Assess scores c and caches the result, replacing any earlier assessment.
func (a *Analyzer) Assess(c *types.NormativeConflict) Assessment {
	score := SeverityScore(c.Type)
	involved := len(c.InvolvedFrameworks)

	result := Assessment{
		ConflictID:           c.ID,
		SeverityScore:        score,
		ImpactAssessment:     fmt.Sprintf("Conflict between %d frameworks with %s severity", involved, severityBucket(score)),
		ResolutionComplexity: complexityFor(score, involved),
		Recommendations:      recommendationsFor(c.Type),
	}
	a.cache[c.ID] = result
	return result
}

// Cached returns the last assessment of a conflict.
func (a *Analyzer) Cached(id uuid.UUID) (Assessment, bool) {
	res, ok := a.cache[id]
	return res, ok
}

// Forget drops the cached assessment of a conflict.
func (a *Analyzer) Forget(id uuid.UUID) {
	delete(a.cache, id)
}

func severityBucket(score float64) string {
	switch {
	case score > 8:
		return "critical"
	case score > 6:
		return "high"
	case score > 4:
		return "medium"
	default:
		return "low"
	}
}

func complexityFor(score float64, involved int) ResolutionComplexity {
	switch {
	case score > 8 || involved > 3:
		return ComplexityRequiresIntervention
	case score > 6 || involved > 2:
		return ComplexityComplex
	case score > 4:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

func recommendationsFor(ct types.ConflictType) []string {
	switch ct {
	case types.ConflictTypeDirectContradiction:
		return []string{"Immediate review and resolution required", "Consider stakeholder consultation"}
	case types.ConflictTypeJurisdictionalOverlap:
		return []string{"Clarify jurisdictional boundaries", "Establish precedence rules"}
	default:
		return []string{"Regular monitoring recommended"}
	}
}
