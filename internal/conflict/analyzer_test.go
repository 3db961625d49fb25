package conflict

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lerian-normative-engine/pkg/types"
)

func newPairConflict(ct types.ConflictType, sev types.ConflictSeverity) *types.NormativeConflict {
	return types.NewConflict(ct, sev, uuid.New(), uuid.New(), "test conflict")
}

func TestAnalyzer_Assess(t *testing.T) {
	tests := []struct {
		name       string
		ct         types.ConflictType
		score      float64
		bucket     string
		complexity ResolutionComplexity
	}{
		{"direct contradiction", types.ConflictTypeDirectContradiction, 9.0, "critical", ComplexityRequiresIntervention},
		{"authority", types.ConflictTypeAuthorityConflict, 8.0, "high", ComplexityComplex},
		{"requirement", types.ConflictTypeRequirementConflict, 7.5, "high", ComplexityComplex},
		{"jurisdictional", types.ConflictTypeJurisdictionalOverlap, 7.0, "high", ComplexityComplex},
		{"implementation", types.ConflictTypeImplementationConflict, 6.5, "high", ComplexityComplex},
		{"implicit", types.ConflictTypeImplicitConflict, 6.0, "medium", ComplexityModerate},
		{"temporal", types.ConflictTypeTemporalInconsistency, 5.0, "medium", ComplexityModerate},
		{"scope", types.ConflictTypeScopeAmbiguity, 4.0, "low", ComplexitySimple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer()
			c := newPairConflict(tt.ct, types.SeverityMedium)

			got := a.Assess(c)

			assert.Equal(t, c.ID, got.ConflictID)
			assert.InDelta(t, tt.score, got.SeverityScore, 1e-9)
			assert.Equal(t, "Conflict between 2 frameworks with "+tt.bucket+" severity", got.ImpactAssessment)
			assert.Equal(t, tt.complexity, got.ResolutionComplexity)
			assert.NotEmpty(t, got.Recommendations)
		})
	}
}

func TestAnalyzer_Recommendations(t *testing.T) {
	a := NewAnalyzer()

	direct := a.Assess(newPairConflict(types.ConflictTypeDirectContradiction, types.SeverityHigh))
	assert.Equal(t, []string{"Immediate review and resolution required", "Consider stakeholder consultation"}, direct.Recommendations)

	overlap := a.Assess(newPairConflict(types.ConflictTypeJurisdictionalOverlap, types.SeverityHigh))
	assert.Equal(t, []string{"Clarify jurisdictional boundaries", "Establish precedence rules"}, overlap.Recommendations)

	other := a.Assess(newPairConflict(types.ConflictTypeScopeAmbiguity, types.SeverityLow))
	assert.Equal(t, []string{"Regular monitoring recommended"}, other.Recommendations)
}

func TestAnalyzer_ComplexityGrowsWithInvolvedFrameworks(t *testing.T) {
	a := NewAnalyzer()

	c := newPairConflict(types.ConflictTypeScopeAmbiguity, types.SeverityLow)
	c.InvolvedFrameworks = append(c.InvolvedFrameworks, uuid.New())
	assert.Equal(t, ComplexityComplex, a.Assess(c).ResolutionComplexity)

	c.InvolvedFrameworks = append(c.InvolvedFrameworks, uuid.New())
	got := a.Assess(c)
	assert.Equal(t, ComplexityRequiresIntervention, got.ResolutionComplexity)
	assert.Equal(t, "Conflict between 4 frameworks with low severity", got.ImpactAssessment)
}

func TestAnalyzer_Cache(t *testing.T) {
	a := NewAnalyzer()
	c := newPairConflict(types.ConflictTypeTemporalInconsistency, types.SeverityLow)

	_, ok := a.Cached(c.ID)
	assert.False(t, ok)

	first := a.Assess(c)
	cached, ok := a.Cached(c.ID)
	require.True(t, ok)
	assert.Equal(t, first, cached)

	c.Type = types.ConflictTypeDirectContradiction
	a.Assess(c)
	cached, _ = a.Cached(c.ID)
	assert.InDelta(t, 9.0, cached.SeverityScore, 1e-9)

	a.Forget(c.ID)
	_, ok = a.Cached(c.ID)
	assert.False(t, ok)
}
