package normative

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/keywords"
	"lerian-normative-engine/pkg/types"
)

const maxScore = 10.0

// FrameworkAnalysis scores how hard a framework is to implement and how
// likely it is to clash with others. Scores lie in [0, 10].
type FrameworkAnalysis struct {
	ComplexityScore    float64  `json:"complexity_score"`
	ConflictPotential  float64  `json:"conflict_potential"`
	ImplementationRisk float64  `json:"implementation_risk"`
	Recommendations    []string `json:"recommendations"`
}

// FrameworkComparison contrasts the requirements of two frameworks.
type FrameworkComparison struct {
	SimilarityScore    float64  `json:"similarity_score"`
	CommonRequirements []string `json:"common_requirements"`
	UniqueToFirst      []string `json:"unique_to_first"`
	UniqueToSecond     []string `json:"unique_to_second"`
}

// FrameworkAnalyzer caches analyses by framework id. Not safe for
// concurrent use.
type FrameworkAnalyzer struct {
	cache map[uuid.UUID]FrameworkAnalysis
	now   func() time.Time
}

// NewFrameworkAnalyzer creates an analyzer using now as its clock.
func NewFrameworkAnalyzer(now func() time.Time) *FrameworkAnalyzer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &FrameworkAnalyzer{
		cache: make(map[uuid.UUID]FrameworkAnalysis),
		now:   now,
	}
}

// Analyze scores f, returning the cached result when one exists.
func (a *FrameworkAnalyzer) Analyze(f *types.NormativeFramework) FrameworkAnalysis {
	if cached, ok := a.cache[f.ID]; ok {
		return cached
	}

	result := FrameworkAnalysis{
		ComplexityScore:    complexity(f),
		ConflictPotential:  conflictPotential(f),
		ImplementationRisk: a.implementationRisk(f),
		Recommendations:    frameworkRecommendations(f),
	}
	a.cache[f.ID] = result
	return result
}

// Invalidate drops the cached analysis of id, e.g. after an update.
func (a *FrameworkAnalyzer) Invalidate(id uuid.UUID) {
	delete(a.cache, id)
}

func complexity(f *types.NormativeFramework) float64 {
	count := float64(len(f.Requirements))
	denom := math.Max(count, 1)

	evidence := 0
	for _, r := range f.Requirements {
		evidence += len(r.EvidenceRequired)
	}
	mandatoryRatio := float64(f.MandatoryCount()) / denom
	avgEvidence := float64(evidence) / denom

	return math.Min(count*0.3+mandatoryRatio*0.4+avgEvidence*0.3, maxScore)
}

func conflictPotential(f *types.NormativeFramework) float64 {
	score := 0.0
	for _, r := range f.Requirements {
		switch {
		case r.Mandatory && r.Priority == 1:
			score += 2
		case r.Mandatory:
			score++
		}
		score += float64(len(r.ValidationRules)) * 0.5
	}
	return math.Min(score/math.Max(float64(len(f.Requirements)), 1), maxScore)
}

func (a *FrameworkAnalyzer) implementationRisk(f *types.NormativeFramework) float64 {
	risk := 0.0

	// frameworks older than five years tend to lag current practice
	ageYears := a.now().Sub(f.EffectiveDate).Hours() / 24 / 365.25
	if ageYears > 5 {
		risk++
	}
	for _, r := range f.Requirements {
		if len(r.EvidenceRequired) > 3 {
			risk += 0.5
		}
		if len(r.ValidationRules) > 2 {
			risk += 0.3
		}
	}
	return math.Min(risk/math.Max(float64(len(f.Requirements)), 1), maxScore)
}

func frameworkRecommendations(f *types.NormativeFramework) []string {
	var recs []string

	if n := len(f.Requirements); n > 0 && float64(f.MandatoryCount())/float64(n) > 0.8 {
		recs = append(recs, "Consider phased implementation due to high mandatory requirement ratio")
	}

	var heavyEvidence, heavyRules bool
	for _, r := range f.Requirements {
		heavyEvidence = heavyEvidence || len(r.EvidenceRequired) > 5
		heavyRules = heavyRules || len(r.ValidationRules) > 3
	}
	if heavyEvidence {
		recs = append(recs, "Implement automated evidence collection for complex requirements")
	}
	if heavyRules {
		recs = append(recs, "Develop specialized validation tooling for complex rules")
	}

	return append(recs, "Regular compliance monitoring and automated reporting recommended")
}

// CompareFrameworks measures category overlap and pairs up requirements in
// shared categories whose titles are alike.
func CompareFrameworks(first, second *types.NormativeFramework) FrameworkComparison {
	cmp := FrameworkComparison{
		SimilarityScore:    keywords.Jaccard(first.Categories(), second.Categories()),
		CommonRequirements: []string{},
		UniqueToFirst:      uniqueRequirements(first, second),
		UniqueToSecond:     uniqueRequirements(second, first),
	}

	for _, r1 := range first.Requirements {
		for _, r2 := range second.Requirements {
			if r1.Category == r2.Category && titlesSimilar(r1.Title, r2.Title) {
				cmp.CommonRequirements = append(cmp.CommonRequirements, r1.Title+" (similar to "+r2.Title+")")
			}
		}
	}
	return cmp
}

func uniqueRequirements(f, other *types.NormativeFramework) []string {
	otherCategories := other.Categories()
	out := []string{}
	for _, r := range f.Requirements {
		if _, ok := otherCategories[r.Category]; !ok {
			out = append(out, r.Title)
		}
	}
	return out
}

func titlesSimilar(a, b string) bool {
	wa := keywords.StringSet(strings.Fields(strings.ToLower(a)))
	wb := keywords.StringSet(strings.Fields(strings.ToLower(b)))
	return keywords.Jaccard(wa, wb) > 0.3
}
