package conflict

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lerian-normative-engine/internal/keywords"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/pkg/types"
)

// Detector finds conflicts in a set of frameworks.
type Detector interface {
	Detect(ctx context.Context, frameworks []*types.NormativeFramework) ([]*types.NormativeConflict, error)
}

// Defaults for ReferenceDetector.
const (
	DefaultSimilarityThreshold = 0.75
	DefaultTagOverlapThreshold = 0.6
	DefaultWorkers             = 4
)

// DetectorOption configures a ReferenceDetector.
type DetectorOption func(*ReferenceDetector)

// WithSimilarityThreshold sets the description similarity above which two
// requirements or scopes are considered the same subject.
func WithSimilarityThreshold(t float64) DetectorOption {
	return func(d *ReferenceDetector) { d.similarity = t }
}

// WithTagOverlapThreshold sets the tag overlap above which frameworks in
// different jurisdictions are ambiguous in scope.
func WithTagOverlapThreshold(t float64) DetectorOption {
	return func(d *ReferenceDetector) { d.tagOverlap = t }
}

// WithWorkers bounds the number of pairs analysed concurrently.
func WithWorkers(n int) DetectorOption {
	return func(d *ReferenceDetector) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithDetectorClock sets the clock used for discovery timestamps.
func WithDetectorClock(now func() time.Time) DetectorOption {
	return func(d *ReferenceDetector) { d.now = now }
}

// WithDetectorLogger sets the logger.
func WithDetectorLogger(l logging.Logger) DetectorOption {
	return func(d *ReferenceDetector) { d.logger = l.WithComponent("detector") }
}

// ReferenceDetector applies keyword and metadata rules to every pair of
// frameworks.
type ReferenceDetector struct {
	similarity float64
	tagOverlap float64
	workers    int
	now        func() time.Time
	logger     logging.Logger
}

// NewReferenceDetector creates a detector with default thresholds.
func NewReferenceDetector(opts ...DetectorOption) *ReferenceDetector {
	d := &ReferenceDetector{
		similarity: DefaultSimilarityThreshold,
		tagOverlap: DefaultTagOverlapThreshold,
		workers:    DefaultWorkers,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Detect returns conflicts in a stable order: pairwise findings first in
// pair order, then dependency, temporal and jurisdictional findings.
func (d *ReferenceDetector) Detect(ctx context.Context, frameworks []*types.NormativeFramework) ([]*types.NormativeConflict, error) {
	start := time.Now()

	type pair struct{ a, b *types.NormativeFramework }
	var pairs []pair
	for i := range frameworks {
		for j := i + 1; j < len(frameworks); j++ {
			pairs = append(pairs, pair{frameworks[i], frameworks[j]})
		}
	}

	found := make([]*types.NormativeConflict, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = d.analyzePair(p.a, p.b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	conflicts := make([]*types.NormativeConflict, 0, len(pairs))
	for _, c := range found {
		if c != nil {
			conflicts = append(conflicts, c)
		}
	}
	conflicts = append(conflicts, d.dependencyConflicts(frameworks)...)
	conflicts = append(conflicts, d.temporalConflicts(frameworks)...)
	conflicts = append(conflicts, d.jurisdictionalConflicts(frameworks)...)

	d.logger.DebugContext(ctx, "Conflict detection finished",
		"frameworks", len(frameworks),
		"pairs", len(pairs),
		"conflicts", len(conflicts),
		"duration", time.Since(start).String())
	return conflicts, nil
}

func (d *ReferenceDetector) newConflict(ct types.ConflictType, sev types.ConflictSeverity, a, b *types.NormativeFramework, desc string) *types.NormativeConflict {
	c := types.NewConflict(ct, sev, a.ID, b.ID, desc)
	c.DiscoveredAt = d.now()
	return c
}

// analyzePair returns the most severe of the pair's findings, or nil.
func (d *ReferenceDetector) analyzePair(a, b *types.NormativeFramework) *types.NormativeConflict {
	if !d.potentiallyConflict(a, b) {
		return nil
	}

	candidates := d.requirementConflicts(a, b)
	if c := d.authorityConflict(a, b); c != nil {
		candidates = append(candidates, c)
	}
	if c := d.scopeConflict(a, b); c != nil {
		candidates = append(candidates, c)
	}

	var worst *types.NormativeConflict
	for _, c := range candidates {
		if worst == nil || SeverityWeight(c.Severity) > SeverityWeight(worst.Severity) {
			worst = c
		}
	}
	return worst
}

func (d *ReferenceDetector) potentiallyConflict(a, b *types.NormativeFramework) bool {
	return a.Jurisdiction == b.Jurisdiction ||
		a.Jurisdiction == types.JurisdictionInternational ||
		b.Jurisdiction == types.JurisdictionInternational ||
		d.scopesOverlap(a, b)
}

func (d *ReferenceDetector) scopesOverlap(a, b *types.NormativeFramework) bool {
	for _, t := range a.Tags {
		if b.HasTag(t) {
			return true
		}
	}
	return keywords.Similarity(a.Description, b.Description) > d.similarity
}

func (d *ReferenceDetector) requirementConflicts(a, b *types.NormativeFramework) []*types.NormativeConflict {
	var out []*types.NormativeConflict
	for _, ra := range a.Requirements {
		for _, rb := range b.Requirements {
			if ra.Category != rb.Category {
				continue
			}
			similarity := keywords.Similarity(ra.Description, rb.Description)
			if similarity <= d.similarity {
				continue
			}

			var c *types.NormativeConflict
			switch {
			case ra.Mandatory != rb.Mandatory:
				c = d.newConflict(types.ConflictTypeDirectContradiction, types.SeverityHigh, a, b,
					fmt.Sprintf("Conflicting mandatory requirements: '%s' vs '%s'", ra.Title, rb.Title))
				c.Context["mandatory_a"] = strconv.FormatBool(ra.Mandatory)
				c.Context["mandatory_b"] = strconv.FormatBool(rb.Mandatory)
			case conditionsContradict(ra.Conditions, rb.Conditions):
				c = d.newConflict(types.ConflictTypeImplicitConflict, types.SeverityMedium, a, b,
					fmt.Sprintf("Contradictory conditions in requirements: '%s' vs '%s'", ra.Title, rb.Title))
			default:
				continue
			}

			c.AffectedRequirements = append(c.AffectedRequirements, ra.ID, rb.ID)
			c.Context["framework_a"] = a.Title
			c.Context["framework_b"] = b.Title
			c.Context["requirement_a"] = ra.Title
			c.Context["requirement_b"] = rb.Title
			c.Context["similarity_score"] = strconv.FormatFloat(similarity, 'f', 2, 64)
			out = append(out, c)
		}
	}
	return out
}

// conditionsContradict reports a negated expression on one side matching the
// plain expression on the other, or opposing numeric bounds that cannot both
// hold.
func conditionsContradict(as, bs []types.Condition) bool {
	for _, ca := range as {
		for _, cb := range bs {
			if negates(ca.Expression, cb.Expression) || negates(cb.Expression, ca.Expression) {
				return true
			}
			if boundsExclude(ca.Expression, cb.Expression) || boundsExclude(cb.Expression, ca.Expression) {
				return true
			}
		}
	}
	return false
}

func negates(negated, plain string) bool {
	if !strings.Contains(negated, "NOT") {
		return false
	}
	positive := strings.TrimSpace(strings.ReplaceAll(negated, "NOT ", ""))
	return positive != "" && strings.Contains(plain, positive)
}

// boundsExclude reports lower >= x and upper <= y with x > y.
func boundsExclude(lower, upper string) bool {
	if !strings.Contains(lower, ">=") || !strings.Contains(upper, "<=") {
		return false
	}
	lo, ok := firstNumber(lower)
	if !ok {
		return false
	}
	hi, ok := firstNumber(upper)
	if !ok {
		return false
	}
	return lo > hi
}

func firstNumber(expr string) (float64, bool) {
	token := numberPattern.FindString(expr)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	return v, err == nil
}

func (d *ReferenceDetector) authorityConflict(a, b *types.NormativeFramework) *types.NormativeConflict {
	if a.Authority != b.Authority || a.Jurisdiction != b.Jurisdiction || !d.scopesOverlap(a, b) {
		return nil
	}
	c := d.newConflict(types.ConflictTypeAuthorityConflict, types.SeverityMedium, a, b,
		fmt.Sprintf("Same authority '%s' issued conflicting frameworks in same jurisdiction", a.Authority))
	c.Context["authority"] = a.Authority
	return c
}

func (d *ReferenceDetector) scopeConflict(a, b *types.NormativeFramework) *types.NormativeConflict {
	if a.Jurisdiction == b.Jurisdiction {
		return nil
	}
	overlap := keywords.Jaccard(keywords.StringSet(a.Tags), keywords.StringSet(b.Tags))
	if overlap <= d.tagOverlap {
		return nil
	}
	c := d.newConflict(types.ConflictTypeScopeAmbiguity, types.SeverityLow, a, b,
		fmt.Sprintf("Scope ambiguity between frameworks from different jurisdictions: %s vs %s", a.Jurisdiction, b.Jurisdiction))
	c.Context["scope_overlap"] = strconv.FormatFloat(overlap, 'f', 2, 64)
	c.Context["jurisdiction_a"] = string(a.Jurisdiction)
	c.Context["jurisdiction_b"] = string(b.Jurisdiction)
	return c
}

// dependencyConflicts flags frameworks in force before a framework they
// depend on.
func (d *ReferenceDetector) dependencyConflicts(frameworks []*types.NormativeFramework) []*types.NormativeConflict {
	byID := make(map[string]*types.NormativeFramework, len(frameworks))
	for _, f := range frameworks {
		byID[f.ID.String()] = f
	}

	var out []*types.NormativeConflict
	for _, f := range frameworks {
		for _, depID := range f.Dependencies {
			dep, ok := byID[depID.String()]
			if !ok || dep.ID == f.ID || !f.EffectiveDate.Before(dep.EffectiveDate) {
				continue
			}
			c := d.newConflict(types.ConflictTypeTemporalInconsistency, types.SeverityMedium, f, dep,
				"Framework is effective before its dependency")
			c.Context["framework_effective"] = f.EffectiveDate.Format(time.RFC3339)
			c.Context["dependency_effective"] = dep.EffectiveDate.Format(time.RFC3339)
			out = append(out, c)
		}
	}
	return out
}

func (d *ReferenceDetector) temporalConflicts(frameworks []*types.NormativeFramework) []*types.NormativeConflict {
	var out []*types.NormativeConflict
	for i, a := range frameworks {
		for _, b := range frameworks[i+1:] {
			if !temporalOverlap(a, b) || !d.scopesOverlap(a, b) || supersedes(a, b) || supersedes(b, a) {
				continue
			}
			out = append(out, d.newConflict(types.ConflictTypeTemporalInconsistency, types.SeverityLow, a, b,
				"Overlapping temporal validity with similar scope"))
		}
	}
	return out
}

func temporalOverlap(a, b *types.NormativeFramework) bool {
	aEndsFirst := a.ExpirationDate != nil && !a.ExpirationDate.After(b.EffectiveDate)
	bEndsFirst := b.ExpirationDate != nil && !b.ExpirationDate.After(a.EffectiveDate)
	return !aEndsFirst && !bEndsFirst
}

func supersedes(a, b *types.NormativeFramework) bool {
	for _, id := range a.Supersedes {
		if id == b.ID {
			return true
		}
	}
	return false
}

func (d *ReferenceDetector) jurisdictionalConflicts(frameworks []*types.NormativeFramework) []*types.NormativeConflict {
	var out []*types.NormativeConflict
	for i, a := range frameworks {
		for _, b := range frameworks[i+1:] {
			intl, other := a, b
			switch {
			case a.Jurisdiction == types.JurisdictionInternational && b.Jurisdiction != types.JurisdictionInternational:
			case b.Jurisdiction == types.JurisdictionInternational && a.Jurisdiction != types.JurisdictionInternational:
				intl, other = b, a
			default:
				continue
			}
			if !d.scopesOverlap(intl, other) {
				continue
			}

			severity, ok := d.jurisdictionalSeverity(intl, other)
			if !ok {
				continue
			}
			c := d.newConflict(types.ConflictTypeJurisdictionalOverlap, severity, intl, other,
				fmt.Sprintf("Jurisdictional overlap: International vs %s", other.Jurisdiction))
			c.Context["jurisdiction"] = string(other.Jurisdiction)
			out = append(out, c)
		}
	}
	return out
}

// jurisdictionalSeverity grades an International overlap. Weak overlaps
// without conflicting mandatory requirements are not reported.
func (d *ReferenceDetector) jurisdictionalSeverity(intl, other *types.NormativeFramework) (types.ConflictSeverity, bool) {
	if d.mandatoryConflicts(intl, other) > 0 {
		return types.SeverityHigh, true
	}
	overlap := keywords.Jaccard(keywords.StringSet(intl.Tags), keywords.StringSet(other.Tags))
	switch {
	case overlap > 0.8:
		return types.SeverityMedium, true
	case overlap > 0.5:
		return types.SeverityLow, true
	default:
		return "", false
	}
}

func (d *ReferenceDetector) mandatoryConflicts(a, b *types.NormativeFramework) int {
	n := 0
	for _, ra := range a.Requirements {
		if !ra.Mandatory {
			continue
		}
		for _, rb := range b.Requirements {
			if !rb.Mandatory || ra.Category != rb.Category {
				continue
			}
			if keywords.Similarity(ra.Description, rb.Description) > d.similarity &&
				conditionsContradict(ra.Conditions, rb.Conditions) {
				n++
			}
		}
	}
	return n
}
