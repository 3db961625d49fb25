package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lerian-normative-engine/internal/audit"
	"lerian-normative-engine/internal/config"
	"lerian-normative-engine/internal/conflict"
	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	testNow   = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newTestEngine(t *testing.T) (*Engine, *audit.MemorySink) {
	t.Helper()
	sink := audit.NewMemorySink()
	e, err := New(nil, WithClock(func() time.Time { return testNow }), WithSink(sink))
	require.NoError(t, err)
	return e, sink
}

func newFramework(title, desc string, j types.Jurisdiction, authority string) *types.NormativeFramework {
	return types.NewFramework(title, desc, types.FrameworkTypeRegulation, j, authority, testStart)
}

// contradictingPair returns two federal frameworks whose record-keeping
// requirements disagree on being mandatory.
func contradictingPair() (*types.NormativeFramework, *types.NormativeFramework) {
	a := newFramework("Banking Retention Act", "Data retention rules banks", types.JurisdictionFederal, "Treasury")
	b := newFramework("Consumer Privacy Act", "Customer privacy obligations", types.JurisdictionFederal, "Commerce")
	a.Requirements = []types.Requirement{types.NewRequirement("Keep records", "Retain transaction records seven years", "records", true, 1)}
	b.Requirements = []types.Requirement{types.NewRequirement("Keep records", "Retain transaction records seven years", "records", false, 3)}
	return a, b
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Conflict.DetectorWorkers = 0

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestEngine_FrameworkLifecycle(t *testing.T) {
	e, sink := newTestEngine(t)
	ctx := context.Background()
	f := newFramework("Data Protection Act", "Personal data processing", types.JurisdictionFederal, "DPA")

	require.NoError(t, e.StoreFramework(ctx, f))
	got, err := e.Framework(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Title, got.Title)
	assert.Len(t, e.Search("personal data"), 1)

	f.Title = "Data Protection Act 2025"
	require.NoError(t, e.UpdateFramework(ctx, f))
	got, _ = e.Framework(f.ID)
	assert.Equal(t, "Data Protection Act 2025", got.Title)
	assert.Equal(t, testNow, got.UpdatedAt)

	require.NoError(t, e.DeleteFramework(ctx, f.ID))
	_, err = e.Framework(f.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(e.DeleteFramework(ctx, f.ID)))

	assert.Equal(t, int64(1), sink.Count(audit.EventTypeFrameworkStored))
	assert.Equal(t, int64(1), sink.Count(audit.EventTypeFrameworkUpdated))
	assert.Equal(t, int64(1), sink.Count(audit.EventTypeFrameworkDeleted))
}

func TestEngine_Facets(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	a, b := contradictingPair()
	b.Type = types.FrameworkTypeStandard
	require.NoError(t, e.StoreFramework(ctx, a))
	require.NoError(t, e.StoreFramework(ctx, b))

	byAuthority := e.ByAuthority(" treasury ")
	require.Len(t, byAuthority, 1)
	assert.Equal(t, a.ID, byAuthority[0].ID)

	byType := e.ByType(types.FrameworkTypeStandard)
	require.Len(t, byType, 1)
	assert.Equal(t, b.ID, byType[0].ID)

	exported := e.ExportFrameworks()
	require.Len(t, exported, 2)
	exported[0].Title = "mutated"
	got, err := e.Framework(exported[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", got.Title)
}

func TestEngine_FansOutToEverySink(t *testing.T) {
	first, second := audit.NewMemorySink(), audit.NewMemorySink()
	e, err := New(nil, WithClock(func() time.Time { return testNow }), WithSink(first), WithSink(second))
	require.NoError(t, err)

	f := newFramework("Data Protection Act", "Personal data processing", types.JurisdictionFederal, "DPA")
	require.NoError(t, e.StoreFramework(context.Background(), f))

	assert.Equal(t, int64(1), first.Count(audit.EventTypeFrameworkStored))
	assert.Equal(t, int64(1), second.Count(audit.EventTypeFrameworkStored))
	assert.Equal(t, first.Events(), second.Events())
}

func TestEngine_StoreRejectsInvalid(t *testing.T) {
	e, sink := newTestEngine(t)

	assert.True(t, errors.IsValidation(e.StoreFramework(context.Background(), nil)))

	bad := newFramework("", "no title", types.JurisdictionFederal, "X")
	assert.True(t, errors.IsValidation(e.StoreFramework(context.Background(), bad)))
	assert.Empty(t, sink.Events())
}

func TestEngine_DetectRecordsConflictsOnce(t *testing.T) {
	e, sink := newTestEngine(t)
	ctx := context.Background()
	a, b := contradictingPair()
	require.Equal(t, 2, e.ImportFrameworks(ctx, []*types.NormativeFramework{a, b}))

	first, err := e.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalFrameworks)
	assert.Equal(t, 1, first.ConflictsFound)
	assert.Equal(t, 1, first.NewConflicts)
	require.Len(t, first.Conflicts, 1)

	second, err := e.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.ConflictsFound)
	assert.Zero(t, second.NewConflicts)
	assert.Equal(t, first.Conflicts[0].ID, second.Conflicts[0].ID)

	all := e.Conflicts()
	require.Len(t, all, 1)
	assert.Equal(t, types.ConflictTypeDirectContradiction, all[0].Type)

	assessment, err := e.Assessment(all[0].ID)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, assessment.SeverityScore, 1e-9)
	assert.Equal(t, conflict.ComplexityRequiresIntervention, assessment.ResolutionComplexity)

	top := e.MostCriticalConflicts(5)
	require.Len(t, top, 1)
	assert.InDelta(t, 7.5, top[0].Weight, 1e-9)

	central := e.HighCentralityFrameworks(5)
	require.Len(t, central, 2)
	assert.InDelta(t, 0.5, central[0].Centrality, 1e-9)

	clusters := e.ConflictClusters()
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, clusters[0].Frameworks)

	assert.Equal(t, int64(1), sink.Count(audit.EventTypeConflictDetected))
}

func TestEngine_DetectKeepsMostSevereConflictPerPair(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	a, b := contradictingPair()
	a.Tags = []string{"privacy"}
	b.Tags = []string{"privacy"}
	e.ImportFrameworks(ctx, []*types.NormativeFramework{a, b})

	result, err := e.Detect(ctx)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 2)
	assert.Equal(t, types.ConflictTypeDirectContradiction, result.Conflicts[0].Type)
	assert.Equal(t, types.ConflictTypeTemporalInconsistency, result.Conflicts[1].Type)

	top := e.MostCriticalConflicts(1)
	require.Len(t, top, 1)
	assert.Equal(t, types.ConflictTypeDirectContradiction, top[0].Conflict.Type)
	assert.InDelta(t, 7.5, top[0].Weight, 1e-9)

	_, _, err = e.ResolveConflict(ctx, result.Conflicts[1].ID, types.StrategyMoreRecentVersion, "", "alice")
	require.NoError(t, err)
	assert.Equal(t, result.Conflicts[0].ID, e.MostCriticalConflicts(1)[0].Conflict.ID)

	clusters := e.ConflictClusters()
	require.Len(t, clusters, 1)
	assert.InDelta(t, 7.5, clusters[0].ResolutionPriority, 1e-9)
}

type failingDetector struct{ err error }

func (d failingDetector) Detect(context.Context, []*types.NormativeFramework) ([]*types.NormativeConflict, error) {
	return nil, d.err
}

func TestEngine_DetectPropagatesDetectorError(t *testing.T) {
	e, err := New(nil, WithDetector(failingDetector{err: context.DeadlineExceeded}))
	require.NoError(t, err)

	ctx := logging.WithTraceID(context.Background(), "trace-42")
	_, err = e.Detect(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Equal(t, "trace-42", enhanced.Context.TraceID)
	assert.Equal(t, "detect", enhanced.Context.Operation)
	assert.Equal(t, 0, enhanced.Context.Metadata["frameworks"])
}

func TestEngine_IngestConflict(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	a, b := contradictingPair()
	require.NoError(t, e.StoreFramework(ctx, a))

	missing := types.NewConflict(types.ConflictTypeScopeAmbiguity, types.SeverityLow, a.ID, b.ID, "scope")
	_, err := e.IngestConflict(ctx, missing)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, e.StoreFramework(ctx, b))
	assessment, err := e.IngestConflict(ctx, missing)
	require.NoError(t, err)
	assert.Equal(t, "Conflict between 2 frameworks with low severity", assessment.ImpactAssessment)

	assert.Equal(t, missing.ID, assessment.ConflictID)

	duplicate := types.NewConflict(types.ConflictTypeScopeAmbiguity, types.SeverityLow, b.ID, a.ID, "scope")
	again, err := e.IngestConflict(ctx, duplicate)
	require.NoError(t, err)
	assert.Equal(t, missing.ID, again.ConflictID)
	_, err = e.Conflict(again.ConflictID)
	require.NoError(t, err)
	_, err = e.Conflict(duplicate.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.Len(t, e.Conflicts(), 1)

	self := types.NewConflict(types.ConflictTypeScopeAmbiguity, types.SeverityLow, a.ID, a.ID, "self")
	_, err = e.IngestConflict(ctx, self)
	assert.True(t, errors.IsValidation(err))
}

func TestEngine_ResolveConflict(t *testing.T) {
	e, sink := newTestEngine(t)
	ctx := context.Background()
	a, b := contradictingPair()
	e.ImportFrameworks(ctx, []*types.NormativeFramework{a, b})
	result, err := e.Detect(ctx)
	require.NoError(t, err)
	id := result.Conflicts[0].ID

	_, _, err = e.ResolveConflict(ctx, id, "coin_flip", "", "alice")
	assert.True(t, errors.IsValidation(err))

	_, _, err = e.ResolveConflict(ctx, uuid.New(), types.StrategyMoreRecentVersion, "", "alice")
	assert.True(t, errors.IsNotFound(err))

	_, _, err = e.ResolveConflict(ctx, id, types.StrategyMoreRecentVersion, "", "")
	assert.True(t, errors.IsValidation(err))

	resolved, outcome, err := e.ResolveConflict(ctx, id, types.StrategyHigherJurisdictionPrecedence, "", "alice")
	require.NoError(t, err)
	assert.Equal(t, conflict.StatusResolved, outcome.Status)
	require.True(t, resolved.IsResolved())
	assert.Equal(t, types.StrategyHigherJurisdictionPrecedence, *resolved.ResolutionStrategy)
	assert.Equal(t, outcome.Reasoning, *resolved.ResolutionNotes)
	assert.Equal(t, "alice", *resolved.ResolvedBy)
	assert.Equal(t, testNow, *resolved.ResolvedAt)

	stored, err := e.Conflict(id)
	require.NoError(t, err)
	assert.True(t, stored.IsResolved())

	node := e.HighCentralityFrameworks(1)[0]
	assert.Equal(t, 1, node.ConflictCount)
	assert.Equal(t, int64(1), sink.Count(audit.EventTypeConflictResolved))
}

func TestEngine_RecommendResolutions(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	a, b := contradictingPair()
	e.ImportFrameworks(ctx, []*types.NormativeFramework{a, b})

	direct := types.NewConflict(types.ConflictTypeDirectContradiction, types.SeverityHigh, a.ID, b.ID, "direct")
	_, err := e.IngestConflict(ctx, direct)
	require.NoError(t, err)

	outcomes, err := e.RecommendResolutions(direct.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, types.StrategyHigherJurisdictionPrecedence, outcomes[0].Strategy)
	assert.Equal(t, conflict.StatusRequiresExpertReview, outcomes[1].Status)

	authority := types.NewConflict(types.ConflictTypeAuthorityConflict, types.SeverityMedium, a.ID, b.ID, "authority")
	_, err = e.IngestConflict(ctx, authority)
	require.NoError(t, err)

	outcomes, err = e.RecommendResolutions(authority.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, conflict.StatusEscalated, outcomes[0].Status)

	_, err = e.RecommendResolutions(uuid.New())
	assert.True(t, errors.IsNotFound(err))
}

func TestEngine_HierarchyFollowsMutations(t *testing.T) {
	e, sink := newTestEngine(t)
	ctx := context.Background()
	fed := newFramework("Federal Privacy Act", "Privacy baseline", types.JurisdictionFederal, "Congress")
	state := newFramework("State Privacy Act", "State privacy", types.JurisdictionState, "Legislature")
	require.NoError(t, e.StoreFramework(ctx, fed))
	require.NoError(t, e.StoreFramework(ctx, state))

	h, err := e.Hierarchy(state.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{fed.ID}, h.Parents)
	assert.Equal(t, types.LevelSubnational, h.Level)

	intl := newFramework("Privacy Convention", "Treaty", types.JurisdictionInternational, "Council")
	require.NoError(t, e.StoreFramework(ctx, intl))

	assert.ElementsMatch(t, []uuid.UUID{fed.ID, state.ID, intl.ID}, e.ApplicableFrameworks(types.JurisdictionState, "health"))
	assert.ElementsMatch(t, []uuid.UUID{fed.ID, intl.ID}, e.ApplicableFrameworks(types.JurisdictionFederal, ""))

	e.RebuildHierarchy(ctx)
	assert.Equal(t, int64(1), sink.Count(audit.EventTypeHierarchyRebuilt))

	_, err = e.Hierarchy(uuid.New())
	assert.True(t, errors.IsNotFound(err))
}

func TestEngine_ResolvePrecedence(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	fed := newFramework("Federal Act", "Baseline", types.JurisdictionFederal, "Congress")
	local := newFramework("City Ordinance", "Local", types.JurisdictionLocal, "Council")
	e.ImportFrameworks(ctx, []*types.NormativeFramework{fed, local})

	res, err := e.ResolvePrecedence([]uuid.UUID{local.ID, fed.ID})
	require.NoError(t, err)
	assert.Equal(t, fed.ID, res.Primary)
	assert.Equal(t, []uuid.UUID{local.ID}, res.Secondary)
	assert.Equal(t, types.StrategyHigherJurisdictionPrecedence, res.Strategy)

	_, err = e.ResolvePrecedence(nil)
	assert.True(t, errors.IsValidation(err))
}

func TestEngine_CompactAndAnalyze(t *testing.T) {
	e, sink := newTestEngine(t)
	ctx := context.Background()
	expired := newFramework("Old Rule", "Retired", types.JurisdictionFederal, "Agency")
	end := testNow.Add(-time.Hour)
	expired.ExpirationDate = &end
	current := newFramework("New Rule", "Current", types.JurisdictionFederal, "Agency")
	current.Requirements = []types.Requirement{types.NewRequirement("Report", "Report annually", "reporting", true, 5)}
	e.ImportFrameworks(ctx, []*types.NormativeFramework{expired, current})

	assert.Equal(t, 1, e.Compact(ctx))
	assert.Equal(t, 1, e.Statistics().Total)
	assert.Equal(t, int64(1), sink.Count(audit.EventTypeFrameworksCompact))

	analysis, err := e.AnalyzeFramework(current.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, analysis.Recommendations)

	_, err = e.AnalyzeFramework(expired.ID)
	assert.True(t, errors.IsNotFound(err))

	cmp, err := e.CompareFrameworks(current.ID, current.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cmp.SimilarityScore, 1e-9)
}
