package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/audit"
	"lerian-normative-engine/internal/conflict"
	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/pkg/types"
)

// DetectionResult summarizes one detection run.
type DetectionResult struct {
	TotalFrameworks int                        `json:"total_frameworks"`
	ConflictsFound  int                        `json:"conflicts_found"`
	NewConflicts    int                        `json:"new_conflicts"`
	Conflicts       []*types.NormativeConflict `json:"conflicts"`
	AnalysisTime    time.Time                  `json:"analysis_time"`
	ProcessingTime  time.Duration              `json:"processing_time"`
}

// signature identifies a finding independently of its generated id so that
// repeated detection runs do not record the same conflict twice.
func signature(c *types.NormativeConflict) string {
	a, b := c.NormativeA.String(), c.NormativeB.String()
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s|%s|%s", c.Type, a, b, c.Description)
}

// IngestConflict records an externally detected conflict: it is scored,
// added to the conflict graph and reported to the audit sink. Both frameworks
// must be stored. A conflict with the same type, framework pair and
// description as a recorded one is not stored again, whatever its id; the
// returned assessment's ConflictID always names the conflict as recorded.
func (e *Engine) IngestConflict(ctx context.Context, c *types.NormativeConflict) (conflict.Assessment, error) {
	var result conflict.Assessment
	err := logging.LogOperation(ctx, e.logger, "ingest_conflict", func() error {
		if c == nil {
			return errors.NewRequiredFieldError("conflict")
		}
		for _, id := range []uuid.UUID{c.NormativeA, c.NormativeB} {
			if _, ok := e.repo.Get(id); !ok {
				return errors.NewNotFoundError("framework", id.String())
			}
		}

		e.mu.Lock()
		defer e.mu.Unlock()

		var err error
		result, _, err = e.ingest(ctx, c)
		return err
	})
	return result, err
}

// ingest stores a copy of c unless an identical finding is already recorded.
// Caller holds mu.
func (e *Engine) ingest(ctx context.Context, c *types.NormativeConflict) (conflict.Assessment, bool, error) {
	if err := c.Validate(); err != nil {
		return conflict.Assessment{}, false, errors.NewValidationError("conflict", err.Error(), c.ID.String())
	}

	sig := signature(c)
	if existing, ok := e.signatures[sig]; ok {
		a, _ := e.analyzer.Cached(existing)
		return a, false, nil
	}

	stored := c.Clone()
	if err := e.graph.AddConflict(stored); err != nil {
		return conflict.Assessment{}, false, err
	}
	e.conflicts[stored.ID] = stored
	e.signatures[sig] = stored.ID
	assessment := e.analyzer.Assess(stored)

	e.record(ctx, audit.EventTypeConflictDetected, "Conflict detected", "conflict", stored.ID.String(),
		map[string]interface{}{
			"conflict_type":  string(stored.Type),
			"severity":       string(stored.Severity),
			"severity_score": assessment.SeverityScore,
		})
	return assessment, true, nil
}

// Detect runs the detector over the active frameworks and records every new
// finding.
func (e *Engine) Detect(ctx context.Context) (*DetectionResult, error) {
	result := &DetectionResult{AnalysisTime: e.now()}
	err := logging.LogOperation(ctx, e.logger, "detect_conflicts", func() error {
		start := time.Now()
		active := e.repo.GetActive()
		result.TotalFrameworks = len(active)

		found, err := e.detector.Detect(ctx, active)
		if err != nil {
			return errors.NewEnhancedError(err, "engine", "detect").
				WithTraceID(logging.GetTraceID(ctx)).
				WithMetadata("frameworks", len(active))
		}
		result.ConflictsFound = len(found)

		e.mu.Lock()
		defer e.mu.Unlock()
		for _, c := range found {
			_, added, err := e.ingest(ctx, c)
			if err != nil {
				e.logger.WarnContext(ctx, "Detected conflict rejected", "conflict_id", c.ID.String(), "error", err.Error())
				continue
			}
			if added {
				result.NewConflicts++
			}
			result.Conflicts = append(result.Conflicts, e.conflicts[e.signatures[signature(c)]].Clone())
		}
		e.graph.AnalyzeCentrality()
		result.ProcessingTime = time.Since(start)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Conflict detection completed",
		"frameworks", result.TotalFrameworks,
		"conflicts_found", result.ConflictsFound,
		"new_conflicts", result.NewConflicts)
	return result, nil
}

// ResolveConflict applies strategy to a recorded conflict and stores the
// outcome on it. The frameworks themselves are never modified.
func (e *Engine) ResolveConflict(ctx context.Context, id uuid.UUID, strategy types.ResolutionStrategy, notes, by string) (*types.NormativeConflict, conflict.Outcome, error) {
	var (
		resolved *types.NormativeConflict
		outcome  conflict.Outcome
	)
	err := logging.LogOperation(ctx, e.logger, "resolve_conflict", func() error {
		if !strategy.Valid() {
			return errors.NewInvalidValueError("strategy", string(strategy))
		}
		if by == "" {
			return errors.NewRequiredFieldError("resolved_by")
		}

		e.mu.Lock()
		defer e.mu.Unlock()

		c, ok := e.conflicts[id]
		if !ok {
			return errors.NewNotFoundError("conflict", id.String())
		}

		outcome = e.strategies.ApplyStrategy(c, strategy)
		if notes == "" {
			notes = outcome.Reasoning
		}
		c.Resolve(strategy, notes, by, e.now())
		if err := e.graph.AddConflict(c); err != nil {
			return err
		}
		resolved = c.Clone()

		e.record(ctx, audit.EventTypeConflictResolved, "Conflict resolved", "conflict", id.String(),
			map[string]interface{}{
				"strategy":    string(strategy),
				"status":      string(outcome.Status),
				"resolved_by": by,
			})
		return nil
	})
	return resolved, outcome, err
}

// RecommendResolutions evaluates every candidate strategy for a conflict in
// preference order. Conflicts without candidates get a single escalation.
func (e *Engine) RecommendResolutions(id uuid.UUID) ([]conflict.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.conflicts[id]
	if !ok {
		return nil, errors.NewNotFoundError("conflict", id.String())
	}

	candidates := e.strategies.Strategies(c.Type)
	if len(candidates) == 0 {
		return []conflict.Outcome{e.strategies.Recommend(c)}, nil
	}
	out := make([]conflict.Outcome, 0, len(candidates))
	for _, s := range candidates {
		out = append(out, e.strategies.ApplyStrategy(c, s))
	}
	return out, nil
}

// MostCriticalConflicts returns up to n conflict edges, heaviest first.
func (e *Engine) MostCriticalConflicts(n int) []conflict.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.MostCriticalConflicts(n)
}

// HighCentralityFrameworks returns up to n frameworks most entangled in
// conflicts.
func (e *Engine) HighCentralityFrameworks(n int) []conflict.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.HighCentralityFrameworks(n)
}

// ConflictClusters returns groups of mutually conflicting frameworks.
func (e *Engine) ConflictClusters() []conflict.Cluster {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.IdentifyClusters()
}
