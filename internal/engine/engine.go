// Package engine wires the framework store, conflict detection, scoring,
// graph aggregation and the jurisdiction hierarchy behind one facade.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/audit"
	"lerian-normative-engine/internal/config"
	"lerian-normative-engine/internal/conflict"
	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/internal/normative"
	"lerian-normative-engine/pkg/types"
)

// Engine is safe for concurrent use. The repository carries its own lock;
// every other component is owned by the engine and serialized through mu.
type Engine struct {
	cfg      *config.Config
	repo     *normative.Repository
	detector conflict.Detector
	sink     audit.Sink
	sinks    []audit.Sink
	logger   logging.Logger
	now      func() time.Time

	mu             sync.Mutex
	conflicts      map[uuid.UUID]*types.NormativeConflict
	signatures     map[string]uuid.UUID
	analyzer       *conflict.Analyzer
	graph          *conflict.Graph
	strategies     *conflict.StrategyManager
	hierarchy      *normative.HierarchyManager
	frameworks     *normative.FrameworkAnalyzer
	hierarchyStale bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source shared by every component.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithDetector replaces the reference detector.
func WithDetector(d conflict.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithSink adds a destination for audit events. Events fan out to every
// sink in order; without any the engine logs them.
func WithSink(s audit.Sink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

// New creates an engine from cfg, which defaults to config.DefaultConfig.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewValidationError("config", err.Error(), nil)
	}

	e := &Engine{
		cfg:            cfg,
		logger:         logging.NewNoOpLogger(),
		now:            func() time.Time { return time.Now().UTC() },
		conflicts:      make(map[uuid.UUID]*types.NormativeConflict),
		signatures:     make(map[string]uuid.UUID),
		analyzer:       conflict.NewAnalyzer(),
		graph:          conflict.NewGraph(),
		strategies:     conflict.NewStrategyManager(),
		hierarchyStale: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("engine")

	e.repo = normative.NewRepository(
		normative.WithClock(e.now),
		normative.WithLogger(e.logger),
		normative.WithOverlapThreshold(cfg.Index.OverlapThreshold),
	)
	e.hierarchy = normative.NewHierarchyManager(e.logger)
	e.frameworks = normative.NewFrameworkAnalyzer(e.now)
	if e.detector == nil {
		e.detector = conflict.NewReferenceDetector(
			conflict.WithSimilarityThreshold(cfg.Conflict.SimilarityThreshold),
			conflict.WithTagOverlapThreshold(cfg.Conflict.TagOverlapThreshold),
			conflict.WithWorkers(cfg.Conflict.DetectorWorkers),
			conflict.WithDetectorClock(e.now),
			conflict.WithDetectorLogger(e.logger),
		)
	}
	switch len(e.sinks) {
	case 0:
		e.sink = audit.NewLogSink(e.logger)
	case 1:
		e.sink = e.sinks[0]
	default:
		e.sink = audit.MultiSink(e.sinks)
	}
	return e, nil
}

func (e *Engine) record(ctx context.Context, t audit.EventType, action, resource, id string, details map[string]interface{}) {
	e.sink.Record(ctx, audit.NewEvent(ctx, e.now(), t, action, resource, id, details))
}

// frameworkChanged drops derived state for a framework. Caller holds mu.
func (e *Engine) frameworkChanged(id uuid.UUID) {
	e.frameworks.Invalidate(id)
	e.hierarchyStale = true
}

// ensureHierarchy rebuilds the hierarchy when the corpus changed. Caller
// holds mu.
func (e *Engine) ensureHierarchy() {
	if !e.hierarchyStale {
		return
	}
	e.hierarchy.BuildHierarchy(e.repo.List())
	e.hierarchyStale = false
}

// Conflicts returns every recorded conflict, oldest discovery first.
func (e *Engine) Conflicts() []*types.NormativeConflict {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*types.NormativeConflict, 0, len(e.conflicts))
	for _, c := range e.conflicts {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DiscoveredAt.Equal(out[j].DiscoveredAt) {
			return out[i].DiscoveredAt.Before(out[j].DiscoveredAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Conflict returns a recorded conflict.
func (e *Engine) Conflict(id uuid.UUID) (*types.NormativeConflict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.conflicts[id]
	if !ok {
		return nil, errors.NewNotFoundError("conflict", id.String())
	}
	return c.Clone(), nil
}

// Assessment returns the latest score of a recorded conflict.
func (e *Engine) Assessment(id uuid.UUID) (conflict.Assessment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.analyzer.Cached(id)
	if !ok {
		return conflict.Assessment{}, errors.NewNotFoundError("conflict", id.String())
	}
	return a, nil
}
