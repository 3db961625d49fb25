package engine

import (
	"context"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/audit"
	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/internal/normative"
	"lerian-normative-engine/pkg/types"
)

// StoreFramework inserts or overwrites a framework.
func (e *Engine) StoreFramework(ctx context.Context, f *types.NormativeFramework) error {
	return logging.LogOperation(ctx, e.logger, "store_framework", func() error {
		if f == nil {
			return errors.NewRequiredFieldError("framework")
		}
		e.mu.Lock()
		defer e.mu.Unlock()

		if err := e.repo.Store(f); err != nil {
			return err
		}
		e.frameworkChanged(f.ID)
		e.record(ctx, audit.EventTypeFrameworkStored, "Framework stored", "framework", f.ID.String(),
			map[string]interface{}{"title": f.Title})
		return nil
	})
}

// UpdateFramework replaces an existing framework.
func (e *Engine) UpdateFramework(ctx context.Context, f *types.NormativeFramework) error {
	return logging.LogOperation(ctx, e.logger, "update_framework", func() error {
		if f == nil {
			return errors.NewRequiredFieldError("framework")
		}
		e.mu.Lock()
		defer e.mu.Unlock()

		if err := e.repo.Update(f); err != nil {
			return err
		}
		e.frameworkChanged(f.ID)
		e.record(ctx, audit.EventTypeFrameworkUpdated, "Framework updated", "framework", f.ID.String(), nil)
		return nil
	})
}

// DeleteFramework removes a framework. Conflicts already recorded against it
// are kept.
func (e *Engine) DeleteFramework(ctx context.Context, id uuid.UUID) error {
	return logging.LogOperation(ctx, e.logger, "delete_framework", func() error {
		e.mu.Lock()
		defer e.mu.Unlock()

		if err := e.repo.Delete(id); err != nil {
			return err
		}
		e.frameworkChanged(id)
		e.record(ctx, audit.EventTypeFrameworkDeleted, "Framework deleted", "framework", id.String(), nil)
		return nil
	})
}

// Framework returns a stored framework.
func (e *Engine) Framework(id uuid.UUID) (*types.NormativeFramework, error) {
	f, ok := e.repo.Get(id)
	if !ok {
		return nil, errors.NewNotFoundError("framework", id.String())
	}
	return f, nil
}

// Frameworks returns every stored framework ordered by id.
func (e *Engine) Frameworks() []*types.NormativeFramework {
	return e.repo.List()
}

// ActiveFrameworks returns the frameworks in force now.
func (e *Engine) ActiveFrameworks() []*types.NormativeFramework {
	return e.repo.GetActive()
}

// Search ranks frameworks against a free-text query.
func (e *Engine) Search(query string) []normative.SearchResult {
	return e.repo.Search(query)
}

// ByJurisdiction returns frameworks issued in j.
func (e *Engine) ByJurisdiction(j types.Jurisdiction) []*types.NormativeFramework {
	return e.repo.ByJurisdiction(j)
}

// ByTag returns frameworks carrying tag.
func (e *Engine) ByTag(tag string) []*types.NormativeFramework {
	return e.repo.ByTag(tag)
}

// ByType returns frameworks of kind t.
func (e *Engine) ByType(t types.FrameworkType) []*types.NormativeFramework {
	return e.repo.ByType(t)
}

// ByAuthority returns frameworks issued by authority, compared normalized.
func (e *Engine) ByAuthority(authority string) []*types.NormativeFramework {
	return e.repo.ByAuthority(authority)
}

// ExportFrameworks returns copies of every stored framework.
func (e *Engine) ExportFrameworks() []*types.NormativeFramework {
	return e.repo.ExportAll()
}

// ConflictingFrameworks returns candidates likely to clash with a framework.
func (e *Engine) ConflictingFrameworks(id uuid.UUID) ([]*types.NormativeFramework, error) {
	return e.repo.ConflictingFrameworks(id)
}

// Statistics summarizes the stored corpus.
func (e *Engine) Statistics() normative.Statistics {
	return e.repo.Statistics()
}

// ImportFrameworks stores every valid framework and returns how many were
// stored. The hierarchy is rebuilt when configured to follow bulk changes.
func (e *Engine) ImportFrameworks(ctx context.Context, frameworks []*types.NormativeFramework) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.repo.ImportFrameworks(frameworks)
	for _, f := range frameworks {
		if f != nil {
			e.frameworks.Invalidate(f.ID)
		}
	}
	e.hierarchyStale = true
	if e.cfg.Hierarchy.RebuildOnBulkChange {
		e.ensureHierarchy()
	}
	e.logger.InfoContext(ctx, "Frameworks imported", "imported", n, "submitted", len(frameworks))
	return n
}

// Compact removes expired frameworks and returns how many were removed.
func (e *Engine) Compact(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := e.repo.Compact()
	if removed > 0 {
		e.hierarchyStale = true
		if e.cfg.Hierarchy.RebuildOnBulkChange {
			e.ensureHierarchy()
		}
	}
	e.record(ctx, audit.EventTypeFrameworksCompact, "Expired frameworks removed", "framework", "",
		map[string]interface{}{"removed": removed})
	return removed
}

// AnalyzeFramework scores a stored framework.
func (e *Engine) AnalyzeFramework(id uuid.UUID) (normative.FrameworkAnalysis, error) {
	f, ok := e.repo.Get(id)
	if !ok {
		return normative.FrameworkAnalysis{}, errors.NewNotFoundError("framework", id.String())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameworks.Analyze(f), nil
}

// CompareFrameworks contrasts the requirements of two stored frameworks.
func (e *Engine) CompareFrameworks(first, second uuid.UUID) (normative.FrameworkComparison, error) {
	a, ok := e.repo.Get(first)
	if !ok {
		return normative.FrameworkComparison{}, errors.NewNotFoundError("framework", first.String())
	}
	b, ok := e.repo.Get(second)
	if !ok {
		return normative.FrameworkComparison{}, errors.NewNotFoundError("framework", second.String())
	}
	return normative.CompareFrameworks(a, b), nil
}
