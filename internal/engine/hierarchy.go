package engine

import (
	"context"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/audit"
	"lerian-normative-engine/internal/normative"
	"lerian-normative-engine/pkg/types"
)

// RebuildHierarchy recomputes the hierarchy from every stored framework.
func (e *Engine) RebuildHierarchy(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hierarchyStale = true
	e.ensureHierarchy()
	e.record(ctx, audit.EventTypeHierarchyRebuilt, "Hierarchy rebuilt", "hierarchy", "",
		map[string]interface{}{"frameworks": e.repo.Len()})
}

// Hierarchy returns the derived position of a framework.
func (e *Engine) Hierarchy(id uuid.UUID) (*normative.FrameworkHierarchy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureHierarchy()
	return e.hierarchy.Hierarchy(id)
}

// ApplicableFrameworks returns the frameworks binding in a jurisdiction,
// including those inherited from higher levels.
func (e *Engine) ApplicableFrameworks(j types.Jurisdiction, sector string) []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureHierarchy()
	return e.hierarchy.ApplicableFrameworks(j, sector)
}

// ResolvePrecedence ranks a set of stored frameworks by jurisdiction level.
func (e *Engine) ResolvePrecedence(ids []uuid.UUID) (*normative.PrecedenceResolution, error) {
	all := e.repo.List()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hierarchy.ResolveConflicts(ids, all)
}
