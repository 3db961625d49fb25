package normative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/pkg/types"
)

// FrameworkHierarchy is the derived position of one framework in the corpus.
type FrameworkHierarchy struct {
	FrameworkID     uuid.UUID               `json:"framework_id"`
	Parents         []uuid.UUID             `json:"parents"`
	Children        []uuid.UUID             `json:"children"`
	Level           types.JurisdictionLevel `json:"level"`
	PrecedenceOrder []uuid.UUID             `json:"precedence_order"`
}

// PrecedenceResolution ranks a set of conflicting frameworks.
type PrecedenceResolution struct {
	Strategy  types.ResolutionStrategy `json:"strategy"`
	Primary   uuid.UUID                `json:"primary"`
	Secondary []uuid.UUID              `json:"secondary"`
	Reasoning string                   `json:"reasoning"`
}

// adjacent lists the level pairs (parent, child) that imply a direct
// hierarchical link without looking at content.
var adjacent = map[[2]types.JurisdictionLevel]bool{
	{types.LevelInternational, types.LevelRegional}: true,
	{types.LevelInternational, types.LevelNational}: true,
	{types.LevelRegional, types.LevelNational}:      true,
	{types.LevelNational, types.LevelSubnational}:   true,
}

// applicableCascade lists, per jurisdiction, the higher jurisdictions whose
// frameworks also apply.
var applicableCascade = map[types.Jurisdiction][]types.Jurisdiction{
	types.JurisdictionState:    {types.JurisdictionFederal, types.JurisdictionRegional, types.JurisdictionInternational},
	types.JurisdictionLocal:    {types.JurisdictionFederal, types.JurisdictionRegional, types.JurisdictionInternational},
	types.JurisdictionFederal:  {types.JurisdictionRegional, types.JurisdictionInternational},
	types.JurisdictionRegional: {types.JurisdictionInternational},
}

// HierarchyManager derives parent/child and precedence relations. It is not
// safe for concurrent use; callers serialize access.
type HierarchyManager struct {
	hierarchies    map[uuid.UUID]*FrameworkHierarchy
	byJurisdiction map[types.Jurisdiction][]uuid.UUID
	logger         logging.Logger
}

// NewHierarchyManager creates an empty manager.
func NewHierarchyManager(logger logging.Logger) *HierarchyManager {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &HierarchyManager{
		hierarchies:    make(map[uuid.UUID]*FrameworkHierarchy),
		byJurisdiction: make(map[types.Jurisdiction][]uuid.UUID),
		logger:         logger.WithComponent("hierarchy"),
	}
}

// BuildHierarchy recomputes every relation from scratch. Cost is quadratic in
// the corpus size, so call it on bulk changes rather than per mutation.
func (h *HierarchyManager) BuildHierarchy(frameworks []*types.NormativeFramework) {
	h.hierarchies = make(map[uuid.UUID]*FrameworkHierarchy, len(frameworks))
	h.byJurisdiction = make(map[types.Jurisdiction][]uuid.UUID)

	for _, f := range frameworks {
		h.byJurisdiction[f.Jurisdiction] = append(h.byJurisdiction[f.Jurisdiction], f.ID)
	}
	for _, f := range frameworks {
		h.hierarchies[f.ID] = analyzePosition(f, frameworks)
	}

	h.logger.Debug("Hierarchy rebuilt", "frameworks", len(frameworks))
}

// Hierarchy returns the derived hierarchy of a framework.
func (h *HierarchyManager) Hierarchy(id uuid.UUID) (*FrameworkHierarchy, error) {
	fh, ok := h.hierarchies[id]
	if !ok {
		return nil, errors.NewNotFoundError("framework hierarchy", id.String())
	}
	out := *fh
	out.Parents = append([]uuid.UUID(nil), fh.Parents...)
	out.Children = append([]uuid.UUID(nil), fh.Children...)
	out.PrecedenceOrder = append([]uuid.UUID(nil), fh.PrecedenceOrder...)
	return &out, nil
}

// ResolveConflicts picks the governing framework among ids by jurisdiction
// level. Unknown ids are ignored; ties keep the order given in ids.
func (h *HierarchyManager) ResolveConflicts(ids []uuid.UUID, all []*types.NormativeFramework) (*PrecedenceResolution, error) {
	if len(ids) == 0 {
		return nil, errors.NewValidationError("frameworks", "no conflicting frameworks provided", nil)
	}

	known := make(map[uuid.UUID]*types.NormativeFramework, len(all))
	for _, f := range all {
		known[f.ID] = f
	}

	var matched []*types.NormativeFramework
	for _, id := range ids {
		if f, ok := known[id]; ok {
			matched = append(matched, f)
		}
	}
	if len(matched) == 0 {
		return nil, errors.NewValidationError("frameworks", "no valid frameworks found", len(ids))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Jurisdiction.Level() < matched[j].Jurisdiction.Level()
	})

	primary := matched[0]
	secondary := make([]uuid.UUID, 0, len(matched)-1)
	for _, f := range matched[1:] {
		secondary = append(secondary, f.ID)
	}

	return &PrecedenceResolution{
		Strategy:  types.StrategyHigherJurisdictionPrecedence,
		Primary:   primary.ID,
		Secondary: secondary,
		Reasoning: fmt.Sprintf("Framework '%s' takes precedence due to higher jurisdiction level (%s)",
			primary.Title, primary.Jurisdiction.Level()),
	}, nil
}

// ApplicableFrameworks returns the frameworks of jurisdiction j followed by
// those of every higher jurisdiction in its cascade. The sector argument is
// accepted for callers that already pass it but does not filter yet.
func (h *HierarchyManager) ApplicableFrameworks(j types.Jurisdiction, sector string) []uuid.UUID {
	applicable := append([]uuid.UUID(nil), h.byJurisdiction[j]...)
	for _, higher := range applicableCascade[j] {
		applicable = append(applicable, h.byJurisdiction[higher]...)
	}
	return applicable
}

func analyzePosition(f *types.NormativeFramework, all []*types.NormativeFramework) *FrameworkHierarchy {
	level := f.Jurisdiction.Level()
	fh := &FrameworkHierarchy{
		FrameworkID:     f.ID,
		Parents:         []uuid.UUID{},
		Children:        []uuid.UUID{},
		Level:           level,
		PrecedenceOrder: precedenceOrder(f, all),
	}

	for _, other := range all {
		if other.ID == f.ID {
			continue
		}
		otherLevel := other.Jurisdiction.Level()

		switch {
		case adjacent[[2]types.JurisdictionLevel{otherLevel, level}]:
			fh.Parents = append(fh.Parents, other.ID)
		case adjacent[[2]types.JurisdictionLevel{level, otherLevel}]:
			fh.Children = append(fh.Children, other.ID)
		case otherLevel == level && sectorRelated(f, other):
			fh.Parents = append(fh.Parents, other.ID)
		case otherLevel == level && specializes(f, other):
			fh.Children = append(fh.Children, other.ID)
		}
	}
	return fh
}

// sectorRelated reports whether other extends f within the same domain:
// their titles share a word and f came into effect first.
func sectorRelated(f, other *types.NormativeFramework) bool {
	if !f.EffectiveDate.Before(other.EffectiveDate) {
		return false
	}
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(f.Title)) {
		words[w] = struct{}{}
	}
	for _, w := range strings.Fields(strings.ToLower(other.Title)) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

// specializes reports whether other's requirement categories are a strict,
// non-empty subset of f's.
func specializes(f, other *types.NormativeFramework) bool {
	mine := f.Categories()
	theirs := other.Categories()
	if len(theirs) == 0 || len(theirs) >= len(mine) {
		return false
	}
	for c := range theirs {
		if _, ok := mine[c]; !ok {
			return false
		}
	}
	return true
}

// precedenceOrder sorts every other framework by level, newest first within
// a level, then by id.
func precedenceOrder(f *types.NormativeFramework, all []*types.NormativeFramework) []uuid.UUID {
	others := make([]*types.NormativeFramework, 0, len(all))
	for _, o := range all {
		if o.ID != f.ID {
			others = append(others, o)
		}
	}

	sort.Slice(others, func(i, j int) bool {
		li, lj := others[i].Jurisdiction.Level(), others[j].Jurisdiction.Level()
		if li != lj {
			return li < lj
		}
		if !others[i].EffectiveDate.Equal(others[j].EffectiveDate) {
			return others[i].EffectiveDate.After(others[j].EffectiveDate)
		}
		return lessID(others[i].ID, others[j].ID)
	})

	order := make([]uuid.UUID, len(others))
	for i, o := range others {
		order[i] = o.ID
	}
	return order
}
