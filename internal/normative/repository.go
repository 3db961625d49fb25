// Package normative holds the framework store with its inverted index, the
// jurisdiction hierarchy, and per-framework analysis.
package normative

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/internal/keywords"
	"lerian-normative-engine/internal/logging"
	"lerian-normative-engine/pkg/types"
)

// Index key prefixes. Bare keywords carry no prefix.
const (
	keyJurisdiction = "jurisdiction:"
	keyType         = "type:"
	keyAuthority    = "authority:"
	keyTag          = "tag:"
)

// DefaultOverlapThreshold is the description similarity above which two
// same-jurisdiction frameworks are reported as potentially conflicting.
const DefaultOverlapThreshold = 0.3

// SearchResult is a ranked search hit.
type SearchResult struct {
	Framework *types.NormativeFramework `json:"framework"`
	Relevance float64                   `json:"relevance"`
}

// Statistics summarizes the stored corpus.
type Statistics struct {
	Total          int                         `json:"total_frameworks"`
	Active         int                         `json:"active_frameworks"`
	ByType         map[types.FrameworkType]int `json:"by_type"`
	ByJurisdiction map[types.Jurisdiction]int  `json:"by_jurisdiction"`
}

// Repository is an in-memory framework store with an inverted index.
// A single lock guards both maps so readers never observe them out of step.
type Repository struct {
	mu         sync.RWMutex
	frameworks map[uuid.UUID]*types.NormativeFramework
	index      map[string]map[uuid.UUID]struct{}

	overlapThreshold float64
	now              func() time.Time
	logger           logging.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for activity checks and updates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithLogger sets the repository logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Repository) { r.logger = logger.WithComponent("repository") }
}

// WithOverlapThreshold sets the similarity cut-off for ConflictingFrameworks.
func WithOverlapThreshold(threshold float64) Option {
	return func(r *Repository) { r.overlapThreshold = threshold }
}

// NewRepository creates an empty repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		frameworks:       make(map[uuid.UUID]*types.NormativeFramework),
		index:            make(map[string]map[uuid.UUID]struct{}),
		overlapThreshold: DefaultOverlapThreshold,
		now:              func() time.Time { return time.Now().UTC() },
		logger:           logging.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store inserts or overwrites a framework by id and re-indexes it.
func (r *Repository) Store(f *types.NormativeFramework) error {
	if err := validate(f); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(f.Clone())
	r.logger.Debug("Framework stored", "id", f.ID.String(), "title", f.Title)
	return nil
}

// Get returns a copy of the framework, or false when absent.
func (r *Repository) Get(id uuid.UUID) (*types.NormativeFramework, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.frameworks[id]
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// List returns copies of every framework ordered by id.
func (r *Repository) List() []*types.NormativeFramework {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(*types.NormativeFramework) bool { return true })
}

// GetActive returns copies of the frameworks in force now, ordered by id.
func (r *Repository) GetActive() []*types.NormativeFramework {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	return r.collect(func(f *types.NormativeFramework) bool { return f.IsActive(now) })
}

// Update replaces an existing framework. It fails with NotFound when the id
// is unknown and never inserts in that case. CreatedAt is preserved and
// UpdatedAt refreshed.
func (r *Repository) Update(f *types.NormativeFramework) error {
	if err := validate(f); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.frameworks[f.ID]
	if !ok {
		r.logger.Warn("Update of unknown framework rejected", "id", f.ID.String())
		return errors.NewNotFoundError("framework", f.ID.String())
	}

	updated := f.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.Touch(r.now())
	r.put(updated)

	r.logger.Debug("Framework updated", "id", f.ID.String())
	return nil
}

// Delete removes a framework and its index entries.
func (r *Repository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.frameworks[id]
	if !ok {
		return errors.NewNotFoundError("framework", id.String())
	}
	r.unindex(existing)
	delete(r.frameworks, id)

	r.logger.Debug("Framework deleted", "id", id.String())
	return nil
}

// Search ranks frameworks by the share of query keywords they contain.
// Candidates come from the keyword buckets; ties are ordered by id.
func (r *Repository) Search(query string) []SearchResult {
	terms := keywords.Unique(query)
	if len(terms) == 0 {
		return []SearchResult{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make(map[uuid.UUID]struct{})
	for _, term := range terms {
		for id := range r.index[term] {
			candidates[id] = struct{}{}
		}
	}

	results := make([]SearchResult, 0, len(candidates))
	for id := range candidates {
		f, ok := r.frameworks[id]
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Framework: f.Clone(),
			Relevance: relevance(f, terms),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return lessID(results[i].Framework.ID, results[j].Framework.ID)
	})
	return results
}

// ByJurisdiction returns the frameworks issued under j.
func (r *Repository) ByJurisdiction(j types.Jurisdiction) []*types.NormativeFramework {
	return r.facet(keyJurisdiction + string(j))
}

// ByType returns the frameworks of type t.
func (r *Repository) ByType(t types.FrameworkType) []*types.NormativeFramework {
	return r.facet(keyType + string(t))
}

// ByTag returns the frameworks carrying tag, compared after normalization.
func (r *Repository) ByTag(tag string) []*types.NormativeFramework {
	return r.facet(keyTag + keywords.Normalize(tag))
}

// ByAuthority returns the frameworks issued by authority.
func (r *Repository) ByAuthority(authority string) []*types.NormativeFramework {
	return r.facet(keyAuthority + keywords.Normalize(authority))
}

// ConflictingFrameworks returns every other framework in the same
// jurisdiction whose description overlaps with the target's, or that shares
// at least one tag with it.
func (r *Repository) ConflictingFrameworks(id uuid.UUID) ([]*types.NormativeFramework, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target, ok := r.frameworks[id]
	if !ok {
		return nil, errors.NewNotFoundError("framework", id.String())
	}

	targetWords := keywords.NewSet(target.Description)
	targetTags := keywords.StringSet(target.Tags)

	return r.collect(func(f *types.NormativeFramework) bool {
		if f.ID == id || f.Jurisdiction != target.Jurisdiction {
			return false
		}
		if keywords.Jaccard(targetWords, keywords.NewSet(f.Description)) > r.overlapThreshold {
			return true
		}
		for _, tag := range f.Tags {
			if _, shared := targetTags[tag]; shared {
				return true
			}
		}
		return false
	}), nil
}

// Statistics counts frameworks overall, active, per type and per jurisdiction.
func (r *Repository) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	stats := Statistics{
		Total:          len(r.frameworks),
		ByType:         make(map[types.FrameworkType]int),
		ByJurisdiction: make(map[types.Jurisdiction]int),
	}
	for _, f := range r.frameworks {
		if f.IsActive(now) {
			stats.Active++
		}
		stats.ByType[f.Type]++
		stats.ByJurisdiction[f.Jurisdiction]++
	}
	return stats
}

// Len returns the number of stored frameworks.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frameworks)
}

// ExportAll returns copies of every framework.
func (r *Repository) ExportAll() []*types.NormativeFramework {
	return r.List()
}

// ImportFrameworks stores each framework, skipping invalid ones, and returns
// how many were stored.
func (r *Repository) ImportFrameworks(frameworks []*types.NormativeFramework) int {
	imported := 0
	for i, f := range frameworks {
		if err := r.Store(f); err != nil {
			r.logger.Warn("Skipping framework on import", "position", i, "error", err.Error())
			continue
		}
		imported++
	}
	r.logger.Info("Frameworks imported", "imported", imported, "submitted", len(frameworks))
	return imported
}

// Compact drops expired frameworks and rebuilds the index from scratch.
// It returns the number of frameworks removed.
func (r *Repository) Compact() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, f := range r.frameworks {
		if f.IsExpired(now) {
			delete(r.frameworks, id)
			removed++
		}
	}

	r.index = make(map[string]map[uuid.UUID]struct{})
	for _, f := range r.frameworks {
		r.indexFramework(f)
	}

	r.logger.Info("Repository compacted", "removed", removed, "remaining", len(r.frameworks))
	return removed
}

// put replaces any previous version of f, index included. Caller holds mu.
func (r *Repository) put(f *types.NormativeFramework) {
	if old, ok := r.frameworks[f.ID]; ok {
		r.unindex(old)
	}
	r.frameworks[f.ID] = f
	r.indexFramework(f)
}

func (r *Repository) indexFramework(f *types.NormativeFramework) {
	for _, key := range indexKeys(f) {
		bucket, ok := r.index[key]
		if !ok {
			bucket = make(map[uuid.UUID]struct{})
			r.index[key] = bucket
		}
		bucket[f.ID] = struct{}{}
	}
}

func (r *Repository) unindex(f *types.NormativeFramework) {
	for _, key := range indexKeys(f) {
		bucket := r.index[key]
		delete(bucket, f.ID)
		if len(bucket) == 0 {
			delete(r.index, key)
		}
	}
}

func (r *Repository) facet(key string) []*types.NormativeFramework {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.index[key]
	out := make([]*types.NormativeFramework, 0, len(bucket))
	for id := range bucket {
		if f, ok := r.frameworks[id]; ok {
			out = append(out, f.Clone())
		}
	}
	sortByID(out)
	return out
}

// collect returns sorted copies of the frameworks matching keep. Caller holds mu.
func (r *Repository) collect(keep func(*types.NormativeFramework) bool) []*types.NormativeFramework {
	out := make([]*types.NormativeFramework, 0, len(r.frameworks))
	for _, f := range r.frameworks {
		if keep(f) {
			out = append(out, f.Clone())
		}
	}
	sortByID(out)
	return out
}

func indexKeys(f *types.NormativeFramework) []string {
	keys := keywords.Unique(f.Title + " " + f.Description)
	keys = append(keys,
		keyJurisdiction+string(f.Jurisdiction),
		keyType+string(f.Type),
		keyAuthority+keywords.Normalize(f.Authority),
	)
	for _, tag := range f.Tags {
		keys = append(keys, keyTag+keywords.Normalize(tag))
	}
	return keys
}

func relevance(f *types.NormativeFramework, terms []string) float64 {
	own := keywords.NewSet(f.Title + " " + f.Description + " " + strings.Join(f.Tags, " "))
	matches := 0
	for _, term := range terms {
		if own.Contains(term) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}

func validate(f *types.NormativeFramework) error {
	if f == nil {
		return errors.NewRequiredFieldError("framework")
	}
	if err := f.Validate(); err != nil {
		return errors.NewValidationError("framework", err.Error(), f.ID.String())
	}
	return nil
}

func lessID(a, b uuid.UUID) bool {
	return a.String() < b.String()
}

func sortByID(fs []*types.NormativeFramework) {
	sort.Slice(fs, func(i, j int) bool { return lessID(fs[i].ID, fs[j].ID) })
}
