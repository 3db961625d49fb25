package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatusActive is the only status under which a framework can be in force.
const StatusActive = "active"

// NormativeFramework is a regulation, policy, standard or similar rule set.
type NormativeFramework struct {
	ID             uuid.UUID         `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Type           FrameworkType     `json:"type"`
	Jurisdiction   Jurisdiction      `json:"jurisdiction"`
	Authority      string            `json:"authority"`
	EffectiveDate  time.Time         `json:"effective_date"`
	ExpirationDate *time.Time        `json:"expiration_date,omitempty"`
	Version        string            `json:"version"`
	Status         string            `json:"status"`
	Tags           []string          `json:"tags,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Requirements   []Requirement     `json:"requirements,omitempty"`
	Dependencies   []uuid.UUID       `json:"dependencies,omitempty"`
	Supersedes     []uuid.UUID       `json:"supersedes,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Requirement is a single obligation owned by its framework.
type Requirement struct {
	ID               uuid.UUID        `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Mandatory        bool             `json:"mandatory"`
	Conditions       []Condition      `json:"conditions,omitempty"`
	Exceptions       []Exception      `json:"exceptions,omitempty"`
	EvidenceRequired []string         `json:"evidence_required,omitempty"`
	ValidationRules  []ValidationRule `json:"validation_rules,omitempty"`
	Priority         uint8            `json:"priority"`
	Category         string           `json:"category"`
}

// Condition gates when a requirement applies.
type Condition struct {
	ID               uuid.UUID `json:"id"`
	Description      string    `json:"description"`
	Expression       string    `json:"expression"`
	ContextVariables []string  `json:"context_variables,omitempty"`
}

// Exception carves a scope out of a requirement.
type Exception struct {
	ID          uuid.UUID   `json:"id"`
	Description string      `json:"description"`
	Conditions  []Condition `json:"conditions,omitempty"`
	Scope       string      `json:"scope"`
	ValidUntil  *time.Time  `json:"valid_until,omitempty"`
}

// ValidationRule describes how compliance with a requirement is checked.
type ValidationRule struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	RuleType     string    `json:"rule_type"`
	Expression   string    `json:"expression"`
	ErrorMessage string    `json:"error_message"`
	Severity     string    `json:"severity"`
}

// NewFramework creates an active framework with a fresh id.
func NewFramework(title, description string, ft FrameworkType, jurisdiction Jurisdiction, authority string, effective time.Time) *NormativeFramework {
	now := time.Now().UTC()
	return &NormativeFramework{
		ID:            uuid.New(),
		Title:         title,
		Description:   description,
		Type:          ft,
		Jurisdiction:  jurisdiction,
		Authority:     authority,
		EffectiveDate: effective,
		Version:       "1.0",
		Status:        StatusActive,
		Tags:          []string{},
		Metadata:      map[string]string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewRequirement creates a requirement with a fresh id.
func NewRequirement(title, description, category string, mandatory bool, priority uint8) Requirement {
	return Requirement{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Mandatory:   mandatory,
		Priority:    priority,
		Category:    category,
	}
}

// IsActive reports whether the framework is in force at now.
// Effective date is inclusive, expiration exclusive.
func (f *NormativeFramework) IsActive(now time.Time) bool {
	if now.Before(f.EffectiveDate) {
		return false
	}
	if f.ExpirationDate != nil && !now.Before(*f.ExpirationDate) {
		return false
	}
	return f.Status == StatusActive
}

// IsExpired reports whether the expiration date has been reached.
func (f *NormativeFramework) IsExpired(now time.Time) bool {
	return f.ExpirationDate != nil && !now.Before(*f.ExpirationDate)
}

// Touch refreshes UpdatedAt. Every mutation must call it.
func (f *NormativeFramework) Touch(now time.Time) {
	f.UpdatedAt = now
}

// AddRequirement appends a requirement and refreshes UpdatedAt.
func (f *NormativeFramework) AddRequirement(r Requirement, now time.Time) {
	f.Requirements = append(f.Requirements, r)
	f.Touch(now)
}

// AddTag appends a tag if not already present and refreshes UpdatedAt.
func (f *NormativeFramework) AddTag(tag string, now time.Time) {
	if f.HasTag(tag) {
		return
	}
	f.Tags = append(f.Tags, tag)
	f.Touch(now)
}

// HasTag reports whether the framework carries tag.
func (f *NormativeFramework) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Categories returns the set of requirement categories.
func (f *NormativeFramework) Categories() map[string]struct{} {
	set := make(map[string]struct{}, len(f.Requirements))
	for _, r := range f.Requirements {
		set[r.Category] = struct{}{}
	}
	return set
}

// MandatoryCount returns how many requirements are mandatory.
func (f *NormativeFramework) MandatoryCount() int {
	n := 0
	for _, r := range f.Requirements {
		if r.Mandatory {
			n++
		}
	}
	return n
}

// Validate checks the invariants a framework must satisfy before storage.
func (f *NormativeFramework) Validate() error {
	if f.Title == "" {
		return ErrEmptyTitle
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, f.Type)
	}
	if !f.Jurisdiction.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJurisdiction, f.Jurisdiction)
	}
	if f.ExpirationDate != nil && !f.ExpirationDate.After(f.EffectiveDate) {
		return ErrExpiresBeforeStart
	}
	for i := range f.Requirements {
		if err := f.Requirements[i].Validate(); err != nil {
			return fmt.Errorf("requirement %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks the requirement priority range.
func (r *Requirement) Validate() error {
	if r.Priority < 1 || r.Priority > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidPriority, r.Priority)
	}
	return nil
}

// Clone returns a deep copy so callers never share slices or maps with the store.
func (f *NormativeFramework) Clone() *NormativeFramework {
	c := *f
	c.ExpirationDate = cloneTime(f.ExpirationDate)
	c.Tags = cloneSlice(f.Tags)
	c.Dependencies = cloneSlice(f.Dependencies)
	c.Supersedes = cloneSlice(f.Supersedes)
	if f.Metadata != nil {
		c.Metadata = make(map[string]string, len(f.Metadata))
		for k, v := range f.Metadata {
			c.Metadata[k] = v
		}
	}
	if f.Requirements != nil {
		c.Requirements = make([]Requirement, len(f.Requirements))
		for i := range f.Requirements {
			c.Requirements[i] = f.Requirements[i].clone()
		}
	}
	return &c
}

func (r Requirement) clone() Requirement {
	c := r
	c.EvidenceRequired = cloneSlice(r.EvidenceRequired)
	c.ValidationRules = cloneSlice(r.ValidationRules)
	c.Conditions = cloneConditions(r.Conditions)
	if r.Exceptions != nil {
		c.Exceptions = make([]Exception, len(r.Exceptions))
		for i, e := range r.Exceptions {
			e.Conditions = cloneConditions(e.Conditions)
			e.ValidUntil = cloneTime(e.ValidUntil)
			c.Exceptions[i] = e
		}
	}
	return c
}

func cloneConditions(in []Condition) []Condition {
	if in == nil {
		return nil
	}
	out := make([]Condition, len(in))
	for i, c := range in {
		c.ContextVariables = cloneSlice(c.ContextVariables)
		out[i] = c
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
