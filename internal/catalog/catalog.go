// Package catalog loads framework definitions from YAML documents.
//
// A document lists frameworks under a top-level "frameworks" key. Ids are
// optional and generated when absent; a framework may instead carry a "key"
// that other entries use in their dependencies and supersedes lists.
package catalog

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/pkg/types"
)

// Document is the decoded form of a catalogue file.
type Document struct {
	Frameworks []FrameworkSpec `mapstructure:"frameworks"`
}

// FrameworkSpec describes one framework.
type FrameworkSpec struct {
	Key            string              `mapstructure:"key"`
	ID             uuid.UUID           `mapstructure:"id"`
	Title          string              `mapstructure:"title"`
	Description    string              `mapstructure:"description"`
	Type           types.FrameworkType `mapstructure:"type"`
	Jurisdiction   types.Jurisdiction  `mapstructure:"jurisdiction"`
	Authority      string              `mapstructure:"authority"`
	EffectiveDate  time.Time           `mapstructure:"effective_date"`
	ExpirationDate *time.Time          `mapstructure:"expiration_date"`
	Version        string              `mapstructure:"version"`
	Status         string              `mapstructure:"status"`
	Tags           []string            `mapstructure:"tags"`
	Metadata       map[string]string   `mapstructure:"metadata"`
	Requirements   []RequirementSpec   `mapstructure:"requirements"`
	Dependencies   []string            `mapstructure:"dependencies"`
	Supersedes     []string            `mapstructure:"supersedes"`
}

// RequirementSpec describes one requirement. Conditions are expressions.
type RequirementSpec struct {
	ID               uuid.UUID `mapstructure:"id"`
	Title            string    `mapstructure:"title"`
	Description      string    `mapstructure:"description"`
	Category         string    `mapstructure:"category"`
	Mandatory        bool      `mapstructure:"mandatory"`
	Priority         uint8     `mapstructure:"priority"`
	Conditions       []string  `mapstructure:"conditions"`
	EvidenceRequired []string  `mapstructure:"evidence_required"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Load reads and parses a catalogue file.
func Load(path string) ([]*types.NormativeFramework, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewEnhancedError(err, "catalog", "load").WithMetadata("path", path)
	}
	return Parse(data)
}

// Parse decodes a catalogue document and builds validated frameworks in
// document order.
func Parse(data []byte) ([]*types.NormativeFramework, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

// Decode turns YAML into a Document. Unknown fields are rejected.
func Decode(data []byte) (*Document, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewValidationError("catalog", fmt.Sprintf("invalid YAML: %v", err), nil)
	}

	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		TagName:     "mapstructure",
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to create decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.NewValidationError("catalog", err.Error(), nil)
	}
	return &doc, nil
}

// stringToTimeHook accepts RFC 3339 timestamps and plain dates, which YAML
// leaves as strings when decoding into untyped values.
func stringToTimeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", s)
}

// Build converts the document into frameworks, assigning missing ids and
// resolving key references.
func (d *Document) Build() ([]*types.NormativeFramework, error) {
	refs := make(map[string]uuid.UUID, len(d.Frameworks))
	ids := make([]uuid.UUID, len(d.Frameworks))
	for i, spec := range d.Frameworks {
		id := spec.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ids[i] = id
		if spec.Key == "" {
			continue
		}
		if _, dup := refs[spec.Key]; dup {
			return nil, errors.NewValidationError("key", "duplicate framework key", spec.Key)
		}
		refs[spec.Key] = id
	}

	out := make([]*types.NormativeFramework, 0, len(d.Frameworks))
	for i, spec := range d.Frameworks {
		f, err := spec.build(ids[i], refs)
		if err != nil {
			return nil, err
		}
		if err := f.Validate(); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("frameworks[%d]", i), err.Error(), spec.Title)
		}
		out = append(out, f)
	}
	return out, nil
}

func (s FrameworkSpec) build(id uuid.UUID, refs map[string]uuid.UUID) (*types.NormativeFramework, error) {
	f := types.NewFramework(s.Title, s.Description, s.Type, s.Jurisdiction, s.Authority, s.EffectiveDate)
	f.ID = id
	if s.ExpirationDate != nil {
		exp := *s.ExpirationDate
		f.ExpirationDate = &exp
	}
	if s.Version != "" {
		f.Version = s.Version
	}
	if s.Status != "" {
		f.Status = s.Status
	}
	f.Tags = append(f.Tags, s.Tags...)
	for k, v := range s.Metadata {
		f.Metadata[k] = v
	}

	for _, rs := range s.Requirements {
		r := types.NewRequirement(rs.Title, rs.Description, rs.Category, rs.Mandatory, rs.Priority)
		if rs.ID != uuid.Nil {
			r.ID = rs.ID
		}
		for _, expr := range rs.Conditions {
			r.Conditions = append(r.Conditions, types.Condition{ID: uuid.New(), Description: expr, Expression: expr})
		}
		r.EvidenceRequired = append(r.EvidenceRequired, rs.EvidenceRequired...)
		f.Requirements = append(f.Requirements, r)
	}

	var err error
	if f.Dependencies, err = resolveRefs("dependencies", s.Dependencies, refs); err != nil {
		return nil, err
	}
	if f.Supersedes, err = resolveRefs("supersedes", s.Supersedes, refs); err != nil {
		return nil, err
	}
	return f, nil
}

// resolveRefs maps each reference, a document key or a literal UUID, to an id.
func resolveRefs(field string, in []string, refs map[string]uuid.UUID) ([]uuid.UUID, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(in))
	for _, ref := range in {
		if id, ok := refs[ref]; ok {
			out = append(out, id)
			continue
		}
		id, err := uuid.Parse(ref)
		if err != nil {
			return nil, errors.NewValidationError(field, "unknown framework reference", ref)
		}
		out = append(out, id)
	}
	return out, nil
}
