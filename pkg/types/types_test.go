package types

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestJurisdiction_Level(t *testing.T) {
	tests := []struct {
		jurisdiction Jurisdiction
		expected     JurisdictionLevel
	}{
		{JurisdictionInternational, LevelInternational},
		{JurisdictionRegional, LevelRegional},
		{JurisdictionFederal, LevelNational},
		{JurisdictionState, LevelSubnational},
		{JurisdictionLocal, LevelSubnational},
		{JurisdictionSectoral, LevelOrganizational},
		{JurisdictionOrganizational, LevelOrganizational},
		{JurisdictionDepartmental, LevelOrganizational},
	}

	for _, tt := range tests {
		t.Run(string(tt.jurisdiction), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.jurisdiction.Level())
		})
	}

	assert.Less(t, LevelInternational, LevelOrganizational)
	assert.Equal(t, "National", LevelNational.String())
}

func TestEnums_Valid(t *testing.T) {
	assert.Len(t, AllFrameworkTypes(), 10)
	assert.Len(t, AllJurisdictions(), 8)

	assert.True(t, FrameworkTypeDirective.Valid())
	assert.False(t, FrameworkType("memo").Valid())
	assert.True(t, JurisdictionSectoral.Valid())
	assert.False(t, Jurisdiction("galactic").Valid())
	assert.True(t, ConflictTypeScopeAmbiguity.Valid())
	assert.False(t, ConflictType("priority_dispute").Valid())
	assert.True(t, SeverityInformational.Valid())
	assert.False(t, ConflictSeverity("").Valid())
	assert.True(t, StrategyScopeDelineation.Valid())
	assert.False(t, ResolutionStrategy("coin_flip").Valid())
}

func TestNormativeFramework_IsActive(t *testing.T) {
	effective := date(2024, time.January, 1)
	expires := date(2025, time.January, 1)

	f := NewFramework("Data Protection Act", "", FrameworkTypeRegulation, JurisdictionFederal, "Congress", effective)
	f.ExpirationDate = &expires

	assert.False(t, f.IsActive(effective.Add(-time.Nanosecond)), "before effective date")
	assert.True(t, f.IsActive(effective), "effective date is inclusive")
	assert.True(t, f.IsActive(expires.Add(-time.Nanosecond)))
	assert.False(t, f.IsActive(expires), "expiration date is exclusive")
	assert.True(t, f.IsExpired(expires))

	f.Status = "draft"
	assert.False(t, f.IsActive(effective))
}

func TestNormativeFramework_Mutations(t *testing.T) {
	f := NewFramework("Policy", "", FrameworkTypePolicy, JurisdictionOrganizational, "Board", date(2024, 1, 1))
	later := date(2030, 1, 1)

	f.AddTag("privacy", later)
	f.AddTag("privacy", later)
	assert.Equal(t, []string{"privacy"}, f.Tags)
	assert.Equal(t, later, f.UpdatedAt)

	f.AddRequirement(NewRequirement("Encrypt", "", "security", true, 1), later.Add(time.Hour))
	f.AddRequirement(NewRequirement("Log", "", "audit", false, 3), later.Add(time.Hour))
	assert.Equal(t, later.Add(time.Hour), f.UpdatedAt)
	assert.Equal(t, 1, f.MandatoryCount())
	assert.Equal(t, map[string]struct{}{"security": {}, "audit": {}}, f.Categories())
}

func TestNormativeFramework_Validate(t *testing.T) {
	valid := func() *NormativeFramework {
		return NewFramework("GDPR", "", FrameworkTypeRegulation, JurisdictionRegional, "EU", date(2018, 5, 25))
	}

	require.NoError(t, valid().Validate())

	f := valid()
	f.Title = ""
	assert.ErrorIs(t, f.Validate(), ErrEmptyTitle)

	f = valid()
	f.Type = "memo"
	assert.ErrorIs(t, f.Validate(), ErrInvalidType)

	f = valid()
	f.Jurisdiction = "galactic"
	assert.ErrorIs(t, f.Validate(), ErrInvalidJurisdiction)

	f = valid()
	before := f.EffectiveDate.Add(-time.Hour)
	f.ExpirationDate = &before
	assert.ErrorIs(t, f.Validate(), ErrExpiresBeforeStart)

	f = valid()
	f.Requirements = []Requirement{NewRequirement("r", "", "c", true, 6)}
	assert.ErrorIs(t, f.Validate(), ErrInvalidPriority)
}

func TestNormativeFramework_CloneIsDeep(t *testing.T) {
	expires := date(2030, 1, 1)
	f := NewFramework("Standard", "", FrameworkTypeStandard, JurisdictionInternational, "ISO", date(2020, 1, 1))
	f.ExpirationDate = &expires
	f.Tags = []string{"quality"}
	f.Metadata["source"] = "iso.org"
	f.Requirements = []Requirement{{
		ID:         uuid.New(),
		Priority:   2,
		Conditions: []Condition{{Expression: "x", ContextVariables: []string{"v"}}},
	}}

	c := f.Clone()
	require.Equal(t, f, c)

	c.Tags[0] = "changed"
	c.Metadata["source"] = "changed"
	c.Requirements[0].Conditions[0].ContextVariables[0] = "changed"
	*c.ExpirationDate = date(2040, 1, 1)

	assert.Equal(t, "quality", f.Tags[0])
	assert.Equal(t, "iso.org", f.Metadata["source"])
	assert.Equal(t, "v", f.Requirements[0].Conditions[0].ContextVariables[0])
	assert.Equal(t, expires, *f.ExpirationDate)
}

func TestNormativeConflict(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c := NewConflict(ConflictTypeDirectContradiction, SeverityHigh, a, b, "mandatory vs optional")

	assert.Equal(t, []uuid.UUID{a, b}, c.InvolvedFrameworks)
	require.NoError(t, c.Validate())
	assert.False(t, c.IsResolved())

	c.Resolve(StrategyExpertMediation, "escalated", "ops", date(2025, 1, 1))
	assert.True(t, c.IsResolved())

	clone := c.Clone()
	*clone.ResolutionNotes = "changed"
	clone.InvolvedFrameworks[0] = uuid.Nil
	assert.Equal(t, "escalated", *c.ResolutionNotes)
	assert.Equal(t, a, c.InvolvedFrameworks[0])

	self := NewConflict(ConflictTypeScopeAmbiguity, SeverityLow, a, a, "")
	assert.True(t, errors.Is(self.Validate(), ErrSelfConflict))

	bad := NewConflict("priority_dispute", SeverityLow, a, b, "")
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConflictType)
}
