// Package types provides the core data structures of the normative engine:
// frameworks, their requirements, and the conflicts detected between them.
package types

import (
	"errors"
	"fmt"
)

// FrameworkType classifies the kind of normative instrument.
type FrameworkType string

const (
	FrameworkTypeRegulation FrameworkType = "regulation"
	FrameworkTypePolicy     FrameworkType = "policy"
	FrameworkTypeStandard   FrameworkType = "standard"
	FrameworkTypeGuideline  FrameworkType = "guideline"
	FrameworkTypeProcedure  FrameworkType = "procedure"
	FrameworkTypeProtocol   FrameworkType = "protocol"
	FrameworkTypeFramework  FrameworkType = "framework"
	FrameworkTypePrinciple  FrameworkType = "principle"
	FrameworkTypeRule       FrameworkType = "rule"
	FrameworkTypeDirective  FrameworkType = "directive"
)

// AllFrameworkTypes returns every framework type in declaration order.
func AllFrameworkTypes() []FrameworkType {
	return []FrameworkType{
		FrameworkTypeRegulation, FrameworkTypePolicy, FrameworkTypeStandard,
		FrameworkTypeGuideline, FrameworkTypeProcedure, FrameworkTypeProtocol,
		FrameworkTypeFramework, FrameworkTypePrinciple, FrameworkTypeRule,
		FrameworkTypeDirective,
	}
}

// Valid returns true if the framework type is known
func (ft FrameworkType) Valid() bool {
	for _, t := range AllFrameworkTypes() {
		if ft == t {
			return true
		}
	}
	return false
}

// Jurisdiction is the scope of authority a framework is issued under.
type Jurisdiction string

const (
	JurisdictionInternational  Jurisdiction = "international"
	JurisdictionFederal        Jurisdiction = "federal"
	JurisdictionState          Jurisdiction = "state"
	JurisdictionRegional       Jurisdiction = "regional"
	JurisdictionLocal          Jurisdiction = "local"
	JurisdictionSectoral       Jurisdiction = "sectoral"
	JurisdictionOrganizational Jurisdiction = "organizational"
	JurisdictionDepartmental   Jurisdiction = "departmental"
)

// AllJurisdictions returns every jurisdiction in declaration order.
func AllJurisdictions() []Jurisdiction {
	return []Jurisdiction{
		JurisdictionInternational, JurisdictionFederal, JurisdictionState,
		JurisdictionRegional, JurisdictionLocal, JurisdictionSectoral,
		JurisdictionOrganizational, JurisdictionDepartmental,
	}
}

// Valid returns true if the jurisdiction is known
func (j Jurisdiction) Valid() bool {
	for _, v := range AllJurisdictions() {
		if j == v {
			return true
		}
	}
	return false
}

// Level maps a jurisdiction onto the five-step authority order.
// Unknown values sort last.
func (j Jurisdiction) Level() JurisdictionLevel {
	switch j {
	case JurisdictionInternational:
		return LevelInternational
	case JurisdictionRegional:
		return LevelRegional
	case JurisdictionFederal:
		return LevelNational
	case JurisdictionState, JurisdictionLocal:
		return LevelSubnational
	default:
		return LevelOrganizational
	}
}

// JurisdictionLevel orders jurisdictions by authority; lower values govern.
type JurisdictionLevel int

const (
	LevelInternational JurisdictionLevel = iota
	LevelRegional
	LevelNational
	LevelSubnational
	LevelOrganizational
)

func (l JurisdictionLevel) String() string {
	switch l {
	case LevelInternational:
		return "International"
	case LevelRegional:
		return "Regional"
	case LevelNational:
		return "National"
	case LevelSubnational:
		return "Subnational"
	case LevelOrganizational:
		return "Organizational"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Validation errors returned by Validate methods.
var (
	ErrEmptyTitle          = errors.New("title cannot be empty")
	ErrInvalidType         = errors.New("invalid framework type")
	ErrInvalidJurisdiction = errors.New("invalid jurisdiction")
	ErrInvalidPriority     = errors.New("requirement priority must be between 1 and 5")
	ErrExpiresBeforeStart  = errors.New("expiration date must be after effective date")
	ErrInvalidConflictType = errors.New("invalid conflict type")
	ErrInvalidSeverity     = errors.New("invalid conflict severity")
	ErrSelfConflict        = errors.New("a conflict needs two distinct frameworks")
)
