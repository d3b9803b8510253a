package core

import (
	"errors"
	"strings"
)

const (
	Income  SectionKind = "income"
	Expense SectionKind = "expense"

	Budget ValueKind = "budget"
	Actual ValueKind = "actual"
)

type (
	SectionKind string

	// ValueKind selects the planned (PeriodValue) or observed (ActualValue) keyspace.
	ValueKind string

	SectionID   int64
	GroupID     int64
	ComponentID int64

	Section struct {
		ID     SectionID
		Name   string
		Kind   SectionKind
		Groups []Group
	}

	Group struct {
		ID         GroupID
		Name       string
		Disabled   bool
		Components []Component
	}

	Component struct {
		ID       ComponentID
		Name     string
		Disabled bool
	}

	// EntityRef identifies the unit an edit session buffers: one component's
	// twelve months of one year in one keyspace.
	EntityRef struct {
		ComponentID ComponentID
		Year        int
		Kind        ValueKind
	}
)

const (
	MinYear = 1900
	MaxYear = 9999
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidKind   = errors.New("invalid kind")
	ErrMissingField  = errors.New("missing required field")
	ErrEmptyName     = errors.New("empty name")
	ErrNotFound      = errors.New("not found")
	ErrNoHierarchy   = errors.New("hierarchy is empty")
	ErrDuplicateNode = errors.New("duplicate hierarchy id")
)

// IsValidation reports whether err was caused by a malformed request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidYear) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrEmptyName)
}

// IsNotFound reports whether err references an entity absent from the hierarchy.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidMonth reports whether m is a calendar month in [1,12].
func ValidMonth(m int) bool {
	return m >= 1 && m <= 12
}

func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return ErrInvalidYear
	}
	return nil
}

func (k SectionKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (k ValueKind) Validate() error {
	switch k {
	case Budget, Actual:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ParseValueKind maps a query parameter to a keyspace; empty means budget.
func ParseValueKind(s string) (ValueKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Budget, nil
	}
	k := ValueKind(s)
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (r EntityRef) Validate() error {
	if r.ComponentID <= 0 {
		return ErrMissingField
	}
	if err := ValidateYear(r.Year); err != nil {
		return err
	}
	return r.Kind.Validate()
}

func (s Section) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if err := s.Kind.Validate(); err != nil {
		return err
	}
	for _, g := range s.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return ErrEmptyName
		}
		for _, c := range g.Components {
			if strings.TrimSpace(c.Name) == "" {
				return ErrEmptyName
			}
		}
	}
	return nil
}
