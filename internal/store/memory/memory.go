// Package memory is a process-local core.Persistence used for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/seed"
)

type valueKey struct {
	kind core.ValueKind
	id   core.ComponentID
	year int
}

type noteKey struct {
	id   core.ComponentID
	year int
}

type Store struct {
	mu        sync.RWMutex
	hierarchy []core.Section
	values    map[valueKey]core.Months
	notes     map[noteKey]core.MonthNotes
	anchor    *core.CashflowAnchor
	cutoff    *core.ActualsCutoff
}

func New(hierarchy []core.Section) *Store {
	return &Store{
		hierarchy: hierarchy,
		values:    make(map[valueKey]core.Months),
		notes:     make(map[noteKey]core.MonthNotes),
	}
}

// NewFromFiles seeds the hierarchy from base/hierarchy.toml, falling back
// to the built-in default when the file is missing.
func NewFromFiles(base string) (*Store, error) {
	sections, err := seed.Load(filepath.Join(base, seed.FileName))
	if err != nil {
		return nil, err
	}
	return New(sections), nil
}

func (s *Store) Hierarchy(_ context.Context) ([]core.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHierarchy(s.hierarchy), nil
}

// SeedHierarchy replaces the hierarchy; stored values are kept.
func (s *Store) SeedHierarchy(_ context.Context, sections []core.Section) error {
	if err := core.ValidateHierarchy(sections); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hierarchy = cloneHierarchy(sections)
	return nil
}

func (s *Store) Values(_ context.Context, kind core.ValueKind, year int) (map[core.ComponentID]core.Months, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.ComponentID]core.Months)
	for k, m := range s.values {
		if k.kind == kind && k.year == year {
			out[k.id] = m
		}
	}
	return out, nil
}

func (s *Store) UpsertValues(_ context.Context, kind core.ValueKind, id core.ComponentID, year int, values map[int]decimal.Decimal) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if err := core.ValidateYear(year); err != nil {
		return err
	}
	if err := core.ValidateMonthKeys(values); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := core.FindComponent(s.hierarchy, id); !ok {
		return fmt.Errorf("component %d: %w", id, core.ErrNotFound)
	}
	key := valueKey{kind: kind, id: id, year: year}
	m := s.values[key]
	for month, v := range values {
		m[month-1] = v
	}
	s.values[key] = m
	return nil
}

func (s *Store) Notes(_ context.Context, year int) (map[core.ComponentID]core.MonthNotes, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.ComponentID]core.MonthNotes)
	for k, n := range s.notes {
		if k.year == year {
			out[k.id] = n
		}
	}
	return out, nil
}

func (s *Store) UpsertNotes(_ context.Context, id core.ComponentID, year int, notes map[int]string) error {
	if err := core.ValidateYear(year); err != nil {
		return err
	}
	if err := core.ValidateMonthKeys(notes); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := core.FindComponent(s.hierarchy, id); !ok {
		return fmt.Errorf("component %d: %w", id, core.ErrNotFound)
	}
	key := noteKey{id: id, year: year}
	n := s.notes[key]
	for month, text := range notes {
		n[month-1] = core.NormalizeNote(text)
	}
	if n == (core.MonthNotes{}) {
		delete(s.notes, key)
		return nil
	}
	s.notes[key] = n
	return nil
}

func (s *Store) CashflowAnchor(_ context.Context) (core.CashflowAnchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.anchor == nil {
		return core.DefaultCashflowAnchor(), nil
	}
	return *s.anchor, nil
}

func (s *Store) SetCashflowAnchor(_ context.Context, a core.CashflowAnchor) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchor = &a
	return nil
}

func (s *Store) ActualsCutoff(_ context.Context) (core.ActualsCutoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cutoff == nil {
		return core.DefaultActualsCutoff(), nil
	}
	return *s.cutoff, nil
}

func (s *Store) SetActualsCutoff(_ context.Context, c core.ActualsCutoff) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoff = &c
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cloneHierarchy(in []core.Section) []core.Section {
	out := make([]core.Section, len(in))
	for i, sec := range in {
		out[i] = sec
		out[i].Groups = make([]core.Group, len(sec.Groups))
		for j, g := range sec.Groups {
			out[i].Groups[j] = g
			out[i].Groups[j].Components = append([]core.Component(nil), g.Components...)
		}
	}
	return out
}
