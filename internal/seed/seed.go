// Package seed loads the budget hierarchy from a TOML file.
package seed

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"bilancio/internal/core"
)

// FileName is looked up inside DATA_DIR.
const FileName = "hierarchy.toml"

type file struct {
	Sections []section `toml:"section"`
}

type section struct {
	ID     int64   `toml:"id"`
	Name   string  `toml:"name"`
	Kind   string  `toml:"kind"`
	Groups []group `toml:"group"`
}

type group struct {
	ID         int64       `toml:"id"`
	Name       string      `toml:"name"`
	Disabled   bool        `toml:"disabled"`
	Components []component `toml:"component"`
}

type component struct {
	ID       int64  `toml:"id"`
	Name     string `toml:"name"`
	Disabled bool   `toml:"disabled"`
}

// Parse decodes and validates a hierarchy document.
func Parse(data []byte) ([]core.Section, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode hierarchy: %w", err)
	}
	if len(f.Sections) == 0 {
		return nil, core.ErrNoHierarchy
	}

	out := make([]core.Section, 0, len(f.Sections))
	for _, s := range f.Sections {
		sec := core.Section{
			ID:   core.SectionID(s.ID),
			Name: s.Name,
			Kind: core.SectionKind(s.Kind),
		}
		for _, g := range s.Groups {
			grp := core.Group{ID: core.GroupID(g.ID), Name: g.Name, Disabled: g.Disabled}
			for _, c := range g.Components {
				grp.Components = append(grp.Components, core.Component{
					ID:       core.ComponentID(c.ID),
					Name:     c.Name,
					Disabled: c.Disabled,
				})
			}
			sec.Groups = append(sec.Groups, grp)
		}
		out = append(out, sec)
	}

	if err := core.ValidateHierarchy(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Load reads path. A missing file yields Default().
func Load(path string) ([]core.Section, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Default is a minimal household hierarchy used when no seed file exists.
func Default() []core.Section {
	return []core.Section{
		{ID: 1, Name: "Entrate", Kind: core.Income, Groups: []core.Group{
			{ID: 10, Name: "Lavoro", Components: []core.Component{
				{ID: 100, Name: "Stipendio"},
			}},
		}},
		{ID: 2, Name: "Uscite", Kind: core.Expense, Groups: []core.Group{
			{ID: 20, Name: "Casa", Components: []core.Component{
				{ID: 200, Name: "Affitto"},
				{ID: 201, Name: "Bollette"},
			}},
			{ID: 21, Name: "Spesa", Components: []core.Component{
				{ID: 210, Name: "Supermercato"},
			}},
		}},
	}
}
