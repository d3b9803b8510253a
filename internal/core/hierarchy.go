package core

// ComponentPath locates a component inside the hierarchy.
type ComponentPath struct {
	Section   Section
	Group     Group
	Component Component
}

// Included reports whether the component contributes to rollups and
// variance: neither it nor its parent group may be disabled.
func (p ComponentPath) Included() bool {
	return !p.Group.Disabled && !p.Component.Disabled
}

// FindComponent walks the hierarchy looking for id.
func FindComponent(sections []Section, id ComponentID) (ComponentPath, bool) {
	for _, s := range sections {
		for _, g := range s.Groups {
			for _, c := range g.Components {
				if c.ID == id {
					return ComponentPath{Section: s, Group: g, Component: c}, true
				}
			}
		}
	}
	return ComponentPath{}, false
}

// ComponentPaths flattens the hierarchy in display order.
func ComponentPaths(sections []Section) []ComponentPath {
	var out []ComponentPath
	for _, s := range sections {
		for _, g := range s.Groups {
			for _, c := range g.Components {
				out = append(out, ComponentPath{Section: s, Group: g, Component: c})
			}
		}
	}
	return out
}

// ValidateHierarchy rejects duplicate ids at any level.
func ValidateHierarchy(sections []Section) error {
	sectionIDs := map[SectionID]bool{}
	groupIDs := map[GroupID]bool{}
	componentIDs := map[ComponentID]bool{}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
		if sectionIDs[s.ID] {
			return ErrDuplicateNode
		}
		sectionIDs[s.ID] = true
		for _, g := range s.Groups {
			if groupIDs[g.ID] {
				return ErrDuplicateNode
			}
			groupIDs[g.ID] = true
			for _, c := range g.Components {
				if componentIDs[c.ID] {
					return ErrDuplicateNode
				}
				componentIDs[c.ID] = true
			}
		}
	}
	return nil
}
