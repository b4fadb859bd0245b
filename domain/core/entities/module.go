package entities

// ModuleDefinition is an immutable catalog entry. IDs are unique across the
// whole catalog.
type ModuleDefinition struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Name    string `json:"name" yaml:"name" validate:"required"`
	Icon    string `json:"icon" yaml:"icon"`
	Version string `json:"version" yaml:"version"`
}

// Category groups modules in the sidebar. Every category doubles as a
// section of the canvas with the same id and title.
type Category struct {
	ID    string             `json:"id" yaml:"id" validate:"required"`
	Name  string             `json:"name" yaml:"name" validate:"required"`
	Icon  string             `json:"icon" yaml:"icon"`
	Items []ModuleDefinition `json:"items" yaml:"items" validate:"dive"`
}

// Clone returns a copy that does not share the items slice.
func (c Category) Clone() Category {
	out := c
	out.Items = append([]ModuleDefinition(nil), c.Items...)
	return out
}

// HasModule reports whether the category lists moduleID.
func (c Category) HasModule(moduleID string) bool {
	for _, m := range c.Items {
		if m.ID == moduleID {
			return true
		}
	}
	return false
}

// PlacedModule is a module held by a section. Its id is unique within the
// section but may repeat across sections.
type PlacedModule = ModuleDefinition
