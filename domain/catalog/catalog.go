// Package catalog holds the static registry of deployable modules and the
// categories they are grouped in. Every category is also a canvas section.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"deployboard/domain/core/entities"
	"deployboard/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Section is the canvas view of a category.
type Section struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Icon            string `json:"icon"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// Catalog is an immutable, ordered set of categories.
type Catalog struct {
	categories []entities.Category
	colors     map[string]string
	byCategory map[string]int
}

type fileFormat struct {
	Categories []struct {
		entities.Category `yaml:",inline"`
		Color             string `yaml:"color"`
	} `yaml:"categories"`
}

// New validates the categories and builds a catalog. Module ids must be
// unique across the whole catalog.
func New(categories []entities.Category, colors map[string]string) (*Catalog, error) {
	c := &Catalog{
		categories: make([]entities.Category, 0, len(categories)),
		colors:     make(map[string]string, len(colors)),
		byCategory: make(map[string]int, len(categories)),
	}
	seen := make(map[string]string)
	for _, cat := range categories {
		if err := utils.ValidateStruct(cat); err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.ID, err)
		}
		if _, dup := c.byCategory[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}
		for _, m := range cat.Items {
			if owner, dup := seen[m.ID]; dup {
				return nil, fmt.Errorf("module id %q listed in both %q and %q", m.ID, owner, cat.ID)
			}
			seen[m.ID] = cat.ID
		}
		c.byCategory[cat.ID] = len(c.categories)
		c.categories = append(c.categories, cat.Clone())
	}
	for k, v := range colors {
		c.colors[k] = v
	}
	return c, nil
}

// LoadFile reads a YAML catalog of the form
//
//	categories:
//	  - id: database
//	    name: 数据存储
//	    icon: database
//	    color: "#EFF6FF"
//	    items:
//	      - {id: redis, name: Redis, icon: database, version: "6.2"}
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	cats := make([]entities.Category, 0, len(f.Categories))
	colors := make(map[string]string)
	for _, fc := range f.Categories {
		cats = append(cats, fc.Category)
		if fc.Color != "" {
			colors[fc.ID] = fc.Color
		}
	}
	return New(cats, colors)
}

// Categories returns a copy of the categories in display order.
func (c *Catalog) Categories() []entities.Category {
	out := make([]entities.Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cat.Clone()
	}
	return out
}

// Category returns the category with the given id.
func (c *Catalog) Category(id string) (entities.Category, bool) {
	i, ok := c.byCategory[id]
	if !ok {
		return entities.Category{}, false
	}
	return c.categories[i].Clone(), true
}

// Sections returns the canvas sections, one per category, in order.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Section{ID: cat.ID, Title: cat.Name, Icon: cat.Icon, BackgroundColor: c.colors[cat.ID]}
	}
	return out
}

// Section returns the section with the given id.
func (c *Catalog) Section(id string) (Section, bool) {
	i, ok := c.byCategory[id]
	if !ok {
		return Section{}, false
	}
	cat := c.categories[i]
	return Section{ID: cat.ID, Title: cat.Name, Icon: cat.Icon, BackgroundColor: c.colors[cat.ID]}, true
}

// Lookup finds a module by id, scanning categories in order.
func (c *Catalog) Lookup(moduleID string) (entities.ModuleDefinition, bool) {
	for _, cat := range c.categories {
		for _, m := range cat.Items {
			if m.ID == moduleID {
				return m, true
			}
		}
	}
	return entities.ModuleDefinition{}, false
}

// Search returns, per category, the modules whose name or id contains q
// (case-insensitive). Categories without a match are omitted. An empty
// query returns the full catalog.
func (c *Catalog) Search(q string) []entities.Category {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return c.Categories()
	}
	var out []entities.Category
	for _, cat := range c.categories {
		var hits []entities.ModuleDefinition
		for _, m := range cat.Items {
			if strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.ID), q) {
				hits = append(hits, m)
			}
		}
		if len(hits) > 0 {
			match := cat
			match.Items = hits
			out = append(out, match)
		}
	}
	return out
}
