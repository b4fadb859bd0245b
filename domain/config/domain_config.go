package config

import "time"

// DomainConfig holds the editor's placement and persistence rules.
type DomainConfig struct {
	// Persistence
	DefaultTTL time.Duration

	// Restore replay grid
	GridColumns  int
	GridOriginX  float64
	GridOriginY  float64
	GridColumnDX float64
	GridRowDY    float64

	// Position given to a click-to-place module and to graph notifications
	// raised while a section restores.
	DefaultDropX float64
	DefaultDropY float64

	// Node type tag stamped on every graph node
	NodeType string

	// Sidebar
	SearchPlaceholder string
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultTTL: 7 * 24 * time.Hour,

		GridColumns:  3,
		GridOriginX:  100,
		GridOriginY:  100,
		GridColumnDX: 150,
		GridRowDY:    100,

		DefaultDropX: 100,
		DefaultDropY: 100,

		NodeType: "moduleNode",

		SearchPlaceholder: "搜索模板...",
	}
}

// GridPosition returns the replay coordinates for the i-th module of a section.
func (c *DomainConfig) GridPosition(i int) (x, y float64) {
	cols := c.GridColumns
	if cols <= 0 {
		cols = 3
	}
	x = c.GridOriginX + float64(i%cols)*c.GridColumnDX
	y = c.GridOriginY + float64(i/cols)*c.GridRowDY
	return x, y
}
