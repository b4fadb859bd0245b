package events

import (
	"time"

	"deployboard/domain/core/entities"
)

// DomainEvent is something that happened in the editor.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeModulePlaced      = "section.module_placed"
	TypePlacementRejected = "section.placement_rejected"
	TypeModuleRemoved     = "section.module_removed"
	TypeNodeAdded         = "graph.node_added"
	TypeNodesConnected    = "graph.nodes_connected"
	TypeGraphRestored     = "graph.restored"
	TypeSelectionChanged  = "selection.changed"
	TypeSelectionCleared  = "selection.cleared"
)

func base(aggregateID, eventType string, ts time.Time) BaseEvent {
	return BaseEvent{AggregateID: aggregateID, EventType: eventType, Timestamp: ts, Version: 1}
}

// Section events

// ModulePlaced is raised when a section accepts a module.
type ModulePlaced struct {
	BaseEvent
	SectionID string                    `json:"section_id"`
	Module    entities.ModuleDefinition `json:"module"`
}

func NewModulePlaced(sectionID string, module entities.ModuleDefinition, ts time.Time) ModulePlaced {
	return ModulePlaced{
		BaseEvent: base(sectionID, TypeModulePlaced, ts),
		SectionID: sectionID,
		Module:    module,
	}
}

// PlacementRejected is raised when a drop fails validation.
type PlacementRejected struct {
	BaseEvent
	SectionID string `json:"section_id"`
	ModuleID  string `json:"module_id"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

func NewPlacementRejected(sectionID, moduleID, reason, message string, ts time.Time) PlacementRejected {
	return PlacementRejected{
		BaseEvent: base(sectionID, TypePlacementRejected, ts),
		SectionID: sectionID,
		ModuleID:  moduleID,
		Reason:    reason,
		Message:   message,
	}
}

// ModuleRemoved is raised when a module leaves a section.
type ModuleRemoved struct {
	BaseEvent
	SectionID string `json:"section_id"`
	ModuleID  string `json:"module_id"`
}

func NewModuleRemoved(sectionID, moduleID string, ts time.Time) ModuleRemoved {
	return ModuleRemoved{
		BaseEvent: base(sectionID, TypeModuleRemoved, ts),
		SectionID: sectionID,
		ModuleID:  moduleID,
	}
}

// Graph events

// NodeAdded is raised when a live drop creates a graph node.
type NodeAdded struct {
	BaseEvent
	Node entities.GraphNode `json:"node"`
}

func NewNodeAdded(node entities.GraphNode, ts time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent: base(node.ID.String(), TypeNodeAdded, ts),
		Node:      node,
	}
}

// NodesConnected is raised when an edge is drawn.
type NodesConnected struct {
	BaseEvent
	Edge entities.GraphEdge `json:"edge"`
}

func NewNodesConnected(edge entities.GraphEdge, ts time.Time) NodesConnected {
	return NodesConnected{
		BaseEvent: base(edge.ID, TypeNodesConnected, ts),
		Edge:      edge,
	}
}

// GraphRestored is raised once the graph has been rebuilt on mount.
type GraphRestored struct {
	BaseEvent
	Source    string `json:"source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func NewGraphRestored(source string, nodes, edges int, ts time.Time) GraphRestored {
	return GraphRestored{
		BaseEvent: base("graph", TypeGraphRestored, ts),
		Source:    source,
		NodeCount: nodes,
		EdgeCount: edges,
	}
}

// Selection events

type SelectionChanged struct {
	BaseEvent
	Selection entities.Selection `json:"selection"`
}

func NewSelectionChanged(sel entities.Selection, ts time.Time) SelectionChanged {
	return SelectionChanged{
		BaseEvent: base(sel.Module.ID, TypeSelectionChanged, ts),
		Selection: sel,
	}
}

type SelectionCleared struct {
	BaseEvent
}

func NewSelectionCleared(ts time.Time) SelectionCleared {
	return SelectionCleared{BaseEvent: base("selection", TypeSelectionCleared, ts)}
}
