package entities

import (
	"deployboard/domain/core/valueobjects"
)

// NodeData is the payload carried by a graph node. Only plain data is
// stored; click behaviour is bound by the workspace from SectionID.
type NodeData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Version   string `json:"version"`
	SectionID string `json:"sectionId"`
}

// Module returns the catalog view of the node payload.
func (d NodeData) Module() ModuleDefinition {
	return ModuleDefinition{ID: d.ID, Name: d.Name, Icon: d.Icon, Version: d.Version}
}

// GraphNode is a positioned module on the canvas.
type GraphNode struct {
	ID       valueobjects.NodeID   `json:"id"`
	Type     string                `json:"type"`
	Position valueobjects.Position `json:"position"`
	Data     NodeData              `json:"data"`
}

// NewGraphNode creates a node for a module placed in a section.
func NewGraphNode(id valueobjects.NodeID, nodeType string, pos valueobjects.Position, def ModuleDefinition, sectionID string) GraphNode {
	return GraphNode{
		ID:       id,
		Type:     nodeType,
		Position: pos,
		Data: NodeData{
			ID:        def.ID,
			Name:      def.Name,
			Icon:      def.Icon,
			Version:   def.Version,
			SectionID: sectionID,
		},
	}
}

// GraphEdge connects two nodes. Endpoints are not validated.
type GraphEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Touches reports whether the edge has nodeID at either end.
func (e GraphEdge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Selection is the module currently shown in the detail panel.
type Selection struct {
	Module    ModuleDefinition `json:"module"`
	SectionID string           `json:"sectionId,omitempty"`
	NodeID    string           `json:"nodeId,omitempty"`
}
