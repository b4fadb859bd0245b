// Package transfer encodes the drag payload a catalog item hands to a
// section when it is dropped.
package transfer

import (
	"encoding/json"
	"fmt"

	"deployboard/domain/core/entities"
)

// Payload is the transient drag message. It is never persisted.
type Payload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Version string `json:"version"`
	GroupID string `json:"groupId"`
}

// NewPayload tags a catalog module with its source group.
func NewPayload(def entities.ModuleDefinition, groupID string) Payload {
	return Payload{
		ID:      def.ID,
		Name:    def.Name,
		Icon:    def.Icon,
		Version: def.Version,
		GroupID: groupID,
	}
}

// Module drops the group tag.
func (p Payload) Module() entities.PlacedModule {
	return entities.PlacedModule{ID: p.ID, Name: p.Name, Icon: p.Icon, Version: p.Version}
}

// Encode serializes a module and its group for the drag channel.
func Encode(def entities.ModuleDefinition, groupID string) ([]byte, error) {
	return json.Marshal(NewPayload(def, groupID))
}

// Decode parses a drag message. Only malformed JSON is an error; missing
// fields are left for the drop target to reject.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parse drag payload: %w", err)
	}
	return p, nil
}
