package valueobjects

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// NodeID identifies a graph node. Two schemes coexist: nodes created by a
// live drop are suffixed with the epoch milliseconds of the drop, nodes
// synthesized while replaying a section list are suffixed with their index
// in that list.
type NodeID struct {
	value string
}

// NewLiveNodeID builds `<moduleId>-<sectionId>-<epochMillis>`.
func NewLiveNodeID(moduleID, sectionID string, epochMillis int64) NodeID {
	return NodeID{value: fmt.Sprintf("%s-%s-%d", moduleID, sectionID, epochMillis)}
}

// NewReplayNodeID builds `<moduleId>-<sectionId>-<index>`.
func NewReplayNodeID(moduleID, sectionID string, index int) NodeID {
	return NodeID{value: fmt.Sprintf("%s-%s-%d", moduleID, sectionID, index)}
}

// NewNodeIDFromString wraps an existing id.
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

// WithSuffix returns the id with `-<n>` appended.
func (id NodeID) WithSuffix(n int) NodeID {
	return NodeID{value: id.value + "-" + strconv.Itoa(n)}
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("NodeID must be a string")
	}
	id.value = s
	return nil
}
