package storymap

import (
	"fmt"
	"time"
)

// Command is a single idempotency-tagged batch of node, edge and metadata
// changes submitted by a collaborator. Commands are transient; only their
// ledger entry outlives application.
type Command struct {
	CommandID      string    `json:"commandId" validate:"required"`
	Type           string    `json:"type,omitempty"`
	Changes        ChangeSet `json:"changes"`
	IssuedByUserID string    `json:"issuedByUserId,omitempty"`
	IssuedAt       time.Time `json:"issuedAt,omitempty"`
}

// ChangeSet groups the changes carried by one command.
type ChangeSet struct {
	Nodes          []NodeChange         `json:"nodes,omitempty"`
	Edges          []EdgeChange         `json:"edges,omitempty"`
	EditorMetadata *EditorMetadataPatch `json:"editorMetadata,omitempty"`
}

// NodeChange is an upsert for one node. For an existing NodeID only the
// non-nil fields are merged; for a new NodeID the present fields form the
// initial node. Position is replaced wholesale when present.
type NodeChange struct {
	NodeID           string                 `json:"nodeId" validate:"required"`
	NodeType         *NodeType              `json:"nodeType,omitempty"`
	Title            *string                `json:"title,omitempty"`
	Position         *Position              `json:"position,omitempty"`
	TypeSpecificData map[string]interface{} `json:"typeSpecificData,omitempty"`
	AuthorNotes      *string                `json:"authorNotes,omitempty"`
}

// EdgeChange is an upsert for one edge, keyed by EdgeID with the same
// existing/append semantics as NodeChange.
type EdgeChange struct {
	EdgeID       string         `json:"edgeId" validate:"required"`
	SourceNodeID *string        `json:"sourceNodeId,omitempty"`
	TargetNodeID *string        `json:"targetNodeId,omitempty"`
	Label        *string        `json:"label,omitempty"`
	Condition    *EdgeCondition `json:"condition,omitempty"`
	Priority     *int           `json:"priority,omitempty"`
}

// EditorMetadataPatch is a shallow field-by-field merge into the document's
// editor metadata.
type EditorMetadataPatch struct {
	Zoom        *float64 `json:"zoom,omitempty"`
	PanX        *float64 `json:"panX,omitempty"`
	PanY        *float64 `json:"panY,omitempty"`
	GridEnabled *bool    `json:"gridEnabled,omitempty"`
	GridSize    *int     `json:"gridSize,omitempty"`
}

// MalformedCommandError marks a structurally invalid command. The command is
// rejected before any mutation is attempted.
type MalformedCommandError struct {
	Reason string
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("malformed command: %s", e.Reason)
}

// IsMalformedCommand checks if an error is a MalformedCommandError.
func IsMalformedCommand(err error) bool {
	_, ok := err.(*MalformedCommandError)
	return ok
}

// Validate checks the command's structure. Every change must carry its id;
// a command with no changes at all is also rejected.
func (c *Command) Validate() error {
	if c.CommandID == "" {
		return &MalformedCommandError{Reason: "commandId is required"}
	}
	if len(c.Changes.Nodes) == 0 && len(c.Changes.Edges) == 0 && c.Changes.EditorMetadata == nil {
		return &MalformedCommandError{Reason: "command carries no changes"}
	}
	for i, nc := range c.Changes.Nodes {
		if nc.NodeID == "" {
			return &MalformedCommandError{Reason: fmt.Sprintf("node change %d is missing nodeId", i)}
		}
		if nc.NodeType != nil && !nc.NodeType.IsValid() {
			return &MalformedCommandError{Reason: fmt.Sprintf("node change %d has unknown nodeType %q", i, *nc.NodeType)}
		}
	}
	for i, ec := range c.Changes.Edges {
		if ec.EdgeID == "" {
			return &MalformedCommandError{Reason: fmt.Sprintf("edge change %d is missing edgeId", i)}
		}
	}
	return nil
}
