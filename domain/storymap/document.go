package storymap

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLedgerSize is the number of applied-command entries retained on a
// document. The ledger is a bounded window: a command retried after its entry
// has been evicted is treated as new and will be reapplied. Callers must treat
// idempotency as best-effort over this recent window.
const DefaultLedgerSize = 100

// EditorMetadata is the shared canvas view state for a document.
type EditorMetadata struct {
	Zoom        float64 `json:"zoom"`
	PanX        float64 `json:"panX"`
	PanY        float64 `json:"panY"`
	GridEnabled bool    `json:"gridEnabled"`
	GridSize    int     `json:"gridSize"`
}

// AppliedCommand is a ledger entry recording that a command was applied.
// Entries are ordered by application time and evicted FIFO once the ledger
// exceeds its cap.
type AppliedCommand struct {
	CommandID        string    `json:"commandId"`
	AppliedAt        time.Time `json:"appliedAt"`
	ResultingVersion int       `json:"resultingVersion"`
	IssuedByUserID   string    `json:"issuedByUserId"`
}

// GraphDocument is the versioned aggregate root for one story map.
// Version strictly increases by one per applied command and doubles as the
// optimistic-concurrency etag. At most one document is active per NovelID.
type GraphDocument struct {
	DocumentID      string           `json:"documentId"`
	NovelID         string           `json:"novelId"`
	Version         int              `json:"version"`
	Nodes           []GraphNode      `json:"nodes"`
	Edges           []GraphEdge      `json:"edges"`
	StartNodeID     string           `json:"startNodeId,omitempty"`
	Variables       []StoryVariable  `json:"storyVariables,omitempty"`
	EditorMetadata  EditorMetadata   `json:"editorMetadata"`
	LastModifiedBy  string           `json:"lastModifiedBy,omitempty"`
	LastSyncedAt    time.Time        `json:"lastSyncedAt"`
	PendingCommands []AppliedCommand `json:"pendingCommands,omitempty"`
}

// NewGraphDocument creates an empty active document for a novel at version 1.
func NewGraphDocument(novelID, userID string) *GraphDocument {
	now := time.Now().UTC()
	return &GraphDocument{
		DocumentID: uuid.New().String(),
		NovelID:    novelID,
		Version:    1,
		Nodes:      []GraphNode{},
		Edges:      []GraphEdge{},
		EditorMetadata: EditorMetadata{
			Zoom:        1.0,
			GridEnabled: true,
			GridSize:    20,
		},
		LastModifiedBy:  userID,
		LastSyncedAt:    now,
		PendingCommands: []AppliedCommand{},
	}
}

// LookupCommand returns the ledger entry for a command id, if it is still
// retained. A hit means the command was already applied and must be answered
// from the ledger without reapplying its changes.
func (d *GraphDocument) LookupCommand(commandID string) (AppliedCommand, bool) {
	if commandID == "" {
		return AppliedCommand{}, false
	}
	for _, entry := range d.PendingCommands {
		if entry.CommandID == commandID {
			return entry, true
		}
	}
	return AppliedCommand{}, false
}

// RecordCommand appends a ledger entry and evicts the oldest entries once the
// ledger exceeds maxEntries.
func (d *GraphDocument) RecordCommand(entry AppliedCommand, maxEntries int) {
	if maxEntries <= 0 {
		maxEntries = DefaultLedgerSize
	}
	d.PendingCommands = append(d.PendingCommands, entry)
	if excess := len(d.PendingCommands) - maxEntries; excess > 0 {
		d.PendingCommands = append([]AppliedCommand(nil), d.PendingCommands[excess:]...)
	}
}

// FindNode returns the index of a node by id, or -1.
func (d *GraphDocument) FindNode(nodeID string) int {
	for i := range d.Nodes {
		if d.Nodes[i].NodeID == nodeID {
			return i
		}
	}
	return -1
}

// FindEdge returns the index of an edge by id, or -1.
func (d *GraphDocument) FindEdge(edgeID string) int {
	for i := range d.Edges {
		if d.Edges[i].EdgeID == edgeID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the document. Apply mutates only the copy so a
// rejected command never leaves partial state behind.
func (d *GraphDocument) Clone() *GraphDocument {
	out := *d

	out.Nodes = make([]GraphNode, len(d.Nodes))
	for i, n := range d.Nodes {
		out.Nodes[i] = n.Clone()
	}

	out.Edges = make([]GraphEdge, len(d.Edges))
	for i, e := range d.Edges {
		out.Edges[i] = e.Clone()
	}

	if d.Variables != nil {
		out.Variables = append([]StoryVariable(nil), d.Variables...)
	}
	if d.PendingCommands != nil {
		out.PendingCommands = append([]AppliedCommand(nil), d.PendingCommands...)
	}

	return &out
}
