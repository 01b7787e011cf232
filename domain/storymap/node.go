package storymap

// NodeType identifies the narrative role of a node on the story map.
type NodeType string

const (
	NodeTypeStart            NodeType = "start_node"
	NodeTypeScene            NodeType = "scene_node"
	NodeTypeChoice           NodeType = "choice_node"
	NodeTypeBranch           NodeType = "branch_node"
	NodeTypeVariableModifier NodeType = "variable_modifier_node"
	NodeTypeEventTrigger     NodeType = "event_trigger_node"
	NodeTypeEnding           NodeType = "ending_node"
	NodeTypeComment          NodeType = "comment_node"
)

// IsValid reports whether the node type is one of the known variants.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeStart, NodeTypeScene, NodeTypeChoice, NodeTypeBranch,
		NodeTypeVariableModifier, NodeTypeEventTrigger, NodeTypeEnding, NodeTypeComment:
		return true
	}
	return false
}

// Position is a node's location on the authoring canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a single node in a story map document.
// TypeSpecificData carries the variant payload keyed by NodeType; the engine
// treats it as opaque and only structural fields participate in validation.
type GraphNode struct {
	NodeID           string                 `json:"nodeId"`
	NodeType         NodeType               `json:"nodeType"`
	Title            string                 `json:"title"`
	Position         Position               `json:"position"`
	TypeSpecificData map[string]interface{} `json:"typeSpecificData,omitempty"`
	AuthorNotes      string                 `json:"authorNotes,omitempty"`
}

// Clone returns a deep copy of the node.
func (n GraphNode) Clone() GraphNode {
	out := n
	if n.TypeSpecificData != nil {
		out.TypeSpecificData = make(map[string]interface{}, len(n.TypeSpecificData))
		for k, v := range n.TypeSpecificData {
			out.TypeSpecificData[k] = v
		}
	}
	return out
}
