package storymap

// EdgeCondition guards a transition with an author-supplied expression.
// The engine never evaluates the expression; it only lints it (see Validate).
type EdgeCondition struct {
	Expression string `json:"expression"`
}

// GraphEdge is a directed transition between two nodes of a story map.
type GraphEdge struct {
	EdgeID       string         `json:"edgeId"`
	SourceNodeID string         `json:"sourceNodeId"`
	TargetNodeID string         `json:"targetNodeId"`
	Label        string         `json:"label,omitempty"`
	Condition    *EdgeCondition `json:"condition,omitempty"`
	Priority     int            `json:"priority,omitempty"`
}

// Clone returns a deep copy of the edge.
func (e GraphEdge) Clone() GraphEdge {
	out := e
	if e.Condition != nil {
		cond := *e.Condition
		out.Condition = &cond
	}
	return out
}
