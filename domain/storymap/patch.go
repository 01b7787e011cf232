package storymap

// Apply merges a command's changes into a copy of the document and returns the
// new document. The input document is never mutated; a failed command leaves
// no partial state (the whole command is atomic).
//
// Matching ids are merged in place rather than appended, which is what keeps
// the node and edge lists free of duplicate ids after every apply. Referential
// integrity (dangling endpoints, reachability) is deliberately not checked
// here; that is Validate's job and runs separately.
//
// Apply does not touch Version, the ledger or the audit fields; the caller
// stamps those after admission so the version bump and ledger entry share the
// store's atomic write.
func Apply(doc *GraphDocument, cmd *Command) (*GraphDocument, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	out := doc.Clone()

	for _, change := range cmd.Changes.Nodes {
		if i := out.FindNode(change.NodeID); i >= 0 {
			mergeNode(&out.Nodes[i], change)
		} else {
			out.Nodes = append(out.Nodes, newNodeFromChange(change))
		}
	}

	for _, change := range cmd.Changes.Edges {
		if i := out.FindEdge(change.EdgeID); i >= 0 {
			mergeEdge(&out.Edges[i], change)
		} else {
			out.Edges = append(out.Edges, newEdgeFromChange(change))
		}
	}

	if patch := cmd.Changes.EditorMetadata; patch != nil {
		mergeEditorMetadata(&out.EditorMetadata, patch)
	}

	return out, nil
}

// mergeNode overwrites only the fields the change supplies. Position is
// replaced wholesale; TypeSpecificData is a single field and is likewise
// replaced, not deep-merged.
func mergeNode(node *GraphNode, change NodeChange) {
	if change.NodeType != nil {
		node.NodeType = *change.NodeType
	}
	if change.Title != nil {
		node.Title = *change.Title
	}
	if change.Position != nil {
		node.Position = *change.Position
	}
	if change.TypeSpecificData != nil {
		node.TypeSpecificData = change.TypeSpecificData
	}
	if change.AuthorNotes != nil {
		node.AuthorNotes = *change.AuthorNotes
	}
}

func newNodeFromChange(change NodeChange) GraphNode {
	node := GraphNode{NodeID: change.NodeID, NodeType: NodeTypeScene}
	mergeNode(&node, change)
	return node
}

func mergeEdge(edge *GraphEdge, change EdgeChange) {
	if change.SourceNodeID != nil {
		edge.SourceNodeID = *change.SourceNodeID
	}
	if change.TargetNodeID != nil {
		edge.TargetNodeID = *change.TargetNodeID
	}
	if change.Label != nil {
		edge.Label = *change.Label
	}
	if change.Condition != nil {
		cond := *change.Condition
		edge.Condition = &cond
	}
	if change.Priority != nil {
		edge.Priority = *change.Priority
	}
}

func newEdgeFromChange(change EdgeChange) GraphEdge {
	edge := GraphEdge{EdgeID: change.EdgeID}
	mergeEdge(&edge, change)
	return edge
}

func mergeEditorMetadata(meta *EditorMetadata, patch *EditorMetadataPatch) {
	if patch.Zoom != nil {
		meta.Zoom = *patch.Zoom
	}
	if patch.PanX != nil {
		meta.PanX = *patch.PanX
	}
	if patch.PanY != nil {
		meta.PanY = *patch.PanY
	}
	if patch.GridEnabled != nil {
		meta.GridEnabled = *patch.GridEnabled
	}
	if patch.GridSize != nil {
		meta.GridSize = *patch.GridSize
	}
}
