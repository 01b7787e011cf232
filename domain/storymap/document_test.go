package storymap

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphDocument(t *testing.T) {
	doc := NewGraphDocument("novel-1", "author-1")

	assert.NotEmpty(t, doc.DocumentID)
	assert.Equal(t, "novel-1", doc.NovelID)
	assert.Equal(t, 1, doc.Version)
	assert.Empty(t, doc.Nodes)
	assert.Empty(t, doc.Edges)
	assert.Equal(t, 1.0, doc.EditorMetadata.Zoom)
	assert.Equal(t, "author-1", doc.LastModifiedBy)
}

func entry(i int) AppliedCommand {
	return AppliedCommand{
		CommandID:        fmt.Sprintf("cmd-%d", i),
		AppliedAt:        time.Now().UTC(),
		ResultingVersion: i + 1,
		IssuedByUserID:   "author-1",
	}
}

func TestLedger_LookupHitAndMiss(t *testing.T) {
	doc := NewGraphDocument("novel-1", "author-1")
	doc.RecordCommand(entry(1), DefaultLedgerSize)

	found, ok := doc.LookupCommand("cmd-1")
	require.True(t, ok)
	assert.Equal(t, 2, found.ResultingVersion)

	_, ok = doc.LookupCommand("cmd-unknown")
	assert.False(t, ok)

	_, ok = doc.LookupCommand("")
	assert.False(t, ok, "empty command id never matches")
}

func TestLedger_FIFOEvictionAtCap(t *testing.T) {
	doc := NewGraphDocument("novel-1", "author-1")
	const ledgerCap = 100

	for i := 0; i < ledgerCap+5; i++ {
		doc.RecordCommand(entry(i), ledgerCap)
	}

	assert.Equal(t, ledgerCap, len(doc.PendingCommands))

	// The five oldest fell out of the window.
	for i := 0; i < 5; i++ {
		_, ok := doc.LookupCommand(fmt.Sprintf("cmd-%d", i))
		assert.False(t, ok, "cmd-%d should be evicted", i)
	}
	_, ok := doc.LookupCommand("cmd-5")
	assert.True(t, ok)
	_, ok = doc.LookupCommand(fmt.Sprintf("cmd-%d", ledgerCap+4))
	assert.True(t, ok)
}

func TestLedger_OrderPreservedAfterEviction(t *testing.T) {
	doc := NewGraphDocument("novel-1", "author-1")

	for i := 0; i < 7; i++ {
		doc.RecordCommand(entry(i), 5)
	}

	require.Equal(t, 5, len(doc.PendingCommands))
	assert.Equal(t, "cmd-2", doc.PendingCommands[0].CommandID)
	assert.Equal(t, "cmd-6", doc.PendingCommands[4].CommandID)
}

func TestClone_IsDeep(t *testing.T) {
	doc := NewGraphDocument("novel-1", "author-1")
	doc.Nodes = []GraphNode{{
		NodeID:           "n1",
		NodeType:         NodeTypeScene,
		TypeSpecificData: map[string]interface{}{"k": "v"},
	}}
	doc.Edges = []GraphEdge{{
		EdgeID: "e1", SourceNodeID: "n1", TargetNodeID: "n1",
		Condition: &EdgeCondition{Expression: "x"},
	}}
	doc.RecordCommand(entry(1), DefaultLedgerSize)

	clone := doc.Clone()
	clone.Nodes[0].TypeSpecificData["k"] = "mutated"
	clone.Edges[0].Condition.Expression = "mutated"
	clone.PendingCommands[0].CommandID = "mutated"

	assert.Equal(t, "v", doc.Nodes[0].TypeSpecificData["k"])
	assert.Equal(t, "x", doc.Edges[0].Condition.Expression)
	assert.Equal(t, "cmd-1", doc.PendingCommands[0].CommandID)
}
