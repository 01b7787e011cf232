package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/domain/events"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	"github.com/T3thr/Vertex-webapp-001-sub006/infrastructure/persistence/memory"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	published []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.published = append(p.published, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.published = append(p.published, batch...)
	return nil
}

func newFixture(t *testing.T) (*ApplyCommandHandler, *memory.DocumentRepository, *recordingPublisher, *storymap.GraphDocument) {
	t.Helper()

	repo := memory.NewDocumentRepository()
	publisher := &recordingPublisher{}
	handler := NewApplyCommandHandler(repo, publisher, 100, zap.NewNop())

	doc := storymap.NewGraphDocument("novel-1", "author-1")
	require.NoError(t, repo.CreateActive(context.Background(), doc))

	return handler, repo, publisher, doc
}

func editCommand(commandID, nodeID, title string) storymap.Command {
	return storymap.Command{
		CommandID:      commandID,
		IssuedByUserID: "author-1",
		Changes: storymap.ChangeSet{
			Nodes: []storymap.NodeChange{{NodeID: nodeID, Title: &title}},
		},
	}
}

func TestApplyCommand_Succeeds(t *testing.T) {
	handler, repo, publisher, _ := newFixture(t)
	ctx := context.Background()

	v := 1
	result, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-1", "n1", "Opening"),
		CallerVersion: &v,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Version)
	assert.Equal(t, FormatVersionETag(2), result.ETag)
	assert.False(t, result.AlreadyProcessed)

	stored, err := repo.FindActiveByNovelID(ctx, "novel-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, "author-1", stored.LastModifiedBy)
	require.GreaterOrEqual(t, stored.FindNode("n1"), 0)
	assert.Equal(t, "Opening", stored.Nodes[stored.FindNode("n1")].Title)

	// A ledger entry was committed with the document.
	entry, ok := stored.LookupCommand("cmd-1")
	require.True(t, ok)
	assert.Equal(t, 2, entry.ResultingVersion)

	require.Len(t, publisher.published, 1)
	applied, ok := publisher.published[0].(events.CommandApplied)
	require.True(t, ok)
	assert.Equal(t, "cmd-1", applied.CommandID)
	assert.Equal(t, 2, applied.ResultingVersion)
}

func TestApplyCommand_RetryAnsweredFromLedger(t *testing.T) {
	handler, repo, publisher, _ := newFixture(t)
	ctx := context.Background()

	v := 1
	first, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-1", "n1", "Opening"),
		CallerVersion: &v,
	})
	require.NoError(t, err)

	// Same command retried with the now-stale version: still succeeds, and
	// reports the original outcome without bumping the version again.
	retry, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-1", "n1", "Opening"),
		CallerVersion: &v,
	})
	require.NoError(t, err)

	assert.True(t, retry.AlreadyProcessed)
	assert.Equal(t, first.Version, retry.Version)
	assert.Equal(t, first.ETag, retry.ETag)

	stored, err := repo.FindActiveByNovelID(ctx, "novel-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)

	// No second event for the retry.
	assert.Len(t, publisher.published, 1)
}

func TestApplyCommand_StaleVersionConflict(t *testing.T) {
	handler, _, _, _ := newFixture(t)
	ctx := context.Background()

	v := 1
	_, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-1", "n1", "Opening"),
		CallerVersion: &v,
	})
	require.NoError(t, err)

	// A different command carrying the old version loses.
	_, err = handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-2", "n1", "Rival edit"),
		CallerVersion: &v,
	})
	require.Error(t, err)

	conflict, ok := err.(*storymap.VersionConflictError)
	require.True(t, ok)
	assert.Equal(t, 2, conflict.CurrentVersion)
	assert.Equal(t, 1, conflict.SubmittedVersion)
}

func TestApplyCommand_ConflictThenReloadAndRetrySucceeds(t *testing.T) {
	handler, repo, _, _ := newFixture(t)
	ctx := context.Background()

	v := 1
	_, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-1", "n1", "First"),
		CallerVersion: &v,
	})
	require.NoError(t, err)

	_, err = handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-2", "n2", "Second"),
		CallerVersion: &v,
	})
	require.Error(t, err)

	// Reload, pick up the current version, retry: accepted.
	current, err := repo.FindActiveByNovelID(ctx, "novel-1")
	require.NoError(t, err)

	result, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       editCommand("cmd-2", "n2", "Second"),
		CallerVersion: &current.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Version)
}

func TestApplyCommand_NilVersionIsUnconditional(t *testing.T) {
	handler, _, _, _ := newFixture(t)
	ctx := context.Background()

	// Bump to version 3 first.
	for i, id := range []string{"cmd-1", "cmd-2"} {
		v := i + 1
		_, err := handler.Handle(ctx, ApplyStoryMapCommand{
			NovelID:       "novel-1",
			Command:       editCommand(id, "n1", "edit"),
			CallerVersion: &v,
		})
		require.NoError(t, err)
	}

	result, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID: "novel-1",
		Command: editCommand("cmd-sys", "n1", "system correction"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Version)
}

func TestApplyCommand_MalformedCommand(t *testing.T) {
	handler, repo, _, _ := newFixture(t)
	ctx := context.Background()

	v := 1
	_, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID:       "novel-1",
		Command:       storymap.Command{CommandID: "cmd-1"}, // no changes
		CallerVersion: &v,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeMalformedCommand, appErr.Code)

	// Nothing was written.
	stored, err := repo.FindActiveByNovelID(ctx, "novel-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

func TestApplyCommand_UnknownNovel(t *testing.T) {
	handler, _, _, _ := newFixture(t)

	v := 1
	_, err := handler.Handle(context.Background(), ApplyStoryMapCommand{
		NovelID:       "missing-novel",
		Command:       editCommand("cmd-1", "n1", "x"),
		CallerVersion: &v,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestApplyCommand_LedgerEvictionAllowsReplayAsNew(t *testing.T) {
	repo := memory.NewDocumentRepository()
	handler := NewApplyCommandHandler(repo, nil, 2, zap.NewNop())
	ctx := context.Background()

	doc := storymap.NewGraphDocument("novel-1", "author-1")
	require.NoError(t, repo.CreateActive(ctx, doc))

	for i, id := range []string{"cmd-a", "cmd-b", "cmd-c"} {
		v := i + 1
		_, err := handler.Handle(ctx, ApplyStoryMapCommand{
			NovelID:       "novel-1",
			Command:       editCommand(id, "n1", id),
			CallerVersion: &v,
		})
		require.NoError(t, err)
	}

	// cmd-a's ledger entry was evicted (cap 2), so its retry is treated as a
	// new command and needs the current version to be admitted.
	result, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID: "novel-1",
		Command: editCommand("cmd-a", "n1", "replayed"),
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, 5, result.Version)
}

func TestApplyThenValidate_GrowingGraphStaysClean(t *testing.T) {
	repo := memory.NewDocumentRepository()
	handler := NewApplyCommandHandler(repo, nil, 100, zap.NewNop())
	ctx := context.Background()

	doc := storymap.NewGraphDocument("novel-1", "author-1")
	startType := storymap.NodeTypeStart
	doc.Nodes = []storymap.GraphNode{{NodeID: "start", NodeType: startType, Title: "Start"}}
	doc.StartNodeID = "start"
	require.NoError(t, repo.CreateActive(ctx, doc))

	sceneType := storymap.NodeTypeScene
	title := "Scene 1"
	v := 1
	result, err := handler.Handle(ctx, ApplyStoryMapCommand{
		NovelID: "novel-1",
		Command: storymap.Command{
			CommandID:      "cmd-1",
			IssuedByUserID: "author-1",
			Changes: storymap.ChangeSet{
				Nodes: []storymap.NodeChange{{NodeID: "scene-1", NodeType: &sceneType, Title: &title}},
				Edges: []storymap.EdgeChange{{
					EdgeID:       "e1",
					SourceNodeID: strPointer("start"),
					TargetNodeID: strPointer("scene-1"),
				}},
			},
		},
		CallerVersion: &v,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Version)

	stored, err := repo.FindActiveByNovelID(ctx, "novel-1")
	require.NoError(t, err)

	report, err := storymap.Validate(stored.Nodes, stored.Edges, stored.StartNodeID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.UnreachableNodes)
	assert.Equal(t, 0, report.Summary.ErrorCount)
}

func strPointer(s string) *string { return &s }

func TestParseVersionETag(t *testing.T) {
	v, err := ParseVersionETag(FormatVersionETag(12))
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	v, err = ParseVersionETag("7")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = ParseVersionETag("not-an-etag")
	assert.Error(t, err)
}
