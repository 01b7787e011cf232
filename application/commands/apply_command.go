package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/ports"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/events"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// ApplyStoryMapCommand represents a request to apply one edit command to a
// novel's active story map document.
type ApplyStoryMapCommand struct {
	NovelID string           `json:"novel_id" validate:"required"`
	Command storymap.Command `json:"command" validate:"required"`

	// CallerVersion is the version the caller last saw. Nil means an
	// unconditional last-writer-wins write; the HTTP layer only lets system
	// callers through with a nil version.
	CallerVersion *int `json:"caller_version,omitempty"`
}

// ApplyResult is what the edit endpoint needs to assemble its response.
type ApplyResult struct {
	Version          int
	ETag             string
	AlreadyProcessed bool
}

// ApplyCommandHandler handles the ApplyStoryMapCommand
type ApplyCommandHandler struct {
	repo       ports.DocumentRepository
	publisher  ports.EventPublisher
	ledgerSize int
	logger     *zap.Logger
}

// NewApplyCommandHandler creates a new handler instance
func NewApplyCommandHandler(
	repo ports.DocumentRepository,
	publisher ports.EventPublisher,
	ledgerSize int,
	logger *zap.Logger,
) *ApplyCommandHandler {
	if ledgerSize <= 0 {
		ledgerSize = storymap.DefaultLedgerSize
	}
	return &ApplyCommandHandler{
		repo:       repo,
		publisher:  publisher,
		ledgerSize: ledgerSize,
		logger:     logger,
	}
}

// Handle executes the apply command use case.
//
// Order matters here: the idempotency ledger is consulted before version
// admission, so a retry of an already-committed command succeeds even though
// the caller's version is now stale. A retry is answered from the ledger
// without re-applying and without a new version.
func (h *ApplyCommandHandler) Handle(ctx context.Context, cmd ApplyStoryMapCommand) (*ApplyResult, error) {
	if err := cmd.Command.Validate(); err != nil {
		return nil, apperrors.NewMalformedCommandError(err.Error())
	}

	doc, err := h.repo.FindActiveByNovelID(ctx, cmd.NovelID)
	if err != nil {
		return nil, err
	}

	// Retry of a command we already committed?
	if entry, ok := doc.LookupCommand(cmd.Command.CommandID); ok {
		h.logger.Info("command answered from ledger",
			zap.String("novelID", cmd.NovelID),
			zap.String("commandID", cmd.Command.CommandID),
			zap.Int("resultingVersion", entry.ResultingVersion),
		)
		return &ApplyResult{
			Version:          entry.ResultingVersion,
			ETag:             FormatVersionETag(entry.ResultingVersion),
			AlreadyProcessed: true,
		}, nil
	}

	nextVersion, err := storymap.Admit(doc, cmd.CallerVersion)
	if err != nil {
		if conflict, ok := err.(*storymap.VersionConflictError); ok {
			h.logger.Warn("version conflict rejected",
				zap.String("novelID", cmd.NovelID),
				zap.String("commandID", cmd.Command.CommandID),
				zap.Int("submittedVersion", conflict.SubmittedVersion),
				zap.Int("currentVersion", conflict.CurrentVersion),
			)
		}
		return nil, err
	}

	next, err := storymap.Apply(doc, &cmd.Command)
	if err != nil {
		if storymap.IsMalformedCommand(err) {
			return nil, apperrors.NewMalformedCommandError(err.Error())
		}
		return nil, err
	}

	now := time.Now().UTC()
	next.Version = nextVersion
	next.LastModifiedBy = cmd.Command.IssuedByUserID
	next.LastSyncedAt = now
	next.RecordCommand(storymap.AppliedCommand{
		CommandID:        cmd.Command.CommandID,
		AppliedAt:        now,
		ResultingVersion: nextVersion,
		IssuedByUserID:   cmd.Command.IssuedByUserID,
	}, h.ledgerSize)

	// The conditional write on the admitted version is the arbiter of
	// concurrent racers; Admit alone is not.
	if err := h.repo.ConditionalSave(ctx, next, doc.Version); err != nil {
		return nil, err
	}

	h.logger.Info("command applied",
		zap.String("novelID", cmd.NovelID),
		zap.String("documentID", next.DocumentID),
		zap.String("commandID", cmd.Command.CommandID),
		zap.Int("version", nextVersion),
	)

	if h.publisher != nil {
		event := events.NewCommandApplied(
			cmd.NovelID,
			next.DocumentID,
			cmd.Command.CommandID,
			cmd.Command.IssuedByUserID,
			nextVersion,
			now,
		)
		if err := h.publisher.Publish(ctx, event); err != nil {
			// The document is committed; consumers catch up on the next event.
			h.logger.Warn("failed to publish command applied event",
				zap.String("commandID", cmd.Command.CommandID),
				zap.Error(err),
			)
		}
	}

	return &ApplyResult{
		Version: nextVersion,
		ETag:    FormatVersionETag(nextVersion),
	}, nil
}

// FormatVersionETag renders a document version as the weak ETag clients echo
// back on their next write.
func FormatVersionETag(version int) string {
	return fmt.Sprintf(`W/"v%d"`, version)
}

// ParseVersionETag recovers the version from an ETag produced by
// FormatVersionETag. A bare integer is accepted too, so clients that track the
// version field directly can send it as-is.
func ParseVersionETag(etag string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(etag, `W/"v%d"`, &version); err == nil {
		return version, nil
	}
	if _, err := fmt.Sscanf(etag, "%d", &version); err == nil {
		return version, nil
	}
	return 0, fmt.Errorf("unparseable etag %q", etag)
}
