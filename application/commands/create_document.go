package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/ports"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/events"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// CreateDocumentCommand provisions a novel's first story map document.
type CreateDocumentCommand struct {
	NovelID string `json:"novel_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
}

// CreateDocumentHandler handles the CreateDocumentCommand
type CreateDocumentHandler struct {
	repo      ports.DocumentRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewCreateDocumentHandler creates a new handler instance
func NewCreateDocumentHandler(
	repo ports.DocumentRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *CreateDocumentHandler {
	return &CreateDocumentHandler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle creates the document. When two callers race, the loser re-reads the
// winner's document so provisioning stays idempotent from the client's view.
func (h *CreateDocumentHandler) Handle(ctx context.Context, cmd CreateDocumentCommand) (*storymap.GraphDocument, error) {
	if cmd.NovelID == "" {
		return nil, apperrors.NewInvalidArgumentError("novelId is required")
	}

	doc := storymap.NewGraphDocument(cmd.NovelID, cmd.UserID)
	if err := h.repo.CreateActive(ctx, doc); err != nil {
		if apperrors.IsConflict(err) {
			return h.repo.FindActiveByNovelID(ctx, cmd.NovelID)
		}
		return nil, err
	}

	h.logger.Info("story map document created",
		zap.String("novelID", cmd.NovelID),
		zap.String("documentID", doc.DocumentID),
	)

	if h.publisher != nil {
		event := events.NewDocumentCreated(cmd.NovelID, doc.DocumentID, cmd.UserID, doc.LastSyncedAt)
		if err := h.publisher.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish document created event",
				zap.String("documentID", doc.DocumentID),
				zap.Error(err),
			)
		}
	}

	return doc, nil
}
