package queries

import (
	"context"

	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/ports"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// GetStoryMapQuery fetches a novel's active story map document. This is the
// reload path the conflict contract requires: a rejected writer reads the
// current document and version before retrying.
type GetStoryMapQuery struct {
	NovelID string `json:"novel_id" validate:"required"`
}

// GetStoryMapHandler handles the GetStoryMapQuery
type GetStoryMapHandler struct {
	repo   ports.DocumentRepository
	logger *zap.Logger
}

// NewGetStoryMapHandler creates a new handler instance
func NewGetStoryMapHandler(repo ports.DocumentRepository, logger *zap.Logger) *GetStoryMapHandler {
	return &GetStoryMapHandler{repo: repo, logger: logger}
}

// Handle executes the query
func (h *GetStoryMapHandler) Handle(ctx context.Context, query GetStoryMapQuery) (*storymap.GraphDocument, error) {
	if query.NovelID == "" {
		return nil, apperrors.NewInvalidArgumentError("novelId is required")
	}

	doc, err := h.repo.FindActiveByNovelID(ctx, query.NovelID)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("story map fetched",
		zap.String("novelID", query.NovelID),
		zap.String("documentID", doc.DocumentID),
		zap.Int("version", doc.Version),
	)
	return doc, nil
}
