package queries

import (
	"context"

	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/ports"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// GetDocumentQuery fetches a document by its own id. Event consumers carry the
// documentId, not the novelId, so this is the lookup path for anything acting
// on a published event.
type GetDocumentQuery struct {
	DocumentID string `json:"document_id" validate:"required"`
}

// GetDocumentHandler handles the GetDocumentQuery
type GetDocumentHandler struct {
	repo   ports.DocumentRepository
	logger *zap.Logger
}

// NewGetDocumentHandler creates a new handler instance
func NewGetDocumentHandler(repo ports.DocumentRepository, logger *zap.Logger) *GetDocumentHandler {
	return &GetDocumentHandler{repo: repo, logger: logger}
}

// Handle executes the query
func (h *GetDocumentHandler) Handle(ctx context.Context, query GetDocumentQuery) (*storymap.GraphDocument, error) {
	if query.DocumentID == "" {
		return nil, apperrors.NewInvalidArgumentError("documentId is required")
	}

	doc, err := h.repo.FindByDocumentID(ctx, query.DocumentID)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("story map fetched by document id",
		zap.String("documentID", doc.DocumentID),
		zap.String("novelID", doc.NovelID),
		zap.Int("version", doc.Version),
	)
	return doc, nil
}
