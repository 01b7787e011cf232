package memory

import (
	"context"
	"sync"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/ports"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// DocumentRepository is an in-memory ports.DocumentRepository with the same
// CAS semantics as the DynamoDB adapter. Used by tests and local development.
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]*storymap.GraphDocument // keyed by novelID
}

// NewDocumentRepository creates a new in-memory DocumentRepository
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{
		docs: make(map[string]*storymap.GraphDocument),
	}
}

// FindActiveByNovelID loads a novel's active document
func (r *DocumentRepository) FindActiveByNovelID(ctx context.Context, novelID string) (*storymap.GraphDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[novelID]
	if !ok {
		return nil, apperrors.NewNotFoundError("story map document")
	}
	return doc.Clone(), nil
}

// FindByDocumentID loads a document by its own id
func (r *DocumentRepository) FindByDocumentID(ctx context.Context, documentID string) (*storymap.GraphDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, doc := range r.docs {
		if doc.DocumentID == documentID {
			return doc.Clone(), nil
		}
	}
	return nil, apperrors.NewNotFoundError("story map document")
}

// CreateActive stores a novel's first document
func (r *DocumentRepository) CreateActive(ctx context.Context, doc *storymap.GraphDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[doc.NovelID]; exists {
		return apperrors.NewConflictError("story map document already exists")
	}
	r.docs[doc.NovelID] = doc.Clone()
	return nil
}

// ConditionalSave writes doc only if the stored version still equals
// expectedVersion.
func (r *DocumentRepository) ConditionalSave(ctx context.Context, doc *storymap.GraphDocument, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[doc.NovelID]
	if !ok {
		return apperrors.NewNotFoundError("story map document")
	}
	if stored.Version != expectedVersion {
		return &storymap.VersionConflictError{
			DocumentID:       doc.DocumentID,
			SubmittedVersion: expectedVersion,
			CurrentVersion:   stored.Version,
		}
	}

	r.docs[doc.NovelID] = doc.Clone()
	return nil
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)
