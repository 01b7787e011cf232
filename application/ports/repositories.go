package ports

import (
	"context"

	"github.com/T3thr/Vertex-webapp-001-sub006/domain/events"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
)

// DocumentRepository defines the interface for story map persistence.
// This is a port in hexagonal architecture - the domain doesn't know about the
// implementation. One novel has at most one active document.
type DocumentRepository interface {
	// FindActiveByNovelID loads a novel's active document. Returns a
	// NotFound AppError when the novel has no document.
	FindActiveByNovelID(ctx context.Context, novelID string) (*storymap.GraphDocument, error)

	// FindByDocumentID loads a document by its own id, independent of the
	// owning novel. Returns a NotFound AppError when no document matches.
	FindByDocumentID(ctx context.Context, documentID string) (*storymap.GraphDocument, error)

	// CreateActive stores a novel's first document. Fails with a Conflict
	// AppError when an active document already exists.
	CreateActive(ctx context.Context, doc *storymap.GraphDocument) error

	// ConditionalSave writes doc only if the stored version still equals
	// expectedVersion. On a lost race it returns *storymap.VersionConflictError
	// carrying the winner's version. doc.Version must already be stamped
	// with the new version.
	ConditionalSave(ctx context.Context, doc *storymap.GraphDocument, expectedVersion int) error
}

// EventPublisher publishes domain events to the event bus. Publishing is
// best-effort from the write path's perspective; a failed publish never rolls
// back a committed document.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, batch []events.DomainEvent) error
}
