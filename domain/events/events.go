package events

import "time"

// EventSource identifies this service on the event bus.
const EventSource = "storymap-engine"

// DomainEvent is the base interface for all domain events.
// Events represent something that has happened in the past.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// CommandApplied is raised after a command has been committed to a story map
// document. Consumers use it to refresh collaborator views; the engine itself
// does no fan-out.
type CommandApplied struct {
	BaseEvent
	NovelID          string `json:"novel_id"`
	DocumentID       string `json:"document_id"`
	CommandID        string `json:"command_id"`
	ResultingVersion int    `json:"resulting_version"`
	IssuedByUserID   string `json:"issued_by_user_id"`
}

// NewCommandApplied creates a CommandApplied event.
func NewCommandApplied(novelID, documentID, commandID, userID string, resultingVersion int, timestamp time.Time) CommandApplied {
	return CommandApplied{
		BaseEvent: BaseEvent{
			AggregateID: documentID,
			EventType:   "storymap.command_applied",
			Timestamp:   timestamp,
		},
		NovelID:          novelID,
		DocumentID:       documentID,
		CommandID:        commandID,
		ResultingVersion: resultingVersion,
		IssuedByUserID:   userID,
	}
}

// DocumentCreated is raised when a novel's first active story map document is
// created.
type DocumentCreated struct {
	BaseEvent
	NovelID    string `json:"novel_id"`
	DocumentID string `json:"document_id"`
	CreatedBy  string `json:"created_by"`
}

// NewDocumentCreated creates a DocumentCreated event.
func NewDocumentCreated(novelID, documentID, userID string, timestamp time.Time) DocumentCreated {
	return DocumentCreated{
		BaseEvent: BaseEvent{
			AggregateID: documentID,
			EventType:   "storymap.document_created",
			Timestamp:   timestamp,
		},
		NovelID:    novelID,
		DocumentID: documentID,
		CreatedBy:  userID,
	}
}
