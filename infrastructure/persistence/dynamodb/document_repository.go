package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/ports"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// DocumentRepository implements ports.DocumentRepository using DynamoDB.
//
// Single-table layout: one item per active document under
// PK=NOVEL#<novelId>, SK=STORYMAP#ACTIVE, with GSI1 keyed by document id for
// direct lookups. The Version attribute doubles as the CAS token: every save
// is conditioned on the version the write was admitted against.
type DocumentRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string // GSI1 - direct documentId lookups
	logger    *zap.Logger
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) ports.DocumentRepository {
	return &DocumentRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// documentItem represents the DynamoDB item structure for a story map document
type documentItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`

	DocumentID      string                    `dynamodbav:"DocumentID"`
	NovelID         string                    `dynamodbav:"NovelID"`
	Version         int                       `dynamodbav:"Version"`
	Nodes           []storymap.GraphNode      `dynamodbav:"Nodes"`
	Edges           []storymap.GraphEdge      `dynamodbav:"Edges"`
	StartNodeID     string                    `dynamodbav:"StartNodeID,omitempty"`
	Variables       []storymap.StoryVariable  `dynamodbav:"Variables,omitempty"`
	EditorMetadata  storymap.EditorMetadata   `dynamodbav:"EditorMetadata"`
	LastModifiedBy  string                    `dynamodbav:"LastModifiedBy,omitempty"`
	LastSyncedAt    string                    `dynamodbav:"LastSyncedAt"`
	PendingCommands []storymap.AppliedCommand `dynamodbav:"PendingCommands,omitempty"`
}

func novelPK(novelID string) string { return fmt.Sprintf("NOVEL#%s", novelID) }

const activeSK = "STORYMAP#ACTIVE"

func toItem(doc *storymap.GraphDocument) documentItem {
	return documentItem{
		PK:         novelPK(doc.NovelID),
		SK:         activeSK,
		GSI1PK:     fmt.Sprintf("DOCID#%s", doc.DocumentID),
		GSI1SK:     "METADATA",
		EntityType: "STORYMAP",

		DocumentID:      doc.DocumentID,
		NovelID:         doc.NovelID,
		Version:         doc.Version,
		Nodes:           doc.Nodes,
		Edges:           doc.Edges,
		StartNodeID:     doc.StartNodeID,
		Variables:       doc.Variables,
		EditorMetadata:  doc.EditorMetadata,
		LastModifiedBy:  doc.LastModifiedBy,
		LastSyncedAt:    doc.LastSyncedAt.Format(time.RFC3339Nano),
		PendingCommands: doc.PendingCommands,
	}
}

func fromItem(item documentItem) *storymap.GraphDocument {
	syncedAt, _ := time.Parse(time.RFC3339Nano, item.LastSyncedAt)
	doc := &storymap.GraphDocument{
		DocumentID:      item.DocumentID,
		NovelID:         item.NovelID,
		Version:         item.Version,
		Nodes:           item.Nodes,
		Edges:           item.Edges,
		StartNodeID:     item.StartNodeID,
		Variables:       item.Variables,
		EditorMetadata:  item.EditorMetadata,
		LastModifiedBy:  item.LastModifiedBy,
		LastSyncedAt:    syncedAt,
		PendingCommands: item.PendingCommands,
	}
	if doc.Nodes == nil {
		doc.Nodes = []storymap.GraphNode{}
	}
	if doc.Edges == nil {
		doc.Edges = []storymap.GraphEdge{}
	}
	return doc
}

// FindActiveByNovelID loads a novel's active document
func (r *DocumentRepository) FindActiveByNovelID(ctx context.Context, novelID string) (*storymap.GraphDocument, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: novelPK(novelID)},
			"SK": &types.AttributeValueMemberS{Value: activeSK},
		},
	})
	if err != nil {
		r.logger.Error("Failed to load story map document",
			zap.Error(err),
			zap.String("novelID", novelID),
		)
		return nil, apperrors.NewDatabaseError("get story map document", err)
	}
	if result.Item == nil {
		return nil, apperrors.NewNotFoundError("story map document")
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal story map document", err)
	}

	return fromItem(item), nil
}

// FindByDocumentID loads a document by its own id via the GSI1 index
func (r *DocumentRepository) FindByDocumentID(ctx context.Context, documentID string) (*storymap.GraphDocument, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("DOCID#%s", documentID)},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		r.logger.Error("Failed to query story map document by id",
			zap.Error(err),
			zap.String("documentID", documentID),
		)
		return nil, apperrors.NewDatabaseError("query story map document", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError("story map document")
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal story map document", err)
	}

	return fromItem(item), nil
}

// CreateActive stores a novel's first document
func (r *DocumentRepository) CreateActive(ctx context.Context, doc *storymap.GraphDocument) error {
	av, err := attributevalue.MarshalMap(toItem(doc))
	if err != nil {
		return apperrors.NewDatabaseError("marshal story map document", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.NewConflictError("story map document already exists")
		}
		r.logger.Error("Failed to create story map document",
			zap.Error(err),
			zap.String("novelID", doc.NovelID),
		)
		return apperrors.NewDatabaseError("create story map document", err)
	}

	r.logger.Info("Created story map document",
		zap.String("novelID", doc.NovelID),
		zap.String("documentID", doc.DocumentID),
	)
	return nil
}

// ConditionalSave writes doc only if the stored version still equals
// expectedVersion. The conditional put is the arbiter of concurrent writers:
// exactly one racer's condition holds, the rest get a version conflict with
// the winner's version.
func (r *DocumentRepository) ConditionalSave(ctx context.Context, doc *storymap.GraphDocument, expectedVersion int) error {
	av, err := attributevalue.MarshalMap(toItem(doc))
	if err != nil {
		return apperrors.NewDatabaseError("marshal story map document", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("#v = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#v": "Version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return r.conflictWithCurrentVersion(ctx, doc, expectedVersion)
		}
		r.logger.Error("Failed to save story map document",
			zap.Error(err),
			zap.String("novelID", doc.NovelID),
			zap.Int("expectedVersion", expectedVersion),
		)
		return apperrors.NewDatabaseError("save story map document", err)
	}

	r.logger.Debug("Saved story map document",
		zap.String("novelID", doc.NovelID),
		zap.String("documentID", doc.DocumentID),
		zap.Int("version", doc.Version),
	)
	return nil
}

// conflictWithCurrentVersion re-reads the winner so the conflict error carries
// the version the loser must reload to.
func (r *DocumentRepository) conflictWithCurrentVersion(ctx context.Context, doc *storymap.GraphDocument, expectedVersion int) error {
	current, err := r.FindActiveByNovelID(ctx, doc.NovelID)
	currentVersion := expectedVersion
	if err == nil {
		currentVersion = current.Version
	}

	r.logger.Warn("Conditional save lost the race",
		zap.String("novelID", doc.NovelID),
		zap.Int("expectedVersion", expectedVersion),
		zap.Int("currentVersion", currentVersion),
	)
	return &storymap.VersionConflictError{
		DocumentID:       doc.DocumentID,
		SubmittedVersion: expectedVersion,
		CurrentVersion:   currentVersion,
	}
}
