package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/commands"
	"github.com/T3thr/Vertex-webapp-001-sub006/application/ports"
	"github.com/T3thr/Vertex-webapp-001-sub006/application/queries"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	"github.com/T3thr/Vertex-webapp-001-sub006/infrastructure/config"
	"github.com/T3thr/Vertex-webapp-001-sub006/infrastructure/messaging/eventbridge"
	"github.com/T3thr/Vertex-webapp-001-sub006/infrastructure/persistence/dynamodb"
)

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	Logger             *zap.Logger
	DocumentRepo       ports.DocumentRepository
	EventPublisher     ports.EventPublisher
	ApplyHandler       *commands.ApplyCommandHandler
	CreateHandler      *commands.CreateDocumentHandler
	GetHandler         *queries.GetStoryMapHandler
	GetDocumentHandler *queries.GetDocumentHandler
	ValidateHandler    *queries.ValidateGraphHandler
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideDocumentRepository creates the DynamoDB-backed document repository
func ProvideDocumentRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DocumentRepository {
	return dynamodb.NewDocumentRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
}

// ProvideEventPublisher creates the event publisher. An empty bus name means
// events are dropped, which is the local-development default.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NewNoopPublisher()
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideValidationLimits creates the validator size limits from config
func ProvideValidationLimits(cfg *config.Config) storymap.Limits {
	return storymap.Limits{
		MaxNodes: cfg.MaxGraphNodes,
		MaxEdges: cfg.MaxGraphEdges,
	}
}

// ProvideApplyCommandHandler creates the apply-command handler
func ProvideApplyCommandHandler(
	repo ports.DocumentRepository,
	publisher ports.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *commands.ApplyCommandHandler {
	return commands.NewApplyCommandHandler(repo, publisher, cfg.CommandLedgerSize, logger)
}

// ProvideCreateDocumentHandler creates the document-provisioning handler
func ProvideCreateDocumentHandler(
	repo ports.DocumentRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *commands.CreateDocumentHandler {
	return commands.NewCreateDocumentHandler(repo, publisher, logger)
}

// ProvideGetStoryMapHandler creates the fetch handler
func ProvideGetStoryMapHandler(repo ports.DocumentRepository, logger *zap.Logger) *queries.GetStoryMapHandler {
	return queries.NewGetStoryMapHandler(repo, logger)
}

// ProvideGetDocumentHandler creates the fetch-by-document-id handler
func ProvideGetDocumentHandler(repo ports.DocumentRepository, logger *zap.Logger) *queries.GetDocumentHandler {
	return queries.NewGetDocumentHandler(repo, logger)
}

// ProvideValidateGraphHandler creates the validation handler
func ProvideValidateGraphHandler(limits storymap.Limits, logger *zap.Logger) *queries.ValidateGraphHandler {
	return queries.NewValidateGraphHandler(limits, logger)
}
