//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/T3thr/Vertex-webapp-001-sub006/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideDocumentRepository,
	ProvideEventPublisher,
	ProvideValidationLimits,
	ProvideApplyCommandHandler,
	ProvideCreateDocumentHandler,
	ProvideGetStoryMapHandler,
	ProvideGetDocumentHandler,
	ProvideValidateGraphHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
