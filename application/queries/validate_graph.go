package queries

import (
	"context"

	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// ValidateGraphQuery runs the structural validator over a candidate graph.
// The candidate does not have to be persisted; editors validate unsaved drafts
// with the same code path.
type ValidateGraphQuery struct {
	Nodes       []storymap.GraphNode `json:"nodes"`
	Edges       []storymap.GraphEdge `json:"edges"`
	StartNodeID string               `json:"startNodeId,omitempty"`
}

// ValidateGraphHandler handles the ValidateGraphQuery
type ValidateGraphHandler struct {
	limits storymap.Limits
	logger *zap.Logger
}

// NewValidateGraphHandler creates a new handler instance
func NewValidateGraphHandler(limits storymap.Limits, logger *zap.Logger) *ValidateGraphHandler {
	if limits.MaxNodes <= 0 && limits.MaxEdges <= 0 {
		limits = storymap.DefaultLimits()
	}
	return &ValidateGraphHandler{limits: limits, logger: logger}
}

// Handle executes the query
func (h *ValidateGraphHandler) Handle(ctx context.Context, query ValidateGraphQuery) (*storymap.ValidationReport, error) {
	report, err := storymap.ValidateWithLimits(query.Nodes, query.Edges, query.StartNodeID, h.limits)
	if err != nil {
		if storymap.IsInvalidArgument(err) {
			return nil, apperrors.NewInvalidArgumentError(err.Error())
		}
		return nil, err
	}

	h.logger.Debug("graph validated",
		zap.Int("nodes", report.Summary.TotalNodes),
		zap.Int("edges", report.Summary.TotalEdges),
		zap.Int("errors", report.Summary.ErrorCount),
		zap.Int("warnings", report.Summary.WarningCount),
	)
	return report, nil
}
