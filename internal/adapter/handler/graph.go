package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/haidang-dev/meeting-insight/errors"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/graphstore"
)

// graphVisualizeLimit bounds the payload so large graphs stay renderable.
const graphVisualizeLimit = 300

// GraphReader is the slice of the graph store the visualization needs.
type GraphReader interface {
	Visualize(ctx context.Context, limit int) (*graphstore.GraphData, error)
}

// Graph serves the knowledge graph visualization data.
type Graph struct {
	graph  GraphReader
	logger *zap.Logger
}

// NewGraph creates the graph API handler.
func NewGraph(graph GraphReader, logger *zap.Logger) *Graph {
	return &Graph{graph: graph, logger: logger}
}

// Data returns the graph as deduplicated nodes and directed links.
func (h *Graph) Data(c echo.Context) error {
	data, err := h.graph.Visualize(c.Request().Context(), graphVisualizeLimit)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrProviderFailed("graph store", err))
	}
	return HandleSuccess(h.logger, c, data)
}
