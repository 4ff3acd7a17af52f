package api

import (
	"errors"
	"net/http"

	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/products/:product_id/comments/export?format=...
// Streams the full ranked list directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	format := c.Query("format")
	if format == "" {
		format = "ndjson" // Default to NDJSON for streaming
	}
	if format != "ndjson" && format != "json" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, json"})
		return
	}

	q, err := parseCommentQuery(c, h.cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.services.Export.StreamComments(c.Request.Context(), c.Writer, q, format)
	if err == nil {
		return
	}

	h.log.Error().Err(err).Str("product_id", q.ProductID).Str("format", format).Msg("Export failed")
	// Can't return error JSON after streaming has started
	if c.Writer.Written() {
		return
	}
	switch {
	case errors.Is(err, service.ErrUnknownProfile), errors.Is(err, service.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
	}
}
