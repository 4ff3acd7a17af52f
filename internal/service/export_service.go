package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/comment-ranking-api/internal/models"
	"github.com/rs/zerolog"
)

// ErrUnsupportedFormat is returned for export formats other than ndjson and json
var ErrUnsupportedFormat = errors.New("unsupported export format")

// exportService is the concrete implementation of ExportService
type exportService struct {
	comments *commentService
	log      zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(comments *commentService, log zerolog.Logger) *exportService {
	return &exportService{
		comments: comments,
		log:      log.With().Str("service", "export").Logger(),
	}
}

// StreamComments streams a product's full ranked list in the specified format
func (s *exportService) StreamComments(ctx context.Context, w http.ResponseWriter, q *models.CommentQuery, format string) error {
	if format != "ndjson" && format != "json" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	list, err := s.comments.rankProduct(ctx, q)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("product_id", q.ProductID).
		Str("format", format).
		Str("sort_by", string(list.key)).
		Str("order", string(list.dir)).
		Int("count", len(list.scored)).
		Msg("Starting comments export")

	filename := fmt.Sprintf("comments-%s.%s", q.ProductID, format)
	if format == "ndjson" {
		return s.streamNDJSON(ctx, w, list, filename)
	}
	return s.streamJSON(ctx, w, list, filename)
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter, list *rankedList, filename string) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	flusher, _ := w.(http.Flusher)
	count := 0

	for _, sc := range list.scored {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(toRanked(sc, list.now))
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
	}

	s.log.Info().Int("count", count).Msg("Comments export completed")
	return nil
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter, list *rankedList, filename string) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if _, err := w.Write([]byte("[")); err != nil {
		return err
	}
	for i, sc := range list.scored {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		data, err := json.Marshal(toRanked(sc, list.now))
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("]"))
	return err
}
