package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/comment-ranking-api/internal/cache"
	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/comment-ranking-api/internal/repository"
	"github.com/comment-ranking-api/internal/validation"
	"github.com/rs/zerolog"
)

// maxReportedErrors caps the line errors returned in an ImportResult.
// ErrorCount still reports the full number.
const maxReportedErrors = 1000

const defaultImportBatchSize = 1000

// importService is the concrete implementation of ImportService
type importService struct {
	repos *repository.Repositories
	cache cache.CommentCache
	cfg   *config.Config
	log   zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, c cache.CommentCache, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos: repos,
		cache: c,
		cfg:   cfg,
		log:   log.With().Str("service", "import").Logger(),
	}
}

// importRun accumulates the state of one import
type importRun struct {
	result   *models.ImportResult
	products map[string]bool
}

func (r *importRun) addError(e models.ValidationError) {
	r.result.ErrorCount++
	if len(r.result.Errors) < maxReportedErrors {
		r.result.Errors = append(r.result.Errors, e)
	}
}

// ImportNDJSON validates and bulk inserts one comment per line
func (s *importService) ImportNDJSON(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	startTime := time.Now()

	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	validator := validation.NewValidator()
	batchSize := s.cfg.Comment.ImportBatchSize
	if batchSize <= 0 {
		batchSize = defaultImportBatchSize
	}

	run := &importRun{
		result:   &models.ImportResult{},
		products: make(map[string]bool),
	}
	batch := make([]*models.Comment, 0, batchSize)
	lineNum := 0

	s.log.Info().Int("batch_size", batchSize).Msg("Starting comment import")

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			continue
		}

		run.result.TotalRecords++

		// Respect context cancellation for long-running imports
		if lineNum%10000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		var record models.CommentNDJSON
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			run.result.FailedCount++
			run.addError(models.ValidationError{
				Line:    lineNum,
				Field:   "json",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		errs := validator.ValidateComment(&record, lineNum)
		if len(errs) == 0 {
			exists, err := s.repos.Comment.Exists(ctx, record.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				errs = append(errs, validation.ValidationError{Field: "id", Message: "comment already exists", Value: record.ID})
			}
		}
		if len(errs) > 0 {
			run.result.FailedCount++
			for _, e := range errs {
				run.addError(models.ValidationError{
					Line:    lineNum,
					Field:   e.Field,
					Message: e.Message,
					Value:   e.Value,
				})
			}
			continue
		}

		batch = append(batch, convertNDJSONToComment(&record))
		validator.AddCommentID(record.ID)

		if len(batch) >= batchSize {
			s.flushBatch(ctx, run, batch)
			batch = make([]*models.Comment, 0, batchSize)

			s.log.Debug().
				Int("processed", run.result.SuccessfulCount+run.result.FailedCount).
				Float64("rows_per_sec", float64(run.result.SuccessfulCount)/time.Since(startTime).Seconds()).
				Msg("Batch processed")
		}
	}

	// Process remaining batch
	if len(batch) > 0 {
		s.flushBatch(ctx, run, batch)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}

	for productID := range run.products {
		if err := s.cache.Invalidate(ctx, productID); err != nil {
			s.log.Warn().Err(err).Str("product_id", productID).Msg("Cache invalidation failed")
		}
	}

	// Calculate metrics
	duration := time.Since(startTime)
	run.result.DurationMs = duration.Milliseconds()
	if run.result.SuccessfulCount > 0 && duration.Seconds() > 0 {
		run.result.RowsPerSec = float64(run.result.SuccessfulCount) / duration.Seconds()
	}

	// Calculate error rate for observability
	var errorRate float64
	if run.result.TotalRecords > 0 {
		errorRate = float64(run.result.FailedCount) / float64(run.result.TotalRecords) * 100
	}

	s.log.Info().
		Int("total", run.result.TotalRecords).
		Int("successful", run.result.SuccessfulCount).
		Int("failed", run.result.FailedCount).
		Float64("error_rate_pct", errorRate).
		Int64("duration_ms", run.result.DurationMs).
		Float64("rows_per_sec", run.result.RowsPerSec).
		Msg("Import completed")

	return run.result, nil
}

// flushBatch inserts a batch; a failed insert counts every row in it as failed
func (s *importService) flushBatch(ctx context.Context, run *importRun, batch []*models.Comment) {
	inserted, err := s.repos.Comment.BatchInsert(ctx, batch)
	if err != nil {
		s.log.Error().Err(err).Int("batch_size", len(batch)).Msg("Batch insert failed")
		run.result.FailedCount += len(batch)
		run.addError(models.ValidationError{
			Field:   "batch",
			Message: fmt.Sprintf("batch of %d comments failed to insert: %v", len(batch), err),
		})
		return
	}
	run.result.SuccessfulCount += inserted
	for _, c := range batch {
		run.products[c.ProductID] = true
	}
}

func convertNDJSONToComment(ndjson *models.CommentNDJSON) *models.Comment {
	createdAt, _ := ranking.NormalizeTimestamp(ndjson.CreateTime)
	comment := &models.Comment{
		ID:         ndjson.ID,
		ProductID:  ndjson.ProductID,
		UserID:     ndjson.UserID,
		Nickname:   ndjson.Nickname,
		Rating:     *ndjson.Rating,
		Content:    ndjson.Content,
		Images:     ndjson.Images,
		Usefulness: ndjson.Usefulness,
		Status:     ndjson.Status,
		CreateTime: createdAt,
	}
	if comment.Status == "" {
		comment.Status = models.CommentStatusApproved
	}
	return comment
}
