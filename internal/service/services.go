package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/comment-ranking-api/internal/cache"
	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/comment-ranking-api/internal/repository"
	"github.com/comment-ranking-api/internal/validation"
	"github.com/rs/zerolog"
)

var (
	// ErrCommentNotFound is returned when a comment id does not exist
	ErrCommentNotFound = errors.New("comment not found")
	// ErrEditWindowExpired is returned when a comment is too old to edit or delete
	ErrEditWindowExpired = errors.New("comment can no longer be modified")
	// ErrUnknownProfile is returned when a listing names an unregistered weight profile
	ErrUnknownProfile = errors.New("unknown ranking profile")
)

// ValidationFailedError carries the field errors of a rejected write
type ValidationFailedError struct {
	Errors []validation.ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// CommentService defines the interface for comment listing and lifecycle operations
type CommentService interface {
	List(ctx context.Context, q *models.CommentQuery) (*models.CommentPage, error)
	Rank(ctx context.Context, req *models.RankRequest) (*models.CommentPage, error)
	Create(ctx context.Context, req *models.CreateCommentRequest) (*models.Comment, error)
	Update(ctx context.Context, id string, req *models.UpdateCommentRequest) (*models.Comment, error)
	Delete(ctx context.Context, id string) error
	MarkUseful(ctx context.Context, id string) (*models.Comment, error)
	Count(ctx context.Context) (int, error)
}

// ImportService defines the interface for import operations
type ImportService interface {
	ImportNDJSON(ctx context.Context, r io.Reader) (*models.ImportResult, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamComments(ctx context.Context, w http.ResponseWriter, q *models.CommentQuery, format string) error
}

// Services holds all service interfaces
type Services struct {
	Comment CommentService
	Import  ImportService
	Export  ExportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, c cache.CommentCache, ranker *ranking.Ranker, cfg *config.Config, log zerolog.Logger) *Services {
	commentSvc := newCommentService(repos, c, ranker, cfg, log)
	importSvc := newImportService(repos, c, cfg, log)
	exportSvc := newExportService(commentSvc, log)

	return &Services{
		Comment: commentSvc,
		Import:  importSvc,
		Export:  exportSvc,
	}
}
