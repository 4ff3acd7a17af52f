package mocks

import (
	"context"
	"io"
	"net/http"

	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/service"
)

// MockCommentService is a mock implementation of CommentService.
// Unset funcs return zero values.
type MockCommentService struct {
	ListFunc       func(ctx context.Context, q *models.CommentQuery) (*models.CommentPage, error)
	RankFunc       func(ctx context.Context, req *models.RankRequest) (*models.CommentPage, error)
	CreateFunc     func(ctx context.Context, req *models.CreateCommentRequest) (*models.Comment, error)
	UpdateFunc     func(ctx context.Context, id string, req *models.UpdateCommentRequest) (*models.Comment, error)
	DeleteFunc     func(ctx context.Context, id string) error
	MarkUsefulFunc func(ctx context.Context, id string) (*models.Comment, error)
	Total          int
	Queries        []*models.CommentQuery
}

// Verify interface compliance
var _ service.CommentService = (*MockCommentService)(nil)

func NewMockCommentService() *MockCommentService {
	return &MockCommentService{
		Queries: make([]*models.CommentQuery, 0),
	}
}

func (m *MockCommentService) List(ctx context.Context, q *models.CommentQuery) (*models.CommentPage, error) {
	m.Queries = append(m.Queries, q)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	return &models.CommentPage{
		ProductID: q.ProductID,
		SortBy:    q.SortBy,
		Order:     q.Order,
		Days:      q.Days,
		Page:      q.Page,
		PageSize:  q.PageSize,
		Comments:  []*models.RankedComment{},
	}, nil
}

func (m *MockCommentService) Rank(ctx context.Context, req *models.RankRequest) (*models.CommentPage, error) {
	if m.RankFunc != nil {
		return m.RankFunc(ctx, req)
	}
	return &models.CommentPage{Comments: []*models.RankedComment{}}, nil
}

func (m *MockCommentService) Create(ctx context.Context, req *models.CreateCommentRequest) (*models.Comment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return &models.Comment{ID: "test-comment-id", ProductID: req.ProductID, Content: req.Content}, nil
}

func (m *MockCommentService) Update(ctx context.Context, id string, req *models.UpdateCommentRequest) (*models.Comment, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, req)
	}
	return &models.Comment{ID: id}, nil
}

func (m *MockCommentService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockCommentService) MarkUseful(ctx context.Context, id string) (*models.Comment, error) {
	if m.MarkUsefulFunc != nil {
		return m.MarkUsefulFunc(ctx, id)
	}
	return &models.Comment{ID: id, Usefulness: 1}, nil
}

func (m *MockCommentService) Count(ctx context.Context) (int, error) {
	return m.Total, nil
}

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	ImportFunc func(ctx context.Context, r io.Reader) (*models.ImportResult, error)
	Payloads   []string
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		Payloads: make([]string, 0),
	}
}

func (m *MockImportService) ImportNDJSON(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.Payloads = append(m.Payloads, string(data))
	return &models.ImportResult{}, nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamCommentsFunc func(ctx context.Context, w http.ResponseWriter, q *models.CommentQuery, format string) error
	Formats            []string
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Formats: make([]string, 0),
	}
}

func (m *MockExportService) StreamComments(ctx context.Context, w http.ResponseWriter, q *models.CommentQuery, format string) error {
	m.Formats = append(m.Formats, format)
	if m.StreamCommentsFunc != nil {
		return m.StreamCommentsFunc(ctx, w, q, format)
	}
	return nil
}
