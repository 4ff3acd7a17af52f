package mocks

import (
	"context"
	"sync"

	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/repository"
)

// MockCommentRepository is a mock implementation of CommentRepository.
// It keeps insertion order so listings are deterministic.
type MockCommentRepository struct {
	mu               sync.Mutex
	Comments         map[string]*models.Comment
	order            []string
	InsertError      error
	ListError        error
	InsertedCount    int
	BatchInsertFunc  func(ctx context.Context, comments []*models.Comment) (int, error)
	BatchInsertCalls int
	ListCalls        int
	// OnList runs at the start of every ListByProduct call
	OnList func(productID string)
}

// Verify interface compliance
var _ repository.CommentRepository = (*MockCommentRepository)(nil)

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{
		Comments: make(map[string]*models.Comment),
	}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	m.put(comment)
	return nil
}

func (m *MockCommentRepository) BatchInsert(ctx context.Context, comments []*models.Comment) (int, error) {
	m.mu.Lock()
	m.BatchInsertCalls++
	m.mu.Unlock()
	if m.BatchInsertFunc != nil {
		return m.BatchInsertFunc(ctx, comments)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	for _, c := range comments {
		m.put(c)
	}
	m.InsertedCount += len(comments)
	return len(comments), nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Comments[id], nil
}

func (m *MockCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Comments[comment.ID]; ok {
		m.Comments[comment.ID] = comment
	}
	return nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Comments[id]; !ok {
		return false, nil
	}
	delete(m.Comments, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MockCommentRepository) IncrementUsefulness(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	updated := *c
	updated.Usefulness++
	m.Comments[id] = &updated
	return &updated, nil
}

func (m *MockCommentRepository) ListByProduct(ctx context.Context, productID string) ([]*models.Comment, error) {
	if m.OnList != nil {
		m.OnList(productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}
	comments := make([]*models.Comment, 0)
	for _, id := range m.order {
		if c := m.Comments[id]; c.ProductID == productID {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

func (m *MockCommentRepository) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.Comments[id]
	return exists, nil
}

func (m *MockCommentRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Comments), nil
}

func (m *MockCommentRepository) put(c *models.Comment) {
	if _, exists := m.Comments[c.ID]; !exists {
		m.order = append(m.order, c.ID)
	}
	m.Comments[c.ID] = c
}
