package mocks

import (
	"context"
	"sync"

	"github.com/comment-ranking-api/internal/cache"
	"github.com/comment-ranking-api/internal/models"
)

// MockCommentCache is an in-memory CommentCache that records its traffic
type MockCommentCache struct {
	mu            sync.Mutex
	Entries       map[string][]*models.Comment
	Versions      map[string]int64
	GetError      error
	SetError      error
	Hits          int
	Misses        int
	Invalidations []string
}

// Verify interface compliance
var _ cache.CommentCache = (*MockCommentCache)(nil)

func NewMockCommentCache() *MockCommentCache {
	return &MockCommentCache{
		Entries:  make(map[string][]*models.Comment),
		Versions: make(map[string]int64),
	}
}

func (m *MockCommentCache) GetProductComments(ctx context.Context, productID string) ([]*models.Comment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	comments, ok := m.Entries[productID]
	if !ok {
		m.Misses++
		return nil, false, nil
	}
	m.Hits++
	return comments, true, nil
}

func (m *MockCommentCache) Version(ctx context.Context, productID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Versions[productID], nil
}

func (m *MockCommentCache) SetProductComments(ctx context.Context, productID string, version int64, comments []*models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetError != nil {
		return m.SetError
	}
	if m.Versions[productID] != version {
		return nil
	}
	m.Entries[productID] = comments
	return nil
}

func (m *MockCommentCache) Invalidate(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Entries, productID)
	m.Versions[productID]++
	m.Invalidations = append(m.Invalidations, productID)
	return nil
}

func (m *MockCommentCache) Close() error {
	return nil
}
