package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/mocks"
	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/comment-ranking-api/internal/repository"
	"github.com/comment-ranking-api/internal/service"
	"github.com/rs/zerolog"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svcs  *service.Services
	repo  *mocks.MockCommentRepository
	cache *mocks.MockCommentCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := mocks.NewMockCommentRepository()
	c := mocks.NewMockCommentCache()
	ranker := ranking.New(
		ranking.WithClock(func() time.Time { return testNow }),
		ranking.WithProfiles(ranking.Profiles{"trending": {Rating: 0, Recency: 1}}),
	)
	cfg := &config.Config{
		Ranking: config.RankingConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Comment: config.CommentConfig{EditWindow: 7 * 24 * time.Hour, ImportBatchSize: 2},
	}

	repos := &repository.Repositories{Comment: repo}
	return &testEnv{
		svcs:  service.NewServices(repos, c, ranker, cfg, zerolog.Nop()),
		repo:  repo,
		cache: c,
	}
}

// seed stores four P001 comments and one P002 comment
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	fixtures := []*models.Comment{
		{ID: "c1", ProductID: "P001", Rating: 5, Usefulness: 3, Content: "excellent", CreateTime: testNow.AddDate(0, 0, -10)},
		{ID: "c2", ProductID: "P001", Rating: 3, Usefulness: 10, Content: "average", CreateTime: testNow.AddDate(0, 0, -2)},
		{ID: "c3", ProductID: "P001", Rating: 1, Usefulness: 0, Content: "awful", CreateTime: "2024-05-06T12:00:00Z"},
		{ID: "c4", ProductID: "P001", Rating: 4, Usefulness: 1, Content: "good", CreateTime: "2024-06-14 12:00:00"},
		{ID: "c5", ProductID: "P002", Rating: 5, Usefulness: 0, Content: "other product", CreateTime: testNow},
	}
	for _, c := range fixtures {
		if err := e.repo.Create(ctx, c); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func pageIDs(page *models.CommentPage) []string {
	ids := make([]string, len(page.Comments))
	for i, c := range page.Comments {
		ids[i] = c.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func intPtr(i int) *int { return &i }

func TestCommentService_List(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query *models.CommentQuery
		want  []string
	}{
		{"rating desc", &models.CommentQuery{ProductID: "P001", SortBy: "rating", Order: "desc"}, []string{"c1", "c4", "c2", "c3"}},
		{"rating asc", &models.CommentQuery{ProductID: "P001", SortBy: "rating", Order: "asc"}, []string{"c3", "c2", "c4", "c1"}},
		{"time desc", &models.CommentQuery{ProductID: "P001", SortBy: "time", Order: "desc"}, []string{"c4", "c2", "c1", "c3"}},
		{"usefulness desc", &models.CommentQuery{ProductID: "P001", SortBy: "usefulness"}, []string{"c2", "c1", "c4", "c3"}},
		{"last 30 days", &models.CommentQuery{ProductID: "P001", SortBy: "rating", Days: 30}, []string{"c1", "c4", "c2"}},
		{"trending profile", &models.CommentQuery{ProductID: "P001", SortBy: "composite", Profile: "trending"}, []string{"c4", "c2", "c1", "c3"}},
		{"unknown product", &models.CommentQuery{ProductID: "P999"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.svcs.Comment.List(ctx, tt.query)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if got := pageIDs(page); !equalIDs(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if page.Total != len(tt.want) {
				t.Errorf("Expected total %d, got %d", len(tt.want), page.Total)
			}
		})
	}
}

func TestCommentService_ListPagination(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	page, err := env.svcs.Comment.List(context.Background(), &models.CommentQuery{
		ProductID: "P001", SortBy: "rating", Order: "desc", Page: 2, PageSize: 2,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if got := pageIDs(page); !equalIDs(got, []string{"c2", "c3"}) {
		t.Errorf("Expected second page [c2 c3], got %v", got)
	}
	if page.Total != 4 || page.TotalPages != 2 {
		t.Errorf("Expected total 4 over 2 pages, got %d over %d", page.Total, page.TotalPages)
	}

	beyond, _ := env.svcs.Comment.List(context.Background(), &models.CommentQuery{
		ProductID: "P001", Page: 5, PageSize: 2,
	})
	if beyond.Comments == nil || len(beyond.Comments) != 0 {
		t.Errorf("Expected empty page past the end, got %v", pageIDs(beyond))
	}
}

func TestCommentService_ListAnnotations(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	page, err := env.svcs.Comment.List(context.Background(), &models.CommentQuery{
		ProductID: "P001", SortBy: "time", Order: "desc",
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	first := page.Comments[0]
	if first.ID != "c4" {
		t.Fatalf("Expected c4 first, got %s", first.ID)
	}
	if first.CreatedAgo != "1 day ago" {
		t.Errorf("Expected createdAgo '1 day ago', got '%s'", first.CreatedAgo)
	}
	if page.SortBy != "time" || page.Order != "desc" {
		t.Errorf("Expected normalized sort_by/order, got %s/%s", page.SortBy, page.Order)
	}
}

func TestCommentService_ListUsesCache(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()
	q := &models.CommentQuery{ProductID: "P001", SortBy: "rating"}

	for i := 0; i < 3; i++ {
		if _, err := env.svcs.Comment.List(ctx, q); err != nil {
			t.Fatalf("List failed: %v", err)
		}
	}

	if env.repo.ListCalls != 1 {
		t.Errorf("Expected 1 repository read, got %d", env.repo.ListCalls)
	}
	if env.cache.Hits != 2 || env.cache.Misses != 1 {
		t.Errorf("Expected 2 hits and 1 miss, got %d and %d", env.cache.Hits, env.cache.Misses)
	}
}

func TestCommentService_ListSkipsCacheWriteAfterInvalidation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	// A write lands between the cache miss and the database read returning
	env.repo.OnList = func(productID string) {
		env.repo.OnList = nil
		env.cache.Invalidate(ctx, productID)
	}

	if _, err := env.svcs.Comment.List(ctx, &models.CommentQuery{ProductID: "P001"}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if _, ok := env.cache.Entries["P001"]; ok {
		t.Error("Expected list read across an invalidation to stay out of the cache")
	}

	if _, err := env.svcs.Comment.List(ctx, &models.CommentQuery{ProductID: "P001"}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if _, ok := env.cache.Entries["P001"]; !ok {
		t.Error("Expected the next list to populate the cache")
	}
	if env.repo.ListCalls != 2 {
		t.Errorf("Expected 2 repository reads, got %d", env.repo.ListCalls)
	}
}

func TestCommentService_ListCacheErrorFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.cache.GetError = errors.New("redis down")

	page, err := env.svcs.Comment.List(context.Background(), &models.CommentQuery{ProductID: "P001"})
	if err != nil {
		t.Fatalf("Expected fallback to repository, got %v", err)
	}
	if page.Total != 4 {
		t.Errorf("Expected 4 comments, got %d", page.Total)
	}
}

func TestCommentService_ListErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svcs.Comment.List(ctx, &models.CommentQuery{ProductID: "P001", Profile: "missing"}); !errors.Is(err, service.ErrUnknownProfile) {
		t.Errorf("Expected ErrUnknownProfile, got %v", err)
	}

	env.repo.ListError = errors.New("connection refused")
	if _, err := env.svcs.Comment.List(ctx, &models.CommentQuery{ProductID: "P001"}); err == nil {
		t.Error("Expected repository error to propagate")
	}
}

func TestCommentService_Rank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	comments := []*models.Comment{
		{ID: "old-five", Rating: 5, CreateTime: "2024-03-17T12:00:00Z"},
		nil,
		{ID: "new-three", Rating: 3, CreateTime: "2024-06-15 11:00:00"},
		{ID: "broken", Rating: 4, CreateTime: "not a date"},
	}

	page, err := env.svcs.Comment.Rank(ctx, &models.RankRequest{Comments: comments, SortBy: "time"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if got := pageIDs(page); !equalIDs(got, []string{"new-three", "old-five", "broken"}) {
		t.Errorf("Expected invalid timestamp last and nil dropped, got %v", got)
	}

	page, _ = env.svcs.Comment.Rank(ctx, &models.RankRequest{
		Comments: comments,
		SortBy:   "composite",
		Weights:  &models.Weights{Rating: 0, Recency: 1},
	})
	if page.Comments[0].ID != "new-three" {
		t.Errorf("Expected recency-only weights to favour new-three, got %v", pageIDs(page))
	}

	page, _ = env.svcs.Comment.Rank(ctx, &models.RankRequest{Comments: comments, SortBy: "rating", Days: 30})
	if got := pageIDs(page); !equalIDs(got, []string{"new-three"}) {
		t.Errorf("Expected only new-three inside 30 days, got %v", got)
	}

	_, err = env.svcs.Comment.Rank(ctx, &models.RankRequest{Comments: comments, Weights: &models.Weights{Rating: -1}})
	var vErr *service.ValidationFailedError
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationFailedError for negative weights, got %v", err)
	}
}

func TestCommentService_PagesPastTheEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		page     int
		pageSize int
		want     int
	}{
		{"last partial page", 2, 3, 1},
		{"first page past the end", 3, 3, 0},
		{"offset would overflow", math.MaxInt / 2, 100, 0},
		{"largest page", math.MaxInt, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.svcs.Comment.List(ctx, &models.CommentQuery{ProductID: "P001", Page: tt.page, PageSize: tt.pageSize})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(page.Comments) != tt.want {
				t.Errorf("Expected %d comments, got %d", tt.want, len(page.Comments))
			}
			if page.Total != 4 {
				t.Errorf("Expected total 4, got %d", page.Total)
			}
		})
	}
}

func TestCommentService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svcs.Comment.Create(ctx, &models.CreateCommentRequest{ProductID: "P001", Content: "no rating"})
	var vErr *service.ValidationFailedError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationFailedError, got %v", err)
	}
	if len(vErr.Errors) != 1 || vErr.Errors[0].Field != "rating" {
		t.Errorf("Expected single rating error, got %v", vErr.Errors)
	}

	comment, err := env.svcs.Comment.Create(ctx, &models.CreateCommentRequest{
		ProductID: "P001",
		Nickname:  "alice",
		Rating:    intPtr(4),
		Content:   "Does the job",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if comment.ID == "" || comment.Status != models.CommentStatusApproved {
		t.Errorf("Expected generated id and approved status, got %+v", comment)
	}
	if ts, ok := comment.CreateTime.(time.Time); !ok || !ts.Equal(testNow) {
		t.Errorf("Expected createTime %v, got %v", testNow, comment.CreateTime)
	}
	if stored, _ := env.repo.GetByID(ctx, comment.ID); stored == nil {
		t.Error("Comment should be stored")
	}
	if len(env.cache.Invalidations) != 1 || env.cache.Invalidations[0] != "P001" {
		t.Errorf("Expected P001 invalidated, got %v", env.cache.Invalidations)
	}
}

func TestCommentService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()
	content := "changed my mind"

	updated, err := env.svcs.Comment.Update(ctx, "c2", &models.UpdateCommentRequest{Rating: intPtr(2), Content: &content})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Rating != 2 || updated.Content != content || updated.UpdatedAt == nil {
		t.Errorf("Unexpected updated comment: %+v", updated)
	}

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"outside edit window", "c1", service.ErrEditWindowExpired},
		{"unknown comment", "missing", service.ErrCommentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svcs.Comment.Update(ctx, tt.id, &models.UpdateCommentRequest{Content: &content}); !errors.Is(err, tt.want) {
				t.Errorf("Update: expected %v, got %v", tt.want, err)
			}
			if err := env.svcs.Comment.Delete(ctx, tt.id); !errors.Is(err, tt.want) {
				t.Errorf("Delete: expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := env.svcs.Comment.Delete(ctx, "c4"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if exists, _ := env.repo.Exists(ctx, "c4"); exists {
		t.Error("c4 should be deleted")
	}
}

func TestCommentService_MarkUseful(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	comment, err := env.svcs.Comment.MarkUseful(ctx, "c3")
	if err != nil {
		t.Fatalf("MarkUseful failed: %v", err)
	}
	if comment.Usefulness != 1 {
		t.Errorf("Expected usefulness 1, got %d", comment.Usefulness)
	}

	if _, err := env.svcs.Comment.MarkUseful(ctx, "missing"); !errors.Is(err, service.ErrCommentNotFound) {
		t.Errorf("Expected ErrCommentNotFound, got %v", err)
	}

	count, _ := env.svcs.Comment.Count(ctx)
	if count != 5 {
		t.Errorf("Expected 5 comments, got %d", count)
	}
}

func TestImportService_ImportNDJSON(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.repo.Create(ctx, &models.Comment{ID: "cm_existing", ProductID: "P009", CreateTime: testNow})

	input := strings.Join([]string{
		`{"id":"cm_a","productId":"P001","rating":5,"content":"great","createTime":"2024-06-01T10:00:00Z"}`,
		`{"id":"cm_broken",`,
		``,
		`{"id":"cm_b","productId":"P002","rating":2,"content":"meh","createTime":"2024-06-02 10:00:00"}`,
		`{"id":"cm_bad","productId":"P001","rating":7,"content":"too many stars","createTime":"2024-06-01T10:00:00Z"}`,
		`{"id":"cm_a","productId":"P001","rating":4,"content":"again","createTime":"2024-06-01T10:00:00Z"}`,
		`{"id":"cm_c","productId":"P001","rating":3,"content":"fine","createTime":"2024-06-03T10:00:00+02:00"}`,
		`{"id":"cm_existing","productId":"P009","rating":3,"content":"dupe","createTime":"2024-06-03T10:00:00Z"}`,
	}, "\n")

	result, err := env.svcs.Import.ImportNDJSON(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportNDJSON failed: %v", err)
	}

	if result.TotalRecords != 7 {
		t.Errorf("Expected 7 records, got %d", result.TotalRecords)
	}
	if result.SuccessfulCount != 3 {
		t.Errorf("Expected 3 successful, got %d", result.SuccessfulCount)
	}
	if result.FailedCount != 4 || result.ErrorCount != 4 {
		t.Errorf("Expected 4 failed with 4 errors, got %d and %d", result.FailedCount, result.ErrorCount)
	}
	if result.Errors[0].Line != 2 || result.Errors[0].Field != "json" {
		t.Errorf("Expected JSON error on line 2, got %+v", result.Errors[0])
	}
	if env.repo.BatchInsertCalls != 2 {
		t.Errorf("Expected 2 batch inserts with batch size 2, got %d", env.repo.BatchInsertCalls)
	}

	stored, _ := env.repo.GetByID(ctx, "cm_b")
	if stored == nil {
		t.Fatal("cm_b should be stored")
	}
	if ts, ok := stored.CreateTime.(time.Time); !ok || !ts.Equal(time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected normalized createTime, got %v", stored.CreateTime)
	}
	if stored.Status != models.CommentStatusApproved {
		t.Errorf("Expected default status approved, got %s", stored.Status)
	}

	invalidated := map[string]bool{}
	for _, p := range env.cache.Invalidations {
		invalidated[p] = true
	}
	if !invalidated["P001"] || !invalidated["P002"] {
		t.Errorf("Expected P001 and P002 invalidated, got %v", env.cache.Invalidations)
	}
}

func TestImportService_BatchInsertFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.BatchInsertFunc = func(ctx context.Context, comments []*models.Comment) (int, error) {
		return 0, errors.New("copy failed")
	}

	input := `{"id":"cm_a","productId":"P001","rating":5,"content":"great","createTime":"2024-06-01T10:00:00Z"}`
	result, err := env.svcs.Import.ImportNDJSON(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportNDJSON failed: %v", err)
	}
	if result.SuccessfulCount != 0 || result.FailedCount != 1 {
		t.Errorf("Expected the batch counted as failed, got %+v", result)
	}
	if len(env.cache.Invalidations) != 0 {
		t.Errorf("Expected no invalidation after failed insert, got %v", env.cache.Invalidations)
	}
}

var errClientGone = errors.New("client gone")

// failingWriter fails the failAt-th write (1-based)
type failingWriter struct {
	*httptest.ResponseRecorder
	writes int
	failAt int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes == w.failAt {
		return 0, errClientGone
	}
	return w.ResponseRecorder.Write(p)
}

func TestExportService_StreamJSONWriteErrors(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	q := &models.CommentQuery{ProductID: "P001"}

	// Four comments: "[" then item, ",", item, ",", item, ",", item, then "]"
	tests := []struct {
		name   string
		failAt int
	}{
		{"opening bracket", 1},
		{"first item", 2},
		{"first separator", 3},
		{"last separator", 7},
		{"closing bracket", 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &failingWriter{ResponseRecorder: httptest.NewRecorder(), failAt: tt.failAt}
			err := env.svcs.Export.StreamComments(context.Background(), w, q, "json")
			if !errors.Is(err, errClientGone) {
				t.Errorf("Expected write error, got %v", err)
			}
			if w.writes != tt.failAt {
				t.Errorf("Expected export to stop after write %d, got %d writes", tt.failAt, w.writes)
			}
		})
	}
}

func TestExportService_StreamComments(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()
	q := &models.CommentQuery{ProductID: "P001", SortBy: "time", Order: "desc"}

	rec := httptest.NewRecorder()
	if err := env.svcs.Export.StreamComments(ctx, rec, q, "ndjson"); err != nil {
		t.Fatalf("ndjson export failed: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Expected ndjson content type, got %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d", len(lines))
	}
	var first models.Comment
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Invalid ndjson line: %v", err)
	}
	if first.ID != "c4" {
		t.Errorf("Expected newest comment first, got %s", first.ID)
	}

	rec = httptest.NewRecorder()
	if err := env.svcs.Export.StreamComments(ctx, rec, q, "json"); err != nil {
		t.Fatalf("json export failed: %v", err)
	}
	var all []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("Invalid JSON array: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 comments, got %d", len(all))
	}
	if _, ok := all[0]["score"]; !ok {
		t.Error("Expected exported comments to carry a score")
	}

	rec = httptest.NewRecorder()
	if err := env.svcs.Export.StreamComments(ctx, rec, q, "csv"); !errors.Is(err, service.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}
