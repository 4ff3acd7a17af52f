package service

import (
	"context"
	"time"

	"github.com/comment-ranking-api/internal/cache"
	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/comment-ranking-api/internal/repository"
	"github.com/comment-ranking-api/internal/validation"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	repos  *repository.Repositories
	cache  cache.CommentCache
	ranker *ranking.Ranker
	cfg    *config.Config
	log    zerolog.Logger
}

// newCommentService creates a new CommentService
func newCommentService(repos *repository.Repositories, c cache.CommentCache, ranker *ranking.Ranker, cfg *config.Config, log zerolog.Logger) *commentService {
	return &commentService{
		repos:  repos,
		cache:  c,
		ranker: ranker,
		cfg:    cfg,
		log:    log.With().Str("service", "comment").Logger(),
	}
}

const fallbackPageSize = 20

// rankedList is a fully ranked, unpaginated view
type rankedList struct {
	key    ranking.SortKey
	dir    ranking.Direction
	now    time.Time
	scored []ranking.Scored
}

// List returns one page of a product's comments in ranked order
func (s *commentService) List(ctx context.Context, q *models.CommentQuery) (*models.CommentPage, error) {
	list, err := s.rankProduct(ctx, q)
	if err != nil {
		return nil, err
	}

	page := s.paginate(list, q.Page, q.PageSize)
	page.ProductID = q.ProductID
	page.Days = q.Days

	s.log.Debug().
		Str("product_id", q.ProductID).
		Str("sort_by", page.SortBy).
		Str("order", page.Order).
		Int("days", q.Days).
		Int("total", page.Total).
		Msg("Comments listed")

	return page, nil
}

// Rank orders a caller-supplied list without touching storage
func (s *commentService) Rank(ctx context.Context, req *models.RankRequest) (*models.CommentPage, error) {
	w := ranking.DefaultWeights
	if p, ok := s.ranker.Profile(ranking.DefaultProfile); ok {
		w = p
	}
	if req.Weights != nil {
		if req.Weights.Rating < 0 || req.Weights.Recency < 0 {
			return nil, &ValidationFailedError{Errors: []validation.ValidationError{{
				Field:   "weights",
				Message: "weights must be non-negative",
				Value:   *req.Weights,
			}}}
		}
		w = ranking.Weights{Rating: req.Weights.Rating, Recency: req.Weights.Recency}
	}

	now := s.ranker.Now()
	comments := req.Comments
	if req.Days > 0 {
		comments = ranking.FilterByWindow(comments, req.Days, now)
	} else {
		comments = dropNil(comments)
	}

	key := ranking.ParseSortKey(req.SortBy)
	dir := ranking.ParseDirection(req.Order)
	list := &rankedList{
		key:    key,
		dir:    dir,
		now:    now,
		scored: ranking.Rank(comments, key, dir, now, w),
	}

	page := s.paginate(list, req.Page, req.PageSize)
	page.Days = req.Days
	return page, nil
}

// Create stores a new comment stamped with the current time
func (s *commentService) Create(ctx context.Context, req *models.CreateCommentRequest) (*models.Comment, error) {
	validator := validation.NewValidator()
	if errs := validator.ValidateCreate(req); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	comment := &models.Comment{
		ID:         uuid.New().String(),
		ProductID:  req.ProductID,
		UserID:     req.UserID,
		Nickname:   req.Nickname,
		Rating:     *req.Rating,
		Content:    req.Content,
		Images:     req.Images,
		Usefulness: 0,
		Status:     models.CommentStatusApproved,
		CreateTime: s.ranker.Now().UTC(),
	}

	if err := s.repos.Comment.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.invalidate(ctx, comment.ProductID)

	s.log.Info().
		Str("comment_id", comment.ID).
		Str("product_id", comment.ProductID).
		Int("rating", comment.Rating).
		Msg("Comment created")

	return comment, nil
}

// Update edits a comment that is still inside the edit window
func (s *commentService) Update(ctx context.Context, id string, req *models.UpdateCommentRequest) (*models.Comment, error) {
	validator := validation.NewValidator()
	if errs := validator.ValidateUpdate(req); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	existing, err := s.modifiable(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Rating != nil {
		updated.Rating = *req.Rating
	}
	if req.Content != nil {
		updated.Content = *req.Content
	}
	if req.Images != nil {
		updated.Images = *req.Images
	}
	now := s.ranker.Now().UTC()
	updated.UpdatedAt = &now

	if err := s.repos.Comment.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.ProductID)

	s.log.Info().Str("comment_id", id).Msg("Comment updated")
	return &updated, nil
}

// Delete removes a comment that is still inside the edit window
func (s *commentService) Delete(ctx context.Context, id string) error {
	existing, err := s.modifiable(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repos.Comment.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrCommentNotFound
	}
	s.invalidate(ctx, existing.ProductID)

	s.log.Info().Str("comment_id", id).Msg("Comment deleted")
	return nil
}

// MarkUseful records a helpful vote
func (s *commentService) MarkUseful(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := s.repos.Comment.IncrementUsefulness(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	s.invalidate(ctx, comment.ProductID)
	return comment, nil
}

// Count returns the number of stored comments
func (s *commentService) Count(ctx context.Context) (int, error) {
	return s.repos.Comment.Count(ctx)
}

// rankProduct loads, filters and ranks every comment of a product
func (s *commentService) rankProduct(ctx context.Context, q *models.CommentQuery) (*rankedList, error) {
	w, ok := s.ranker.Profile(q.Profile)
	if !ok {
		return nil, ErrUnknownProfile
	}

	comments, err := s.productComments(ctx, q.ProductID)
	if err != nil {
		return nil, err
	}

	now := s.ranker.Now()
	if q.Days > 0 {
		comments = ranking.FilterByWindow(comments, q.Days, now)
	}

	key := ranking.ParseSortKey(q.SortBy)
	dir := ranking.ParseDirection(q.Order)
	return &rankedList{
		key:    key,
		dir:    dir,
		now:    now,
		scored: ranking.Rank(comments, key, dir, now, w),
	}, nil
}

// productComments reads through the cache to the repository
func (s *commentService) productComments(ctx context.Context, productID string) ([]*models.Comment, error) {
	comments, hit, err := s.cache.GetProductComments(ctx, productID)
	if err != nil {
		s.log.Warn().Err(err).Str("product_id", productID).Msg("Cache read failed, falling back to database")
	}
	if hit {
		return comments, nil
	}

	// Taken before the database read; an invalidation in between turns the write below into a no-op.
	version, verErr := s.cache.Version(ctx, productID)
	if verErr != nil {
		s.log.Warn().Err(verErr).Str("product_id", productID).Msg("Cache version read failed")
	}

	comments, err = s.repos.Comment.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if verErr == nil {
		if err := s.cache.SetProductComments(ctx, productID, version, comments); err != nil {
			s.log.Warn().Err(err).Str("product_id", productID).Msg("Cache write failed")
		}
	}
	return comments, nil
}

// modifiable loads a comment and checks the edit window
func (s *commentService) modifiable(ctx context.Context, id string) (*models.Comment, error) {
	existing, err := s.repos.Comment.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCommentNotFound
	}
	if !validation.CanModify(existing.CreateTime, s.ranker.Now(), s.cfg.Comment.EditWindow) {
		return nil, ErrEditWindowExpired
	}
	return existing, nil
}

func (s *commentService) invalidate(ctx context.Context, productID string) {
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.log.Warn().Err(err).Str("product_id", productID).Msg("Cache invalidation failed")
	}
}

// paginate slices a ranked list into the requested page
func (s *commentService) paginate(list *rankedList, page, pageSize int) *models.CommentPage {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.Ranking.DefaultPageSize
	}
	if limit := s.cfg.Ranking.MaxPageSize; limit > 0 && pageSize > limit {
		pageSize = limit
	}
	if pageSize <= 0 {
		pageSize = fallbackPageSize
	}

	total := len(list.scored)
	totalPages := (total + pageSize - 1) / pageSize

	result := &models.CommentPage{
		SortBy:     string(list.key),
		Order:      string(list.dir),
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		Comments:   make([]*models.RankedComment, 0, pageSize),
	}

	// page <= totalPages <= total keeps the offset from overflowing
	if page > totalPages {
		return result
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	for _, sc := range list.scored[start:end] {
		result.Comments = append(result.Comments, toRanked(sc, list.now))
	}
	return result
}

// toRanked annotates a scored comment with a human readable age
func toRanked(sc ranking.Scored, now time.Time) *models.RankedComment {
	rc := &models.RankedComment{Comment: sc.Comment, Score: sc.Score}
	if t, ok := ranking.NormalizeTimestamp(sc.Comment.CreateTime); ok {
		rc.CreatedAgo = humanize.RelTime(t, now, "ago", "from now")
	}
	return rc
}

func dropNil(comments []*models.Comment) []*models.Comment {
	out := make([]*models.Comment, 0, len(comments))
	for _, c := range comments {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
