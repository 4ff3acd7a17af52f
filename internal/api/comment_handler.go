package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/comment-ranking-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxPage bounds the page parameter of listing and rank requests
const maxPage = 100000

var pageMessage = fmt.Sprintf("page must be an integer between 1 and %d", maxPage)

// CommentHandler handles comment listing and lifecycle endpoints
type CommentHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// ListComments handles GET /v1/products/:product_id/comments
func (h *CommentHandler) ListComments(c *gin.Context) {
	q, err := parseCommentQuery(c, h.cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.services.Comment.List(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err, "failed to list comments")
		return
	}

	c.JSON(http.StatusOK, page)
}

// RankComments handles POST /v1/comments/rank
func (h *CommentHandler) RankComments(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SortBy != "" && !ranking.SortKey(req.SortBy).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": sortByMessage()})
		return
	}
	if req.Order != "" && !validOrder(req.Order) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must be one of: asc, desc"})
		return
	}
	if req.Days < 0 || req.Page < 0 || req.PageSize < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days, page and pageSize must not be negative"})
		return
	}
	if req.Page > maxPage {
		c.JSON(http.StatusBadRequest, gin.H{"error": pageMessage})
		return
	}

	page, err := h.services.Comment.Rank(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "failed to rank comments")
		return
	}

	c.JSON(http.StatusOK, page)
}

// CreateComment handles POST /v1/products/:product_id/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.ProductID = c.Param("product_id")

	comment, err := h.services.Comment.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "failed to create comment")
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// UpdateComment handles PUT /v1/comments/:comment_id
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	var req models.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, err := h.services.Comment.Update(c.Request.Context(), c.Param("comment_id"), &req)
	if err != nil {
		h.respondError(c, err, "failed to update comment")
		return
	}

	c.JSON(http.StatusOK, comment)
}

// DeleteComment handles DELETE /v1/comments/:comment_id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	if err := h.services.Comment.Delete(c.Request.Context(), c.Param("comment_id")); err != nil {
		h.respondError(c, err, "failed to delete comment")
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkUseful handles POST /v1/comments/:comment_id/useful
func (h *CommentHandler) MarkUseful(c *gin.Context) {
	comment, err := h.services.Comment.MarkUseful(c.Request.Context(), c.Param("comment_id"))
	if err != nil {
		h.respondError(c, err, "failed to record vote")
		return
	}
	c.JSON(http.StatusOK, comment)
}

// respondError maps service errors to HTTP statuses
func (h *CommentHandler) respondError(c *gin.Context, err error, msg string) {
	var vErr *service.ValidationFailedError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": vErr.Errors})
	case errors.Is(err, service.ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEditWindowExpired):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// parseCommentQuery reads and validates listing parameters. An empty days
// value selects the configured default window; an absent one disables filtering.
func parseCommentQuery(c *gin.Context, cfg *config.Config) (*models.CommentQuery, error) {
	q := &models.CommentQuery{
		ProductID: c.Param("product_id"),
		SortBy:    c.DefaultQuery("sortBy", string(ranking.SortByComposite)),
		Order:     c.DefaultQuery("order", string(ranking.Descending)),
		Profile:   c.Query("profile"),
		Page:      1,
		PageSize:  cfg.Ranking.DefaultPageSize,
	}

	if strings.TrimSpace(q.ProductID) == "" {
		return nil, errors.New("product_id is required")
	}
	if !ranking.SortKey(q.SortBy).Valid() {
		return nil, errors.New(sortByMessage())
	}
	if !validOrder(q.Order) {
		return nil, errors.New("order must be one of: asc, desc")
	}
	q.Order = strings.ToLower(q.Order)

	if raw, ok := c.GetQuery("days"); ok {
		if raw == "" {
			q.Days = cfg.Ranking.DefaultWindowDays
		} else {
			days, err := strconv.Atoi(raw)
			if err != nil || days <= 0 {
				return nil, errors.New("days must be a positive integer")
			}
			q.Days = days
		}
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 || page > maxPage {
			return nil, errors.New(pageMessage)
		}
		q.Page = page
	}
	if raw := c.Query("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > cfg.Ranking.MaxPageSize {
			return nil, fmt.Errorf("pageSize must be between 1 and %d", cfg.Ranking.MaxPageSize)
		}
		q.PageSize = size
	}

	return q, nil
}

func validOrder(order string) bool {
	return strings.EqualFold(order, string(ranking.Ascending)) || strings.EqualFold(order, string(ranking.Descending))
}

func sortByMessage() string {
	keys := make([]string, len(ranking.SortKeys))
	for i, k := range ranking.SortKeys {
		keys[i] = string(k)
	}
	return "sortBy must be one of: " + strings.Join(keys, ", ")
}
