package validation

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/google/uuid"
)

// MaxCommentImages is the maximum number of images attached to one comment
const MaxCommentImages = 9

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator provides validation methods
type Validator struct {
	commentIDCache map[string]bool
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		commentIDCache: make(map[string]bool),
	}
}

// AddCommentID adds a comment ID to the uniqueness cache
func (v *Validator) AddCommentID(id string) {
	v.commentIDCache[id] = true
}

// ValidateCreate validates a new comment submitted through the API
func (v *Validator) ValidateCreate(req *models.CreateCommentRequest) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(req.ProductID) == "" {
		errors = append(errors, ValidationError{Field: "productId", Message: "productId is required"})
	}
	if req.Rating == nil {
		errors = append(errors, ValidationError{Field: "rating", Message: "rating is required"})
	} else {
		errors = append(errors, validateRating(*req.Rating)...)
	}
	errors = append(errors, validateContent(req.Content)...)
	errors = append(errors, validateImages(req.Images)...)

	return errors
}

// ValidateUpdate validates the fields present in an edit request
func (v *Validator) ValidateUpdate(req *models.UpdateCommentRequest) []ValidationError {
	var errors []ValidationError

	if req.Rating == nil && req.Content == nil && req.Images == nil {
		return []ValidationError{{Field: "body", Message: "at least one of rating, content, images is required"}}
	}
	if req.Rating != nil {
		errors = append(errors, validateRating(*req.Rating)...)
	}
	if req.Content != nil {
		errors = append(errors, validateContent(*req.Content)...)
	}
	if req.Images != nil {
		errors = append(errors, validateImages(*req.Images)...)
	}

	return errors
}

// ValidateComment validates a comment record from an NDJSON import
func (v *Validator) ValidateComment(comment *models.CommentNDJSON, lineNum int) []ValidationError {
	var errors []ValidationError

	// Validate ID
	if comment.ID == "" {
		errors = append(errors, ValidationError{Field: "id", Message: "id is required"})
	} else if !isValidUUID(comment.ID) && !strings.HasPrefix(comment.ID, "cm_") {
		errors = append(errors, ValidationError{Field: "id", Message: "invalid ID format", Value: comment.ID})
	} else if v.commentIDCache[comment.ID] {
		errors = append(errors, ValidationError{Field: "id", Message: "duplicate id", Value: comment.ID})
	}

	if strings.TrimSpace(comment.ProductID) == "" {
		errors = append(errors, ValidationError{Field: "productId", Message: "productId is required"})
	}

	if comment.Rating == nil {
		errors = append(errors, ValidationError{Field: "rating", Message: "rating is required"})
	} else {
		errors = append(errors, validateRating(*comment.Rating)...)
	}

	errors = append(errors, validateContent(comment.Content)...)
	errors = append(errors, validateImages(comment.Images)...)

	if comment.Usefulness < 0 {
		errors = append(errors, ValidationError{Field: "usefulness", Message: "usefulness must be non-negative", Value: comment.Usefulness})
	}

	if comment.Status != "" && !models.ValidStatuses[comment.Status] {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "invalid status, must be one of: approved, pending, rejected",
			Value:   comment.Status,
		})
	}

	// Validate createTime
	if comment.CreateTime == "" {
		errors = append(errors, ValidationError{Field: "createTime", Message: "createTime is required"})
	} else if _, ok := ranking.NormalizeTimestamp(comment.CreateTime); !ok {
		errors = append(errors, ValidationError{Field: "createTime", Message: "invalid ISO 8601 or YYYY-MM-DD HH:MM:SS date", Value: comment.CreateTime})
	}

	return errors
}

// CanModify reports whether a comment created at createTime may still be
// edited or deleted at now. Unreadable timestamps are never modifiable.
func CanModify(createTime interface{}, now time.Time, window time.Duration) bool {
	created, ok := ranking.NormalizeTimestamp(createTime)
	if !ok {
		return false
	}
	return now.Sub(created) < window
}

func validateRating(rating int) []ValidationError {
	if rating < models.MinRating || rating > models.MaxRating {
		return []ValidationError{{
			Field:   "rating",
			Message: fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating),
			Value:   rating,
		}}
	}
	return nil
}

func validateContent(content string) []ValidationError {
	if strings.TrimSpace(content) == "" {
		return []ValidationError{{Field: "content", Message: "content is required"}}
	}
	// Check word count (max 500 words)
	wordCount := len(strings.Fields(content))
	if wordCount > models.MaxCommentWords {
		return []ValidationError{{
			Field:   "content",
			Message: fmt.Sprintf("content exceeds maximum of %d words (has %d)", models.MaxCommentWords, wordCount),
		}}
	}
	return nil
}

func validateImages(images []string) []ValidationError {
	if len(images) > MaxCommentImages {
		return []ValidationError{{
			Field:   "images",
			Message: fmt.Sprintf("at most %d images are allowed", MaxCommentImages),
			Value:   len(images),
		}}
	}
	var errors []ValidationError
	for _, img := range images {
		u, err := url.ParseRequestURI(img)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{Field: "images", Message: "image must be an http(s) URL", Value: img})
		}
	}
	return errors
}

// isValidUUID checks if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
