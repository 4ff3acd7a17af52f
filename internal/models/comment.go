package models

import (
	"time"
)

// Comment represents a product review comment.
// CreateTime holds whatever the upstream supplied: a time.Time when loaded
// from the database, or a raw JSON value (usually a string) when the record
// arrives over the wire. The ranking package normalizes it on demand.
type Comment struct {
	ID         string      `json:"id" db:"id"`
	ProductID  string      `json:"productId" db:"product_id"`
	UserID     string      `json:"userId,omitempty" db:"user_id"`
	Nickname   string      `json:"nickname,omitempty" db:"nickname"`
	Rating     int         `json:"rating" db:"rating"`
	Content    string      `json:"content" db:"content"`
	Images     []string    `json:"images,omitempty" db:"images"`
	Usefulness int         `json:"usefulness" db:"usefulness"`
	Status     string      `json:"status,omitempty" db:"status"`
	CreateTime interface{} `json:"createTime" db:"created_at"`
	UpdatedAt  *time.Time  `json:"updatedAt,omitempty" db:"updated_at"`
}

// Comment statuses
const (
	CommentStatusApproved = "approved"
	CommentStatusPending  = "pending"
	CommentStatusRejected = "rejected"
)

// ValidStatuses defines allowed comment statuses
var ValidStatuses = map[string]bool{
	CommentStatusApproved: true,
	CommentStatusPending:  true,
	CommentStatusRejected: true,
}

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// MaxCommentWords is the maximum allowed words in a comment body
const MaxCommentWords = 500

// CommentNDJSON represents a comment record from NDJSON import
type CommentNDJSON struct {
	ID         string   `json:"id"`
	ProductID  string   `json:"productId"`
	UserID     string   `json:"userId"`
	Nickname   string   `json:"nickname"`
	Rating     *int     `json:"rating"`
	Content    string   `json:"content"`
	Images     []string `json:"images"`
	Usefulness int      `json:"usefulness"`
	Status     string   `json:"status"`
	CreateTime string   `json:"createTime"`
}

// CreateCommentRequest is the body of POST /v1/products/:product_id/comments
type CreateCommentRequest struct {
	ProductID string   `json:"-"`
	UserID    string   `json:"userId"`
	Nickname  string   `json:"nickname"`
	Rating    *int     `json:"rating"`
	Content   string   `json:"content"`
	Images    []string `json:"images"`
}

// UpdateCommentRequest is the body of PUT /v1/comments/:comment_id.
// Nil fields are left unchanged.
type UpdateCommentRequest struct {
	Rating  *int      `json:"rating"`
	Content *string   `json:"content"`
	Images  *[]string `json:"images"`
}
