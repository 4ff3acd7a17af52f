package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/comment-ranking-api/internal/database"
	"github.com/comment-ranking-api/internal/models"
	"github.com/comment-ranking-api/internal/ranking"
	"github.com/lib/pq"
)

const commentColumns = `id, product_id, user_id, nickname, rating, content, images, usefulness, status, created_at, updated_at`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, product_id, user_id, nickname, rating, content, images, usefulness, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.ProductID, comment.UserID, comment.Nickname, comment.Rating,
		comment.Content, pq.Array(imagesOrEmpty(comment.Images)), comment.Usefulness,
		comment.Status, createdAt(comment),
	)
	return err
}

// BatchInsert inserts multiple comments using PostgreSQL COPY
func (r *commentRepo) BatchInsert(ctx context.Context, comments []*models.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("comments",
		"id", "product_id", "user_id", "nickname", "rating", "content",
		"images", "usefulness", "status", "created_at",
	))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, comment := range comments {
		_, err := stmt.ExecContext(ctx,
			comment.ID, comment.ProductID, comment.UserID, comment.Nickname, comment.Rating,
			comment.Content, pq.Array(imagesOrEmpty(comment.Images)), comment.Usefulness,
			comment.Status, createdAt(comment),
		)
		if err != nil {
			continue
		}
		inserted++
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return inserted, nil
}

// GetByID retrieves a comment by ID
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Update rewrites the editable fields of a comment
func (r *commentRepo) Update(ctx context.Context, comment *models.Comment) error {
	now := time.Now()
	query := `UPDATE comments SET rating = $1, content = $2, images = $3, updated_at = $4 WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query,
		comment.Rating, comment.Content, pq.Array(imagesOrEmpty(comment.Images)), now, comment.ID,
	)
	if err == nil {
		comment.UpdatedAt = &now
	}
	return err
}

// Delete removes a comment, reporting whether a row was deleted
func (r *commentRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// IncrementUsefulness records one helpful vote and returns the updated comment
func (r *commentRepo) IncrementUsefulness(ctx context.Context, id string) (*models.Comment, error) {
	query := `UPDATE comments SET usefulness = usefulness + 1 WHERE id = $1 RETURNING ` + commentColumns

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListByProduct returns every comment of a product in insertion order.
// Ranking is applied by the service layer.
func (r *commentRepo) ListByProduct(ctx context.Context, productID string) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE product_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	return comments, rows.Err()
}

// Exists checks if a comment with the given ID exists
func (r *commentRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// Count returns the total number of comments
func (r *commentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var comment models.Comment
	var created time.Time
	var updated sql.NullTime

	err := row.Scan(
		&comment.ID, &comment.ProductID, &comment.UserID, &comment.Nickname, &comment.Rating,
		&comment.Content, pq.Array(&comment.Images), &comment.Usefulness, &comment.Status,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	comment.CreateTime = created
	if updated.Valid {
		comment.UpdatedAt = &updated.Time
	}
	return &comment, nil
}

// createdAt resolves the stored timestamp; unreadable values fall back to now
func createdAt(comment *models.Comment) time.Time {
	if t, ok := ranking.NormalizeTimestamp(comment.CreateTime); ok {
		return t
	}
	return time.Now()
}

func imagesOrEmpty(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
