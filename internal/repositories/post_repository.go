package repositories

import (
	"context"

	"go.uber.org/zap"

	"journeyrewards/internal/database"
	"journeyrewards/internal/models"
)

// postRepository implements PostRepository on postgres
type postRepository struct {
	*BaseRepository
}

// NewPostRepository creates a postgres post repository
func NewPostRepository(db *database.Manager, logger *zap.Logger) PostRepository {
	return &postRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a post
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.Category == "" {
		post.Category = models.CategoryGeneral
	}
	query := `
		INSERT INTO posts (user_id, location, category, image_url, likes, comments_count, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		post.UserID, post.Location, post.Category, post.ImageURL,
		post.Likes, post.CommentsCount, post.IsPublic,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return storeError("create post", err)
	}
	return nil
}

// ListVisibleByUser returns the user's public posts
func (r *postRepository) ListVisibleByUser(ctx context.Context, userID int64) ([]*models.PostSummary, error) {
	query := `
		SELECT id, location, category, likes, comments_count, created_at
		FROM posts
		WHERE user_id = $1 AND is_public
		ORDER BY created_at ASC, id ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeError("list visible posts", err)
	}
	defer rows.Close()

	posts := make([]*models.PostSummary, 0)
	for rows.Next() {
		var p models.PostSummary
		if err := rows.Scan(&p.ID, &p.Location, &p.Category, &p.Likes, &p.CommentsCount, &p.CreatedAt); err != nil {
			return nil, storeError("scan post", err)
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate posts", err)
	}
	return posts, nil
}
