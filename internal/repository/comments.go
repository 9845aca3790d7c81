package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

// CommentsRepository stores free-text comments on movies.
type CommentsRepository struct {
	pool *pgxpool.Pool
}

// CommentCreateParams captures a new comment.
type CommentCreateParams struct {
	MovieID string
	UserID  string
	Text    string
}

const commentSelect = `
    SELECT c.id::text, c.movie_id::text, c.user_id, c.text, p.name, p.email, c.created_at
    FROM comments c
    LEFT JOIN profiles p ON p.id = c.user_id
`

// List returns a movie's comments newest first, joined with author profiles.
func (r *CommentsRepository) List(ctx context.Context, movieID string) ([]domain.Comment, error) {
	if !validID(movieID) {
		return []domain.Comment{}, nil
	}
	rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.movie_id = $1 ORDER BY c.created_at DESC, c.id`, movieID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

// Create stores a comment and returns it with author details resolved.
func (r *CommentsRepository) Create(ctx context.Context, params CommentCreateParams) (domain.Comment, error) {
	if !validID(params.MovieID) {
		return domain.Comment{}, ErrNotFound
	}

	const query = `
        WITH inserted AS (
            INSERT INTO comments (movie_id, user_id, text)
            VALUES ($1,$2,$3)
            RETURNING id, movie_id, user_id, text, created_at
        )
        SELECT c.id::text, c.movie_id::text, c.user_id, c.text, p.name, p.email, c.created_at
        FROM inserted c
        LEFT JOIN profiles p ON p.id = c.user_id
    `

	comment, err := scanComment(r.pool.QueryRow(ctx, query, params.MovieID, params.UserID, params.Text))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var comment domain.Comment
	err := row.Scan(
		&comment.ID,
		&comment.MovieID,
		&comment.UserID,
		&comment.Text,
		&comment.AuthorName,
		&comment.AuthorEmail,
		&comment.CreatedAt,
	)
	return comment, err
}
