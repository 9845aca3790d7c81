package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FavoritesRepository tracks which movies a user bookmarked.
type FavoritesRepository struct {
	pool *pgxpool.Pool
}

// Toggle flips the favorite state for (user, movie) and returns the new state.
func (r *FavoritesRepository) Toggle(ctx context.Context, movieID, userID string) (bool, error) {
	if !validID(movieID) {
		return false, ErrNotFound
	}

	var favorite bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM favorites WHERE movie_id = $1 AND user_id = $2`, movieID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			favorite = false
			return nil
		}
		_, err = tx.Exec(ctx, `
            INSERT INTO favorites (movie_id, user_id)
            VALUES ($1,$2)
            ON CONFLICT (user_id, movie_id) DO NOTHING
        `, movieID, userID)
		if err != nil {
			return err
		}
		favorite = true
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	return favorite, nil
}

// Exists reports whether the user marked the movie as favorite.
func (r *FavoritesRepository) Exists(ctx context.Context, movieID, userID string) (bool, error) {
	if !validID(movieID) {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE movie_id = $1 AND user_id = $2)`,
		movieID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("favorite exists: %w", err)
	}
	return exists, nil
}

// ListMovieIDs lists the movies a user favorited, most recent first.
func (r *FavoritesRepository) ListMovieIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT movie_id::text FROM favorites WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
