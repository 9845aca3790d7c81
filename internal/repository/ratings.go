package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

// RatingsRepository provides helpers for movie ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	MovieID string
	UserID  string
	Value   int
}

const ratingColumns = `id, movie_id::text, user_id, rating, created_at, updated_at`

// Upsert inserts or replaces a user's rating for a movie and indicates whether it was newly
// created. A re-rating moves created_at to the new submission time. The movie's blended
// rating and live count are recomputed in the same transaction. The movie row is locked
// first so concurrent upserts on one movie refresh in turn, each counting the others' rows.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.Rating, bool, error) {
	if !validID(params.MovieID) {
		return domain.Rating{}, false, ErrNotFound
	}

	const lockMovie = `SELECT 1 FROM movies WHERE id = $1 FOR UPDATE`

	const upsert = `
        INSERT INTO ratings (movie_id, user_id, rating)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, movie_id)
        DO UPDATE SET rating = EXCLUDED.rating, created_at = now(), updated_at = now()
        RETURNING ` + ratingColumns + `, (xmax = 0) AS inserted
    `

	const refresh = `
        UPDATE movies m
        SET num_ratings = s.cnt,
            rating = CASE
                WHEN COALESCE(m.original_num_ratings, 0) + s.cnt = 0 THEN 0
                ELSE ROUND(
                    (COALESCE(m.original_rating, 0) * COALESCE(m.original_num_ratings, 0) + s.total)
                    / (COALESCE(m.original_num_ratings, 0) + s.cnt), 1)
            END,
            updated_at = now()
        FROM (
            SELECT COUNT(*)::int AS cnt, COALESCE(SUM(rating), 0)::numeric AS total
            FROM ratings
            WHERE movie_id = $1
        ) s
        WHERE m.id = $1
    `

	var (
		rating   domain.Rating
		inserted bool
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var one int
		if err := tx.QueryRow(ctx, lockMovie, params.MovieID).Scan(&one); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, upsert, params.MovieID, params.UserID, params.Value).Scan(
			&rating.ID,
			&rating.MovieID,
			&rating.UserID,
			&rating.Value,
			&rating.CreatedAt,
			&rating.UpdatedAt,
			&inserted,
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, refresh, params.MovieID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isForeignKeyViolation(err) {
			return domain.Rating{}, false, ErrNotFound
		}
		return domain.Rating{}, false, fmt.Errorf("upsert rating: %w", err)
	}

	return rating, inserted, nil
}

// ListForMovie returns every rating of a movie ordered by submission time, then row id.
func (r *RatingsRepository) ListForMovie(ctx context.Context, movieID string) ([]domain.Rating, error) {
	if !validID(movieID) {
		return []domain.Rating{}, nil
	}
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE movie_id = $1 ORDER BY created_at, id`
	return r.query(ctx, query, movieID)
}

// ListAll returns every live rating in the catalog.
func (r *RatingsRepository) ListAll(ctx context.Context) ([]domain.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings ORDER BY created_at, id`
	return r.query(ctx, query)
}

// Get retrieves a rating for a specific user/movie combination.
func (r *RatingsRepository) Get(ctx context.Context, movieID, userID string) (domain.Rating, error) {
	if !validID(movieID) {
		return domain.Rating{}, ErrNotFound
	}
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE movie_id = $1 AND user_id = $2`

	rating, err := scanRating(r.pool.QueryRow(ctx, query, movieID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

func (r *RatingsRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Rating, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var rating domain.Rating
	err := row.Scan(
		&rating.ID,
		&rating.MovieID,
		&rating.UserID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	return rating, err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
