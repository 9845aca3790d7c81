package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinescope/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies    *MoviesRepository
	Ratings   *RatingsRepository
	Comments  *CommentsRepository
	Favorites *FavoritesRepository
	Users     *UsersRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:    &MoviesRepository{pool: pool},
		Ratings:   &RatingsRepository{pool: pool},
		Comments:  &CommentsRepository{pool: pool},
		Favorites: &FavoritesRepository{pool: pool},
		Users:     &UsersRepository{pool: pool},
	}
}

// validID reports whether id can address a UUID primary key; malformed ids can never match.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
