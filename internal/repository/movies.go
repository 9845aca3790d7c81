package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id::text,
    title,
    year,
    certificate,
    genre,
    overview,
    runtime,
    poster_url,
    rating::float8,
    num_ratings,
    original_rating::float8,
    original_num_ratings,
    created_at,
    updated_at
`

// Sort orders accepted by List.
const (
	SortRatingDesc = "rating-desc"
	SortRatingAsc  = "rating-asc"
	SortYearDesc   = "year-desc"
	SortYearAsc    = "year-asc"
)

var sortClauses = map[string]string{
	SortRatingDesc: "rating DESC, title ASC, id ASC",
	SortRatingAsc:  "rating ASC, title ASC, id ASC",
	SortYearDesc:   "year DESC, title ASC, id ASC",
	SortYearAsc:    "year ASC, title ASC, id ASC",
}

// ValidSort reports whether s is a supported sort key.
func ValidSort(s string) bool {
	_, ok := sortClauses[s]
	return ok
}

// Pagination bounds for List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	Title              string
	Year               int
	Certificate        string
	Genres             []string
	Overview           string
	Runtime            int
	PosterURL          *string
	OriginalRating     *float64
	OriginalNumRatings *int
}

// MovieListFilters encapsulates search, sort and pagination options.
type MovieListFilters struct {
	Query  *string
	Genre  *string
	Year   *int
	Sort   string
	Limit  int
	Offset int
}

// MovieListResult returns the paginated payload.
type MovieListResult struct {
	Items      []domain.Movie
	NextOffset *int
}

// Create inserts a new movie row. The blended rating starts at the original rating.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	genres := params.Genres
	if genres == nil {
		genres = []string{}
	}

	query := fmt.Sprintf(`
        INSERT INTO movies (title, year, certificate, genre, overview, runtime, poster_url,
                            rating, original_rating, original_num_ratings)
        VALUES ($1,$2,$3,$4,$5,$6,$7, ROUND(COALESCE($8::float8, 0)::numeric, 1), $8, $9)
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query,
		params.Title, params.Year, params.Certificate, genres, params.Overview, params.Runtime,
		params.PosterURL, params.OriginalRating, params.OriginalNumRatings)
	return scanMovie(row)
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// ListByIDs fetches the movies with the given identifiers, ordered by title.
func (r *MoviesRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Movie, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []domain.Movie{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id::text = ANY($1::text[]) ORDER BY title, id`, movieColumns)
	return r.query(ctx, query, valid)
}

// ListAll returns the full catalog; analytics needs every row.
func (r *MoviesRepository) ListAll(ctx context.Context) ([]domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies ORDER BY created_at, id`, movieColumns)
	return r.query(ctx, query)
}

// UpdatePoster replaces the poster URL of a movie. It is the only mutable movie field.
func (r *MoviesRepository) UpdatePoster(ctx context.Context, id, posterURL string) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE movies
        SET poster_url = $2,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, movieColumns)

	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id, posterURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// List returns movies that match the provided filters.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	} else if filters.Limit > MaxListLimit {
		filters.Limit = MaxListLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	orderBy, ok := sortClauses[filters.Sort]
	if !ok {
		orderBy = sortClauses[SortRatingDesc]
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		where = append(where, fmt.Sprintf("title ILIKE %s", arg("%"+escapeLike(strings.TrimSpace(*filters.Query))+"%")))
	}
	if filters.Genre != nil && strings.TrimSpace(*filters.Genre) != "" {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(genre) g WHERE g ILIKE %s)", arg(escapeLike(strings.TrimSpace(*filters.Genre)))))
	}
	if filters.Year != nil {
		where = append(where, fmt.Sprintf("year = %s", arg(*filters.Year)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY ")
	queryBuilder.WriteString(orderBy)
	// One extra row tells us whether another page exists.
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filters.Limit+1, filters.Offset))

	items, err := r.query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return MovieListResult{}, err
	}

	var next *int
	if len(items) > filters.Limit {
		items = items[:filters.Limit]
		offset := filters.Offset + filters.Limit
		next = &offset
	}
	return MovieListResult{Items: items, NextOffset: next}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally in an ILIKE pattern (backslash is the default escape).
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *MoviesRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Movie, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Year,
		&movie.Certificate,
		&movie.Genres,
		&movie.Overview,
		&movie.Runtime,
		&movie.PosterURL,
		&movie.Rating,
		&movie.NumRatings,
		&movie.OriginalRating,
		&movie.OriginalNumRatings,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	if movie.Genres == nil {
		movie.Genres = []string{}
	}
	return movie, nil
}
