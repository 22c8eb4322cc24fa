package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/IrSokolova/Letterboxd/internal/validator"
)

type Movie struct {
	// IMDb title id ("tt" followed by 7-8 digits). Primary key.
	ImdbID string `json:"imdb_id"`
	// Movie title
	Name string `json:"name"`
	// Plot description, if known
	Description *string `json:"description"`
	// Poster image URL, if known
	PosterURL *string `json:"poster_url"`
	// Release year
	StartYear int `json:"start_year"`
	// Mean of all non-null scores recorded against this movie, or null when
	// no scored watch records exist. Derived; only the watch-record writes
	// recompute it.
	AverageScore *float64 `json:"average_score"`
}

// ValidateMovie validates a movie payload. Each failed check adds an error
// to v under the offending field.
func ValidateMovie(v *validator.Validator, movie *Movie) {
	v.Check(movie.ImdbID != "", "imdb_id", "must be provided")
	v.Check(validator.Matches(movie.ImdbID, validator.ImdbIDRX), "imdb_id", "must be a valid IMDb title id")
	v.Check(movie.Name != "", "name", "must be provided")
	v.Check(movie.StartYear >= 1870, "start_year", "must be greater than 1869")
	v.Check(movie.StartYear <= 2100, "start_year", "must not be greater than 2100")
}

type MovieModel struct {
	DB *sql.DB
}

// Insert adds a new movie. The average score always starts out null; it only
// ever gets a value through the watch-record recomputation.
func (m MovieModel) Insert(movie *Movie) error {
	query := `
		INSERT INTO movies (imdb_id, name, description, poster_url, start_year)
		VALUES ($1, $2, $3, $4, $5)`

	args := []interface{}{movie.ImdbID, movie.Name, movie.Description, movie.PosterURL, movie.StartYear}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := m.DB.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, "movies_pkey") {
			return ErrDuplicateMovie
		}
		return err
	}

	movie.AverageScore = nil
	return nil
}

// Get fetches a movie by its IMDb id.
func (m MovieModel) Get(id string) (*Movie, error) {
	query := `
		SELECT imdb_id, name, description, poster_url, start_year, average_score
		FROM movies
		WHERE imdb_id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var movie Movie

	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&movie.ImdbID,
		&movie.Name,
		&movie.Description,
		&movie.PosterURL,
		&movie.StartYear,
		&movie.AverageScore,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &movie, nil
}

// GetAll returns a page of movies, optionally restricted to a release year.
// With a year filter the year is fixed, so records sort by IMDb id alone;
// otherwise they sort by (start_year, imdb_id). Direction comes from the
// filters.
func (m MovieModel) GetAll(year *int, filters Filters) ([]*Movie, Metadata, error) {
	orderBy := fmt.Sprintf("start_year %[1]s, imdb_id %[1]s", filters.sortDirection())
	if year != nil {
		orderBy = fmt.Sprintf("imdb_id %s", filters.sortDirection())
	}

	query := fmt.Sprintf(`
		SELECT count(*) OVER(), imdb_id, name, description, poster_url, start_year, average_score
		FROM movies
		WHERE ($1::int IS NULL OR start_year = $1)
		ORDER BY %s
		LIMIT $2 OFFSET $3`, orderBy)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, year, filters.Limit, filters.Offset)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	movies := []*Movie{}

	for rows.Next() {
		var movie Movie

		err := rows.Scan(
			&totalRecords,
			&movie.ImdbID,
			&movie.Name,
			&movie.Description,
			&movie.PosterURL,
			&movie.StartYear,
			&movie.AverageScore,
		)
		if err != nil {
			return nil, Metadata{}, err
		}

		movies = append(movies, &movie)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Limit, filters.Offset)

	return movies, metadata, nil
}

// Delete removes a movie by IMDb id. Watch records referencing it are
// cascade-deleted by the schema.
func (m MovieModel) Delete(id string) error {
	query := `
		DELETE FROM movies
		WHERE imdb_id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}
