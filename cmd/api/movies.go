package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/IrSokolova/Letterboxd/internal/data"
	"github.com/IrSokolova/Letterboxd/internal/imdb"
	"github.com/IrSokolova/Letterboxd/internal/validator"
)

// createMovieHandler for the "POST /movies" endpoint. Creates a movie from a
// full payload.
func (app *application) createMovieHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ImdbID      string  `json:"imdb_id"`
		Name        string  `json:"name"`
		Description *string `json:"description"`
		PosterURL   *string `json:"poster_url"`
		StartYear   int     `json:"start_year"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	movie := &data.Movie{
		ImdbID:      input.ImdbID,
		Name:        input.Name,
		Description: input.Description,
		PosterURL:   input.PosterURL,
		StartYear:   input.StartYear,
	}

	v := validator.New()

	if data.ValidateMovie(v, movie); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	app.insertMovie(w, r, movie)
}

// createMovieFromLookupHandler for the "POST /movie?movie_id=" endpoint.
// Creates a movie from just an IMDb id by asking the metadata service for
// the rest.
func (app *application) createMovieFromLookupHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readString(r.URL.Query(), "movie_id", "")

	v := validator.New()
	v.Check(id != "", "movie_id", "must be provided")
	v.Check(id == "" || validator.Matches(id, validator.ImdbIDRX), "movie_id", "must be a valid IMDb title id")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	movie, err := app.metadata.Lookup(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, imdb.ErrTitleNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "Movie not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.insertMovie(w, r, movie)
}

// createRandomMovieHandler for the "POST /movie/random" endpoint. Probes the
// metadata service for a random movie-typed title and creates it. The probe
// loop is unbounded; it stops when the client gives up and the request
// context is cancelled.
func (app *application) createRandomMovieHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.metadata.RandomMovieID(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	movie, err := app.metadata.Lookup(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, imdb.ErrTitleNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "Movie not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.insertMovie(w, r, movie)
}

// insertMovie stores the movie and writes the 201 response, translating a
// duplicate IMDb id into a conflict.
func (app *application) insertMovie(w http.ResponseWriter, r *http.Request, movie *data.Movie) {
	err := app.models.Movies.Insert(movie)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateMovie):
			app.conflictResponse(w, r, "This movie already exists")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/movies/%s", movie.ImdbID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"movie": movie}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listMoviesHandler for the "GET /movies" endpoint. Supports an optional
// year filter, limit/offset paging and an asc/desc sort order.
func (app *application) listMoviesHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Year    *int
		Filters data.Filters
	}

	v := validator.New()
	qs := r.URL.Query()

	if qs.Get("year") != "" {
		year := app.readInt(qs, "year", 0, v)
		v.Check(year >= 1870, "year", "must be greater than 1869")
		v.Check(year <= 2100, "year", "must not be greater than 2100")
		input.Year = &year
	}

	input.Filters.Limit = app.readInt(qs, "limit", 20, v)
	input.Filters.Offset = app.readInt(qs, "offset", 0, v)
	input.Filters.Order = app.readString(qs, "order", "desc")

	if data.ValidateFilters(v, input.Filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	movies, metadata, err := app.models.Movies.GetAll(input.Year, input.Filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"movies": movies, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showMovieHandler for the "GET /movies/:id" endpoint.
func (app *application) showMovieHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readMovieIDParam(r)

	movie, err := app.models.Movies.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "Movie not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"movie": movie}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteMovieHandler for the "DELETE /movies?movie_id=" endpoint.
func (app *application) deleteMovieHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readString(r.URL.Query(), "movie_id", "")

	err := app.models.Movies.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "Movie not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
