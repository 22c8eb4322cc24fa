package main

import (
	"errors"
	"net/http"

	"github.com/IrSokolova/Letterboxd/internal/data"
	"github.com/IrSokolova/Letterboxd/internal/validator"
)

// watchRecordInput is the shared request body for the watched/watch-later
// endpoints. Pointer fields distinguish omitted values from explicit ones.
type watchRecordInput struct {
	UserID               int64      `json:"user_id"`
	MovieID              string     `json:"movie_id"`
	WatchedAt            *data.Date `json:"watched_at"`
	Score                *int       `json:"score"`
	RecommendationReason *string    `json:"recommendation_reason"`
}

func (in watchRecordInput) record() *data.WatchRecord {
	return &data.WatchRecord{
		UserID:               in.UserID,
		MovieID:              in.MovieID,
		WatchedAt:            in.WatchedAt,
		Score:                in.Score,
		RecommendationReason: in.RecommendationReason,
	}
}

// createWatchedRecordHandler for the "POST /watched" endpoint.
func (app *application) createWatchedRecordHandler(w http.ResponseWriter, r *http.Request) {
	app.upsertWatchRecord(w, r)
}

// createWatchLaterRecordHandler for the "POST /watchlater" endpoint. A
// watch-later entry is simply a record with no watch date yet.
func (app *application) createWatchLaterRecordHandler(w http.ResponseWriter, r *http.Request) {
	app.upsertWatchRecord(w, r)
}

// upsertWatchRecord inserts a record for the (user, movie) pair, or updates
// the existing one. At most one record may ever exist per pair, so a repeat
// submission lands in the update path instead of creating a second row.
func (app *application) upsertWatchRecord(w http.ResponseWriter, r *http.Request) {
	var input watchRecordInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	record := input.record()

	v := validator.New()

	if data.ValidateWatchRecord(v, record); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if _, err := app.models.Users.Get(record.UserID); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if _, err := app.models.Movies.Get(record.MovieID); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "Movie not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	created, err := app.models.WatchRecords.Upsert(record)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateWatchRecord):
			app.conflictResponse(w, r, "This watch record already exists")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	err = app.writeJSON(w, status, envelope{"watch_record": record}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateWatchRecordHandler for the "PUT /watched" endpoint. Only supplied
// fields change; an omitted watch date defaults to today, which is what
// marks a watch-later record watched.
func (app *application) updateWatchRecordHandler(w http.ResponseWriter, r *http.Request) {
	var input watchRecordInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	record := input.record()

	v := validator.New()

	if data.ValidateWatchRecord(v, record); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.WatchRecords.Update(record)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "Record not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"watch_record": record}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listWatchLaterHandler for the "GET /watchlater/:user_id" endpoint. Returns
// the user's pending records ordered by movie id; an empty list is a 404.
func (app *application) listWatchLaterHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := app.readUserIDParam(r)
	if err != nil {
		app.errorResponse(w, r, http.StatusNotFound, "User not found")
		return
	}

	if _, err := app.models.Users.Get(userID); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	records, err := app.models.WatchRecords.ListPending(userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(records) == 0 {
		app.errorResponse(w, r, http.StatusNotFound, "Empty watch later list")
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"watch_later": records}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listWatchedHandler for the "GET /watched/:user_id" endpoint. Returns the
// user's watched records, most recent first; an empty list is a 404.
func (app *application) listWatchedHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := app.readUserIDParam(r)
	if err != nil {
		app.errorResponse(w, r, http.StatusNotFound, "User not found")
		return
	}

	if _, err := app.models.Users.Get(userID); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.errorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	records, err := app.models.WatchRecords.ListWatched(userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(records) == 0 {
		app.errorResponse(w, r, http.StatusNotFound, "Empty watched list")
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"watched": records}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
