package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/IrSokolova/Letterboxd/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// knownPair wires the user/movie existence checks for id 1 / tt0111161.
func knownPair(t *testing.T, mocks *testMocks) {
	t.Helper()
	mocks.users.On("Get", int64(1)).Return(testUser(t, 1, "testuser", "testpass"), nil)
	mocks.movies.On("Get", "tt0111161").Return(&data.Movie{ImdbID: "tt0111161", Name: "The Shawshank Redemption", StartYear: 1994}, nil)
}

func TestUpsertWatchRecordCreates(t *testing.T) {
	app, mocks := newTestApplication(t)
	knownPair(t, mocks)

	mocks.watchRecords.On("Upsert", mock.AnythingOfType("*data.WatchRecord")).Run(func(args mock.Arguments) {
		args.Get(0).(*data.WatchRecord).ID = 10
	}).Return(true, nil)

	rr := doRequest(t, app, http.MethodPost, "/watched", map[string]interface{}{
		"user_id":    1,
		"movie_id":   "tt0111161",
		"watched_at": "2024-05-17",
		"score":      8,
	})

	require.Equal(t, http.StatusCreated, rr.Code)

	var response struct {
		Record data.WatchRecord `json:"watch_record"`
	}
	decodeResponse(t, rr, &response)
	assert.Equal(t, int64(10), response.Record.ID)
	require.NotNil(t, response.Record.Score)
	assert.Equal(t, 8, *response.Record.Score)
}

func TestUpsertWatchRecordUpdatesExistingPair(t *testing.T) {
	app, mocks := newTestApplication(t)
	knownPair(t, mocks)

	// A second submission for the same pair must land in the update path and
	// report 200, not create a second row.
	mocks.watchRecords.On("Upsert", mock.AnythingOfType("*data.WatchRecord")).Return(false, nil)

	rr := doRequest(t, app, http.MethodPost, "/watchlater", map[string]interface{}{
		"user_id":  1,
		"movie_id": "tt0111161",
	})

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUpsertWatchRecordValidation(t *testing.T) {
	app, mocks := newTestApplication(t)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	tests := []struct {
		name    string
		body    map[string]interface{}
		message string
	}{
		{
			"score too low",
			map[string]interface{}{"user_id": 1, "movie_id": "tt0111161", "score": 0},
			"The score should be between 1 and 10",
		},
		{
			"score too high",
			map[string]interface{}{"user_id": 1, "movie_id": "tt0111161", "score": 11},
			"The score should be between 1 and 10",
		},
		{
			"future watch date",
			map[string]interface{}{"user_id": 1, "movie_id": "tt0111161", "watched_at": tomorrow},
			"The watch date should be before or equal today",
		},
	}

	for _, endpoint := range []string{"/watched", "/watchlater"} {
		for _, tt := range tests {
			t.Run(endpoint+" "+tt.name, func(t *testing.T) {
				rr := doRequest(t, app, http.MethodPost, endpoint, tt.body)

				assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
				assert.Contains(t, rr.Body.String(), tt.message)
			})
		}
	}

	mocks.watchRecords.AssertNotCalled(t, "Upsert", mock.Anything)
}

func TestUpsertWatchRecordUnknownUser(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.users.On("Get", int64(42)).Return(nil, data.ErrRecordNotFound)

	rr := doRequest(t, app, http.MethodPost, "/watched", map[string]interface{}{
		"user_id":  42,
		"movie_id": "tt0111161",
	})

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "User not found")
	mocks.watchRecords.AssertNotCalled(t, "Upsert", mock.Anything)
}

func TestUpsertWatchRecordUnknownMovie(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.users.On("Get", int64(1)).Return(testUser(t, 1, "testuser", "testpass"), nil)
	mocks.movies.On("Get", "tt9999999").Return(nil, data.ErrRecordNotFound)

	rr := doRequest(t, app, http.MethodPost, "/watchlater", map[string]interface{}{
		"user_id":  1,
		"movie_id": "tt9999999",
	})

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Movie not found")
}

func TestUpdateWatchRecord(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.watchRecords.On("Update", mock.AnythingOfType("*data.WatchRecord")).Run(func(args mock.Arguments) {
		record := args.Get(0).(*data.WatchRecord)
		record.ID = 10
		today := data.Today()
		record.WatchedAt = &today
	}).Return(nil)

	rr := doRequest(t, app, http.MethodPut, "/watched", map[string]interface{}{
		"user_id":  1,
		"movie_id": "tt0111161",
		"score":    9,
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Record data.WatchRecord `json:"watch_record"`
	}
	decodeResponse(t, rr, &response)
	require.NotNil(t, response.Record.WatchedAt, "an update without a date must mark the record watched")
}

func TestUpdateWatchRecordNotFound(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.watchRecords.On("Update", mock.AnythingOfType("*data.WatchRecord")).Return(data.ErrRecordNotFound)

	rr := doRequest(t, app, http.MethodPut, "/watched", map[string]interface{}{
		"user_id":  1,
		"movie_id": "tt0111161",
	})

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Record not found")
}

func TestListWatchLater(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.users.On("Get", int64(1)).Return(testUser(t, 1, "testuser", "testpass"), nil)
	mocks.watchRecords.On("ListPending", int64(1)).Return([]*data.WatchRecord{
		{ID: 3, UserID: 1, MovieID: "tt0111161"},
		{ID: 4, UserID: 1, MovieID: "tt0137523"},
	}, nil)

	rr := doRequest(t, app, http.MethodGet, "/watchlater/1", nil)

	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Records []*data.WatchRecord `json:"watch_later"`
	}
	decodeResponse(t, rr, &response)
	assert.Len(t, response.Records, 2)
}

func TestListWatchLaterEmpty(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.users.On("Get", int64(1)).Return(testUser(t, 1, "testuser", "testpass"), nil)
	mocks.watchRecords.On("ListPending", int64(1)).Return([]*data.WatchRecord{}, nil)

	rr := doRequest(t, app, http.MethodGet, "/watchlater/1", nil)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Empty watch later list")
}

func TestListWatchLaterUnknownUser(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.users.On("Get", int64(42)).Return(nil, data.ErrRecordNotFound)

	rr := doRequest(t, app, http.MethodGet, "/watchlater/42", nil)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "User not found")
	mocks.watchRecords.AssertNotCalled(t, "ListPending", mock.Anything)
}

func TestListWatched(t *testing.T) {
	app, mocks := newTestApplication(t)

	watched := data.NewDate(time.Now().UTC().AddDate(0, 0, -2))
	mocks.users.On("Get", int64(1)).Return(testUser(t, 1, "testuser", "testpass"), nil)
	mocks.watchRecords.On("ListWatched", int64(1)).Return([]*data.WatchRecord{
		{ID: 5, UserID: 1, MovieID: "tt0111161", WatchedAt: &watched},
	}, nil)

	rr := doRequest(t, app, http.MethodGet, "/watched/1", nil)

	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Records []*data.WatchRecord `json:"watched"`
	}
	decodeResponse(t, rr, &response)
	require.Len(t, response.Records, 1)
	require.NotNil(t, response.Records[0].WatchedAt)
}

func TestListWatchedEmpty(t *testing.T) {
	app, mocks := newTestApplication(t)

	mocks.users.On("Get", int64(1)).Return(testUser(t, 1, "testuser", "testpass"), nil)
	mocks.watchRecords.On("ListWatched", int64(1)).Return([]*data.WatchRecord{}, nil)

	rr := doRequest(t, app, http.MethodGet, "/watched/1", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
