package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/IrSokolova/Letterboxd/internal/data"
	"github.com/IrSokolova/Letterboxd/internal/jsonlog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockMovieModel is a testify mock for the movie model interface.
type mockMovieModel struct {
	mock.Mock
}

func (m *mockMovieModel) Insert(movie *data.Movie) error {
	args := m.Called(movie)
	return args.Error(0)
}

func (m *mockMovieModel) Get(id string) (*data.Movie, error) {
	args := m.Called(id)
	if movie := args.Get(0); movie != nil {
		return movie.(*data.Movie), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMovieModel) GetAll(year *int, filters data.Filters) ([]*data.Movie, data.Metadata, error) {
	args := m.Called(year, filters)
	if movies := args.Get(0); movies != nil {
		return movies.([]*data.Movie), args.Get(1).(data.Metadata), args.Error(2)
	}
	return nil, data.Metadata{}, args.Error(2)
}

func (m *mockMovieModel) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// mockUserModel is a testify mock for the user model interface.
type mockUserModel struct {
	mock.Mock
}

func (m *mockUserModel) Insert(user *data.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *mockUserModel) Get(id int64) (*data.User, error) {
	args := m.Called(id)
	if user := args.Get(0); user != nil {
		return user.(*data.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserModel) GetByUsername(username string) (*data.User, error) {
	args := m.Called(username)
	if user := args.Get(0); user != nil {
		return user.(*data.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserModel) Update(user *data.User) error {
	args := m.Called(user)
	return args.Error(0)
}

// mockWatchRecordModel is a testify mock for the watch-record model interface.
type mockWatchRecordModel struct {
	mock.Mock
}

func (m *mockWatchRecordModel) Upsert(record *data.WatchRecord) (bool, error) {
	args := m.Called(record)
	return args.Bool(0), args.Error(1)
}

func (m *mockWatchRecordModel) Update(record *data.WatchRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *mockWatchRecordModel) ListPending(userID int64) ([]*data.WatchRecord, error) {
	args := m.Called(userID)
	if records := args.Get(0); records != nil {
		return records.([]*data.WatchRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWatchRecordModel) ListWatched(userID int64) ([]*data.WatchRecord, error) {
	args := m.Called(userID)
	if records := args.Get(0); records != nil {
		return records.([]*data.WatchRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockMetadata is a testify mock for the title-metadata client.
type mockMetadata struct {
	mock.Mock
}

func (m *mockMetadata) Lookup(ctx context.Context, id string) (*data.Movie, error) {
	args := m.Called(id)
	if movie := args.Get(0); movie != nil {
		return movie.(*data.Movie), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMetadata) RandomMovieID(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// mockMailer is a testify mock for the welcome-mail sender.
type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(recipient, templateFile string, data interface{}) error {
	args := m.Called(recipient, templateFile, data)
	return args.Error(0)
}

// testMocks bundles the mocked collaborators behind a test application.
type testMocks struct {
	movies       *mockMovieModel
	users        *mockUserModel
	watchRecords *mockWatchRecordModel
	metadata     *mockMetadata
	mailer       *mockMailer
}

// newTestApplication builds an application with every collaborator mocked,
// logging discarded, and the rate limiter disabled.
func newTestApplication(t *testing.T) (*application, *testMocks) {
	t.Helper()

	mocks := &testMocks{
		movies:       new(mockMovieModel),
		users:        new(mockUserModel),
		watchRecords: new(mockWatchRecordModel),
		metadata:     new(mockMetadata),
		mailer:       new(mockMailer),
	}

	app := &application{
		config: config{env: "test"},
		logger: jsonlog.New(io.Discard, jsonlog.LevelOff),
		models: data.Models{
			Movies:       mocks.movies,
			Users:        mocks.users,
			WatchRecords: mocks.watchRecords,
		},
		metadata: mocks.metadata,
		mailer:   mocks.mailer,
	}

	return app, mocks
}

// doRequest sends a request through the full router and middleware chain and
// returns the recorded response.
func doRequest(t *testing.T, app *application, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}

	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "203.0.113.10:51234"

	rr := httptest.NewRecorder()
	app.routes().ServeHTTP(rr, req)

	return rr
}

// decodeResponse unmarshals a recorded JSON response body into dst.
func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst))
}
