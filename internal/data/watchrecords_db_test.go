package data

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a connection to the dedicated test database described by
// the TEST_DB_* environment variables and resets its schema from the
// migration scripts. Tests calling it are skipped when no test database is
// configured, so the rest of the suite stays runnable anywhere.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	_ = godotenv.Load("../../.env")

	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set; skipping database tests")
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(os.Getenv("TEST_DB_USER")),
		url.QueryEscape(os.Getenv("TEST_DB_PASSWORD")),
		host,
		os.Getenv("TEST_DB_PORT"),
		os.Getenv("TEST_DB_NAME"),
	)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	runMigrationScripts(t, db, ".down.sql")
	runMigrationScripts(t, db, ".up.sql")

	t.Cleanup(func() {
		runMigrationScripts(t, db, ".down.sql")
		db.Close()
	})

	return db
}

func runMigrationScripts(t *testing.T, db *sql.DB, suffix string) {
	t.Helper()

	entries, err := os.ReadDir("../../migrations")
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	if suffix == ".down.sql" {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	for _, name := range names {
		script, err := os.ReadFile(filepath.Join("../../migrations", name))
		require.NoError(t, err)

		_, err = db.Exec(string(script))
		require.NoError(t, err, "migration %s", name)
	}
}

func insertTestMovie(t *testing.T, db *sql.DB, id, name string, startYear int) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO movies (imdb_id, name, start_year) VALUES ($1, $2, $3)`, id, name, startYear)
	require.NoError(t, err)
}

func insertTestUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING user_id`,
		username, []byte("$2a$12$K5tN9o3a0cJb7yXlVb0Yhe"),
	).Scan(&id)
	require.NoError(t, err)

	return id
}

func movieAverage(t *testing.T, db *sql.DB, id string) *float64 {
	t.Helper()

	var avg *float64
	err := db.QueryRow(`SELECT average_score FROM movies WHERE imdb_id = $1`, id).Scan(&avg)
	require.NoError(t, err)

	return avg
}

func TestUpsertRecomputesAverageScore(t *testing.T) {
	db := newTestDB(t)
	m := WatchRecordModel{DB: db}

	insertTestMovie(t, db, "tt0111161", "The Shawshank Redemption", 1994)
	alice := insertTestUser(t, db, "alice")
	bob := insertTestUser(t, db, "bob")

	require.Nil(t, movieAverage(t, db, "tt0111161"), "a movie with no scores has no average")

	created, err := m.Upsert(&WatchRecord{UserID: alice, MovieID: "tt0111161", Score: intPtr(8)})
	require.NoError(t, err)
	assert.True(t, created)

	avg := movieAverage(t, db, "tt0111161")
	require.NotNil(t, avg)
	assert.Equal(t, 8.0, *avg)

	created, err = m.Upsert(&WatchRecord{UserID: bob, MovieID: "tt0111161", Score: intPtr(4)})
	require.NoError(t, err)
	assert.True(t, created)

	avg = movieAverage(t, db, "tt0111161")
	require.NotNil(t, avg)
	assert.Equal(t, 6.0, *avg)
}

func TestUpsertExistingPairTakesUpdatePath(t *testing.T) {
	db := newTestDB(t)
	m := WatchRecordModel{DB: db}

	insertTestMovie(t, db, "tt0137523", "Fight Club", 1999)
	userID := insertTestUser(t, db, "alice")

	created, err := m.Upsert(&WatchRecord{UserID: userID, MovieID: "tt0137523"})
	require.NoError(t, err)
	assert.True(t, created)

	record := &WatchRecord{UserID: userID, MovieID: "tt0137523", Score: intPtr(7)}
	created, err = m.Upsert(record)
	require.NoError(t, err)
	assert.False(t, created)

	require.NotNil(t, record.WatchedAt, "a repeat submission marks the record watched")
	assert.Equal(t, Today().String(), record.WatchedAt.String())

	var rows int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM watch_records`).Scan(&rows))
	assert.Equal(t, 1, rows, "the pair must never get a second row")

	avg := movieAverage(t, db, "tt0137523")
	require.NotNil(t, avg)
	assert.Equal(t, 7.0, *avg)
}

func TestUpdateRecomputesOnlyWhenScoreChanged(t *testing.T) {
	db := newTestDB(t)
	m := WatchRecordModel{DB: db}

	insertTestMovie(t, db, "tt0111161", "The Shawshank Redemption", 1994)
	userID := insertTestUser(t, db, "alice")

	_, err := m.Upsert(&WatchRecord{UserID: userID, MovieID: "tt0111161", Score: intPtr(8)})
	require.NoError(t, err)

	// Plant a sentinel average so a skipped recompute is observable.
	_, err = db.Exec(`UPDATE movies SET average_score = 99 WHERE imdb_id = 'tt0111161'`)
	require.NoError(t, err)

	err = m.Update(&WatchRecord{UserID: userID, MovieID: "tt0111161", Score: intPtr(8)})
	require.NoError(t, err)

	avg := movieAverage(t, db, "tt0111161")
	require.NotNil(t, avg)
	assert.Equal(t, 99.0, *avg, "resending the same score must not recompute the average")

	err = m.Update(&WatchRecord{UserID: userID, MovieID: "tt0111161", Score: intPtr(4)})
	require.NoError(t, err)

	avg = movieAverage(t, db, "tt0111161")
	require.NotNil(t, avg)
	assert.Equal(t, 4.0, *avg)
}

func TestUpdateMissingPairReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	m := WatchRecordModel{DB: db}

	insertTestMovie(t, db, "tt0111161", "The Shawshank Redemption", 1994)
	userID := insertTestUser(t, db, "alice")

	err := m.Update(&WatchRecord{UserID: userID, MovieID: "tt0111161", Score: intPtr(5)})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestUpsertConcurrentFirstTimeWrites(t *testing.T) {
	db := newTestDB(t)
	m := WatchRecordModel{DB: db}

	insertTestMovie(t, db, "tt0111161", "The Shawshank Redemption", 1994)
	userID := insertTestUser(t, db, "alice")

	type result struct {
		created bool
		err     error
	}
	results := make(chan result, 2)

	for i := 0; i < 2; i++ {
		go func() {
			created, err := m.Upsert(&WatchRecord{UserID: userID, MovieID: "tt0111161", Score: intPtr(8)})
			results <- result{created, err}
		}()
	}

	var createdCount int
	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err, "the losing writer must land in the update path, not fail")
		if r.created {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)

	var rows int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM watch_records`).Scan(&rows))
	assert.Equal(t, 1, rows)

	avg := movieAverage(t, db, "tt0111161")
	require.NotNil(t, avg)
	assert.Equal(t, 8.0, *avg)
}
