package data

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrRecordNotFound is returned by Get-style methods when no row matches
	// the lookup key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateMovie is returned when inserting a movie whose IMDb id is
	// already present.
	ErrDuplicateMovie = errors.New("duplicate movie")

	// ErrDuplicateUsername is returned when an insert or update would violate
	// the unique username constraint.
	ErrDuplicateUsername = errors.New("duplicate username")

	// ErrDuplicateWatchRecord is returned when a concurrent insert beats the
	// existence check for a (user, movie) pair.
	ErrDuplicateWatchRecord = errors.New("duplicate watch record")
)

// Models is a 'container' which holds all of our database models.
type Models struct {
	Movies interface {
		Insert(movie *Movie) error
		Get(id string) (*Movie, error)
		GetAll(year *int, filters Filters) ([]*Movie, Metadata, error)
		Delete(id string) error
	}
	Users interface {
		Insert(user *User) error
		Get(id int64) (*User, error)
		GetByUsername(username string) (*User, error)
		Update(user *User) error
	}
	WatchRecords interface {
		Upsert(record *WatchRecord) (bool, error)
		Update(record *WatchRecord) error
		ListPending(userID int64) ([]*WatchRecord, error)
		ListWatched(userID int64) ([]*WatchRecord, error)
	}
}

// NewModels returns a Models struct wired to the given connection pool.
func NewModels(db *sql.DB) Models {
	return Models{
		Movies:       MovieModel{DB: db},
		Users:        UserModel{DB: db},
		WatchRecords: WatchRecordModel{DB: db},
	}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally narrowed to a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code.Name() != "unique_violation" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
