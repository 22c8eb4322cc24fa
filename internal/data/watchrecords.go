package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/IrSokolova/Letterboxd/internal/validator"
)

// WatchRecord is one user's relationship to one movie. A null WatchedAt
// means the movie is on the user's watch-later list; a non-null WatchedAt
// marks it watched, optionally scored. At most one record exists per
// (user, movie) pair.
type WatchRecord struct {
	ID                   int64   `json:"id"`
	UserID               int64   `json:"user_id"`
	MovieID              string  `json:"movie_id"`
	WatchedAt            *Date   `json:"watched_at"`
	Score                *int    `json:"score"`
	RecommendationReason *string `json:"recommendation_reason"`
}

// ValidateWatchRecord validates the optional score and watch date. The
// messages are part of the API contract.
func ValidateWatchRecord(v *validator.Validator, record *WatchRecord) {
	v.Check(record.UserID > 0, "user_id", "must be provided")
	v.Check(record.MovieID != "", "movie_id", "must be provided")

	if record.Score != nil {
		v.Check(*record.Score >= 1 && *record.Score <= 10, "score", "The score should be between 1 and 10")
	}
	if record.WatchedAt != nil {
		v.Check(!record.WatchedAt.After(Today()), "watched_at", "The watch date should be before or equal today")
	}
}

type WatchRecordModel struct {
	DB *sql.DB
}

// Upsert inserts a watch record for a (user, movie) pair, or, when a record
// for the pair already exists, applies the update semantics to it instead.
// The existence check, the write, and the average-score recomputation all
// happen in one transaction; the pair row is locked so a concurrent upsert
// can't slip between the check and the write. It reports whether a new
// record was created and leaves the final row state in record.
func (m WatchRecordModel) Upsert(record *WatchRecord) (bool, error) {
	created, err := m.upsert(record)
	if errors.Is(err, ErrDuplicateWatchRecord) {
		// Two first-time upserts for the pair raced and the other one
		// committed first. Rerun: the pre-check now finds the row and the
		// update path takes over.
		created, err = m.upsert(record)
	}
	return created, err
}

func (m WatchRecordModel) upsert(record *WatchRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	existing, err := getForUpdate(ctx, tx, record.UserID, record.MovieID)
	switch {
	case err == nil:
		if err := applyUpdate(ctx, tx, existing, record); err != nil {
			return false, err
		}
		return false, tx.Commit()

	case errors.Is(err, ErrRecordNotFound):
		if err := insertRecord(ctx, tx, record); err != nil {
			return false, err
		}
		if record.Score != nil {
			if err := recomputeAverageScore(ctx, tx, record.MovieID); err != nil {
				return false, err
			}
		}
		return true, tx.Commit()

	default:
		return false, err
	}
}

// Update locates the record for record's (user, movie) pair and applies the
// update semantics: only supplied fields change, an omitted watch date
// defaults to today (marking the record watched), and the movie average is
// recomputed only when the score value actually changed. Returns
// ErrRecordNotFound when no record exists for the pair.
func (m WatchRecordModel) Update(record *WatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, err := getForUpdate(ctx, tx, record.UserID, record.MovieID)
	if err != nil {
		return err
	}

	if err := applyUpdate(ctx, tx, existing, record); err != nil {
		return err
	}

	return tx.Commit()
}

// ListPending returns the user's watch-later records (null watch date),
// ordered by movie id.
func (m WatchRecordModel) ListPending(userID int64) ([]*WatchRecord, error) {
	query := `
		SELECT id, user_id, movie_id, watched_at, score, recommendation_reason
		FROM watch_records
		WHERE user_id = $1 AND watched_at IS NULL
		ORDER BY movie_id`

	return m.list(query, userID)
}

// ListWatched returns the user's watched records, most recently watched
// first, breaking ties by movie id.
func (m WatchRecordModel) ListWatched(userID int64) ([]*WatchRecord, error) {
	query := `
		SELECT id, user_id, movie_id, watched_at, score, recommendation_reason
		FROM watch_records
		WHERE user_id = $1 AND watched_at IS NOT NULL
		ORDER BY watched_at DESC, movie_id`

	return m.list(query, userID)
}

func (m WatchRecordModel) list(query string, userID int64) ([]*WatchRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*WatchRecord{}

	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// getForUpdate fetches the record for a (user, movie) pair inside tx,
// locking the row until the transaction ends.
func getForUpdate(ctx context.Context, tx *sql.Tx, userID int64, movieID string) (*WatchRecord, error) {
	query := `
		SELECT id, user_id, movie_id, watched_at, score, recommendation_reason
		FROM watch_records
		WHERE user_id = $1 AND movie_id = $2
		FOR UPDATE`

	record, err := scanRecord(tx.QueryRowContext(ctx, query, userID, movieID).Scan)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return record, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, record *WatchRecord) error {
	query := `
		INSERT INTO watch_records (user_id, movie_id, watched_at, score, recommendation_reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	args := []interface{}{
		record.UserID,
		record.MovieID,
		nullDate(record.WatchedAt),
		record.Score,
		record.RecommendationReason,
	}

	err := tx.QueryRowContext(ctx, query, args...).Scan(&record.ID)
	if err != nil {
		if isUniqueViolation(err, "watch_records_user_id_movie_id_key") {
			return ErrDuplicateWatchRecord
		}
		return err
	}

	return nil
}

// mergeUpdate returns the row state after applying in's supplied fields on
// top of existing, plus whether the score value actually changed. An update
// without an explicit date marks the record watched today.
func mergeUpdate(existing, in *WatchRecord) (WatchRecord, bool) {
	merged := *existing

	if in.WatchedAt != nil {
		merged.WatchedAt = in.WatchedAt
	} else {
		today := Today()
		merged.WatchedAt = &today
	}
	if in.Score != nil {
		merged.Score = in.Score
	}
	if in.RecommendationReason != nil {
		merged.RecommendationReason = in.RecommendationReason
	}

	scoreChanged := in.Score != nil && (existing.Score == nil || *existing.Score != *in.Score)

	return merged, scoreChanged
}

// applyUpdate merges the supplied fields of in into existing, writes the
// merged row, and recomputes the movie average when the score changed. The
// merged state is copied back into in so callers see the final row.
func applyUpdate(ctx context.Context, tx *sql.Tx, existing, in *WatchRecord) error {
	merged, scoreChanged := mergeUpdate(existing, in)

	query := `
		UPDATE watch_records
		SET watched_at = $1, score = $2, recommendation_reason = $3
		WHERE id = $4`

	args := []interface{}{
		nullDate(merged.WatchedAt),
		merged.Score,
		merged.RecommendationReason,
		merged.ID,
	}

	_, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	if scoreChanged {
		if err := recomputeAverageScore(ctx, tx, merged.MovieID); err != nil {
			return err
		}
	}

	*in = merged
	return nil
}

// recomputeAverageScore rewrites the movie's average as the mean over all
// non-null scores among its watch records, or null when none remain. Runs in
// the same transaction as the triggering write so the average never reflects
// a stale score.
func recomputeAverageScore(ctx context.Context, tx *sql.Tx, movieID string) error {
	query := `
		UPDATE movies
		SET average_score = (
			SELECT AVG(score)::double precision
			FROM watch_records
			WHERE movie_id = $1 AND score IS NOT NULL
		)
		WHERE imdb_id = $1`

	_, err := tx.ExecContext(ctx, query, movieID)
	return err
}

// scanRecord scans one watch-record row via the given scan function,
// converting the nullable columns.
func scanRecord(scan func(dest ...interface{}) error) (*WatchRecord, error) {
	var (
		record    WatchRecord
		watchedAt sql.NullTime
	)

	err := scan(
		&record.ID,
		&record.UserID,
		&record.MovieID,
		&watchedAt,
		&record.Score,
		&record.RecommendationReason,
	)
	if err != nil {
		return nil, err
	}

	record.WatchedAt = scanDate(watchedAt.Valid, watchedAt.Time)

	return &record, nil
}
