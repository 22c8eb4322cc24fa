package data

import (
	"errors"
	"strconv"
	"time"
)

// ErrInvalidDateFormat is returned when a date field doesn't parse as
// YYYY-MM-DD.
var ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD")

// Date is a calendar date with day precision. It marshals to and from the
// YYYY-MM-DD form the API uses for watch dates.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	return NewDate(time.Now().UTC())
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format("2006-01-02"))), nil
}

func (d *Date) UnmarshalJSON(jsonValue []byte) error {
	unquoted, err := strconv.Unquote(string(jsonValue))
	if err != nil {
		return ErrInvalidDateFormat
	}

	t, err := time.ParseInLocation("2006-01-02", unquoted, time.UTC)
	if err != nil {
		return ErrInvalidDateFormat
	}

	d.Time = t
	return nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// nullDate converts an optional Date into a driver-friendly value for use as
// a query argument.
func nullDate(d *Date) interface{} {
	if d == nil {
		return nil
	}
	return d.Time
}

// scanDate converts a nullable date column back into an optional Date.
func scanDate(valid bool, t time.Time) *Date {
	if !valid {
		return nil
	}
	date := NewDate(t.UTC())
	return &date
}
