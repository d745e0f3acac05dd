package repository

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrReadingNotFound is returned when a reading id does not exist.
	ErrReadingNotFound = errors.New("reading not found")
	// ErrNoReadings is returned when a venue has no stored readings.
	ErrNoReadings = errors.New("no readings for venue")
	// ErrTaskNotFound is returned when an analysis task id does not exist.
	ErrTaskNotFound = errors.New("analysis task not found")
	// ErrTaskFinished is returned when a task update finds the task no
	// longer in the state the update expects, usually after a cancel.
	ErrTaskFinished = errors.New("analysis task is no longer active")
	// ErrCorruptModel is returned when a cached learned model cannot be
	// decoded.
	ErrCorruptModel = errors.New("cached learned model is corrupt")
)

// Timestamps are stored as unix milliseconds.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
