package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jengzang/pulse-backend-go/internal/database"
	"github.com/jengzang/pulse-backend-go/internal/models"
)

const readingColumns = `r.id, r.venue_id, r.device_id, r.ts,
	r.sound_db, r.light_lux, r.indoor_temp_f, r.outdoor_temp_f, r.humidity_pct, r.pressure_hpa,
	r.occupancy_current, r.occupancy_entries, r.occupancy_exits, r.occupancy_capacity,
	r.current_song, r.artist, r.created_at`

// ReadingRepository handles database operations for sensor readings and
// their outcomes. Readings are append-only.
type ReadingRepository struct {
	db   dbtx
	conn *sql.DB
}

// NewReadingRepository creates a new reading repository
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db, conn: db}
}

// Transaction runs fn against a repository bound to one transaction.
func (r *ReadingRepository) Transaction(fn func(tx *ReadingRepository) error) error {
	return database.Transaction(r.conn, func(tx *sql.Tx) error {
		return fn(&ReadingRepository{db: tx, conn: r.conn})
	})
}

// Create appends a reading and sets its ID.
func (r *ReadingRepository) Create(reading *models.SensorReading) error {
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sensor_readings (
			venue_id, device_id, ts,
			sound_db, light_lux, indoor_temp_f, outdoor_temp_f, humidity_pct, pressure_hpa,
			occupancy_current, occupancy_entries, occupancy_exits, occupancy_capacity,
			current_song, artist, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		reading.VenueID,
		reading.DeviceID,
		toMillis(reading.Time),
		nullFloat(reading.SoundLevelDB),
		nullFloat(reading.LightLevelLux),
		nullFloat(reading.IndoorTempF),
		nullFloat(reading.OutdoorTempF),
		nullFloat(reading.HumidityPct),
		nullFloat(reading.PressureHPa),
		nullInt(reading.OccupancyCurrent),
		nullInt(reading.OccupancyEntries),
		nullInt(reading.OccupancyExits),
		nullInt(reading.OccupancyCapacity),
		reading.CurrentSong,
		reading.Artist,
		toMillis(reading.CreatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create reading")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert id")
	}

	reading.ID = id
	return nil
}

// GetByID retrieves a reading by ID
func (r *ReadingRepository) GetByID(id int64) (*models.SensorReading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings r WHERE r.id = ?`

	reading, err := scanReading(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrReadingNotFound, "id %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reading")
	}
	return reading, nil
}

// Latest returns the most recent reading of a venue.
func (r *ReadingRepository) Latest(venueID string) (*models.SensorReading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings r
		WHERE r.venue_id = ? ORDER BY r.ts DESC, r.id DESC LIMIT 1`

	reading, err := scanReading(r.db.QueryRow(query, venueID))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNoReadings, "venue %s", venueID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest reading")
	}
	return reading, nil
}

// List retrieves readings of a venue, newest first.
func (r *ReadingRepository) List(filter models.ReadingFilter) ([]models.SensorReading, error) {
	conditions := []string{"r.venue_id = ?"}
	args := []interface{}{filter.VenueID}

	if filter.StartTime > 0 {
		conditions = append(conditions, "r.ts >= ?")
		args = append(args, filter.StartTime*1000)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "r.ts <= ?")
		args = append(args, filter.EndTime*1000)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT ` + readingColumns + ` FROM sensor_readings r WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY r.ts DESC, r.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list readings")
	}
	defer rows.Close()

	readings := []models.SensorReading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan reading")
		}
		readings = append(readings, *reading)
	}
	return readings, errors.Wrap(rows.Err(), "failed to iterate readings")
}

// History returns a venue's readings in [from, to] with their outcomes,
// oldest first. A zero from or to leaves that side open.
func (r *ReadingRepository) History(venueID string, from, to time.Time) ([]models.HistoricalReading, error) {
	query := `SELECT ` + readingColumns + `,
			o.reading_id, o.dwell_minutes, o.revenue, o.recorded_at
		FROM sensor_readings r
		LEFT JOIN reading_outcomes o ON o.reading_id = r.id
		WHERE r.venue_id = ?`
	args := []interface{}{venueID}
	if !from.IsZero() {
		query += " AND r.ts >= ?"
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		query += " AND r.ts <= ?"
		args = append(args, toMillis(to))
	}
	query += " ORDER BY r.ts ASC, r.id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer rows.Close()

	var history []models.HistoricalReading
	for rows.Next() {
		var (
			h           models.HistoricalReading
			outcomeID   sql.NullInt64
			dwell       sql.NullFloat64
			revenue     sql.NullFloat64
			recordedAt  sql.NullInt64
			readingScan readingRow
		)
		dest := append(readingScan.dest(), &outcomeID, &dwell, &revenue, &recordedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "failed to scan history row")
		}
		h.SensorReading = readingScan.reading()
		if outcomeID.Valid {
			h.Outcome = &models.Outcome{
				ReadingID:    outcomeID.Int64,
				DwellMinutes: floatPtr(dwell),
				Revenue:      floatPtr(revenue),
				RecordedAt:   fromMillis(recordedAt.Int64),
			}
		}
		history = append(history, h)
	}
	return history, errors.Wrap(rows.Err(), "failed to iterate history")
}

// VenueIDs returns every venue with at least one stored reading.
func (r *ReadingRepository) VenueIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT venue_id FROM sensor_readings ORDER BY venue_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list venues")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan venue id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "failed to iterate venues")
}

// UpsertOutcome attaches or replaces the outcome of a reading.
func (r *ReadingRepository) UpsertOutcome(o *models.Outcome) error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reading_outcomes (reading_id, dwell_minutes, revenue, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (reading_id) DO UPDATE SET
			dwell_minutes = COALESCE(excluded.dwell_minutes, reading_outcomes.dwell_minutes),
			revenue = COALESCE(excluded.revenue, reading_outcomes.revenue),
			recorded_at = excluded.recorded_at
	`
	_, err := r.db.Exec(query, o.ReadingID, nullFloat(o.DwellMinutes), nullFloat(o.Revenue), toMillis(o.RecordedAt))
	if err != nil {
		return errors.Wrap(err, "failed to upsert outcome")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// readingRow holds the nullable scan targets of one reading.
type readingRow struct {
	id, ts, createdAt                    int64
	venueID, deviceID, song, artist      string
	sound, light, indoor, outdoor, humid sql.NullFloat64
	pressure                             sql.NullFloat64
	current, entries, exits, capacity    sql.NullInt64
}

func (row *readingRow) dest() []interface{} {
	return []interface{}{
		&row.id, &row.venueID, &row.deviceID, &row.ts,
		&row.sound, &row.light, &row.indoor, &row.outdoor, &row.humid, &row.pressure,
		&row.current, &row.entries, &row.exits, &row.capacity,
		&row.song, &row.artist, &row.createdAt,
	}
}

func (row *readingRow) reading() models.SensorReading {
	return models.SensorReading{
		ID:                row.id,
		VenueID:           row.venueID,
		DeviceID:          row.deviceID,
		Time:              fromMillis(row.ts),
		SoundLevelDB:      floatPtr(row.sound),
		LightLevelLux:     floatPtr(row.light),
		IndoorTempF:       floatPtr(row.indoor),
		OutdoorTempF:      floatPtr(row.outdoor),
		HumidityPct:       floatPtr(row.humid),
		PressureHPa:       floatPtr(row.pressure),
		OccupancyCurrent:  intPtr(row.current),
		OccupancyEntries:  intPtr(row.entries),
		OccupancyExits:    intPtr(row.exits),
		OccupancyCapacity: intPtr(row.capacity),
		CurrentSong:       row.song,
		Artist:            row.artist,
		CreatedAt:         fromMillis(row.createdAt),
	}
}

func scanReading(s rowScanner) (*models.SensorReading, error) {
	var row readingRow
	if err := s.Scan(row.dest()...); err != nil {
		return nil, err
	}
	reading := row.reading()
	return &reading, nil
}
