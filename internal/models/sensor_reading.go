package models

import "time"

// SensorReading represents one ambient snapshot published by a venue device.
// Every measurement is optional: a nil field means the sensor did not report,
// which is different from reporting zero.
type SensorReading struct {
	ID       int64     `json:"id,omitempty" db:"id"`
	VenueID  string    `json:"venueId" db:"venue_id"`
	DeviceID string    `json:"deviceId,omitempty" db:"device_id"`
	Time     time.Time `json:"timestamp" db:"ts"`

	// Environment
	SoundLevelDB  *float64 `json:"soundLevelDb,omitempty" db:"sound_db"`
	LightLevelLux *float64 `json:"lightLevelLux,omitempty" db:"light_lux"`
	IndoorTempF   *float64 `json:"indoorTempF,omitempty" db:"indoor_temp_f"`
	OutdoorTempF  *float64 `json:"outdoorTempF,omitempty" db:"outdoor_temp_f"`
	HumidityPct   *float64 `json:"humidityPct,omitempty" db:"humidity_pct"`
	PressureHPa   *float64 `json:"pressureHpa,omitempty" db:"pressure_hpa"`

	// Occupancy
	OccupancyCurrent  *int `json:"occupancyCurrent,omitempty" db:"occupancy_current"`
	OccupancyEntries  *int `json:"occupancyEntriesCumulative,omitempty" db:"occupancy_entries"`
	OccupancyExits    *int `json:"occupancyExitsCumulative,omitempty" db:"occupancy_exits"`
	OccupancyCapacity *int `json:"occupancyCapacity,omitempty" db:"occupancy_capacity"`

	// Now playing
	CurrentSong string `json:"currentSong,omitempty" db:"current_song"`
	Artist      string `json:"artist,omitempty" db:"artist"`

	CreatedAt time.Time `json:"createdAt,omitempty" db:"created_at"`
}

// Outcome is a proxy for how well the venue was doing around a reading.
// Outcomes arrive after the reading and are stored separately so that
// readings stay immutable.
type Outcome struct {
	ReadingID    int64     `json:"readingId" db:"reading_id"`
	DwellMinutes *float64  `json:"dwellMinutes,omitempty" db:"dwell_minutes"`
	Revenue      *float64  `json:"revenue,omitempty" db:"revenue"`
	RecordedAt   time.Time `json:"recordedAt" db:"recorded_at"`
}

// HistoricalReading pairs a stored reading with its outcome, if any.
type HistoricalReading struct {
	SensorReading
	Outcome *Outcome `json:"outcome,omitempty"`
}

// ReadingFilter represents filter parameters for querying readings
type ReadingFilter struct {
	VenueID   string `form:"-"`
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	Limit     int    `form:"limit"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
