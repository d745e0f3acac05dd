package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// ErrBadPayload is returned for messages that are not a sensor payload.
var ErrBadPayload = errors.New("malformed sensor payload")

// payload mirrors the message published by venue devices:
//
//	{"deviceId": "...", "venueId": "...", "timestamp": "2024-03-08T22:00:00Z",
//	 "sensors": {"sound_level": 72.4, "light_level": 140, ...},
//	 "occupancy": {"current": 96, "entries": 120, "exits": 24, "capacity": 400},
//	 "spotify": {"current_song": "...", "artist": "...", "album_art": "..."}}
//
// Any section or field may be absent.
type payload struct {
	DeviceID  string                     `json:"deviceId"`
	VenueID   string                     `json:"venueId"`
	Timestamp json.RawMessage            `json:"timestamp"`
	Sensors   map[string]json.RawMessage `json:"sensors"`
	Occupancy map[string]json.RawMessage `json:"occupancy"`
	Spotify   *struct {
		CurrentSong string `json:"current_song"`
		Artist      string `json:"artist"`
		AlbumArt    string `json:"album_art"`
	} `json:"spotify"`
}

// DecodeReading turns a publisher payload into a reading. Missing or
// unparseable measurements are left nil; only an undecodable document or an
// unreadable timestamp is an error. A missing timestamp leaves Time zero.
func DecodeReading(raw []byte) (*models.SensorReading, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(ErrBadPayload, err.Error())
	}

	ts, err := parseTimestamp(p.Timestamp)
	if err != nil {
		return nil, err
	}

	r := &models.SensorReading{
		VenueID:  strings.TrimSpace(p.VenueID),
		DeviceID: strings.TrimSpace(p.DeviceID),
		Time:     ts,

		SoundLevelDB:  number(p.Sensors["sound_level"]),
		LightLevelLux: number(p.Sensors["light_level"]),
		IndoorTempF:   number(p.Sensors["indoor_temperature"]),
		OutdoorTempF:  number(p.Sensors["outdoor_temperature"]),
		HumidityPct:   number(p.Sensors["humidity"]),
		PressureHPa:   number(p.Sensors["pressure"]),

		OccupancyCurrent:  integer(p.Occupancy["current"]),
		OccupancyEntries:  integer(p.Occupancy["entries"]),
		OccupancyExits:    integer(p.Occupancy["exits"]),
		OccupancyCapacity: integer(p.Occupancy["capacity"]),
	}
	if p.Spotify != nil {
		r.CurrentSong = strings.TrimSpace(p.Spotify.CurrentSong)
		r.Artist = strings.TrimSpace(p.Spotify.Artist)
	}
	return r, nil
}

// parseTimestamp accepts RFC3339 strings, with or without a zone suffix,
// and unix milliseconds as a number or numeric string.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Time{}, errors.Wrapf(ErrBadPayload, "timestamp %q", s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if ms, err := n.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		if f, err := n.Float64(); err == nil {
			return time.UnixMilli(int64(f)).UTC(), nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrBadPayload, "timestamp %s", string(raw))
}

// number reads a finite JSON number or numeric string.
func number(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	}
	f, err := n.Float64()
	if err != nil || !stats.IsFinite(f) {
		return nil
	}
	return &f
}

func integer(raw json.RawMessage) *int {
	f := number(raw)
	if f == nil {
		return nil
	}
	return models.Int(int(*f))
}
