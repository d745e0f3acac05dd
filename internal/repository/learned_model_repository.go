package repository

import (
	"bytes"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

// LearnedModelRepository caches learned models keyed by venue. The cache is
// last-write-wins and can always be rebuilt from history.
type LearnedModelRepository struct {
	db *sql.DB
}

// NewLearnedModelRepository creates a new learned model repository
func NewLearnedModelRepository(db *sql.DB) *LearnedModelRepository {
	return &LearnedModelRepository{db: db}
}

// Get returns the cached model of a venue, or nil when none is cached. A row
// whose ranges cannot be decoded yields ErrCorruptModel.
func (r *LearnedModelRepository) Get(venueID string) (*models.LearnedModel, error) {
	query := `
		SELECT venue_id, profile, ranges_blob, confidence, sample_count, slot_coverage,
			history_from, history_to, computed_at
		FROM learned_models
		WHERE venue_id = ?
	`

	var (
		m                    models.LearnedModel
		blob                 []byte
		from, to, computedAt int64
	)
	err := r.db.QueryRow(query, venueID).Scan(
		&m.VenueID,
		&m.Profile,
		&blob,
		&m.Confidence,
		&m.SampleCount,
		&m.SlotCoverage,
		&from,
		&to,
		&computedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get learned model")
	}

	ranges, err := decodeRanges(blob)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptModel, "venue %s: %v", venueID, err)
	}
	m.Ranges = ranges
	m.HistoryFrom = fromMillis(from)
	m.HistoryTo = fromMillis(to)
	m.ComputedAt = fromMillis(computedAt)
	return &m, nil
}

// Upsert stores m, replacing any previous model of the venue.
func (r *LearnedModelRepository) Upsert(m *models.LearnedModel) error {
	blob, err := encodeRanges(m.Ranges)
	if err != nil {
		return errors.Wrapf(err, "venue %s", m.VenueID)
	}

	query := `
		INSERT INTO learned_models (
			venue_id, profile, ranges_blob, confidence, sample_count, slot_coverage,
			history_from, history_to, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (venue_id) DO UPDATE SET
			profile = excluded.profile,
			ranges_blob = excluded.ranges_blob,
			confidence = excluded.confidence,
			sample_count = excluded.sample_count,
			slot_coverage = excluded.slot_coverage,
			history_from = excluded.history_from,
			history_to = excluded.history_to,
			computed_at = excluded.computed_at
	`
	_, err = r.db.Exec(query,
		m.VenueID,
		m.Profile,
		blob,
		m.Confidence,
		m.SampleCount,
		m.SlotCoverage,
		toMillis(m.HistoryFrom),
		toMillis(m.HistoryTo),
		toMillis(m.ComputedAt),
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert learned model")
	}
	return nil
}

// Delete drops the cached model of a venue.
func (r *LearnedModelRepository) Delete(venueID string) error {
	_, err := r.db.Exec(`DELETE FROM learned_models WHERE venue_id = ?`, venueID)
	return errors.Wrap(err, "failed to delete learned model")
}

func encodeRanges(ranges map[models.Factor]models.OptimalRange) ([]byte, error) {
	if ranges == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(ranges); err != nil {
		return nil, errors.Wrap(err, "failed to encode ranges")
	}
	return buf.Bytes(), nil
}

func decodeRanges(blob []byte) (map[models.Factor]models.OptimalRange, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var ranges map[models.Factor]models.OptimalRange
	if err := msgpack.NewDecoder(bytes.NewReader(blob)).Decode(&ranges); err != nil {
		return nil, errors.Wrap(err, "failed to decode ranges")
	}
	return ranges, nil
}
