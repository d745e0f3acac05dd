package ingest

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

// ConsumerConfig captures the Kafka settings of the sensor consumer.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
	MaxAttempts int // store attempts per message
}

// Sink stores decoded readings.
type Sink interface {
	Ingest(reading *models.SensorReading) error
}

// messageReader is the subset of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer streams sensor payloads from Kafka into a Sink. Every message is
// committed once handled, including ones that cannot be decoded.
type Consumer struct {
	cfg    ConsumerConfig
	reader messageReader
	sink   Sink
	tracks *TrackState
	log    *log.Entry
}

// NewConsumer builds a consumer group reader for cfg.Topic.
func NewConsumer(cfg ConsumerConfig, sink Sink) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("sensor topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newConsumer(cfg, reader, sink), nil
}

func newConsumer(cfg ConsumerConfig, reader messageReader, sink Sink) *Consumer {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Consumer{
		cfg:    cfg,
		reader: reader,
		sink:   sink,
		tracks: NewTrackState(),
		log:    log.WithFields(log.Fields{"component": "ingest", "topic": cfg.Topic}),
	}
}

// Close shuts down the underlying Kafka reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run consumes messages until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.WithFields(log.Fields{
		"group":   c.cfg.GroupID,
		"brokers": strings.Join(c.cfg.Brokers, ","),
	}).Info("Sensor consumer started")
	defer c.log.Info("Sensor consumer stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			c.log.WithError(err).Error("Fetch failed")
			continue
		}

		c.handle(ctx, msg)

		commitCtx, commitCancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.log.WithError(err).WithField("offset", msg.Offset).Error("Commit failed")
			}
		}
		commitCancel()
	}
}

// handle decodes and stores one message. Failures are logged, never
// returned, so a poison message cannot stall the partition.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	entry := c.log.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	reading, err := DecodeReading(msg.Value)
	if err != nil {
		entry.WithError(err).Warn("Dropping undecodable message")
		return
	}
	if reading.VenueID == "" {
		// devices publish per-venue keys, fall back to the message key
		reading.VenueID = strings.TrimSpace(string(msg.Key))
	}
	if reading.VenueID == "" {
		entry.Warn("Dropping message without venue")
		return
	}
	if reading.Time.IsZero() && !msg.Time.IsZero() {
		reading.Time = msg.Time.UTC()
	}

	for attempt := 1; ; attempt++ {
		err = c.sink.Ingest(reading)
		if err == nil || attempt >= c.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}
	if err != nil {
		entry.WithError(err).WithField("venue_id", reading.VenueID).Error("Dropping reading after store failures")
		return
	}

	if c.tracks.Observe(reading.VenueID, reading.CurrentSong, reading.Artist) {
		entry.WithFields(log.Fields{
			"venue_id": reading.VenueID,
			"song":     reading.CurrentSong,
			"artist":   reading.Artist,
		}).Info("Now playing")
	}
}

// TrackState remembers the last song reported by each venue.
type TrackState struct {
	mu   sync.Mutex
	last map[string]string
}

// NewTrackState returns an empty state.
func NewTrackState() *TrackState {
	return &TrackState{last: make(map[string]string)}
}

// Observe records the current track of a venue and reports whether it
// differs from the previous one. An empty song never counts as a change.
func (s *TrackState) Observe(venueID, song, artist string) bool {
	if song == "" {
		return false
	}
	key := song + "\x00" + artist
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last[venueID] == key {
		return false
	}
	s.last[venueID] = key
	return true
}
