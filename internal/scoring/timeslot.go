package scoring

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

// TimeSlot is a named recurring calendar window with its own baseline
// expectations.
type TimeSlot string

// TimeSlot constants
const (
	SlotWeekdayHappyHour TimeSlot = "weekday_happy_hour"
	SlotWeekdayNight     TimeSlot = "weekday_night"
	SlotFridayEarly      TimeSlot = "friday_early"
	SlotFridayPeak       TimeSlot = "friday_peak"
	SlotSaturdayEarly    TimeSlot = "saturday_early"
	SlotSaturdayPeak     TimeSlot = "saturday_peak"
	SlotSundayFunday     TimeSlot = "sunday_funday"
	SlotDaytime          TimeSlot = "daytime"
)

// AllTimeSlots lists every slot in a fixed order.
var AllTimeSlots = []TimeSlot{
	SlotWeekdayHappyHour,
	SlotWeekdayNight,
	SlotFridayEarly,
	SlotFridayPeak,
	SlotSaturdayEarly,
	SlotSaturdayPeak,
	SlotSundayFunday,
	SlotDaytime,
}

// Expectations are the baseline ranges a slot scores against.
type Expectations struct {
	Sound     models.OptimalRange `json:"sound"`
	Light     models.OptimalRange `json:"light"`
	Occupancy models.OptimalRange `json:"occupancy"` // percent of capacity
}

var slotExpectations = map[TimeSlot]Expectations{
	SlotWeekdayHappyHour: {Sound: models.OptimalRange{Min: 65, Max: 75}, Light: models.OptimalRange{Min: 150, Max: 350}, Occupancy: models.OptimalRange{Min: 30, Max: 60}},
	SlotWeekdayNight:     {Sound: models.OptimalRange{Min: 70, Max: 80}, Light: models.OptimalRange{Min: 50, Max: 200}, Occupancy: models.OptimalRange{Min: 40, Max: 70}},
	SlotFridayEarly:      {Sound: models.OptimalRange{Min: 68, Max: 78}, Light: models.OptimalRange{Min: 80, Max: 250}, Occupancy: models.OptimalRange{Min: 40, Max: 70}},
	SlotFridayPeak:       {Sound: models.OptimalRange{Min: 75, Max: 85}, Light: models.OptimalRange{Min: 30, Max: 150}, Occupancy: models.OptimalRange{Min: 70, Max: 95}},
	SlotSaturdayEarly:    {Sound: models.OptimalRange{Min: 68, Max: 78}, Light: models.OptimalRange{Min: 80, Max: 250}, Occupancy: models.OptimalRange{Min: 45, Max: 75}},
	SlotSaturdayPeak:     {Sound: models.OptimalRange{Min: 76, Max: 88}, Light: models.OptimalRange{Min: 20, Max: 120}, Occupancy: models.OptimalRange{Min: 75, Max: 100}},
	SlotSundayFunday:     {Sound: models.OptimalRange{Min: 65, Max: 78}, Light: models.OptimalRange{Min: 100, Max: 400}, Occupancy: models.OptimalRange{Min: 35, Max: 70}},
	SlotDaytime:          {Sound: models.OptimalRange{Min: 55, Max: 68}, Light: models.OptimalRange{Min: 250, Max: 600}, Occupancy: models.OptimalRange{Min: 10, Max: 40}},
}

// Valid reports whether s is one of the known slots.
func (s TimeSlot) Valid() bool {
	_, ok := slotExpectations[s]
	return ok
}

// Expectations returns the slot's baseline ranges. Unknown slots get the
// daytime expectations.
func (s TimeSlot) Expectations() Expectations {
	if e, ok := slotExpectations[s]; ok {
		return e
	}
	return slotExpectations[SlotDaytime]
}

// Range returns the slot's baseline range for f, if the slot defines one.
func (s TimeSlot) Range(f models.Factor) (models.OptimalRange, bool) {
	e := s.Expectations()
	switch f {
	case models.FactorSound:
		return e.Sound, true
	case models.FactorLight:
		return e.Light, true
	case models.FactorOccupancy:
		return e.Occupancy, true
	}
	return models.OptimalRange{}, false
}

// ErrInvalidSchedule is returned for schedules whose windows overlap or
// fall outside the day.
var ErrInvalidSchedule = errors.New("invalid slot schedule")

// Schedule holds the local hours at which slots start. Hours before
// CloseHour belong to the previous business day, so night windows run past
// midnight until CloseHour.
type Schedule struct {
	HappyHourStart    int `toml:"happy_hour_start" json:"happyHourStart"`
	NightStart        int `toml:"night_start" json:"nightStart"`
	WeekendEarlyStart int `toml:"weekend_early_start" json:"weekendEarlyStart"`
	WeekendPeakStart  int `toml:"weekend_peak_start" json:"weekendPeakStart"`
	CloseHour         int `toml:"close_hour" json:"closeHour"`
}

// DefaultSchedule is the schedule used when a venue configures none.
var DefaultSchedule = Schedule{
	HappyHourStart:    16,
	NightStart:        19,
	WeekendEarlyStart: 16,
	WeekendPeakStart:  21,
	CloseHour:         2,
}

// Validate checks that every window is ordered inside a single day.
func (s Schedule) Validate() error {
	if s.CloseHour < 0 || s.CloseHour >= s.HappyHourStart || s.CloseHour >= s.WeekendEarlyStart {
		return errors.Wrapf(ErrInvalidSchedule, "close hour %d must precede the evening windows", s.CloseHour)
	}
	if s.HappyHourStart > s.NightStart || s.NightStart > 23 {
		return errors.Wrapf(ErrInvalidSchedule, "weekday windows %d-%d out of order", s.HappyHourStart, s.NightStart)
	}
	if s.WeekendEarlyStart > s.WeekendPeakStart || s.WeekendPeakStart > 23 {
		return errors.Wrapf(ErrInvalidSchedule, "weekend windows %d-%d out of order", s.WeekendEarlyStart, s.WeekendPeakStart)
	}
	return nil
}

// Classifier maps timestamps to time slots.
type Classifier struct {
	schedule Schedule
}

// NewClassifier builds a classifier for the given schedule.
func NewClassifier(s Schedule) (*Classifier, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{schedule: s}, nil
}

// DefaultClassifier returns a classifier using DefaultSchedule.
func DefaultClassifier() *Classifier {
	return &Classifier{schedule: DefaultSchedule}
}

// Schedule returns the classifier's schedule.
func (c *Classifier) Schedule() Schedule {
	return c.schedule
}

// Classify returns the slot active at t, in t's own location. Convert t to
// the venue's timezone first.
func (c *Classifier) Classify(t time.Time) TimeSlot {
	return c.ClassifyHour(t.Weekday(), t.Hour())
}

// ClassifyHour returns the slot for an hour of the week. It is total: every
// weekday/hour pair maps to exactly one slot.
func (c *Classifier) ClassifyHour(day time.Weekday, hour int) TimeSlot {
	s := c.schedule
	hour = ((hour % 24) + 24) % 24
	day = ((day % 7) + 7) % 7

	if day == time.Sunday {
		return SlotSundayFunday
	}

	// Late night belongs to the previous evening.
	if hour < s.CloseHour {
		switch day - 1 {
		case time.Friday:
			return SlotFridayPeak
		case time.Sunday:
			return SlotDaytime
		default:
			return SlotWeekdayNight
		}
	}

	switch day {
	case time.Friday, time.Saturday:
		peak, early := SlotFridayPeak, SlotFridayEarly
		if day == time.Saturday {
			peak, early = SlotSaturdayPeak, SlotSaturdayEarly
		}
		if hour >= s.WeekendPeakStart {
			return peak
		}
		if hour >= s.WeekendEarlyStart {
			return early
		}
		return SlotDaytime
	default:
		if hour >= s.NightStart {
			return SlotWeekdayNight
		}
		if hour >= s.HappyHourStart {
			return SlotWeekdayHappyHour
		}
		return SlotDaytime
	}
}
