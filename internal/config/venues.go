package config

import (
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/scoring"
)

// venuesFile is the on-disk layout of VENUES_FILE.
//
//	[schedule]
//	happy_hour_start = 16
//
//	[profiles.late_night]
//	outcome = "dwell_time"
//	weights = { sound = 0.5, light = 0.5 }
//
//	[venues.blue-bar]
//	profile  = "late_night"
//	capacity = 400
//	timezone = "America/New_York"
type venuesFile struct {
	Schedule scoring.Schedule        `toml:"schedule"`
	Profiles map[string]profileEntry `toml:"profiles"`
	Venues   map[string]venueEntry   `toml:"venues"`
}

type profileEntry struct {
	Outcome string             `toml:"outcome"`
	Weights map[string]float64 `toml:"weights"`
}

type venueEntry struct {
	Profile  string `toml:"profile"`
	Capacity int    `toml:"capacity"`
	Timezone string `toml:"timezone"`
}

// Venue is the resolved configuration of one venue.
type Venue struct {
	ID       string          `json:"id"`
	Profile  scoring.Profile `json:"profile"`
	Capacity int             `json:"capacity,omitempty"`
	Location *time.Location  `json:"-"`
}

// Venues resolves per-venue scoring configuration. Venues missing from the
// file use the default profile, no capacity and UTC.
type Venues struct {
	schedule scoring.Schedule
	profiles map[string]scoring.Profile
	venues   map[string]Venue
}

// DefaultVenues returns a configuration with only the built-in profiles.
func DefaultVenues() *Venues {
	return &Venues{
		schedule: scoring.DefaultSchedule,
		profiles: scoring.BuiltinProfiles(),
		venues:   make(map[string]Venue),
	}
}

// LoadVenues reads a venues file. An empty path yields DefaultVenues.
func LoadVenues(path string) (*Venues, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultVenues(), nil
	}

	file := venuesFile{Schedule: scoring.DefaultSchedule}
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to parse TOML", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	return buildVenues(file, path)
}

// ParseVenues decodes a venues document held in memory.
func ParseVenues(data string) (*Venues, error) {
	file := venuesFile{Schedule: scoring.DefaultSchedule}
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse TOML")
	}
	return buildVenues(file, "venues")
}

func buildVenues(file venuesFile, source string) (*Venues, error) {
	v := DefaultVenues()

	if err := file.Schedule.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s: [schedule]", source)
	}
	v.schedule = file.Schedule

	for name, entry := range file.Profiles {
		p := scoring.Profile{
			Name:    name,
			Outcome: scoring.OutcomeMetric(entry.Outcome),
			Weights: make(scoring.FactorWeights, len(entry.Weights)),
		}
		if p.Outcome == "" {
			p.Outcome = scoring.OutcomeOccupancyGrowth
		}
		for factor, w := range entry.Weights {
			p.Weights[models.Factor(factor)] = w
		}
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "%s: [profiles.%s]", source, name)
		}
		v.profiles[name] = p
	}

	for id, entry := range file.Venues {
		name := entry.Profile
		if name == "" {
			name = scoring.DefaultProfileName
		}
		profile, ok := v.profiles[name]
		if !ok {
			return nil, errors.Wrapf(scoring.ErrUnknownProfile, "%s: [venues.%s] profile %q", source, id, name)
		}
		if entry.Capacity < 0 {
			return nil, errors.Errorf("%s: [venues.%s] negative capacity", source, id)
		}
		loc := time.UTC
		if entry.Timezone != "" {
			l, err := time.LoadLocation(entry.Timezone)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: [venues.%s] timezone", source, id)
			}
			loc = l
		}
		v.venues[id] = Venue{ID: id, Profile: profile, Capacity: entry.Capacity, Location: loc}
	}

	return v, nil
}

// Venue returns the configuration of id.
func (v *Venues) Venue(id string) Venue {
	if venue, ok := v.venues[id]; ok {
		return venue
	}
	return Venue{ID: id, Profile: v.profiles[scoring.DefaultProfileName], Location: time.UTC}
}

// IDs returns the configured venue ids, sorted.
func (v *Venues) IDs() []string {
	ids := make([]string, 0, len(v.venues))
	for id := range v.venues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Profiles returns every known profile, built-in and configured.
func (v *Venues) Profiles() map[string]scoring.Profile {
	out := make(map[string]scoring.Profile, len(v.profiles))
	for name, p := range v.profiles {
		out[name] = p
	}
	return out
}

// Schedule returns the slot schedule shared by all venues.
func (v *Venues) Schedule() scoring.Schedule {
	return v.schedule
}
