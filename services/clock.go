package services

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock supplies canonical (UTC) instants and normalizes user-supplied local
// times into them. All persisted and compared instants are canonical.
type Clock struct {
	clock clockwork.Clock
	local *time.Location
}

// NewClock builds a Clock for the given IANA zone name, e.g. "Europe/Berlin".
// User-facing date/time input without an explicit zone is interpreted there.
func NewClock(clock clockwork.Clock, zoneName string) (*Clock, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", zoneName, err)
	}
	return &Clock{clock: clock, local: loc}, nil
}

// Now returns the current canonical instant.
func (c *Clock) Now() time.Time {
	return c.clock.Now().UTC()
}

// ParseLocal parses a zone-naive date/time string, interprets it in the
// configured local zone and returns the canonical instant.
func (c *Clock) ParseLocal(value string) (time.Time, error) {
	layouts := []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, c.local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time format: %q", value)
}

// ToLocal converts a canonical instant to the configured local zone for display.
func (c *Clock) ToLocal(t time.Time) time.Time {
	return t.In(c.local)
}
