package protocol

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeParts is the calendar breakdown the backend expects for a run start.
type TimeParts struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// TimePartsOf splits t into its calendar fields.
func TimePartsOf(t time.Time) TimeParts {
	return TimeParts{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// Time converts the parts back to a wall-clock time in UTC.
func (p TimeParts) Time() time.Time {
	return time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, p.Minute, 0, 0, time.UTC)
}

// InitCommand starts a simulation run.
type InitCommand struct {
	InitialTime TimeParts `json:"initialTime"`
}

// StopCommand requests a graceful stop. It always encodes as {}.
type StopCommand struct{}

// ErrInvalidCommand marks a command rejected before it was published.
var ErrInvalidCommand = errors.New("invalid command")

// FailureCommand registers a vehicle breakdown.
type FailureCommand struct {
	VehiclePlaque   string `json:"vehiclePlaque"`
	Type            string `json:"type"`
	ShiftOccurredOn string `json:"shiftOccurredOn"`
}

// Validate checks the failure command fields.
func (c *FailureCommand) Validate() error {
	if strings.TrimSpace(c.VehiclePlaque) == "" {
		return fmt.Errorf("%w: vehicle plate is required", ErrInvalidCommand)
	}
	switch c.Type {
	case FailureType1, FailureType2, FailureType3:
	default:
		return fmt.Errorf("%w: unknown failure type %q", ErrInvalidCommand, c.Type)
	}
	switch c.ShiftOccurredOn {
	case ShiftT1, ShiftT2, ShiftT3:
	default:
		return fmt.Errorf("%w: unknown shift %q", ErrInvalidCommand, c.ShiftOccurredOn)
	}
	return nil
}

// ShiftFor returns the shift covering the given hour of day.
func ShiftFor(hour int) string {
	switch {
	case hour < 8:
		return ShiftT1
	case hour < 16:
		return ShiftT2
	default:
		return ShiftT3
	}
}

var minuteLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseMinute parses a snapshot minute label or blockage bound. Labels
// without a zone are read as UTC.
func ParseMinute(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range minuteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
