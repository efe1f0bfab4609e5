// Package clock provides the operational time source.
//
// All persisted timestamps use the operational local time of the hospital
// centers (one timezone for the whole deployment), not system UTC, so that
// displayed times match what operators see on the wall.
package clock

import "time"

// Clock returns the operationally-relevant local time for timestamping.
type Clock interface {
	Now() time.Time
}

// Wall is the production clock, pinned to a configured IANA zone.
type Wall struct {
	loc *time.Location
}

// NewWall creates a wall clock for the given zone name (e.g. "Africa/Douala").
// Falls back to time.Local when the name is empty or unknown.
func NewWall(zone string) *Wall {
	if zone == "" {
		return &Wall{loc: time.Local}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return &Wall{loc: time.Local}
	}
	return &Wall{loc: loc}
}

func (w *Wall) Now() time.Time {
	return time.Now().In(w.loc)
}

// Fixed is a test clock that always returns the same instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
