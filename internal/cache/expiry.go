package cache

import (
	"fmt"
	"time"
)

// ExpiryPolicy decides when a value stored at now stops being served.
type ExpiryPolicy interface {
	Expiry(now time.Time) time.Time
}

// FixedTTL expires values a fixed duration after they are stored.
type FixedTTL time.Duration

// Expiry implements ExpiryPolicy
func (d FixedTTL) Expiry(now time.Time) time.Time {
	return now.Add(time.Duration(d))
}

// Never keeps a value until Invalidate is called.
type Never struct{}

// Expiry implements ExpiryPolicy
func (Never) Expiry(time.Time) time.Time {
	return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
}

// DailyRefresh expires values at the next occurrence of a wall-clock time in
// a location, matching an upstream table that is rebuilt once a day.
type DailyRefresh struct {
	Location *time.Location
	Hour     int
	Minute   int
}

// NewDailyRefresh parses an "HH:MM" refresh time in the named IANA zone.
func NewDailyRefresh(at, zone string) (DailyRefresh, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return DailyRefresh{}, fmt.Errorf("unknown timezone %q: %w", zone, err)
	}
	t, err := time.Parse("15:04", at)
	if err != nil {
		return DailyRefresh{}, fmt.Errorf("refresh time %q must be HH:MM: %w", at, err)
	}
	return DailyRefresh{Location: loc, Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Expiry implements ExpiryPolicy. A value stored exactly at the refresh
// instant lives until the following day's refresh.
func (d DailyRefresh) Expiry(now time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

// TTL is the time left until the next refresh.
func (d DailyRefresh) TTL(now time.Time) time.Duration {
	return d.Expiry(now).Sub(now)
}
