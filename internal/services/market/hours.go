// Package market answers whether the reference stock exchange is open.
package market

import (
	"time"
	_ "time/tzdata"

	"github.com/bobmcallan/treasury/internal/interfaces"
)

// Timezone is the reference exchange's zone (NYSE / NASDAQ).
const Timezone = "America/New_York"

var exchangeLocation = mustLoadLocation(Timezone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// EST without daylight saving
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// Regular session, exchange local time.
const (
	openMinute  = 9*60 + 30 // 09:30
	closeMinute = 16 * 60   // 16:00
)

// IsOpenAt reports whether the regular session is open at t: Monday to
// Friday, from 09:30 inclusive to 16:00 exclusive, exchange local time.
// Exchange holidays are not modelled.
func IsOpenAt(t time.Time) bool {
	local := t.In(exchangeLocation)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour, min, _ := local.Clock()
	minuteOfDay := hour*60 + min
	return minuteOfDay >= openMinute && minuteOfDay < closeMinute
}

// NextOpenAfter returns the next session open strictly after t.
func NextOpenAfter(t time.Time) time.Time {
	local := t.In(exchangeLocation)
	for i := 0; i < 8; i++ {
		day := local.AddDate(0, 0, i)
		open := time.Date(day.Year(), day.Month(), day.Day(), openMinute/60, openMinute%60, 0, 0, exchangeLocation)
		if wd := open.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if open.After(t) {
			return open
		}
	}
	return local
}

// Status is a snapshot of the exchange state.
type Status struct {
	IsOpen    bool      `json:"is_open"`
	Timezone  string    `json:"timezone"`
	LocalTime string    `json:"local_time"`
	NextOpen  time.Time `json:"next_open"`
}

// Clock implements interfaces.MarketClock against the wall clock.
type Clock struct {
	now func() time.Time // injectable clock for testing
}

// NewClock creates a Clock reading time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt creates a Clock reading now.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// IsMarketOpen reports whether the exchange is open right now.
func (c *Clock) IsMarketOpen() bool {
	return IsOpenAt(c.now())
}

// Status returns the current exchange state.
func (c *Clock) Status() Status {
	now := c.now()
	return Status{
		IsOpen:    IsOpenAt(now),
		Timezone:  Timezone,
		LocalTime: now.In(exchangeLocation).Format("2006-01-02 15:04:05 MST"),
		NextOpen:  NextOpenAfter(now).UTC(),
	}
}

var _ interfaces.MarketClock = (*Clock)(nil)
