// Package resolve finds the next upcoming event across a day boundary.
package resolve

import (
	"time"

	"vakit/internal/model"
)

// Next is the upcoming event and the absolute instant it occurs at.
type Next struct {
	Key    model.EventKey
	Date   string
	Time   string
	Target time.Time
}

// Remaining is the duration from now until the event.
func (n Next) Remaining(now time.Time) time.Duration {
	return n.Target.Sub(now)
}

// NextEvent returns the first event of today whose instant is strictly after
// now, walking model.EventOrder. When every event of today has passed it
// returns tomorrow's first resolvable event. Malformed or missing times are
// skipped. today and tomorrow may be nil.
//
// An event at exactly now counts as passed.
func NextEvent(today, tomorrow *model.DailyTimes, now time.Time) (Next, bool) {
	loc := now.Location()

	if today != nil {
		for _, key := range model.EventOrder {
			at, ok := today.Instant(key, loc)
			if !ok {
				continue
			}
			if at.After(now) {
				return Next{Key: key, Date: today.Date, Time: today.Times[key], Target: at}, true
			}
		}
	}

	if tomorrow != nil {
		for _, key := range model.EventOrder {
			at, ok := tomorrow.Instant(key, loc)
			if !ok {
				continue
			}
			return Next{Key: key, Date: tomorrow.Date, Time: tomorrow.Times[key], Target: at}, true
		}
	}

	return Next{}, false
}

// FromTable looks up today's and tomorrow's slices for now in the given
// tables and resolves the next event.
func FromTable(now time.Time, tables ...model.TimeTable) (Next, bool) {
	today, tomorrow := Slices(now, tables...)
	return NextEvent(today, tomorrow, now)
}

// Slices returns the entries for the calendar day of now and the day after,
// taking each from the first table that has it. Tables may be empty; a
// single yearly table usually covers both days.
func Slices(now time.Time, tables ...model.TimeTable) (today, tomorrow *model.DailyTimes) {
	return lookup(model.DateKey(now), tables), lookup(model.DateKey(model.NextDay(now)), tables)
}

func lookup(date string, tables []model.TimeTable) *model.DailyTimes {
	for _, t := range tables {
		if d, ok := t.Day(date); ok {
			return &d
		}
	}
	return nil
}
