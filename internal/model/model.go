// Package model holds the normalized time-table types shared by sources,
// the cache, the resolver and the reminder gate.
package model

import (
	"sort"
	"time"
)

// EventKey names one of the fixed daily prayer times.
type EventKey string

const (
	Imsak  EventKey = "imsak"
	Gunes  EventKey = "gunes"
	Ogle   EventKey = "ogle"
	Ikindi EventKey = "ikindi"
	Aksam  EventKey = "aksam"
	Yatsi  EventKey = "yatsi"
)

// EventOrder is the fixed order in which events occur within a day.
var EventOrder = []EventKey{Imsak, Gunes, Ogle, Ikindi, Aksam, Yatsi}

var labels = map[EventKey]string{
	Imsak:  "İmsak",
	Gunes:  "Güneş",
	Ogle:   "Öğle",
	Ikindi: "İkindi",
	Aksam:  "Akşam",
	Yatsi:  "Yatsı",
}

// Label returns the display name, or the raw key for unknown events.
func (k EventKey) Label() string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

// Valid reports whether k is part of EventOrder.
func (k EventKey) Valid() bool {
	_, ok := labels[k]
	return ok
}

// KeyForLabel maps a display label or a raw key (case-insensitive,
// Turkish letters folded) back to an EventKey.
func KeyForLabel(s string) (EventKey, bool) {
	slug := Slug(s)
	for _, k := range EventOrder {
		if slug == string(k) || slug == Slug(k.Label()) {
			return k, true
		}
	}
	return "", false
}

// Location identifies the place a time table is resolved for.
type Location struct {
	// ID is the source-facing identifier, e.g. "istanbul".
	ID string `yaml:"id" json:"id"`
	// Name is the human readable label, e.g. "İstanbul".
	Name string `yaml:"name" json:"name"`
}

func (l Location) IsZero() bool { return l.ID == "" }

// DisplayName prefers Name and falls back to ID.
func (l Location) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}

// DailyTimes is one calendar day of event times. Times are local wall-clock
// "HH:MM" strings without a zone.
type DailyTimes struct {
	Date  string              `json:"date"`
	Hijri string              `json:"hijri,omitempty"`
	Times map[EventKey]string `json:"times"`
}

// Time returns the literal time string for key.
func (d DailyTimes) Time(key EventKey) (string, bool) {
	if d.Times == nil {
		return "", false
	}
	s, ok := d.Times[key]
	return s, ok && s != ""
}

// Instant resolves key on d's date in loc. ok is false when the date or the
// time string is missing or malformed.
func (d DailyTimes) Instant(key EventKey, loc *time.Location) (time.Time, bool) {
	s, ok := d.Time(key)
	if !ok {
		return time.Time{}, false
	}
	day, err := ParseDate(d.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	at, err := At(day, s)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// TimeTable maps a date (YYYY-MM-DD) to that day's times for one location
// and one period.
type TimeTable struct {
	Location Location              `json:"location"`
	Period   Period                `json:"period"`
	Days     map[string]DailyTimes `json:"days"`
}

// NewTimeTable returns an empty table ready for Put.
func NewTimeTable(loc Location, p Period) TimeTable {
	return TimeTable{Location: loc, Period: p, Days: make(map[string]DailyTimes)}
}

// Put stores d, replacing any existing entry for the same date.
func (t *TimeTable) Put(d DailyTimes) {
	if t.Days == nil {
		t.Days = make(map[string]DailyTimes)
	}
	t.Days[d.Date] = d
}

// Day looks up the entry for date.
func (t TimeTable) Day(date string) (DailyTimes, bool) {
	d, ok := t.Days[date]
	return d, ok
}

// DayOf looks up the entry for the calendar day of ts.
func (t TimeTable) DayOf(ts time.Time) (DailyTimes, bool) {
	return t.Day(DateKey(ts))
}

func (t TimeTable) Len() int { return len(t.Days) }

func (t TimeTable) Empty() bool { return len(t.Days) == 0 }

// Dates returns the table's dates in ascending order.
func (t TimeTable) Dates() []string {
	out := make([]string, 0, len(t.Days))
	for d := range t.Days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
