package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "vakit/internal/log"
	"vakit/internal/model"
)

const defaultMaxOccurrencesPerEvent = 400

// ExpandConfig controls how parsed events are laid onto a time table.
type ExpandConfig struct {
	Location model.Location
	Period   model.Period
	// Zone is the wall-clock zone of the table. Occurrences are converted
	// into it before being split into date and HH:MM. Nil means time.Local.
	Zone *time.Location
	// MaxOccurrencesPerEvent caps RRULE expansion.
	MaxOccurrencesPerEvent int
}

// ToTimeTable expands RRULEs (with EXDATE and RECURRENCE-ID overrides)
// inside cfg.Period and returns the resulting table. When two VEVENTs land
// on the same (date, key) the later one in input order wins.
func ToTimeTable(events []ParsedEvent, cfg ExpandConfig) model.TimeTable {
	if cfg.Zone == nil {
		cfg.Zone = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}
	rangeStart := cfg.Period.Start(cfg.Zone)
	// Between is inclusive; stop just before the next period starts.
	rangeEnd := cfg.Period.End(cfg.Zone).Add(-time.Second)

	overrides := make(map[string][]ParsedEvent)
	bases := make([]ParsedEvent, 0, len(events))
	for _, ev := range events {
		if ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	table := model.NewTimeTable(cfg.Location, cfg.Period)
	put := func(key model.EventKey, at time.Time) {
		at = at.In(cfg.Zone)
		date := model.DateKey(at)
		if !cfg.Period.Contains(date) {
			return
		}
		day, ok := table.Day(date)
		if !ok {
			day = model.DailyTimes{Date: date, Times: make(map[model.EventKey]string)}
		}
		day.Times[key] = at.Format("15:04")
		table.Put(day)
	}

	for _, ev := range bases {
		for _, occ := range occurrences(ev, rangeStart, rangeEnd, cfg.MaxOccurrencesPerEvent) {
			if o, ok := findOverride(overrides[ev.UID], occ); ok {
				put(o.Key, o.Start)
				continue
			}
			put(ev.Key, occ)
		}
	}
	return table
}

func occurrences(ev ParsedEvent, rangeStart, rangeEnd time.Time, max int) []time.Time {
	if ev.RawRRule == "" {
		if ev.Start.Before(rangeStart) || ev.Start.After(rangeEnd) {
			return nil
		}
		return []time.Time{ev.Start}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	occ := set.Between(rangeStart.In(ev.Start.Location()), rangeEnd.In(ev.Start.Location()), true)
	if len(occ) > max {
		appLog.Warn("ics: truncated occurrences", "uid", ev.UID, "cap", max)
		occ = occ[:max]
	}
	return occ
}

// findOverride matches an override whose RECURRENCE-ID equals occ exactly.
func findOverride(overrides []ParsedEvent, occ time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(occ) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}
