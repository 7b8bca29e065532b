// Package ics reads prayer-time calendar feeds into time tables and writes
// time tables back out as iCalendar.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "vakit/internal/log"
	"vakit/internal/model"
)

// ParsedEvent is a VEVENT that names one of the daily events.
type ParsedEvent struct {
	UID   string
	Key   model.EventKey
	Start time.Time

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if this VEVENT overrides one instance
}

// Parse reads an ICS payload and keeps the VEVENTs whose SUMMARY maps to
// an event key ("Öğle", "ogle", "Öğle Vakti" ...). Other events and
// unparsable VEVENTs are skipped.
func Parse(body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, ok, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "reason", perr.Error())
			continue
		}
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, bool, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, false, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	summary := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}
	key, ok := keyFromSummary(summary)
	if !ok {
		return out, false, nil
	}
	out.Key = key

	start, err := ve.GetStartAt()
	if err != nil {
		return out, false, err
	}
	out.Start = start

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value, start.Location()); err == nil {
			out.Recurrence = &t
		}
	}

	return out, true, nil
}

// keyFromSummary tries the whole summary first, then its first word, so
// "Öğle Vakti" and "Akşam namazı" both resolve.
func keyFromSummary(summary string) (model.EventKey, bool) {
	summary = strings.TrimSpace(summary)
	if key, ok := model.KeyForLabel(summary); ok {
		return key, true
	}
	if fields := strings.Fields(summary); len(fields) > 0 {
		return model.KeyForLabel(fields[0])
	}
	return "", false
}

// parseICSTime parses the basic DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. Floating times are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
