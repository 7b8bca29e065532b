package source

import (
	"context"
	"fmt"
	"time"

	"vakit/internal/ics"
	"vakit/internal/model"
)

// ICSOptions configures an iCalendar feed source.
type ICSOptions struct {
	// URLTemplate accepts the same placeholders as HTTPOptions.URLTemplate.
	// Most feeds ignore them and publish one rolling calendar.
	URLTemplate string
	CacheDir    string
	Timeout     time.Duration
	// Zone is the wall-clock zone the table is expressed in.
	Zone *time.Location
}

// ICS reads prayer times from a calendar feed whose VEVENT summaries name
// the events. Recurring events are expanded per month.
type ICS struct {
	tmpl string
	zone *time.Location
	f    *fetcher
}

func NewICS(opts ICSOptions) *ICS {
	zone := opts.Zone
	if zone == nil {
		zone = time.Local
	}
	return &ICS{tmpl: opts.URLTemplate, zone: zone, f: newFetcher(opts.CacheDir, opts.Timeout)}
}

func (s *ICS) Name() string { return "ics" }

func (s *ICS) PeriodFor(t time.Time) model.Period { return model.MonthOf(t) }

func (s *ICS) Fetch(ctx context.Context, loc model.Location, p model.Period) (model.TimeTable, error) {
	res, err := s.f.get(ctx, expandURL(s.tmpl, loc, p))
	if err != nil {
		return model.TimeTable{}, unavailable(s.Name(), loc, p, err)
	}
	events, err := ics.Parse(res.Body)
	if err != nil {
		return model.TimeTable{}, unavailable(s.Name(), loc, p, fmt.Errorf("parse: %w", err))
	}
	table := ics.ToTimeTable(events, ics.ExpandConfig{Location: loc, Period: p, Zone: s.zone})
	if table.Empty() {
		return model.TimeTable{}, unavailable(s.Name(), loc, p, fmt.Errorf("feed has no events in %s", p.Key()))
	}
	return table, nil
}
