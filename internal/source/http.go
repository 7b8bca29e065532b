package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vakit/internal/model"
)

// httpDay is one record of the monthly HTTP API. The API returns an array
// of these for the requested month.
type httpDay struct {
	Date  string            `json:"date"`
	Hijri string            `json:"hijri"`
	Times map[string]string `json:"times"`
}

// HTTPOptions configures an HTTP source.
type HTTPOptions struct {
	// URLTemplate may contain {location}, {year} and {month} placeholders,
	// e.g. "https://example.org/api/{location}/{year}/{month}".
	URLTemplate string
	// CacheDir keeps the last body per URL for conditional requests.
	// Empty disables revalidation.
	CacheDir string
	Timeout  time.Duration
}

// HTTP fetches monthly tables from a JSON API.
type HTTP struct {
	tmpl string
	f    *fetcher
}

func NewHTTP(opts HTTPOptions) *HTTP {
	return &HTTP{tmpl: opts.URLTemplate, f: newFetcher(opts.CacheDir, opts.Timeout)}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) PeriodFor(t time.Time) model.Period { return model.MonthOf(t) }

func (h *HTTP) Fetch(ctx context.Context, loc model.Location, p model.Period) (model.TimeTable, error) {
	res, err := h.f.get(ctx, expandURL(h.tmpl, loc, p))
	if err != nil {
		return model.TimeTable{}, unavailable(h.Name(), loc, p, err)
	}

	var days []httpDay
	if err := json.Unmarshal(res.Body, &days); err != nil {
		return model.TimeTable{}, unavailable(h.Name(), loc, p, fmt.Errorf("decode: %w", err))
	}

	table := model.NewTimeTable(loc, p)
	for _, d := range days {
		if !p.Contains(d.Date) {
			continue
		}
		times := make(map[model.EventKey]string, len(d.Times))
		for name, v := range d.Times {
			key, ok := model.KeyForLabel(name)
			if !ok {
				continue
			}
			times[key] = strings.TrimSpace(v)
		}
		table.Put(model.DailyTimes{Date: d.Date, Hijri: d.Hijri, Times: times})
	}
	if table.Empty() {
		return model.TimeTable{}, unavailable(h.Name(), loc, p, fmt.Errorf("no days for %s", p.Key()))
	}
	return table, nil
}

func expandURL(tmpl string, loc model.Location, p model.Period) string {
	month := ""
	if p.Kind == model.PeriodMonth {
		month = fmt.Sprintf("%02d", int(p.Month))
	}
	return strings.NewReplacer(
		"{location}", loc.ID,
		"{year}", strconv.Itoa(p.Year),
		"{month}", month,
	).Replace(tmpl)
}
