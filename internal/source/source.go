// Package source resolves a location to a normalized time table. Each
// source owns its transport and wire shape; everything it returns is a
// model.TimeTable keyed by date.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vakit/internal/model"
)

// ErrSourceUnavailable marks any transport or parse failure reaching a
// time-table source. It is recoverable: the next tick retries.
var ErrSourceUnavailable = errors.New("time-table source unavailable")

// UnavailableError carries the context of a failed fetch.
type UnavailableError struct {
	Source   string
	Location string
	Period   string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s %s %s: %v", ErrSourceUnavailable, e.Source, e.Location, e.Period, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

func unavailable(src string, loc model.Location, p model.Period, err error) error {
	return &UnavailableError{Source: src, Location: loc.ID, Period: p.Key(), Err: err}
}

// Source fetches the time table of one location for one period.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// PeriodFor returns the period whose table covers t.
	PeriodFor(t time.Time) model.Period
	// Fetch returns the whole table for (loc, p) or an error that
	// matches ErrSourceUnavailable.
	Fetch(ctx context.Context, loc model.Location, p model.Period) (model.TimeTable, error)
}

// Lister is implemented by sources that can enumerate their locations.
type Lister interface {
	Locations() ([]model.Location, error)
}
