package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodKind is the cache granularity a source publishes tables in.
type PeriodKind string

const (
	PeriodMonth PeriodKind = "month"
	PeriodYear  PeriodKind = "year"
)

// Period is one month or one dataset year. It carries no zone; dates are
// compared as calendar days.
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Year  int        `json:"year"`
	Month time.Month `json:"month,omitempty"`
}

// MonthOf returns the month period containing t.
func MonthOf(t time.Time) Period {
	return Period{Kind: PeriodMonth, Year: t.Year(), Month: t.Month()}
}

// YearOf returns the year period containing t.
func YearOf(t time.Time) Period {
	return Period{Kind: PeriodYear, Year: t.Year()}
}

// PeriodOf returns the period of the given kind containing t.
func PeriodOf(kind PeriodKind, t time.Time) Period {
	if kind == PeriodYear {
		return YearOf(t)
	}
	return MonthOf(t)
}

// Key is "2024" for years and "2024-06" for months.
func (p Period) Key() string {
	if p.Kind == PeriodYear {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string { return string(p.Kind) + ":" + p.Key() }

func (p Period) IsZero() bool { return p.Year == 0 }

// Start is midnight of the first day of the period in loc.
func (p Period) Start(loc *time.Location) time.Time {
	if p.Kind == PeriodYear {
		return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// End is midnight of the first day after the period in loc.
func (p Period) End(loc *time.Location) time.Time {
	if p.Kind == PeriodYear {
		return time.Date(p.Year+1, time.January, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, loc)
}

// Contains reports whether the YYYY-MM-DD date falls inside the period.
func (p Period) Contains(date string) bool {
	return strings.HasPrefix(date, p.Key()+"-")
}

// Next returns the period immediately after p.
func (p Period) Next() Period {
	if p.Kind == PeriodYear {
		return Period{Kind: PeriodYear, Year: p.Year + 1}
	}
	return MonthOf(time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

// Before reports whether p ends before q starts. Both must share a kind.
func (p Period) Before(q Period) bool {
	return p.Key() < q.Key()
}
