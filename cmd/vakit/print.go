package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"vakit/internal/config"
	"vakit/internal/indicator"
	"vakit/internal/model"
	"vakit/internal/resolve"
	"vakit/internal/tick"
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	next  = color.New(color.Bold, color.FgGreen)
)

func printDay(loc model.Location, table model.TimeTable, now time.Time, n resolve.Next, hasNext bool) {
	writeDay(color.Output, loc, table, now, n, hasNext)
}

// writeDay renders today's times; the next event is highlighted with its
// countdown.
func writeDay(w io.Writer, loc model.Location, table model.TimeTable, now time.Time, n resolve.Next, hasNext bool) {
	date := model.DateKey(now)
	day, ok := table.Day(date)

	_, _ = fmt.Fprintln(w, bold.Sprint(loc.DisplayName())+"  "+date)
	if !ok {
		_, _ = fmt.Fprintln(w, faint.Sprint("no times for today"))
		return
	}
	if day.Hijri != "" {
		_, _ = fmt.Fprintln(w, faint.Sprint(day.Hijri))
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, key := range model.EventOrder {
		t, ok := day.Time(key)
		if !ok {
			continue
		}
		if hasNext && n.Date == date && n.Key == key {
			tbl.AddRow(next.Sprint(key.Label()), next.Sprint(t), next.Sprint(indicator.RenderLong(n.Remaining(now))))
			continue
		}
		tbl.AddRow(key.Label(), t, "")
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(w, tbl)

	if hasNext && n.Date != date {
		_, _ = fmt.Fprintf(w, "next: %s %s %s (%s)\n", n.Date, n.Key.Label(), n.Time, indicator.RenderLong(n.Remaining(now)))
	}
}

func printResult(res tick.Result) {
	writeResult(color.Output, res)
}

func writeResult(w io.Writer, res tick.Result) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("location"), res.Location.DisplayName())
	if res.HasNext {
		tbl.AddRow(bold.Sprint("next"), fmt.Sprintf("%s %s %s", res.Next.Date, res.Next.Key.Label(), res.Next.Time))
	} else {
		tbl.AddRow(bold.Sprint("next"), faint.Sprint("none"))
	}
	if !res.Indicator.Empty() {
		tbl.AddRow(bold.Sprint("indicator"), res.Indicator.Text+"  "+res.Indicator.Long)
	}
	if res.Stale {
		tbl.AddRow(bold.Sprint("data"), color.YellowString("stored table (source unavailable)"))
	}
	for _, r := range res.Fired {
		tbl.AddRow(bold.Sprint("reminder"), r.Title)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printLocations(locs []model.Location) {
	writeLocations(color.Output, locs)
}

func writeLocations(w io.Writer, locs []model.Location) {
	if len(locs) == 0 {
		_, _ = fmt.Fprintln(w, "vakit: no locations found")
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Name"))
	for _, l := range locs {
		tbl.AddRow(l.ID, l.DisplayName())
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printReminders(s *config.Settings, fired int) {
	writeReminders(color.Output, s, fired)
}

func writeReminders(w io.Writer, s *config.Settings, fired int) {
	state := color.RedString("off")
	if s.NotificationsEnabled {
		state = color.GreenString("on")
	}
	_, _ = fmt.Fprintf(w, "notifications: %s  (fired so far: %d)\n", state, fired)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Event"), bold.Sprint("Minutes before"))
	for _, key := range model.EventOrder {
		m, ok := s.Reminders[key]
		if !ok {
			tbl.AddRow(key.Label(), faint.Sprint("-"))
			continue
		}
		tbl.AddRow(key.Label(), strconv.Itoa(m))
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(w, tbl)
}
