package tick

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vakit/internal/cache"
	"vakit/internal/config"
	"vakit/internal/indicator"
	appLog "vakit/internal/log"
	"vakit/internal/model"
	"vakit/internal/notify"
	"vakit/internal/resolve"
)

// ErrNoLocation means the user has not picked a location yet. It is a
// defined empty state, not a failure.
var ErrNoLocation = errors.New("no location configured")

// ErrNoData means neither a fetched nor a stored table covers today.
var ErrNoData = errors.New("no time table for today")

// ReminderLog is the persisted dedup log. Commit returns the entries it
// actually inserted; keys already present are left out.
type ReminderLog interface {
	Load(ctx context.Context, dates ...string) (notify.Log, error)
	Commit(ctx context.Context, entries notify.Log) (notify.Log, error)
}

// Runner performs one tick. All collaborators are explicit; nothing is
// read from package state.
type Runner struct {
	// Settings is called at the start of every tick.
	Settings   func() (*config.Settings, error)
	Cache      *cache.Cache
	Gate       notify.Gate
	Log        ReminderLog
	Dispatcher notify.Dispatcher
	Display    indicator.Display
	// Zone is the wall-clock zone of the tables.
	Zone *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes what a tick did.
type Result struct {
	Location  model.Location
	Next      resolve.Next
	HasNext   bool
	Indicator indicator.Indicator
	Fired     []notify.Reminder
	// Stale is set when the source failed and a stored table was used.
	Stale bool
}

// Run is Tick as a TickFunc.
func (r *Runner) Run(ctx context.Context) error {
	_, err := r.Tick(ctx)
	return err
}

// Tick runs the pipeline once. Any failure, including a panic, clears the
// indicator and is returned; the caller keeps ticking.
func (r *Runner) Tick(ctx context.Context) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tick panic: %v", p)
		}
		if err != nil {
			r.clear(ctx)
		}
	}()

	s, err := r.Settings()
	if err != nil {
		return res, fmt.Errorf("read settings: %w", err)
	}
	if !s.HasLocation() {
		return res, ErrNoLocation
	}
	loc := *s.Location
	res.Location = loc
	r.Cache.SetMaxAge(time.Duration(s.AutoRefreshMinutes) * time.Minute)

	now := r.now()
	tables, stale, err := r.tables(ctx, loc, now)
	if err != nil {
		return res, err
	}
	res.Stale = stale

	today, tomorrow := resolve.Slices(now, tables...)

	if s.NotificationsEnabled && len(s.Reminders) > 0 {
		res.Fired = r.remind(ctx, now, today, tomorrow, s.Reminders)
	}

	next, ok := resolve.NextEvent(today, tomorrow, now)
	if !ok {
		appLog.Info("no upcoming event", "location", loc.ID, "date", model.DateKey(now))
		r.clear(ctx)
		return res, nil
	}
	res.Next, res.HasNext = next, true

	ind := indicator.Build(next, loc, now)
	if ind.Empty() {
		r.clear(ctx)
		return res, nil
	}
	res.Indicator = ind
	if r.Display != nil {
		if err := r.Display.Show(ctx, ind); err != nil {
			appLog.Error("indicator update failed", err, "text", ind.Text)
		}
	}
	appLog.Debug("indicator", "text", ind.Text, "event", string(next.Key), "target", next.Target.Format(time.RFC3339))
	return res, nil
}

// Table returns the current period's table for the configured location,
// the way a tick sees it.
func (r *Runner) Table(ctx context.Context) (model.Location, model.TimeTable, error) {
	s, err := r.Settings()
	if err != nil {
		return model.Location{}, model.TimeTable{}, fmt.Errorf("read settings: %w", err)
	}
	if !s.HasLocation() {
		return model.Location{}, model.TimeTable{}, ErrNoLocation
	}
	loc := *s.Location
	tables, _, err := r.tables(ctx, loc, r.now())
	if err != nil {
		return loc, model.TimeTable{}, err
	}
	return loc, tables[0], nil
}

// Refresh refetches the current period bypassing freshness. On failure
// the stored table is kept.
func (r *Runner) Refresh(ctx context.Context) (model.TimeTable, error) {
	s, err := r.Settings()
	if err != nil {
		return model.TimeTable{}, fmt.Errorf("read settings: %w", err)
	}
	if !s.HasLocation() {
		return model.TimeTable{}, ErrNoLocation
	}
	now := r.now()
	return r.Cache.Get(ctx, *s.Location, r.Cache.PeriodFor(now), true)
}

// tables returns the table covering now and, when tomorrow falls in the
// next period, that period's table too. A failed fetch of the current
// period falls back to the stored entry if it still covers today.
func (r *Runner) tables(ctx context.Context, loc model.Location, now time.Time) ([]model.TimeTable, bool, error) {
	p := r.Cache.PeriodFor(now)
	stale := false

	current, err := r.Cache.Get(ctx, loc, p, false)
	if err != nil {
		e, ok := r.Cache.Peek(loc, p)
		if !ok {
			return nil, false, err
		}
		if _, has := e.Table.DayOf(now); !has {
			return nil, false, err
		}
		appLog.Warn("using stored table after fetch failure", "location", loc.ID, "period", p.Key(), "fetched_at", e.FetchedAt.Format(time.RFC3339), "reason", err.Error())
		current, stale = e.Table, true
	}
	if current.Empty() {
		return nil, stale, ErrNoData
	}
	tables := []model.TimeTable{current}

	tomorrow := model.NextDay(now)
	if np := r.Cache.PeriodFor(tomorrow); np != p {
		next, err := r.Cache.Get(ctx, loc, np, false)
		if err != nil {
			if e, ok := r.Cache.Peek(loc, np); ok {
				next = e.Table
			} else {
				appLog.Warn("next period unavailable; tomorrow unresolved", "location", loc.ID, "period", np.Key(), "reason", err.Error())
			}
		}
		tables = append(tables, next)
	}
	return tables, stale, nil
}

// remind runs the gate and commits its log before dispatching, so a
// reminder is delivered at most once even when the commit fails. Only the
// keys this commit inserted are dispatched; a key another process wrote
// first is skipped.
func (r *Runner) remind(ctx context.Context, now time.Time, today, tomorrow *model.DailyTimes, cfg map[model.EventKey]int) []notify.Reminder {
	if r.Log == nil {
		return nil
	}
	dates := make([]string, 0, 2)
	for _, d := range []*model.DailyTimes{today, tomorrow} {
		if d != nil {
			dates = append(dates, d.Date)
		}
	}
	if len(dates) == 0 {
		return nil
	}

	before, err := r.Log.Load(ctx, dates...)
	if err != nil {
		appLog.Error("reminder log load failed; skipping reminders", err)
		return nil
	}
	due, after := r.Gate.Evaluate(now, today, tomorrow, cfg, before)
	if len(due) == 0 {
		return nil
	}
	inserted, err := r.Log.Commit(ctx, notify.Added(before, after))
	if err != nil {
		appLog.Error("reminder log commit failed; not dispatching", err, "due", len(due))
		return nil
	}
	won := due[:0]
	for _, rem := range due {
		if !inserted.Has(rem.Key) {
			appLog.Info("reminder already fired by another process", "key", rem.Key.String())
			continue
		}
		appLog.Info("reminder due", "key", rem.Key.String(), "id", rem.ID.String())
		won = append(won, rem)
	}
	due = won
	if len(due) == 0 {
		return nil
	}
	sent := notify.DispatchAll(ctx, r.Dispatcher, due)
	if sent < len(due) {
		appLog.Warn("some reminders were not delivered", "due", len(due), "sent", sent)
	}
	return due
}

func (r *Runner) clear(ctx context.Context) {
	if r.Display == nil {
		return
	}
	if err := r.Display.Clear(ctx); err != nil {
		appLog.Error("indicator clear failed", err)
	}
}

func (r *Runner) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	zone := r.Zone
	if zone == nil {
		zone = time.Local
	}
	return now().In(zone)
}
