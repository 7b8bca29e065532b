// Package notify decides when a reminder is due, remembers which reminders
// already fired and hands due ones to dispatchers.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vakit/internal/model"
)

// reminderNamespace scopes the name-based reminder ids.
var reminderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:vakit:reminder"))

// LogKey identifies one reminder occurrence. A key fires at most once.
type LogKey struct {
	Date   string         `json:"date"`
	Event  model.EventKey `json:"event"`
	Offset int            `json:"offset_minutes"`
}

func (k LogKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Date, k.Event, k.Offset)
}

// ID is a stable identifier for the key, so a transport that sees the same
// reminder twice can drop the duplicate.
func (k LogKey) ID() uuid.UUID {
	return uuid.NewSHA1(reminderNamespace, []byte(k.String()))
}

// Log maps fired keys to the instant they fired.
type Log map[LogKey]time.Time

func (l Log) Has(k LogKey) bool {
	_, ok := l[k]
	return ok
}

// Clone returns an independent copy; a nil Log clones to an empty one.
func (l Log) Clone() Log {
	out := make(Log, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Reminder is one notification to deliver.
type Reminder struct {
	Key   LogKey
	ID    uuid.UUID
	Title string
	Body  string
	// At is the event instant, not the reminder instant.
	At time.Time
}

func newReminder(key LogKey, clock string, at time.Time) Reminder {
	label := key.Event.Label()
	return Reminder{
		Key:   key,
		ID:    key.ID(),
		Title: fmt.Sprintf("%s vaktine %d dakika", label, key.Offset),
		Body:  fmt.Sprintf("%s vakti: %s", label, clock),
		At:    at,
	}
}

// Gate decides which reminders are due on a tick.
type Gate struct {
	// TickPeriod is the scheduler interval. A reminder is due only on the
	// first tick at or after its notify instant.
	TickPeriod time.Duration
}

// Evaluate sweeps today and tomorrow for every configured event and
// returns the reminders due at now, plus a copy of log with them marked
// fired. log itself is never modified, so a sweep is committed as a whole
// or not at all. Missing days and malformed times are skipped.
//
// A reminder with offset m for an event at E is due iff
// 0 <= now-(E-m) < TickPeriod and its key is not in log.
func (g Gate) Evaluate(now time.Time, today, tomorrow *model.DailyTimes, reminders map[model.EventKey]int, log Log) ([]Reminder, Log) {
	pending := make(Log)
	var due []Reminder

	for _, day := range []*model.DailyTimes{today, tomorrow} {
		if day == nil {
			continue
		}
		for _, key := range model.EventOrder {
			offset := reminders[key]
			if offset <= 0 {
				continue
			}
			at, ok := day.Instant(key, now.Location())
			if !ok {
				continue
			}
			delta := now.Sub(at.Add(-time.Duration(offset) * time.Minute))
			if delta < 0 || delta >= g.TickPeriod {
				continue
			}
			lk := LogKey{Date: day.Date, Event: key, Offset: offset}
			if log.Has(lk) || pending.Has(lk) {
				continue
			}
			pending[lk] = now
			due = append(due, newReminder(lk, day.Times[key], at))
		}
	}

	updated := log.Clone()
	for k, v := range pending {
		updated[k] = v
	}
	return due, updated
}

// Added returns the keys present in after but not in before.
func Added(before, after Log) Log {
	out := make(Log)
	for k, v := range after {
		if !before.Has(k) {
			out[k] = v
		}
	}
	return out
}
