package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"vakit/internal/model"
)

const productID = "-//vakit//prayer times//TR"

// Export renders every resolvable event of table as a VEVENT. UIDs are
// stable per (location, date, key) so subscribers update in place.
func Export(table model.TimeTable, zone *time.Location, stamp time.Time) string {
	if zone == nil {
		zone = time.Local
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, date := range table.Dates() {
		day, _ := table.Day(date)
		for _, key := range model.EventOrder {
			at, ok := day.Instant(key, zone)
			if !ok {
				continue
			}
			ev := cal.AddEvent(fmt.Sprintf("%s-%s-%s@vakit", table.Location.ID, date, key))
			ev.SetDtStampTime(stamp)
			ev.SetStartAt(at)
			ev.SetEndAt(at)
			ev.SetSummary(key.Label())
			ev.SetLocation(table.Location.DisplayName())
			if day.Hijri != "" {
				ev.SetDescription(day.Hijri)
			}
		}
	}
	return cal.Serialize()
}
