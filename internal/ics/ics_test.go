package ics

import (
	"strings"
	"testing"
	"time"

	"vakit/internal/model"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ogle-daily\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240601T090200Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=40\r\n" +
	"EXDATE:20240603T090200Z\r\n" +
	"SUMMARY:Öğle Vakti\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ogle-daily\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"RECURRENCE-ID:20240605T090200Z\r\n" +
	"DTSTART:20240605T091000Z\r\n" +
	"SUMMARY:Öğle\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:aksam-once\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240601T173000Z\r\n" +
	"SUMMARY:aksam\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:other\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240601T100000Z\r\n" +
	"SUMMARY:Dentist\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

var trt = time.FixedZone("TRT", 3*3600)

func juneTable(t *testing.T) model.TimeTable {
	t.Helper()
	events, err := Parse([]byte(feed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 prayer events, got %d", len(events))
	}
	return ToTimeTable(events, ExpandConfig{
		Location: model.Location{ID: "istanbul"},
		Period:   model.Period{Kind: model.PeriodMonth, Year: 2024, Month: time.June},
		Zone:     trt,
	})
}

func TestToTimeTable(t *testing.T) {
	table := juneTable(t)

	if table.Len() != 29 {
		t.Fatalf("expected 29 June days (30 minus one EXDATE), got %d", table.Len())
	}
	d1, ok := table.Day("2024-06-01")
	if !ok {
		t.Fatal("missing 2024-06-01")
	}
	if d1.Times[model.Ogle] != "12:02" || d1.Times[model.Aksam] != "20:30" {
		t.Fatalf("unexpected day 1 times: %v", d1.Times)
	}
	if _, ok := table.Day("2024-06-03"); ok {
		t.Fatal("EXDATE day must be absent")
	}
	if d5, _ := table.Day("2024-06-05"); d5.Times[model.Ogle] != "12:10" {
		t.Fatalf("override not applied: %v", d5.Times)
	}
	if _, ok := table.Day("2024-07-01"); ok {
		t.Fatal("days outside the period must be dropped")
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestExportRoundTripsThroughParse(t *testing.T) {
	table := model.NewTimeTable(model.Location{ID: "konya", Name: "Konya"}, model.Period{Kind: model.PeriodMonth, Year: 2024, Month: time.June})
	table.Put(model.DailyTimes{Date: "2024-06-01", Hijri: "24 Zilkade 1445", Times: map[model.EventKey]string{
		model.Imsak: "03:40",
		model.Ogle:  "12:15",
		model.Yatsi: "bad",
	}})

	out := Export(table, trt, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(out, "konya-2024-06-01-ogle@vakit") {
		t.Fatalf("missing stable UID in export:\n%s", out)
	}
	if strings.Contains(out, "yatsi@vakit") {
		t.Fatal("malformed times must not be exported")
	}

	events, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	back := ToTimeTable(events, ExpandConfig{Location: table.Location, Period: table.Period, Zone: trt})
	d, ok := back.Day("2024-06-01")
	if !ok || d.Times[model.Imsak] != "03:40" || d.Times[model.Ogle] != "12:15" {
		t.Fatalf("round trip lost data: %+v", d)
	}
}
