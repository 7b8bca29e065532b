package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{in: "12:02", h: 12, m: 2},
		{in: "4:10", h: 4, m: 10},
		{in: " 23:59 ", h: 23, m: 59},
		{in: "", wantErr: true},
		{in: "12", wantErr: true},
		{in: "12:02:00", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedTime) {
					t.Fatalf("expected ErrMalformedTime, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h != tt.h || m != tt.m {
				t.Fatalf("got %d:%d, want %d:%d", h, m, tt.h, tt.m)
			}
		})
	}
}

func TestDailyTimesInstant(t *testing.T) {
	loc := time.FixedZone("TRT", 3*3600)
	d := DailyTimes{Date: "2024-06-01", Times: map[EventKey]string{Ogle: "12:02", Aksam: "x"}}

	got, ok := d.Instant(Ogle, loc)
	if !ok {
		t.Fatal("expected ogle instant")
	}
	want := time.Date(2024, 6, 1, 12, 2, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("instant = %s, want %s", got, want)
	}

	if _, ok := d.Instant(Aksam, loc); ok {
		t.Fatal("malformed time must not resolve")
	}
	if _, ok := d.Instant(Yatsi, loc); ok {
		t.Fatal("missing key must not resolve")
	}
}

func TestPeriod(t *testing.T) {
	jun := MonthOf(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	if jun.Key() != "2024-06" {
		t.Fatalf("month key = %q", jun.Key())
	}
	if !jun.Contains("2024-06-30") || jun.Contains("2024-07-01") {
		t.Fatal("month containment is wrong")
	}
	if next := jun.Next(); next.Key() != "2024-07" {
		t.Fatalf("next month = %q", next.Key())
	}
	dec := Period{Kind: PeriodMonth, Year: 2024, Month: time.December}
	if next := dec.Next(); next.Key() != "2025-01" {
		t.Fatalf("next of december = %q", next.Key())
	}

	y := YearOf(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	if y.Key() != "2024" || !y.Contains("2024-12-31") || y.Contains("2025-01-01") {
		t.Fatalf("year period wrong: %v", y)
	}
	if !y.End(time.UTC).Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("year end wrong")
	}
	if !jun.Before(jun.Next()) || jun.Next().Before(jun) {
		t.Fatal("ordering wrong")
	}
}

func TestNextDayAcrossMonth(t *testing.T) {
	d := time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC)
	if got := DateKey(NextDay(d)); got != "2024-07-01" {
		t.Fatalf("NextDay = %s", got)
	}
}

func TestSlugAndLabels(t *testing.T) {
	cases := map[string]string{
		"İstanbul":        "istanbul",
		"Şanlıurfa":       "sanliurfa",
		"Afyon Karahisar": "afyon-karahisar",
		"Diyarbakır":      "diyarbakir",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}

	for _, k := range EventOrder {
		got, ok := KeyForLabel(k.Label())
		if !ok || got != k {
			t.Errorf("KeyForLabel(%q) = %q, %v", k.Label(), got, ok)
		}
	}
	if _, ok := KeyForLabel("Teheccüd"); ok {
		t.Error("unknown label must not map")
	}
}

func TestTimeTableDates(t *testing.T) {
	tt := NewTimeTable(Location{ID: "konya"}, MonthOf(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	tt.Put(DailyTimes{Date: "2024-06-02"})
	tt.Put(DailyTimes{Date: "2024-06-01"})
	tt.Put(DailyTimes{Date: "2024-06-01", Hijri: "replaced"})

	if tt.Len() != 2 {
		t.Fatalf("len = %d, want 2", tt.Len())
	}
	dates := tt.Dates()
	if dates[0] != "2024-06-01" || dates[1] != "2024-06-02" {
		t.Fatalf("dates not sorted: %v", dates)
	}
	if d, _ := tt.Day("2024-06-01"); d.Hijri != "replaced" {
		t.Fatal("Put must replace the existing day")
	}
}
