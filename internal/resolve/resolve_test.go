package resolve

import (
	"testing"
	"time"

	"vakit/internal/model"
)

var trt = time.FixedZone("TRT", 3*3600)

func day(date string, times map[model.EventKey]string) *model.DailyTimes {
	return &model.DailyTimes{Date: date, Times: times}
}

func june1() *model.DailyTimes {
	return day("2024-06-01", map[model.EventKey]string{
		model.Imsak:  "03:25",
		model.Gunes:  "05:20",
		model.Ogle:   "12:02",
		model.Ikindi: "15:40",
		model.Aksam:  "20:30",
		model.Yatsi:  "22:15",
	})
}

func june2() *model.DailyTimes {
	return day("2024-06-02", map[model.EventKey]string{
		model.Imsak: "04:10",
		model.Gunes: "05:19",
	})
}

func TestNextEventToday(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, trt)

	got, ok := NextEvent(june1(), june2(), now)
	if !ok {
		t.Fatal("expected a next event")
	}
	if got.Key != model.Ogle {
		t.Fatalf("key = %s, want ogle", got.Key)
	}
	want := time.Date(2024, 6, 1, 12, 2, 0, 0, trt)
	if !got.Target.Equal(want) {
		t.Fatalf("target = %s, want %s", got.Target, want)
	}
	if got.Remaining(now) != 2*time.Minute {
		t.Fatalf("remaining = %s", got.Remaining(now))
	}
}

func TestNextEventRollsOverToTomorrow(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 59, 0, 0, trt)

	got, ok := NextEvent(june1(), june2(), now)
	if !ok {
		t.Fatal("expected tomorrow's first event")
	}
	if got.Key != model.Imsak || got.Date != "2024-06-02" {
		t.Fatalf("got %s on %s, want imsak on 2024-06-02", got.Key, got.Date)
	}
	want := time.Date(2024, 6, 2, 4, 10, 0, 0, trt)
	if !got.Target.Equal(want) {
		t.Fatalf("target = %s, want %s", got.Target, want)
	}
}

func TestNextEventEqualityCountsAsPassed(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 2, 0, 0, trt)

	got, ok := NextEvent(june1(), june2(), now)
	if !ok || got.Key != model.Ikindi {
		t.Fatalf("got %s, %v; want ikindi", got.Key, ok)
	}
}

func TestNextEventSkipsMalformed(t *testing.T) {
	today := june1()
	today.Times[model.Ogle] = "12-02"
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, trt)

	got, ok := NextEvent(today, june2(), now)
	if !ok || got.Key != model.Ikindi {
		t.Fatalf("got %s, %v; want ikindi", got.Key, ok)
	}
}

func TestNextEventTomorrowSkipsMalformedFirst(t *testing.T) {
	tomorrow := june2()
	tomorrow.Times[model.Imsak] = "??"
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, trt)

	got, ok := NextEvent(june1(), tomorrow, now)
	if !ok || got.Key != model.Gunes || got.Date != "2024-06-02" {
		t.Fatalf("got %s on %s, %v; want gunes on 2024-06-02", got.Key, got.Date, ok)
	}
}

func TestNextEventNone(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, trt)

	if _, ok := NextEvent(nil, nil, now); ok {
		t.Fatal("no data must resolve to none")
	}
	if _, ok := NextEvent(june1(), nil, now); ok {
		t.Fatal("passed day without tomorrow must resolve to none")
	}
	broken := day("2024-06-02", map[model.EventKey]string{model.Imsak: "bad"})
	if _, ok := NextEvent(june1(), broken, now); ok {
		t.Fatal("all-malformed tomorrow must resolve to none")
	}
}

func TestFromTableAcrossTables(t *testing.T) {
	june := model.NewTimeTable(model.Location{ID: "ankara"}, model.Period{Kind: model.PeriodMonth, Year: 2024, Month: time.June})
	june.Put(*day("2024-06-30", map[model.EventKey]string{model.Yatsi: "22:20"}))
	july := model.NewTimeTable(model.Location{ID: "ankara"}, model.Period{Kind: model.PeriodMonth, Year: 2024, Month: time.July})
	july.Put(*day("2024-07-01", map[model.EventKey]string{model.Imsak: "03:30"}))

	now := time.Date(2024, 6, 30, 23, 0, 0, 0, trt)
	got, ok := FromTable(now, june, july)
	if !ok || got.Date != "2024-07-01" || got.Key != model.Imsak {
		t.Fatalf("got %+v, %v", got, ok)
	}
}
