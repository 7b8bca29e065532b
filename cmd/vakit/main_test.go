package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"vakit/internal/config"
	"vakit/internal/model"
	"vakit/internal/notify"
	"vakit/internal/resolve"
	"vakit/internal/source"
	"vakit/internal/tick"
)

func init() {
	color.NoColor = true
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"run", "once", "today", "refresh", "locations", "set-location", "remind"} {
		if app.Command(name) == nil {
			t.Errorf("missing command %q", name)
		}
	}
	if app.Command("ls") == nil {
		t.Error("locations alias missing")
	}
}

func TestNewSource(t *testing.T) {
	zone := time.UTC
	tests := map[string]string{
		config.SourceDataset: "dataset",
		config.SourceHTTP:    "http",
		config.SourceICS:     "ics",
	}
	for kind, want := range tests {
		conf := &config.Config{DataDir: t.TempDir()}
		conf.Source.Kind = kind
		conf.Source.URL = "http://127.0.0.1/{location}"
		if got := newSource(conf, zone).Name(); got != want {
			t.Errorf("kind %s: got %s", kind, got)
		}
	}
}

func TestNewDispatcher(t *testing.T) {
	conf := &config.Config{}
	if d, ok := newDispatcher(conf).(notify.Multi); !ok || len(d) != 1 {
		t.Fatalf("without telegram: %#v", d)
	}
	conf.Notify.Telegram = config.TelegramConfig{BotToken: "token", ChatID: "42"}
	if d, ok := newDispatcher(conf).(notify.Multi); !ok || len(d) != 2 {
		t.Fatalf("with telegram: %#v", d)
	}
}

func TestSetLocationAndRemind(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := "data_dir: " + dir + "\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	app := newApp()
	if err := app.Run([]string{"vakit", "--config", cfgPath, "set-location", "Şanlıurfa"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Run([]string{"vakit", "--config", cfgPath, "remind", "--enable", "ikindi", "15"}); err != nil {
		t.Fatal(err)
	}

	s, err := config.LoadSettings(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.HasLocation() || s.Location.ID != "sanliurfa" || s.Location.Name != "Şanlıurfa" {
		t.Fatalf("location = %+v", s.Location)
	}
	if !s.NotificationsEnabled || s.Reminders[model.Ikindi] != 15 {
		t.Fatalf("reminders = %+v enabled=%v", s.Reminders, s.NotificationsEnabled)
	}
	if _, err := os.Stat(filepath.Join(dir, "reminders.db")); err != nil {
		t.Fatalf("reminder log not created: %v", err)
	}
}

func TestWriteDay(t *testing.T) {
	zone := time.FixedZone("TRT", 3*3600)
	loc := source.LocationFor("istanbul")
	table := model.NewTimeTable(loc, model.MonthOf(time.Date(2024, 6, 1, 0, 0, 0, 0, zone)))
	table.Put(model.DailyTimes{Date: "2024-06-01", Hijri: "24 Zilkade 1445", Times: map[model.EventKey]string{
		model.Imsak: "03:25", model.Ogle: "13:05", model.Yatsi: "22:15",
	}})
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, zone)
	n, ok := resolve.FromTable(now, table)

	var buf bytes.Buffer
	writeDay(&buf, loc, table, now, n, ok)
	out := buf.String()
	for _, want := range []string{"İstanbul", "2024-06-01", "24 Zilkade 1445", "İmsak", "13:05", "01:05:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Güneş") {
		t.Error("missing events must not be listed")
	}

	buf.Reset()
	writeDay(&buf, loc, model.NewTimeTable(loc, table.Period), now, resolve.Next{}, false)
	if !strings.Contains(buf.String(), "no times for today") {
		t.Fatalf("empty day output: %s", buf.String())
	}
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	writeResult(&buf, tick.Result{Location: model.Location{ID: "ankara", Name: "Ankara"}, Stale: true})
	out := buf.String()
	if !strings.Contains(out, "Ankara") || !strings.Contains(out, "none") || !strings.Contains(out, "stored table") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestWriteReminders(t *testing.T) {
	s := config.DefaultSettings()
	s.NotificationsEnabled = true
	s.Reminders[model.Aksam] = 20

	var buf bytes.Buffer
	writeReminders(&buf, s, 4)
	out := buf.String()
	if !strings.Contains(out, "notifications: on") || !strings.Contains(out, "fired so far: 4") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "Akşam") || !strings.Contains(out, "20") {
		t.Fatalf("reminder row missing:\n%s", out)
	}
}

func TestWriteLocations(t *testing.T) {
	var buf bytes.Buffer
	writeLocations(&buf, nil)
	if !strings.Contains(buf.String(), "no locations") {
		t.Fatal(buf.String())
	}
	buf.Reset()
	writeLocations(&buf, []model.Location{source.LocationFor("izmir")})
	if !strings.Contains(buf.String(), "İzmir") {
		t.Fatal(buf.String())
	}
}
