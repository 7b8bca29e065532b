package indicator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vakit/internal/model"
	"vakit/internal/resolve"
)

func TestRenderShort(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"three hours five", 3*time.Hour + 5*time.Minute, "3:05"},
		{"eleven hours", 11 * time.Hour, "11h"},
		{"ten hours fifty nine", 10*time.Hour + 59*time.Minute, "10h"},
		{"nine hours fifty nine", 9*time.Hour + 59*time.Minute, "9:59"},
		{"minutes only", 42 * time.Minute, "0:42"},
		{"seconds only", 30 * time.Second, "0:00"},
		{"zero", 0, ""},
		{"negative", -time.Minute, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderShort(tt.in)
			if got != tt.want {
				t.Fatalf("RenderShort(%s) = %q, want %q", tt.in, got, tt.want)
			}
			if len([]rune(got)) > MaxShortWidth {
				t.Fatalf("%q exceeds width %d", got, MaxShortWidth)
			}
		})
	}
}

func TestRenderShortWidthBound(t *testing.T) {
	for d := time.Minute; d < 48*time.Hour; d += 7 * time.Minute {
		if got := RenderShort(d); len([]rune(got)) > MaxShortWidth {
			t.Fatalf("RenderShort(%s) = %q exceeds width", d, got)
		}
	}
}

func TestRenderLong(t *testing.T) {
	if got := RenderLong(3*time.Hour + 5*time.Minute + 9*time.Second); got != "03:05:09" {
		t.Fatalf("got %q", got)
	}
	if got := RenderLong(0); got != "00:00:00" {
		t.Fatalf("zero: got %q", got)
	}
	if got := RenderLong(-5 * time.Second); got != "00:00:00" {
		t.Fatalf("negative: got %q", got)
	}
}

func TestAccentColor(t *testing.T) {
	if got := AccentColor(2 * time.Hour); got != ColorCalm {
		t.Fatalf("far away: %s", got)
	}
	if got := AccentColor(0); got != ColorUrgent {
		t.Fatalf("at zero: %s", got)
	}
	mid := AccentColor(30 * time.Minute)
	if mid == ColorCalm || mid == ColorUrgent || len(mid) != 7 {
		t.Fatalf("mid blend should be an intermediate hex colour, got %s", mid)
	}
}

func sampleNext(now time.Time) resolve.Next {
	return resolve.Next{Key: model.Ogle, Date: "2024-06-01", Time: "12:02", Target: now.Add(2*time.Hour + 3*time.Minute)}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	ind := Build(sampleNext(now), model.Location{ID: "istanbul", Name: "İstanbul"}, now)

	if ind.Text != "2:03" || ind.Long != "02:03:00" {
		t.Fatalf("unexpected text: %+v", ind)
	}
	if ind.Tooltip() != "İstanbul · Öğle 12:02" {
		t.Fatalf("tooltip = %q", ind.Tooltip())
	}

	if ind.Target == nil || !ind.Target.Equal(now.Add(2*time.Hour+3*time.Minute)) {
		t.Fatalf("target = %v", ind.Target)
	}

	past := Build(resolve.Next{Key: model.Ogle, Target: now}, model.Location{}, now)
	if !past.Empty() {
		t.Fatalf("an event at now must render empty, got %+v", past)
	}
}

func TestIndicatorJSON(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tests := map[string]struct {
		ind        Indicator
		wantTarget bool
	}{
		"empty":   {ind: Indicator{}},
		"no data": {ind: Indicator{Text: "1:05", Label: "Öğle", Time: "13:05"}},
		"built":   {ind: Build(sampleNext(now), model.Location{ID: "istanbul"}, now), wantTarget: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(tc.ind)
			if err != nil {
				t.Fatal(err)
			}
			var fields map[string]any
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatal(err)
			}
			if _, ok := fields["target"]; ok != tc.wantTarget {
				t.Fatalf("target present = %v, want %v: %s", ok, tc.wantTarget, data)
			}
		})
	}
}

func TestFileDisplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status", "vakit.json")
	d := NewFileDisplay(path)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := d.Show(context.Background(), Build(sampleNext(now), model.Location{Name: "Konya"}, now)); err != nil {
		t.Fatalf("show: %v", err)
	}
	var st fileStatus
	readJSON(t, path, &st)
	if st.Text != "2:03" || st.Class != "ogle" || st.Tooltip != "Konya · Öğle 12:02" {
		t.Fatalf("unexpected status: %+v", st)
	}

	if err := d.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	readJSON(t, path, &st)
	if st.Text != "" || st.Class != "none" {
		t.Fatalf("cleared status: %+v", st)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

type failingDisplay struct{}

func (failingDisplay) Show(context.Context, Indicator) error { return errors.New("surface gone") }
func (failingDisplay) Clear(context.Context) error           { return errors.New("surface gone") }

func TestMultiDisplayContinuesPastFailures(t *testing.T) {
	mem := NewMemoryDisplay()
	multi := MultiDisplay{failingDisplay{}, mem}

	err := multi.Show(context.Background(), Indicator{Text: "1:00"})
	if err == nil {
		t.Fatal("expected first error to be returned")
	}
	got, _ := mem.Current()
	if got.Text != "1:00" {
		t.Fatalf("memory display not updated: %+v", got)
	}
}
