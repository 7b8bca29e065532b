package indicator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	appLog "vakit/internal/log"
	"vakit/internal/model"
	"vakit/internal/resolve"
)

// Indicator is the rendered state of one tick. The zero value means "no data".
type Indicator struct {
	Text     string         `json:"text"`
	Long     string         `json:"long"`
	Color    string         `json:"color"`
	EventKey model.EventKey `json:"event,omitempty"`
	Label    string         `json:"label,omitempty"`
	Time     string         `json:"time,omitempty"`
	Target   *time.Time     `json:"target,omitempty"`
	Location string         `json:"location,omitempty"`
}

func (i Indicator) Empty() bool { return i.Text == "" }

// Tooltip is a one-line human description, e.g. "İstanbul · Öğle 12:02".
func (i Indicator) Tooltip() string {
	if i.Empty() {
		return ""
	}
	s := i.Label + " " + i.Time
	if i.Location != "" {
		s = i.Location + " · " + s
	}
	return s
}

// Build renders next as seen from now.
func Build(next resolve.Next, loc model.Location, now time.Time) Indicator {
	remaining := next.Remaining(now)
	text := RenderShort(remaining)
	if text == "" {
		return Indicator{}
	}
	target := next.Target
	return Indicator{
		Text:     text,
		Long:     RenderLong(remaining),
		Color:    AccentColor(remaining),
		EventKey: next.Key,
		Label:    next.Key.Label(),
		Time:     next.Time,
		Target:   &target,
		Location: loc.DisplayName(),
	}
}

// Display is a surface the indicator is shown on.
type Display interface {
	Show(ctx context.Context, ind Indicator) error
	Clear(ctx context.Context) error
}

// MemoryDisplay keeps the last shown indicator for readers such as the web
// API. It is safe for concurrent use.
type MemoryDisplay struct {
	mu      sync.RWMutex
	current Indicator
	updated time.Time
}

func NewMemoryDisplay() *MemoryDisplay { return &MemoryDisplay{} }

func (m *MemoryDisplay) Show(_ context.Context, ind Indicator) error {
	m.mu.Lock()
	m.current = ind
	m.updated = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *MemoryDisplay) Clear(ctx context.Context) error {
	return m.Show(ctx, Indicator{})
}

// Current returns the last indicator and when it was set.
func (m *MemoryDisplay) Current() (Indicator, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.updated
}

// fileStatus is the JSON written by FileDisplay. The text/tooltip/class
// shape is what common status bars (waybar, polybar scripts) read.
type fileStatus struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
	Color   string `json:"color"`
	Long    string `json:"long"`
	Target  string `json:"target,omitempty"`
}

// FileDisplay writes the indicator as a JSON status file. Writes are atomic
// (temp file + rename) so pollers never read a partial file.
type FileDisplay struct {
	path string
}

func NewFileDisplay(path string) *FileDisplay {
	return &FileDisplay{path: path}
}

func (f *FileDisplay) Show(_ context.Context, ind Indicator) error {
	st := fileStatus{
		Text:    ind.Text,
		Tooltip: ind.Tooltip(),
		Class:   string(ind.EventKey),
		Color:   ind.Color,
		Long:    ind.Long,
	}
	if ind.Target != nil {
		st.Target = ind.Target.Format(time.RFC3339)
	}
	if ind.Empty() {
		st = fileStatus{Class: "none"}
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return writeAtomic(f.path, data)
}

func (f *FileDisplay) Clear(ctx context.Context) error {
	return f.Show(ctx, Indicator{})
}

func writeAtomic(path string, data []byte) error {
	if path == "" {
		return errors.New("display path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".vakit-status-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// MultiDisplay fans out to several surfaces. A failing surface is logged
// and does not stop the others; the first error is returned.
type MultiDisplay []Display

func (m MultiDisplay) Show(ctx context.Context, ind Indicator) error {
	return m.each(func(d Display) error { return d.Show(ctx, ind) })
}

func (m MultiDisplay) Clear(ctx context.Context) error {
	return m.each(func(d Display) error { return d.Clear(ctx) })
}

func (m MultiDisplay) each(fn func(Display) error) error {
	var first error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := fn(d); err != nil {
			appLog.Error("indicator display failed", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
