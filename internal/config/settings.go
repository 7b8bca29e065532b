package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vakit/internal/model"
)

// DefaultAutoRefreshMinutes is the install default for the cache MaxAge.
const DefaultAutoRefreshMinutes = 30

// Settings is the user-owned record read at the start of every tick.
type Settings struct {
	// Location is nil until the user picks one.
	Location *model.Location `yaml:"location" json:"location"`
	// Reminders maps an event to minutes before it; 0 or absent means none.
	Reminders map[model.EventKey]int `yaml:"reminders" json:"reminders"`
	// AutoRefreshMinutes bounds the age of a cached table.
	AutoRefreshMinutes   int  `yaml:"auto_refresh_minutes" json:"auto_refresh_minutes"`
	NotificationsEnabled bool `yaml:"notifications_enabled" json:"notifications_enabled"`
}

// DefaultSettings is the first-run record: no location, no reminders.
func DefaultSettings() *Settings {
	return &Settings{
		Location:             nil,
		Reminders:            map[model.EventKey]int{},
		AutoRefreshMinutes:   DefaultAutoRefreshMinutes,
		NotificationsEnabled: false,
	}
}

// Normalize fills zero values and drops reminders that can never fire
// (unknown events, non-positive offsets).
func (s *Settings) Normalize() {
	if s.Reminders == nil {
		s.Reminders = map[model.EventKey]int{}
	}
	for k, v := range s.Reminders {
		if !k.Valid() || v <= 0 {
			delete(s.Reminders, k)
		}
	}
	if s.AutoRefreshMinutes < 0 {
		s.AutoRefreshMinutes = DefaultAutoRefreshMinutes
	}
	if s.Location != nil && s.Location.IsZero() {
		s.Location = nil
	}
}

// HasLocation reports whether a location is configured.
func (s *Settings) HasLocation() bool { return s.Location != nil && !s.Location.IsZero() }

// SetReminder sets or (with minutes <= 0) removes the reminder of key.
func (s *Settings) SetReminder(key model.EventKey, minutes int) error {
	if !key.Valid() {
		return fmt.Errorf("unknown event %q", key)
	}
	if s.Reminders == nil {
		s.Reminders = map[model.EventKey]int{}
	}
	if minutes <= 0 {
		delete(s.Reminders, key)
		return nil
	}
	s.Reminders[key] = minutes
	return nil
}

// LoadSettings reads the settings record at path.
//
// If the file does not exist the defaults are written with 0600 perms
// and returned. An existing file is read and normalized.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s := DefaultSettings()
			if err := SaveSettings(path, s); err != nil {
				// Even if save fails, return the defaults so the caller can go on.
				return s, err
			}
			return s, nil
		}
		return nil, err
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	s.Normalize()
	return s, nil
}

// SaveSettings writes s to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func SaveSettings(path string, s *Settings) error {
	if path == "" {
		return ErrEmptyPath
	}
	if s == nil {
		return errors.New("settings is nil")
	}

	s.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".vakit-settings-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// UpdateSettings loads the record at path, applies fn and saves it back.
func UpdateSettings(path string, fn func(*Settings) error) (*Settings, error) {
	s, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := SaveSettings(path, s); err != nil {
		return nil, err
	}
	return s, nil
}
