package main

import (
	"fmt"
	"os"
	"time"

	"vakit/internal/cache"
	"vakit/internal/config"
	"vakit/internal/indicator"
	appLog "vakit/internal/log"
	"vakit/internal/notify"
	"vakit/internal/source"
	"vakit/internal/tick"
)

// services holds everything a command needs. Commands that do not touch
// the reminder log never open it.
type services struct {
	conf    *config.Config
	zone    *time.Location
	src     source.Source
	cache   *cache.Cache
	memory  *indicator.MemoryDisplay
	runner  *tick.Runner
	reminds *notify.SQLiteLog
}

// loadConfig reads the config file (a missing default file is fine) and
// applies the global flags.
func loadConfig() (*config.Config, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		conf.Log.Level = logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(conf.Log.Level))
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// newServices wires the tick pipeline. withLog opens the reminder log.
func newServices(withLog bool) (*services, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	zone, err := conf.Location()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(conf.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	src := newSource(conf, zone)
	now := func() time.Time { return time.Now().In(zone) }
	c := cache.New(src, cache.NewDiskStore(conf.CacheDir()), cache.Options{Now: now})

	s := &services{
		conf:   conf,
		zone:   zone,
		src:    src,
		cache:  c,
		memory: indicator.NewMemoryDisplay(),
	}

	displays := indicator.MultiDisplay{s.memory}
	if conf.Display.File != "" {
		displays = append(displays, indicator.NewFileDisplay(conf.Display.File))
	}

	s.runner = &tick.Runner{
		Settings: func() (*config.Settings, error) {
			return config.LoadSettings(conf.SettingsPath)
		},
		Cache:      c,
		Gate:       notify.Gate{TickPeriod: conf.TickInterval()},
		Dispatcher: newDispatcher(conf),
		Display:    displays,
		Zone:       zone,
		Now:        now,
	}

	if withLog {
		l, err := notify.OpenSQLiteLog(conf.ReminderLogPath())
		if err != nil {
			return nil, err
		}
		s.reminds = l
		s.runner.Log = l
	}

	appLog.Debug("services ready",
		"source", src.Name(),
		"timezone", zone.String(),
		"tick", conf.TickInterval().String(),
		"data_dir", conf.DataDir,
	)
	return s, nil
}

func (s *services) Close() {
	if s.reminds != nil {
		if err := s.reminds.Close(); err != nil {
			appLog.Error("close reminder log", err)
		}
	}
}

func newSource(conf *config.Config, zone *time.Location) source.Source {
	switch conf.Source.Kind {
	case config.SourceHTTP:
		return source.NewHTTP(source.HTTPOptions{
			URLTemplate: conf.Source.URL,
			CacheDir:    conf.HTTPCacheDir(),
			Timeout:     conf.SourceTimeout(),
		})
	case config.SourceICS:
		return source.NewICS(source.ICSOptions{
			URLTemplate: conf.Source.URL,
			CacheDir:    conf.HTTPCacheDir(),
			Timeout:     conf.SourceTimeout(),
			Zone:        zone,
		})
	default:
		return source.NewDataset(os.DirFS(conf.Source.DatasetDir))
	}
}

func newDispatcher(conf *config.Config) notify.Dispatcher {
	d := notify.Multi{notify.LogDispatcher{}}
	if tg := conf.Notify.Telegram; tg.Enabled() {
		d = append(d, notify.NewTelegram(tg.BotToken, tg.ChatID, tg.BaseURL))
	}
	return d
}
