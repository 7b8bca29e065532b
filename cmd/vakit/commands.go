package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"vakit/internal/config"
	appLog "vakit/internal/log"
	"vakit/internal/model"
	"vakit/internal/resolve"
	"vakit/internal/source"
	"vakit/internal/tick"
	"vakit/internal/web"
)

var (
	remindEnable  bool
	remindDisable bool

	remindFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "enable",
			Usage:       "turn notifications on",
			Destination: &remindEnable,
		},
		cli.BoolFlag{
			Name:        "disable",
			Usage:       "turn notifications off",
			Destination: &remindDisable,
		},
	}
)

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func run(_ *cli.Context) error {
	appLog.Info("vakit starting", "version", version)

	svc, err := newServices(true)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	sched := tick.NewScheduler(svc.conf.TickInterval(), svc.runner.Run)
	g, gctx := errgroup.WithContext(ctx)

	if err := sched.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	changes, err := config.WatchSettings(gctx, svc.conf.SettingsPath)
	if err != nil {
		appLog.Warn("settings watch disabled", "path", svc.conf.SettingsPath, "reason", err.Error())
	} else {
		g.Go(func() error {
			for range changes {
				appLog.Info("settings changed", "path", svc.conf.SettingsPath)
				sched.Trigger("settings")
			}
			return nil
		})
	}

	if svc.conf.Web.Listen != "" {
		srv := web.NewServer(web.Options{
			Listen:    svc.conf.Web.Listen,
			BasicAuth: svc.conf.Web.BasicAuth,
			Zone:      svc.zone,
		}, svc.runner, svc.memory, sched)
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	}

	err = g.Wait()
	appLog.Info("vakit exiting")
	return err
}

func once(_ *cli.Context) error {
	svc, err := newServices(true)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.runner.Tick(context.Background())
	if errors.Is(err, tick.ErrNoLocation) {
		fmt.Println("vakit: no location configured; run `vakit set-location <name>`")
		return nil
	}
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func today(_ *cli.Context) error {
	svc, err := newServices(false)
	if err != nil {
		return err
	}
	defer svc.Close()

	loc, table, err := svc.runner.Table(context.Background())
	if errors.Is(err, tick.ErrNoLocation) {
		fmt.Println("vakit: no location configured; run `vakit set-location <name>`")
		return nil
	}
	if err != nil {
		return err
	}
	now := time.Now().In(svc.zone)
	next, ok := resolve.FromTable(now, table)
	printDay(loc, table, now, next, ok)
	return nil
}

func refresh(_ *cli.Context) error {
	svc, err := newServices(false)
	if err != nil {
		return err
	}
	defer svc.Close()

	table, err := svc.runner.Refresh(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("vakit: refreshed %s %s from %s (%d days)\n",
		table.Location.DisplayName(), table.Period.Key(), svc.src.Name(), table.Len())
	return nil
}

func locations(_ *cli.Context) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	zone, err := conf.Location()
	if err != nil {
		return err
	}

	var locs []model.Location
	if l, ok := newSource(conf, zone).(source.Lister); ok {
		locs, err = l.Locations()
		if err != nil {
			return fmt.Errorf("list locations: %w", err)
		}
	} else {
		for _, p := range source.Provinces {
			locs = append(locs, source.LocationFor(p))
		}
	}
	printLocations(locs)
	return nil
}

func setLocation(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	loc := source.LocationFor(name)
	if _, err := config.UpdateSettings(conf.SettingsPath, func(s *config.Settings) error {
		s.Location = &loc
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("vakit: location set to %s (%s)\n", color.New(color.Bold).Sprint(loc.DisplayName()), loc.ID)
	return nil
}

func remind(ctx *cli.Context) error {
	if remindEnable && remindDisable {
		return errors.New("--enable and --disable are mutually exclusive")
	}
	args := ctx.Args()
	if len(args) != 0 && len(args) != 2 {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	var (
		key     model.EventKey
		minutes int
	)
	if len(args) == 2 {
		k, ok := model.KeyForLabel(args[0])
		if !ok {
			return fmt.Errorf("unknown event %q", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("minutes must be a number: %w", err)
		}
		key, minutes = k, n
	}

	svc, err := newServices(true)
	if err != nil {
		return err
	}
	defer svc.Close()

	s, err := config.UpdateSettings(svc.conf.SettingsPath, func(s *config.Settings) error {
		if key != "" {
			if err := s.SetReminder(key, minutes); err != nil {
				return err
			}
		}
		switch {
		case remindEnable:
			s.NotificationsEnabled = true
		case remindDisable:
			s.NotificationsEnabled = false
		}
		return nil
	})
	if err != nil {
		return err
	}

	fired, err := svc.reminds.Count(context.Background())
	if err != nil {
		return err
	}
	printReminders(s, fired)
	return nil
}
