package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	appLog "vakit/internal/log"
)

var version = "0.1.0-dev"

var (
	configPath string
	logLevel   string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "path to the config file",
			Value:       "~/.vakit/config.yaml",
			EnvVar:      "VAKIT_CONFIG",
			Destination: &configPath,
		},
		cli.StringFlag{
			Name:        "log-level",
			Usage:       "debug, info, warn or error (overrides the config file)",
			Destination: &logLevel,
		},
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		appLog.Error("vakit failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vakit"
	app.HelpName = "vakit"
	app.Usage = "prayer time countdown and reminders"
	app.UsageText = "vakit [global options] <command> [arguments...]"
	app.Version = version
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the scheduler and the web API until interrupted",
			Action: run,
		},
		{
			Name:   "once",
			Usage:  "run a single tick and print what it did",
			Action: once,
		},
		{
			Name:    "today",
			Aliases: []string{"t"},
			Usage:   "print today's times for the configured location",
			Action:  today,
		},
		{
			Name:   "refresh",
			Usage:  "refetch the current period, ignoring the cache",
			Action: refresh,
		},
		{
			Name:    "locations",
			Aliases: []string{"ls"},
			Usage:   "list the locations the source knows",
			Action:  locations,
		},
		{
			Name:      "set-location",
			Usage:     "pick the location used by every tick",
			ArgsUsage: "<name>",
			Action:    setLocation,
		},
		{
			Name:      "remind",
			Usage:     "show or change reminders",
			ArgsUsage: "[<event> <minutes>]",
			Action:    remind,
			Flags:     remindFlags,
		},
	}
	app.Action = func(ctx *cli.Context) error {
		return cli.ShowAppHelp(ctx)
	}
	app.OnUsageError = func(ctx *cli.Context, err error, _ bool) error {
		_, _ = fmt.Fprintf(ctx.App.ErrWriter, "vakit: %v\n", err)
		return err
	}
	return app
}
