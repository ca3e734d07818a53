package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/QuangTung97/memsim"
)

const (
	configFlag   = "config"
	memoryFlag   = "memory"
	pageSizeFlag = "page-size"
	logLevelFlag = "log-level"
	eventsFlag   = "events"

	usage = `memsim simulates paging and first-fit segmentation over a fixed size memory`
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "memsim",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configFlag,
				Usage: "Optional: TOML file with memory_size, page_size and event_capacity",
			},
			&cli.IntFlag{
				Name:  memoryFlag,
				Usage: "Optional: total memory size, overrides the config file",
			},
			&cli.IntFlag{
				Name:  pageSizeFlag,
				Usage: "Optional: page size, must divide the memory size",
			},
			&cli.StringFlag{
				Name:  logLevelFlag,
				Value: logrus.WarnLevel.String(),
				Usage: "log level of engine events: debug, info, warn, error",
			},
			&cli.IntFlag{
				Name:  eventsFlag,
				Value: 10,
				Usage: "number of recent events in each report",
			},
		},
		Commands: []*cli.Command{
			runCommand,
			replayCommand,
		},
	}
}

func loadConfig(c *cli.Context) (memsim.Config, error) {
	conf := memsim.DefaultConfig()
	if path := c.String(configFlag); path != "" {
		loaded, err := memsim.LoadConfig(path)
		if err != nil {
			return memsim.Config{}, err
		}
		conf = loaded
	}
	if c.IsSet(memoryFlag) {
		conf.MemorySize = c.Int(memoryFlag)
	}
	if c.IsSet(pageSizeFlag) {
		conf.PageSize = c.Int(pageSizeFlag)
	}
	return conf, conf.Validate()
}

func newLogger(c *cli.Context) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(c.String(logLevelFlag))
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}

	logger := logrus.New()
	logger.SetOutput(c.App.ErrWriter)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return logrus.NewEntry(logger), nil
}

func newEngine(c *cli.Context) (*memsim.Engine, error) {
	conf, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(c)
	if err != nil {
		return nil, err
	}
	return memsim.New(conf, memsim.WithLogger(logger))
}
