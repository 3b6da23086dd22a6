// Package main runs planner scenarios in closed loop from the command line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ugvlab/arcnav/logging"
	"github.com/ugvlab/arcnav/planner"
	"github.com/ugvlab/arcnav/sim"
)

const (
	// Flags.
	flagScenario      = "scenario"
	flagPlannerConfig = "planner-config"
	flagPlot          = "plot"
	flagEvery         = "every"
	flagMaxTicks      = "max-ticks"
	flagDebug         = "debug"
	flagLogLevel      = "log-level"
	flagLogFile       = "log-file"
	flagQuiet         = "quiet"
	flagRealtime      = "realtime"
	flagHistogram     = "histogram"
)

func main() {
	var logger logging.Logger

	app := &cli.App{
		Name:  "arcnav-sim",
		Usage: "drive the arcnav planner around simulated courses",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log at `LEVEL` (debug, info, warn or error)",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("arcnav-sim")
			} else {
				logger = logging.NewLogger("arcnav-sim")
			}
			if name := c.String(flagLogLevel); name != "" {
				level, err := logging.LevelFromString(name)
				if err != nil {
					return err
				}
				logger.SetLevel(level)
			}
			if path := c.String(flagLogFile); path != "" {
				logger.AddAppender(logging.NewWriterAppender(&lumberjack.Logger{
					Filename:   path,
					MaxSize:    64,
					MaxBackups: 3,
				}))
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		After: func(c *cli.Context) error {
			if logger == nil {
				return nil
			}
			//nolint:errcheck
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run a scenario until the course is done or the vehicle gets stuck",
				UsageText: "arcnav-sim run --scenario FILE [--planner-config FILE] [--plot FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagScenario,
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "load the scenario from `FILE`",
					},
					&cli.StringFlag{
						Name:  flagPlannerConfig,
						Usage: "override the scenario's planner tuning with `FILE`",
					},
					&cli.StringFlag{
						Name:  flagPlot,
						Usage: "write a PNG of the driven track to `FILE`",
					},
					&cli.IntFlag{
						Name:  flagEvery,
						Value: 10,
						Usage: "print every `N`th cycle",
					},
					&cli.IntFlag{
						Name:  flagMaxTicks,
						Usage: "override the scenario's cycle limit",
					},
					&cli.BoolFlag{
						Name:  flagQuiet,
						Usage: "print only the summary",
					},
					&cli.BoolFlag{
						Name:  flagRealtime,
						Usage: "pace cycles at the scenario period",
					},
					&cli.IntFlag{
						Name:  flagHistogram,
						Usage: "print a histogram of commanded speeds with `N` bins",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:      "batch",
				Usage:     "run several scenarios concurrently and tabulate how each ended",
				ArgsUsage: "FILE...",
				Action: func(c *cli.Context) error {
					return batchAction(c, logger)
				},
			},
			{
				Name:      "check",
				Usage:     "validate scenario and planner config files",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "planner",
						Usage: "treat the files as planner configs",
					},
				},
				Action: checkAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAction(c *cli.Context, logger logging.Logger) error {
	sc, err := sim.LoadScenario(c.String(flagScenario))
	if err != nil {
		return err
	}
	if path := c.String(flagPlannerConfig); path != "" {
		cfg, err := planner.LoadConfig(path)
		if err != nil {
			return err
		}
		sc.Planner = cfg
	}
	if n := c.Int(flagMaxTicks); n > 0 {
		sc.MaxTicks = n
	}

	var opts []sim.Option
	if c.Bool(flagRealtime) {
		opts = append(opts, sim.WithRealtime())
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	res, err := sim.Run(ctx, sc, logger, opts...)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if !c.Bool(flagQuiet) {
		fmt.Fprintln(c.App.Writer, res.Table(c.Int(flagEvery)))
	}
	summary, serr := res.Summarize()
	if serr != nil {
		return serr
	}
	fmt.Fprintln(c.App.Writer, summary)
	fmt.Fprintf(c.App.Writer, "%s: %s after %d cycles\n", sc.Name, res.Reason, len(res.Ticks))
	if bins := c.Int(flagHistogram); bins > 0 {
		if err := res.SpeedHistogram(c.App.Writer, bins); err != nil {
			return errors.Wrap(err, "cannot print histogram")
		}
	}

	if file := c.String(flagPlot); file != "" {
		if err := res.Plot(file, sc); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %s\n", file)
	}
	if res.Reason == sim.ReasonStuck {
		return errors.Errorf("vehicle stuck with fault %v", res.Final().Fault)
	}
	return err
}

func batchAction(c *cli.Context, logger logging.Logger) error {
	if c.NArg() == 0 {
		return errors.New("no scenarios given")
	}
	scenarios := make([]*sim.Scenario, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		sc, err := sim.LoadScenario(path)
		if err != nil {
			return err
		}
		if sc.Name == "" {
			sc.Name = path
		}
		scenarios = append(scenarios, sc)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	results, err := sim.RunAll(ctx, scenarios, logger)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Scenario", "Reason", "Cycles", "Odometer", "Mean Speed", "Final Fault"})
	var stuck int
	for _, res := range results {
		summary, err := res.Summarize()
		if err != nil {
			return err
		}
		if res.Reason == sim.ReasonStuck {
			stuck++
		}
		t.AppendRow(table.Row{
			res.Name,
			res.Reason,
			len(res.Ticks),
			fmt.Sprintf("%.2f", res.Odometer),
			fmt.Sprintf("%.2f", summary.MeanSpeed),
			res.Final().Fault.String(),
		})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	if stuck > 0 {
		return errors.Errorf("%d of %d scenarios got stuck", stuck, len(results))
	}
	return nil
}

func checkAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no files given")
	}
	for _, path := range c.Args().Slice() {
		var err error
		if c.Bool("planner") {
			_, err = planner.LoadConfig(path)
		} else {
			_, err = sim.LoadScenario(path)
		}
		if err != nil {
			return errors.Wrapf(err, "%s is invalid", path)
		}
		fmt.Fprintf(c.App.Writer, "%s ok\n", path)
	}
	return nil
}
