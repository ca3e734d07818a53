package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/QuangTung97/memsim"
	"github.com/QuangTung97/memsim/workload"
)

const (
	stepsFlag       = "steps"
	seedFlag        = "seed"
	strategyFlag    = "strategy"
	intervalFlag    = "interval"
	reportEveryFlag = "report-every"
	minSizeFlag     = "min-size"
	maxSizeFlag     = "max-size"

	randomStrategy = "random"

	// allocatePercent of the steps allocate, the rest free a live process
	allocatePercent = 70
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "runs a random workload against the engine",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  stepsFlag,
			Value: 50,
			Usage: "number of allocate/free steps",
		},
		&cli.Int64Flag{
			Name:  seedFlag,
			Usage: "Optional: random seed, defaults to the current time",
		},
		&cli.StringFlag{
			Name:  strategyFlag,
			Value: randomStrategy,
			Usage: "paging, segmentation or random",
		},
		&cli.DurationFlag{
			Name:  intervalFlag,
			Usage: "Optional: pause between steps",
		},
		&cli.IntFlag{
			Name:  reportEveryFlag,
			Value: 10,
			Usage: "print a report every n steps, 0 to only print the final one",
		},
		&cli.IntFlag{
			Name:  minSizeFlag,
			Value: workload.DefaultMinSize,
			Usage: "smallest request size",
		},
		&cli.IntFlag{
			Name:  maxSizeFlag,
			Value: workload.DefaultMaxSize,
			Usage: "largest request size",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := newEngine(c)
		if err != nil {
			return err
		}

		seed := c.Int64(seedFlag)
		if !c.IsSet(seedFlag) {
			seed = time.Now().UnixNano()
		}
		minSize, maxSize := c.Int(minSizeFlag), c.Int(maxSizeFlag)
		if minSize <= 0 || maxSize < minSize {
			return errors.Errorf("invalid size bounds [%d, %d]", minSize, maxSize)
		}

		d := &driver{
			engine: e,
			gen:    workload.New(minSize, maxSize, rand.New(rand.NewSource(seed))),
		}
		if s := c.String(strategyFlag); s != randomStrategy {
			strategy, err := memsim.ParseStrategy(s)
			if err != nil {
				return err
			}
			d.strategy = strategy
		}

		opts := runOptions{
			steps:       c.Int(stepsFlag),
			interval:    c.Duration(intervalFlag),
			reportEvery: c.Int(reportEveryFlag),
			eventLimit:  c.Int(eventsFlag),
		}
		w := c.App.Writer
		fmt.Fprintf(w, "seed: %d\n", seed)
		return runWorkload(c.Context, d, opts, func(title string, snap memsim.Snapshot) {
			printReport(w, title, snap)
		})
	},
}

type driver struct {
	engine   *memsim.Engine
	gen      *workload.Generator
	strategy memsim.Strategy // empty picks one per request
}

// step either allocates a random request or frees a random live process.
// Engine failures are part of the simulation, they are recorded as events.
func (d *driver) step() {
	ids := d.engine.ProcessIDs()
	if len(ids) > 0 && d.gen.Intn(100) >= allocatePercent {
		_ = d.engine.Deallocate(ids[d.gen.Intn(len(ids))])
		return
	}

	strategy := d.strategy
	if strategy == "" {
		strategy = memsim.Strategies[d.gen.Intn(len(memsim.Strategies))]
	}
	req := d.gen.RandomRequest()
	_ = d.engine.Allocate(req.ProcessID, req.Size, strategy)
}

type runOptions struct {
	steps       int
	interval    time.Duration
	reportEvery int
	eventLimit  int
}

type report struct {
	title string
	snap  memsim.Snapshot
}

// runWorkload drives the engine in one goroutine while another prints
// reports. Each report is snapshotted right after its step, so the driver
// can keep going while the reporter writes it out.
func runWorkload(ctx context.Context, d *driver, opts runOptions, emit func(title string, snap memsim.Snapshot)) error {
	g, ctx := errgroup.WithContext(ctx)
	reports := make(chan report)

	g.Go(func() error {
		defer close(reports)
		for i := 1; i <= opts.steps; i++ {
			d.step()

			if opts.reportEvery > 0 && i%opts.reportEvery == 0 {
				r := report{
					title: fmt.Sprintf("step %d", i),
					snap:  d.engine.Snapshot(opts.eventLimit),
				}
				select {
				case reports <- r:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			if opts.interval > 0 {
				select {
				case <-time.After(opts.interval):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		for r := range reports {
			emit(r.title, r.snap)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	emit("final", d.engine.Snapshot(opts.eventLimit))
	return nil
}
