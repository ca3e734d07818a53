package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/QuangTung97/memsim"
)

var replayCommand = &cli.Command{
	Name:      "replay",
	Usage:     "replays a script of alloc/free operations",
	ArgsUsage: "replay [flags] <script>",
	Description: `Each line of the script is one of:
   alloc <pid> <size> <paging|segmentation>
   free <pid>
   recompute
   reset
Blank lines and lines starting with # are ignored.`,
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return errors.New("`replay` command must specify a script file")
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		ops, err := parseScript(f)
		if err != nil {
			return errors.Wrapf(err, "failed to parse %s", path)
		}

		e, err := newEngine(c)
		if err != nil {
			return err
		}

		w := c.App.Writer
		replay(w, e, ops)
		printReport(w, "final", e.Snapshot(c.Int(eventsFlag)))
		return nil
	},
}

type opKind int

const (
	opAlloc opKind = iota + 1
	opFree
	opRecompute
	opReset
)

type operation struct {
	line     int
	kind     opKind
	pid      int
	size     int
	strategy memsim.Strategy
}

func parseScript(r io.Reader) ([]operation, error) {
	var ops []operation

	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		op, err := parseOperation(strings.Fields(line))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
		op.line = lineNum
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func parseOperation(fields []string) (operation, error) {
	switch fields[0] {
	case "alloc":
		if len(fields) != 4 {
			return operation{}, errors.New("usage: alloc <pid> <size> <strategy>")
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			return operation{}, errors.Wrap(err, "invalid pid")
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return operation{}, errors.Wrap(err, "invalid size")
		}
		strategy, err := memsim.ParseStrategy(fields[3])
		if err != nil {
			return operation{}, err
		}
		return operation{kind: opAlloc, pid: pid, size: size, strategy: strategy}, nil

	case "free":
		if len(fields) != 2 {
			return operation{}, errors.New("usage: free <pid>")
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			return operation{}, errors.Wrap(err, "invalid pid")
		}
		return operation{kind: opFree, pid: pid}, nil

	case "recompute":
		return operation{kind: opRecompute}, nil

	case "reset":
		return operation{kind: opReset}, nil

	default:
		return operation{}, errors.Errorf("unknown operation %q", fields[0])
	}
}

// replay runs every operation, a failed operation is reported and skipped
func replay(w io.Writer, e *memsim.Engine, ops []operation) {
	for _, op := range ops {
		var err error
		switch op.kind {
		case opAlloc:
			err = e.Allocate(op.pid, op.size, op.strategy)
		case opFree:
			err = e.Deallocate(op.pid)
		case opRecompute:
			fmt.Fprintf(w, "line %d: external fragmentation %.3f\n", op.line, e.RecomputeFragmentation())
		case opReset:
			e.Reset()
		}
		if err != nil {
			fmt.Fprintf(w, "line %d: %v\n", op.line, err)
		}
	}
}
