package memsim

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/QuangTung97/memsim/blocklist"
	"github.com/QuangTung97/memsim/eventlog"
	"github.com/QuangTung97/memsim/frame"
)

// Option ...
type Option func(e *Engine)

// WithLogger mirrors every event to the given logger
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces time.Now for process and event timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine partitions a fixed size memory among processes using paging or
// first-fit segmentation. Mutations are serialized, queries may run
// concurrently with each other and never observe a half done mutation.
type Engine struct {
	mu sync.RWMutex

	conf   Config
	blocks *blocklist.List
	frames *frame.Table
	events *eventlog.Log

	processes map[int]Process

	pageFaults        uint64
	internalFragTotal int
	internalFragLive  int
	externalFrag      Rational

	logger *logrus.Entry
	now    func() time.Time
}

func discardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// New validates the config before creating any state
func New(conf Config, opts ...Option) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		conf:      conf,
		blocks:    blocklist.New(conf.MemorySize),
		frames:    frame.New(conf.TotalFrames(), conf.PageSize),
		events:    eventlog.New(conf.EventCapacity),
		processes: map[int]Process{},

		logger: discardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithFields(logrus.Fields{
		"memory_size": conf.MemorySize,
		"page_size":   conf.PageSize,
	})
	return e, nil
}

// Config ...
func (e *Engine) Config() Config {
	return e.conf
}

func (e *Engine) record(kind eventlog.Kind, pid int, detail string) {
	e.events.Append(eventlog.Event{
		Kind:      kind,
		ProcessID: pid,
		Detail:    detail,
		Timestamp: e.now(),
	})

	entry := e.logger.WithFields(logrus.Fields{
		"kind": kind,
		"pid":  pid,
	})
	switch kind {
	case eventlog.KindError, eventlog.KindPageFault:
		entry.Info(detail)
	default:
		entry.Debug(detail)
	}
}

func (e *Engine) reject(kind eventlog.Kind, pid int, err error) error {
	e.record(kind, pid, err.Error())
	return err
}

// Allocate gives size units to a new process with the given strategy.
// On error nothing but the event log and the failure counters change.
func (e *Engine) Allocate(pid int, size int, strategy Strategy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pid < 0 {
		return e.reject(eventlog.KindError, pid, errors.Wrapf(ErrInvalidProcessID, "%d", pid))
	}
	if _, existed := e.processes[pid]; existed {
		return e.reject(eventlog.KindError, pid, errors.Wrapf(ErrDuplicateProcess, "process %d", pid))
	}
	if size <= 0 {
		return e.reject(eventlog.KindError, pid, errors.Wrapf(ErrInvalidSize, "process %d size %d", pid, size))
	}

	switch strategy {
	case StrategyPaging:
		return e.allocatePaging(pid, size)
	case StrategySegmentation:
		return e.allocateSegmentation(pid, size)
	default:
		return e.reject(eventlog.KindError, pid, errors.Wrapf(ErrUnknownStrategy, "%q", strategy))
	}
}

func computePagesNeeded(size int, pageSize int) int {
	pages := size / pageSize
	if size%pageSize != 0 {
		pages++
	}
	return pages
}

func computeInternalFragmentation(size int, pageSize int) int {
	if rem := size % pageSize; rem != 0 {
		return pageSize - rem
	}
	return 0
}

func (e *Engine) allocatePaging(pid int, size int) error {
	pageSize := e.conf.PageSize
	pagesNeeded := computePagesNeeded(size, pageSize)

	freeFrames := e.frames.FreeFrames()
	if len(freeFrames) < pagesNeeded {
		e.pageFaults++
		return e.reject(eventlog.KindPageFault, pid, errors.Wrapf(ErrInsufficientFrames,
			"process %d needed %d, available %d", pid, pagesNeeded, len(freeFrames)))
	}

	pages := make([]Page, 0, pagesNeeded)
	for i, index := range freeFrames[:pagesNeeded] {
		start, _ := e.frames.Span(index)
		e.frames.Assign(index, pid)
		e.blocks.Split(start, pageSize, pid)
		pages = append(pages, Page{Index: i, Frame: index})
	}

	frag := computeInternalFragmentation(size, pageSize)
	e.internalFragTotal += frag
	e.internalFragLive += frag

	e.processes[pid] = Process{
		ID:                    pid,
		Size:                  size,
		Allocation:            Paged{Pages: pages},
		CreatedAt:             e.now(),
		InternalFragmentation: frag,
	}

	e.record(eventlog.KindAllocation, pid, fmt.Sprintf("allocated %d pages for process %d", pagesNeeded, pid))
	return nil
}

func (e *Engine) allocateSegmentation(pid int, size int) error {
	block, ok := e.blocks.FirstFit(size)
	if !ok {
		e.externalFrag = externalFragmentation(e.blocks.LargestFree(), e.blocks.FreeTotal())
		return e.reject(eventlog.KindError, pid, errors.Wrapf(ErrNoSuitableBlock, "process %d size %d", pid, size))
	}

	segment := Segment{Start: block.Start, Length: size}
	e.blocks.Split(segment.Start, segment.Length, pid)
	e.frames.HoldSpan(segment.Start, segment.Length)

	e.processes[pid] = Process{
		ID:         pid,
		Size:       size,
		Allocation: Segmented{Segment: segment},
		CreatedAt:  e.now(),
	}

	e.record(eventlog.KindAllocation, pid, fmt.Sprintf("allocated segment for process %d at address %d", pid, segment.Start))
	return nil
}

// Deallocate frees every frame and range of a live process
func (e *Engine) Deallocate(pid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.processes[pid]
	if !ok {
		return e.reject(eventlog.KindError, pid, errors.Wrapf(ErrUnknownProcess, "process %d", pid))
	}

	switch a := p.Allocation.(type) {
	case Paged:
		for _, page := range a.Pages {
			e.frames.Release(page.Frame)
		}
	case Segmented:
		e.frames.UnholdSpan(a.Segment.Start, a.Segment.Length)
	}
	e.blocks.Release(pid)

	e.internalFragLive -= p.InternalFragmentation
	delete(e.processes, pid)

	e.record(eventlog.KindDeallocation, pid, fmt.Sprintf("deallocated process %d", pid))
	return nil
}

// RecomputeFragmentation refreshes the external fragmentation ratio, which
// otherwise only changes when a segment allocation fails.
func (e *Engine) RecomputeFragmentation() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.externalFrag = externalFragmentation(e.blocks.LargestFree(), e.blocks.FreeTotal())
	return e.externalFrag.Float64()
}

// Reset drops every process, counter and event
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.blocks.Reset()
	e.frames.Reset()
	e.events.Reset()
	e.processes = map[int]Process{}

	e.pageFaults = 0
	e.internalFragTotal = 0
	e.internalFragLive = 0
	e.externalFrag = Rational{}

	e.logger.Debug("engine reset")
}

// Ranges returns the block list, in address order
func (e *Engine) Ranges() []blocklist.Range {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.blocks.Snapshot()
}

// Frames ...
func (e *Engine) Frames() []frame.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.frames.Snapshot()
}

// RecentEvents returns up to limit most recent events, oldest first
func (e *Engine) RecentEvents(limit int) []eventlog.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.events.Recent(limit)
}

// Process ...
func (e *Engine) Process(pid int) (Process, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.processes[pid]
	if !ok {
		return Process{}, false
	}
	return p.clone(), true
}

// ProcessIDs returns the live process ids, ascending
func (e *Engine) ProcessIDs() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := lo.Keys(e.processes)
	sort.Ints(ids)
	return ids
}

// Stats ...
type Stats struct {
	Total          int
	Used           int
	Free           int
	UsedPercentage float64

	PageFaults                 uint64
	ExternalFragmentation      float64
	InternalFragmentationTotal int
	InternalFragmentationLive  int

	LiveProcesses int
}

// Stats ...
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.statsLocked()
}

func (e *Engine) statsLocked() Stats {
	total := e.blocks.Total()
	used := e.blocks.Used()
	return Stats{
		Total:          total,
		Used:           used,
		Free:           total - used,
		UsedPercentage: NewRational(uint64(used)*100, uint64(total)).Float64(),

		PageFaults:                 e.pageFaults,
		ExternalFragmentation:      e.externalFrag.Float64(),
		InternalFragmentationTotal: e.internalFragTotal,
		InternalFragmentationLive:  e.internalFragLive,

		LiveProcesses: len(e.processes),
	}
}

// Snapshot is everything a display needs, taken from one engine state
type Snapshot struct {
	Stats  Stats
	Ranges []blocklist.Range
	Frames []frame.Entry
	Events []eventlog.Event
}

// Snapshot copies stats, ranges, frames and up to eventLimit recent events
// under a single read lock
func (e *Engine) Snapshot(eventLimit int) Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Snapshot{
		Stats:  e.statsLocked(),
		Ranges: e.blocks.Snapshot(),
		Frames: e.frames.Snapshot(),
		Events: e.events.Recent(eventLimit),
	}
}

// validate checks the block list and its agreement with the frame table
func (e *Engine) validate() error {
	if err := e.blocks.Validate(); err != nil {
		return err
	}

	ranges := e.blocks.Snapshot()
	for _, entry := range e.frames.Snapshot() {
		if entry.Owner == frame.NoOwner {
			continue
		}
		covering, ok := lo.Find(ranges, func(r blocklist.Range) bool {
			return r.Start <= entry.Start && entry.End <= r.End()
		})
		if !ok || covering.Owner != entry.Owner {
			return errors.Errorf("frame %d of process %d is not covered by its range", entry.Index, entry.Owner)
		}
	}

	for pid, p := range e.processes {
		if len(e.blocks.Owned(pid)) == 0 {
			return errors.Errorf("process %d owns no range", pid)
		}
		if paged, ok := p.Allocation.(Paged); ok {
			if len(paged.Pages) != computePagesNeeded(p.Size, e.conf.PageSize) {
				return errors.Errorf("process %d has %d pages", pid, len(paged.Pages))
			}
		}
	}
	return nil
}
