package memsim

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Strategy ...
type Strategy string

// Allocation strategies
const (
	StrategyPaging       Strategy = "paging"
	StrategySegmentation Strategy = "segmentation"
)

// Strategies lists every supported strategy
var Strategies = []Strategy{StrategyPaging, StrategySegmentation}

// ParseStrategy is case insensitive
func ParseStrategy(s string) (Strategy, error) {
	strategy := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(Strategies, strategy) {
		return "", errors.Wrapf(ErrUnknownStrategy, "%q", s)
	}
	return strategy, nil
}

// Page maps the Index-th page of a process onto a frame
type Page struct {
	Index int
	Frame int
}

// Segment ...
type Segment struct {
	Start  int
	Length int
}

// Allocation is either Paged or Segmented
type Allocation interface {
	Strategy() Strategy
	clone() Allocation
}

// Paged ...
type Paged struct {
	Pages []Page
}

// Strategy ...
func (Paged) Strategy() Strategy {
	return StrategyPaging
}

func (p Paged) clone() Allocation {
	pages := make([]Page, len(p.Pages))
	copy(pages, p.Pages)
	return Paged{Pages: pages}
}

// Frames returns the frame of every page, in page order
func (p Paged) Frames() []int {
	return lo.Map(p.Pages, func(page Page, _ int) int {
		return page.Frame
	})
}

// Segmented ...
type Segmented struct {
	Segment Segment
}

// Strategy ...
func (Segmented) Strategy() Strategy {
	return StrategySegmentation
}

func (s Segmented) clone() Allocation {
	return s
}

// Process is a live allocation
type Process struct {
	ID         int
	Size       int
	Allocation Allocation
	CreatedAt  time.Time

	// InternalFragmentation is the unused tail of the last page, zero for segments
	InternalFragmentation int
}

// Strategy ...
func (p Process) Strategy() Strategy {
	return p.Allocation.Strategy()
}

func (p Process) clone() Process {
	p.Allocation = p.Allocation.clone()
	return p
}
