package blocklist

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// NoOwner marks a free range
const NoOwner = -1

// Range ...
type Range struct {
	Start  int
	Length int
	Owner  int
}

// End is the last address covered by the range
func (r Range) End() int {
	return r.Start + r.Length - 1
}

// IsFree ...
func (r Range) IsFree() bool {
	return r.Owner == NoOwner
}

func (r Range) contains(at int, length int) bool {
	return r.Start <= at && at+length <= r.Start+r.Length
}

// List is the ordered partition of [0, total) into free and owned ranges.
// After every mutation the ranges are contiguous, and neither two free ranges
// nor two ranges of the same owner are adjacent.
type List struct {
	total  int
	ranges []Range
}

// New ...
func New(total int) *List {
	if total <= 0 {
		panic("total must > 0")
	}
	return &List{
		total:  total,
		ranges: []Range{{Start: 0, Length: total, Owner: NoOwner}},
	}
}

// Total ...
func (l *List) Total() int {
	return l.total
}

// Len returns the number of ranges
func (l *List) Len() int {
	return len(l.ranges)
}

func (l *List) insertAt(index int, r Range) {
	l.ranges = append(l.ranges, Range{})
	copy(l.ranges[index+1:], l.ranges[index:])
	l.ranges[index] = r
}

func (l *List) removeAt(index int) {
	copy(l.ranges[index:], l.ranges[index+1:])
	l.ranges = l.ranges[:len(l.ranges)-1]
}

// find returns the index of the range containing addr
func (l *List) find(addr int) int {
	first := 0
	last := len(l.ranges)
	for first != last {
		mid := (first + last) >> 1
		if l.ranges[mid].End() < addr {
			first = mid + 1
		} else {
			last = mid
		}
	}
	return first
}

// Split carves [at, at+length) out of the free range containing it and gives
// it to owner. The region must lie entirely inside one free range.
func (l *List) Split(at int, length int, owner int) {
	if length <= 0 {
		panic("length must > 0")
	}
	if owner == NoOwner {
		panic("owner must not be NoOwner")
	}
	if at < 0 || at+length > l.total {
		panic(fmt.Sprintf("region [%d, %d) out of memory", at, at+length))
	}

	index := l.find(at)
	block := l.ranges[index]
	if !block.IsFree() || !block.contains(at, length) {
		panic(fmt.Sprintf("region [%d, %d) not inside one free range", at, at+length))
	}

	owned := Range{Start: at, Length: length, Owner: owner}
	blockEnd := block.Start + block.Length

	if block.Start < at {
		l.ranges[index] = Range{Start: block.Start, Length: at - block.Start, Owner: NoOwner}
		index++
		l.insertAt(index, owned)
	} else {
		l.ranges[index] = owned
	}

	if at+length < blockEnd {
		l.insertAt(index+1, Range{Start: at + length, Length: blockEnd - at - length, Owner: NoOwner})
	}

	l.mergeOwner(index)
}

// mergeOwner joins the range at index with neighbors of the same owner
func (l *List) mergeOwner(index int) {
	owner := l.ranges[index].Owner
	if index+1 < len(l.ranges) && l.ranges[index+1].Owner == owner {
		l.ranges[index].Length += l.ranges[index+1].Length
		l.removeAt(index + 1)
	}
	if index > 0 && l.ranges[index-1].Owner == owner {
		l.ranges[index-1].Length += l.ranges[index].Length
		l.removeAt(index)
	}
}

// Release frees every range owned by owner and coalesces free neighbors.
// It returns the number of units freed.
func (l *List) Release(owner int) int {
	if owner == NoOwner {
		return 0
	}

	freed := 0
	for i := range l.ranges {
		if l.ranges[i].Owner == owner {
			l.ranges[i].Owner = NoOwner
			freed += l.ranges[i].Length
		}
	}
	if freed > 0 {
		l.coalesce()
	}
	return freed
}

func (l *List) coalesce() {
	i := 0
	for i+1 < len(l.ranges) {
		current := l.ranges[i]
		next := l.ranges[i+1]
		if current.IsFree() && next.IsFree() {
			l.ranges[i].Length += next.Length
			l.removeAt(i + 1)
		} else {
			i++
		}
	}
}

// FirstFit returns the first free range, in address order, with length >= size
func (l *List) FirstFit(size int) (Range, bool) {
	return lo.Find(l.ranges, func(r Range) bool {
		return r.IsFree() && r.Length >= size
	})
}

// Snapshot returns a copy of the ranges, in address order
func (l *List) Snapshot() []Range {
	result := make([]Range, len(l.ranges))
	copy(result, l.ranges)
	return result
}

// Owned returns the ranges of owner, in address order
func (l *List) Owned(owner int) []Range {
	return lo.Filter(l.ranges, func(r Range, _ int) bool {
		return r.Owner == owner
	})
}

func (l *List) freeRanges() []Range {
	return lo.Filter(l.ranges, func(r Range, _ int) bool {
		return r.IsFree()
	})
}

// FreeTotal ...
func (l *List) FreeTotal() int {
	return lo.SumBy(l.freeRanges(), func(r Range) int {
		return r.Length
	})
}

// LargestFree ...
func (l *List) LargestFree() int {
	largest := 0
	for _, r := range l.ranges {
		if r.IsFree() && r.Length > largest {
			largest = r.Length
		}
	}
	return largest
}

// Used ...
func (l *List) Used() int {
	return l.total - l.FreeTotal()
}

// Validate checks that the ranges cover [0, total) exactly, in order,
// without empty ranges and without mergeable neighbors.
func (l *List) Validate() error {
	if len(l.ranges) == 0 {
		return errors.Errorf("empty range list")
	}

	next := 0
	for i, r := range l.ranges {
		if r.Length <= 0 {
			return errors.Errorf("range %d has length %d", i, r.Length)
		}
		if r.Start != next {
			return errors.Errorf("range %d starts at %d, expected %d", i, r.Start, next)
		}
		if i > 0 && l.ranges[i-1].Owner == r.Owner {
			return errors.Errorf("ranges %d and %d both have owner %d", i-1, i, r.Owner)
		}
		next = r.Start + r.Length
	}

	if next != l.total {
		return errors.Errorf("ranges end at %d, expected %d", next, l.total)
	}
	return nil
}

// Reset returns the list to a single free range
func (l *List) Reset() {
	l.ranges = []Range{{Start: 0, Length: l.total, Owner: NoOwner}}
}
