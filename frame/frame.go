package frame

import (
	"github.com/QuangTung97/memsim/blocklist"
)

// NoOwner marks a free frame
const NoOwner = blocklist.NoOwner

// Entry is a read-only view of one frame.
// Owner is the process a page of which is mapped here, Held counts the
// segments overlapping the frame.
type Entry struct {
	Index int
	Owner int
	Held  int
	Start int
	End   int
}

// IsFree ...
func (e Entry) IsFree() bool {
	return e.Owner == NoOwner && e.Held == 0
}

// Table maps frame index to owner. A set bit in the bitset means the frame is
// in use, either by a page or by at least one segment.
type Table struct {
	pageSize int
	owners   []int
	held     []int
	bitset   []uint64
	used     int
}

func makeBitSet(totalFrames int) []uint64 {
	if totalFrames <= 64 {
		return make([]uint64, 1)
	}
	return make([]uint64, (totalFrames+63)>>6)
}

// New ...
func New(totalFrames int, pageSize int) *Table {
	if totalFrames <= 0 {
		panic("totalFrames must > 0")
	}
	if pageSize <= 0 {
		panic("pageSize must > 0")
	}

	owners := make([]int, totalFrames)
	for i := range owners {
		owners[i] = NoOwner
	}
	return &Table{
		pageSize: pageSize,
		owners:   owners,
		held:     make([]int, totalFrames),
		bitset:   makeBitSet(totalFrames),
	}
}

func (t *Table) setBit(index int) {
	t.bitset[index>>6] |= uint64(1) << (uint(index) & 0x3f)
}

func (t *Table) clearBit(index int) {
	t.bitset[index>>6] &= ^(uint64(1) << (uint(index) & 0x3f))
}

func (t *Table) isBitSet(index int) bool {
	return t.bitset[index>>6]&(uint64(1)<<(uint(index)&0x3f)) != 0
}

// Len returns the number of frames
func (t *Table) Len() int {
	return len(t.owners)
}

// PageSize ...
func (t *Table) PageSize() int {
	return t.pageSize
}

// FreeCount ...
func (t *Table) FreeCount() int {
	return len(t.owners) - t.used
}

// FreeFrames returns the free frame indices, lowest first
func (t *Table) FreeFrames() []int {
	result := make([]int, 0, t.FreeCount())
	for i := range t.owners {
		if !t.isBitSet(i) {
			result = append(result, i)
		}
	}
	return result
}

// Owner ...
func (t *Table) Owner(index int) int {
	return t.owners[index]
}

// IsFree ...
func (t *Table) IsFree(index int) bool {
	return !t.isBitSet(index)
}

// Assign gives a free frame to owner. The caller keeps the block list in sync.
func (t *Table) Assign(index int, owner int) {
	if owner == NoOwner {
		panic("owner must not be NoOwner")
	}
	if t.isBitSet(index) {
		panic("frame already assigned")
	}
	t.owners[index] = owner
	t.update(index)
}

// Release unmaps the page in a frame, it is a no-op for a frame without page
func (t *Table) Release(index int) {
	if t.owners[index] == NoOwner {
		return
	}
	t.owners[index] = NoOwner
	t.update(index)
}

// Hold marks a frame as overlapped by one more segment
func (t *Table) Hold(index int) {
	if t.owners[index] != NoOwner {
		panic("frame already assigned to a page")
	}
	t.held[index]++
	t.update(index)
}

// Unhold undoes one Hold
func (t *Table) Unhold(index int) {
	if t.held[index] == 0 {
		panic("frame is not held")
	}
	t.held[index]--
	t.update(index)
}

// HoldSpan holds every frame overlapping [start, start+length)
func (t *Table) HoldSpan(start int, length int) {
	for i := start / t.pageSize; i <= (start+length-1)/t.pageSize; i++ {
		t.Hold(i)
	}
}

// UnholdSpan undoes HoldSpan
func (t *Table) UnholdSpan(start int, length int) {
	for i := start / t.pageSize; i <= (start+length-1)/t.pageSize; i++ {
		t.Unhold(i)
	}
}

func (t *Table) update(index int) {
	inUse := t.owners[index] != NoOwner || t.held[index] > 0
	switch {
	case inUse && !t.isBitSet(index):
		t.setBit(index)
		t.used++
	case !inUse && t.isBitSet(index):
		t.clearBit(index)
		t.used--
	}
}

// Span returns the first and last address covered by a frame
func (t *Table) Span(index int) (int, int) {
	start := index * t.pageSize
	return start, start + t.pageSize - 1
}

// Snapshot ...
func (t *Table) Snapshot() []Entry {
	result := make([]Entry, 0, len(t.owners))
	for i, owner := range t.owners {
		start, end := t.Span(i)
		result = append(result, Entry{
			Index: i,
			Owner: owner,
			Held:  t.held[i],
			Start: start,
			End:   end,
		})
	}
	return result
}

// Reset frees every frame
func (t *Table) Reset() {
	for i := range t.owners {
		t.owners[i] = NoOwner
		t.held[i] = 0
	}
	for i := range t.bitset {
		t.bitset[i] = 0
	}
	t.used = 0
}
