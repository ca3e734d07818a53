package workload

import (
	"math/rand"
)

// Default request size bounds
const (
	DefaultMinSize = 4
	DefaultMaxSize = 64
)

// Request ...
type Request struct {
	ProcessID int
	Size      int
}

// Generator produces synthetic allocation requests. It knows nothing about
// the engine, ids are never reused even when a request fails.
type Generator struct {
	minSize int
	maxSize int
	nextID  int
	rng     *rand.Rand
}

// New ...
func New(minSize int, maxSize int, rng *rand.Rand) *Generator {
	checkBounds(minSize, maxSize)
	return &Generator{
		minSize: minSize,
		maxSize: maxSize,
		nextID:  1,
		rng:     rng,
	}
}

func checkBounds(minSize int, maxSize int) {
	if minSize <= 0 {
		panic("minSize must > 0")
	}
	if maxSize < minSize {
		panic("maxSize must >= minSize")
	}
}

// NextID returns 1, 2, 3, ...
func (g *Generator) NextID() int {
	id := g.nextID
	g.nextID++
	return id
}

// RandomRequest uses the generator's own size bounds
func (g *Generator) RandomRequest() Request {
	return g.RandomRequestIn(g.minSize, g.maxSize)
}

// RandomRequestIn returns a new id with a size uniform in [minSize, maxSize].
// The bounds follow the same rules as New, no id is consumed when they are invalid.
func (g *Generator) RandomRequestIn(minSize int, maxSize int) Request {
	checkBounds(minSize, maxSize)
	return Request{
		ProcessID: g.NextID(),
		Size:      minSize + g.rng.Intn(maxSize-minSize+1),
	}
}

// Intn exposes the generator's source to drivers that pick among live processes
func (g *Generator) Intn(n int) int {
	return g.rng.Intn(n)
}
