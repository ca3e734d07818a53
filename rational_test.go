package memsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRational(t *testing.T) {
	r := NewRational(2, 3)
	assert.Equal(t, uint64(2), r.Nominator)
	assert.Equal(t, uint64(3), r.Denominator)
}

func TestRational_Float64(t *testing.T) {
	assert.Equal(t, 0.25, NewRational(1, 4).Float64())
	assert.Equal(t, 0.0, Rational{}.Float64())
}

func TestExternalFragmentation(t *testing.T) {
	table := []struct {
		name     string
		largest  int
		total    int
		expected float64
	}{
		{
			name:     "no-free",
			largest:  0,
			total:    0,
			expected: 0,
		},
		{
			name:     "one-block",
			largest:  256,
			total:    256,
			expected: 0,
		},
		{
			name:     "split",
			largest:  48,
			total:    64,
			expected: 0.25,
		},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			assert.Equal(t, e.expected, externalFragmentation(e.largest, e.total).Float64())
		})
	}
}
