package memsim

// Rational is an exact non-negative ratio, Denominator == 0 means zero
type Rational struct {
	Nominator   uint64
	Denominator uint64
}

// NewRational ...
func NewRational(nominator uint64, denominator uint64) Rational {
	return Rational{
		Nominator:   nominator,
		Denominator: denominator,
	}
}

// externalFragmentation is 1 - largest/total over the free ranges
func externalFragmentation(largestFree int, totalFree int) Rational {
	if totalFree <= 0 {
		return Rational{}
	}
	return NewRational(uint64(totalFree-largestFree), uint64(totalFree))
}

// Float64 ...
func (r Rational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Nominator) / float64(r.Denominator)
}
