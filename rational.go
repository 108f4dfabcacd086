package reel

import "fmt"

// Rational is an exact timeline timestamp expressed as a fraction of
// seconds. Timeline arithmetic must be exact: accumulating float64 frame
// durations drifts after a few minutes of 29.97fps footage, so all time
// values in reel are rationals.
//
// A Rational is always stored normalized: the denominator is positive and
// the fraction is fully reduced. The zero value is 0/1.
type Rational struct {
	num int64
	den int64
}

// NewRational creates a normalized rational from num/den.
// A zero denominator yields the zero rational.
func NewRational(num, den int64) Rational {
	if den == 0 {
		return Rational{}
	}
	if den < 0 {
		num = -num
		den = -den
	}
	if g := gcd(abs64(num), den); g > 1 {
		num /= g
		den /= g
	}
	return Rational{num: num, den: den}
}

// RationalFromInt creates a rational representing a whole number of seconds.
func RationalFromInt(n int64) Rational {
	return Rational{num: n, den: 1}
}

// Num returns the numerator of the normalized fraction.
func (r Rational) Num() int64 {
	return r.num
}

// Den returns the denominator of the normalized fraction.
// The zero value reports a denominator of 1.
func (r Rational) Den() int64 {
	if r.den == 0 {
		return 1
	}
	return r.den
}

// Float64 returns the rational as a float64. Intended for display and
// interpolation only, never for timeline arithmetic.
func (r Rational) Float64() float64 {
	return float64(r.num) / float64(r.Den())
}

// Add returns r + o.
func (r Rational) Add(o Rational) Rational {
	return NewRational(r.num*o.Den()+o.num*r.Den(), r.Den()*o.Den())
}

// Sub returns r - o.
func (r Rational) Sub(o Rational) Rational {
	return NewRational(r.num*o.Den()-o.num*r.Den(), r.Den()*o.Den())
}

// Mul returns r * o.
func (r Rational) Mul(o Rational) Rational {
	return NewRational(r.num*o.num, r.Den()*o.Den())
}

// Cmp compares r and o, returning -1, 0 or +1.
func (r Rational) Cmp(o Rational) int {
	// Cross-multiplication keeps the comparison exact.
	a := r.num * o.Den()
	b := o.num * r.Den()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether r < o.
func (r Rational) Less(o Rational) bool { return r.Cmp(o) < 0 }

// LessEq reports whether r <= o.
func (r Rational) LessEq(o Rational) bool { return r.Cmp(o) <= 0 }

// Equal reports whether r and o represent the same time.
func (r Rational) Equal(o Rational) bool { return r.Cmp(o) == 0 }

// IsZero reports whether r is exactly zero.
func (r Rational) IsZero() bool { return r.num == 0 }

// Min returns the smaller of r and o.
func (r Rational) Min(o Rational) Rational {
	if r.Cmp(o) <= 0 {
		return r
	}
	return o
}

// Max returns the larger of r and o.
func (r Rational) Max(o Rational) Rational {
	if r.Cmp(o) >= 0 {
		return r
	}
	return o
}

// String formats the rational as "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.num, r.Den())
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
