package reel

import "fmt"

// TimeRange is a half-open interval [In, Out) of timeline time.
// A range with Out <= In is empty.
type TimeRange struct {
	in  Rational
	out Rational
}

// NewTimeRange creates the half-open range [in, out).
func NewTimeRange(in, out Rational) TimeRange {
	return TimeRange{in: in, out: out}
}

// In returns the inclusive start of the range.
func (t TimeRange) In() Rational { return t.in }

// Out returns the exclusive end of the range.
func (t TimeRange) Out() Rational { return t.out }

// Length returns Out - In. Negative lengths are clamped to zero.
func (t TimeRange) Length() Rational {
	if t.out.Less(t.in) {
		return Rational{}
	}
	return t.out.Sub(t.in)
}

// IsEmpty reports whether the range contains no time.
func (t TimeRange) IsEmpty() bool {
	return !t.in.Less(t.out)
}

// Contains reports whether time r falls inside the half-open interval.
func (t TimeRange) Contains(r Rational) bool {
	return t.in.LessEq(r) && r.Less(t.out)
}

// Overlaps reports whether t and o share any time.
func (t TimeRange) Overlaps(o TimeRange) bool {
	return t.in.Less(o.out) && o.in.Less(t.out)
}

// Intersect returns the overlapping part of t and o.
// If the ranges do not overlap, the result is empty.
func (t TimeRange) Intersect(o TimeRange) TimeRange {
	return TimeRange{
		in:  t.in.Max(o.in),
		out: t.out.Min(o.out),
	}
}

// Shift returns the range translated by d.
func (t TimeRange) Shift(d Rational) TimeRange {
	return TimeRange{
		in:  t.in.Add(d),
		out: t.out.Add(d),
	}
}

// String formats the range as "[in, out)".
func (t TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", t.in, t.out)
}
