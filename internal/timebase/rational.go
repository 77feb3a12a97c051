// Package timebase provides exact rational arithmetic for converting between
// video frame counts, audio sample counts, and seconds. Every conversion is
// done with integer cross-multiplication so that no drift accumulates no
// matter how many cycles are scheduled.
package timebase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedRational is returned when a frame rate or duration string
// cannot be parsed as "N" or "N/D" with positive terms.
var ErrMalformedRational = errors.New("timebase: malformed rational")

// Rational is an exact ratio Num/Den. Values produced by this package are
// always reduced and have a positive denominator.
type Rational struct {
	Num int64
	Den int64
}

// Common video frame rates.
var (
	FrameRate24    = Rational{Num: 24, Den: 1}
	FrameRate25    = Rational{Num: 25, Den: 1}
	FrameRate30    = Rational{Num: 30, Den: 1}
	FrameRate60    = Rational{Num: 60, Den: 1}
	FrameRate23_98 = Rational{Num: 24000, Den: 1001}
	FrameRate29_97 = Rational{Num: 30000, Den: 1001}
	FrameRate59_94 = Rational{Num: 60000, Den: 1001}
)

// NewRational returns num/den reduced to lowest terms. A zero denominator
// yields num/1.
func NewRational(num, den int64) Rational {
	if den == 0 {
		den = 1
	}
	return Rational{Num: num, Den: den}.Reduce()
}

// ParseRational parses an integer ("30") or a ratio ("30000/1001"). Both
// terms must be positive.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	numStr, denStr, isRatio := strings.Cut(s, "/")
	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("%w: %q", ErrMalformedRational, s)
	}
	den := int64(1)
	if isRatio {
		den, err = strconv.ParseInt(strings.TrimSpace(denStr), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("%w: %q", ErrMalformedRational, s)
		}
	}
	if num <= 0 || den <= 0 {
		return Rational{}, fmt.Errorf("%w: %q must be positive", ErrMalformedRational, s)
	}
	return NewRational(num, den), nil
}

// GCD returns the greatest common divisor of |a| and |b|.
func GCD(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM returns the least common multiple of two positive integers.
func LCM(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / GCD(a, b) * b
}

// Reduce normalizes r to lowest terms with a positive denominator.
func (r Rational) Reduce() Rational {
	if r.Den < 0 {
		r.Num, r.Den = -r.Num, -r.Den
	}
	if r.Num == 0 {
		return Rational{Num: 0, Den: 1}
	}
	g := GCD(r.Num, r.Den)
	return Rational{Num: r.Num / g, Den: r.Den / g}
}

// IsZero reports whether r equals zero.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

// Mul returns r*o reduced.
func (r Rational) Mul(o Rational) Rational {
	g1 := GCD(r.Num, o.Den)
	g2 := GCD(o.Num, r.Den)
	if g1 == 0 {
		g1 = 1
	}
	if g2 == 0 {
		g2 = 1
	}
	return Rational{Num: (r.Num / g1) * (o.Num / g2), Den: (r.Den / g2) * (o.Den / g1)}.Reduce()
}

// MulInt returns r*n reduced.
func (r Rational) MulInt(n int64) Rational {
	return r.Mul(Rational{Num: n, Den: 1})
}

// Cmp compares r and o and returns -1, 0 or +1.
func (r Rational) Cmp(o Rational) int {
	l := r.Num * o.Den
	rr := o.Num * r.Den
	switch {
	case l < rr:
		return -1
	case l > rr:
		return 1
	}
	return 0
}

// Ceil returns the smallest integer >= r.
func (r Rational) Ceil() int64 {
	r = r.Reduce()
	q := r.Num / r.Den
	if r.Num%r.Den != 0 && r.Num > 0 {
		q++
	}
	return q
}

// Floor returns the largest integer <= r.
func (r Rational) Floor() int64 {
	r = r.Reduce()
	q := r.Num / r.Den
	if r.Num%r.Den != 0 && r.Num < 0 {
		q--
	}
	return q
}

// Float64 returns an approximation of r for display purposes only.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// String formats r as "N" when the denominator is one, "N/D" otherwise.
func (r Rational) String() string {
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	return strconv.FormatInt(r.Num, 10) + "/" + strconv.FormatInt(r.Den, 10)
}
