package media

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Rational represents a rational number (numerator/denominator).
// Used for stream time bases and playback speeds.
type Rational struct {
	Num int64
	Den int64
}

// NewRational creates a rational number with a positive denominator.
// A zero denominator is replaced by 1.
func NewRational(num, den int64) Rational {
	if den == 0 {
		den = 1
	}
	if den < 0 {
		num, den = -num, -den
	}
	return Rational{Num: num, Den: den}
}

// Float64 returns the floating point representation.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns den/num.
func (r Rational) Invert() Rational {
	return NewRational(r.Den, r.Num)
}

// IsZero reports whether the numerator is zero.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

// String formats the rational as "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Common time bases.
var (
	TimeBaseMillis = Rational{Num: 1, Den: 1000}
	TimeBase90kHz  = Rational{Num: 1, Den: 90000}
	TimeBase48kHz  = Rational{Num: 1, Den: 48000}
	TimeBase44kHz  = Rational{Num: 1, Den: 44100}
)

// Timestamp is a presentation time expressed in ticks of a stream time base.
// The time in seconds is Value * Base.Num / Base.Den.
type Timestamp struct {
	Value int64
	Base  Rational
}

// NewTimestamp creates a timestamp, normalizing the time base.
func NewTimestamp(value int64, base Rational) Timestamp {
	return Timestamp{Value: value, Base: NewRational(base.Num, base.Den)}
}

// FromDuration converts a wall-clock duration into ticks of base.
func FromDuration(d time.Duration, base Rational) Timestamp {
	return NewTimestamp(int64(d), Rational{Num: 1, Den: int64(time.Second)}).Rescale(base)
}

// FromSeconds converts seconds into ticks of base, rounding to the nearest tick.
func FromSeconds(s float64, base Rational) Timestamp {
	base = NewRational(base.Num, base.Den)
	if base.Num == 0 {
		return Timestamp{Base: base}
	}
	v := math.Round(s * float64(base.Den) / float64(base.Num))
	return Timestamp{Value: int64(v), Base: base}
}

// Seconds returns the timestamp in seconds.
func (t Timestamp) Seconds() float64 {
	if t.Base.Den == 0 {
		return 0
	}
	return float64(t.Value) * float64(t.Base.Num) / float64(t.Base.Den)
}

// Duration returns the timestamp as a time.Duration.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.Rescale(Rational{Num: 1, Den: int64(time.Second)}).Value)
}

// Add returns the timestamp advanced by ticks of its own time base.
func (t Timestamp) Add(ticks int64) Timestamp {
	return Timestamp{Value: t.Value + ticks, Base: t.Base}
}

// Rescale converts the timestamp to another time base.
// Rounding is to the nearest tick, halfway cases away from zero.
func (t Timestamp) Rescale(base Rational) Timestamp {
	base = NewRational(base.Num, base.Den)
	src := NewRational(t.Base.Num, t.Base.Den)
	if src == base {
		return Timestamp{Value: t.Value, Base: base}
	}
	if base.Num == 0 {
		return Timestamp{Base: base}
	}

	// value * src.Num * base.Den / (src.Den * base.Num)
	num := new(big.Int).Mul(big.NewInt(t.Value), big.NewInt(src.Num))
	num.Mul(num, big.NewInt(base.Den))
	den := new(big.Int).Mul(big.NewInt(src.Den), big.NewInt(base.Num))
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}

	half := new(big.Int).Quo(den, big.NewInt(2))
	if num.Sign() >= 0 {
		num.Add(num, half)
	} else {
		num.Sub(num, half)
	}
	q := new(big.Int).Quo(num, den)
	return Timestamp{Value: q.Int64(), Base: base}
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or
// after other. Different time bases are compared exactly.
func (t Timestamp) Compare(other Timestamp) int {
	a := NewRational(t.Base.Num, t.Base.Den)
	b := NewRational(other.Base.Num, other.Base.Den)
	if a == b {
		switch {
		case t.Value < other.Value:
			return -1
		case t.Value > other.Value:
			return 1
		}
		return 0
	}
	left := new(big.Int).Mul(big.NewInt(t.Value), big.NewInt(a.Num))
	left.Mul(left, big.NewInt(b.Den))
	right := new(big.Int).Mul(big.NewInt(other.Value), big.NewInt(b.Num))
	right.Mul(right, big.NewInt(a.Den))
	return left.Cmp(right)
}

// Before reports whether t is strictly before other.
func (t Timestamp) Before(other Timestamp) bool {
	return t.Compare(other) < 0
}

// After reports whether t is strictly after other.
func (t Timestamp) After(other Timestamp) bool {
	return t.Compare(other) > 0
}

// Clamp limits t to the closed range [lo, hi], keeping t's time base.
func (t Timestamp) Clamp(lo, hi Timestamp) Timestamp {
	if t.Before(lo) {
		return lo.Rescale(t.Base)
	}
	if t.After(hi) {
		return hi.Rescale(t.Base)
	}
	return t
}

// String formats the timestamp as seconds with millisecond precision.
func (t Timestamp) String() string {
	return strconv.FormatFloat(t.Seconds(), 'f', 3, 64) + "s"
}

// ParseTimestamp parses "1.5", "1.5s", "250ms" or "1m3s" into a
// millisecond-based timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, fmt.Errorf("empty timestamp")
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return FromSeconds(secs, TimeBaseMillis), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return FromDuration(d, TimeBaseMillis), nil
}
