// api/model/amount.go
package model

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Amount is an arbitrary-precision non-negative integer in base units
// (wei-style). Amounts are never floating point; JSON carries them as
// decimal strings.
type Amount struct {
	i big.Int
}

// NewAmount parses a base-10 string into an Amount.
func NewAmount(s string) (*Amount, error) {
	a := &Amount{}
	if _, ok := a.i.SetString(strings.TrimSpace(s), 10); !ok {
		return nil, fmt.Errorf("invalid amount %q: not a base-10 integer", s)
	}
	if a.i.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q: must be non-negative", s)
	}
	return a, nil
}

// NewAmountFromInt64 builds an Amount from a non-negative int64.
func NewAmountFromInt64(v int64) (*Amount, error) {
	if v < 0 {
		return nil, fmt.Errorf("invalid amount %d: must be non-negative", v)
	}
	a := &Amount{}
	a.i.SetInt64(v)
	return a, nil
}

// MustAmount parses a base-10 string and panics on malformed input. Intended
// for static rule definitions and tests.
func MustAmount(s string) *Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// CoerceAmount converts a loosely typed action parameter into an Amount.
// Strings must be base-10 integers; JSON numbers must be integral. Anything
// else is rejected.
func CoerceAmount(v interface{}) (*Amount, error) {
	switch t := v.(type) {
	case string:
		return NewAmount(t)
	case int:
		return NewAmountFromInt64(int64(t))
	case int64:
		return NewAmountFromInt64(t)
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return nil, fmt.Errorf("invalid amount %v: not an integer", t)
		}
		f := big.NewFloat(t)
		i, _ := f.Int(nil)
		if i.Sign() < 0 {
			return nil, fmt.Errorf("invalid amount %v: must be non-negative", t)
		}
		a := &Amount{}
		a.i.Set(i)
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported amount type %T", v)
	}
}

// Cmp compares a against b, returning -1, 0 or 1.
func (a *Amount) Cmp(b *Amount) int {
	return a.i.Cmp(&b.i)
}

// Add returns a new Amount holding a+b.
func (a *Amount) Add(b *Amount) *Amount {
	sum := &Amount{}
	sum.i.Add(&a.i, &b.i)
	return sum
}

// Sub returns a new Amount holding a-b, clamped at zero. Amounts are
// non-negative; a compensating release can never drive a total below zero.
func (a *Amount) Sub(b *Amount) *Amount {
	diff := &Amount{}
	diff.i.Sub(&a.i, &b.i)
	if diff.i.Sign() < 0 {
		diff.i.SetInt64(0)
	}
	return diff
}

// Int64 returns the amount as an int64; callers must know it fits.
func (a *Amount) Int64() int64 {
	return a.i.Int64()
}

// IsZero reports whether the amount is zero. A nil Amount counts as zero.
func (a *Amount) IsZero() bool {
	return a == nil || a.i.Sign() == 0
}

func (a *Amount) String() string {
	if a == nil {
		return "0"
	}
	return a.i.String()
}

func (a *Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := NewAmount(s)
	if err != nil {
		return err
	}
	a.i.Set(&parsed.i)
	return nil
}
