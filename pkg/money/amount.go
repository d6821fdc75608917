// Package money provides the fixed-precision amount used for every balance
// and transaction value in the ledger.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of fractional digits used when rendering an Amount.
const DisplayPlaces = 4

var (
	ErrEmptyAmount = errors.New("empty amount")
	ErrNotFinite   = errors.New("amount is not a finite number")
)

// Amount is an exact decimal value. Arithmetic never rounds; rounding to
// DisplayPlaces happens only in String.
type Amount struct {
	value decimal.Decimal
}

// Zero is the zero amount. The zero value of Amount is also zero.
var Zero = Amount{}

// Parse reads a decimal amount from text such as "1.5" or " 20 ".
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrEmptyAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{value: d}, nil
}

// FromFloat converts f using its shortest decimal representation, so 0.1
// becomes exactly 0.1 rather than the nearest binary fraction.
func FromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Amount{}, fmt.Errorf("%w: %v", ErrNotFinite, f)
	}
	return Amount{value: decimal.NewFromFloat(f)}, nil
}

// MustFromFloat is FromFloat for literals known to be finite.
func MustFromFloat(f float64) Amount {
	a, err := FromFloat(f)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(other Amount) Amount {
	return Amount{value: a.value.Add(other.value)}
}

func (a Amount) Sub(other Amount) Amount {
	return Amount{value: a.value.Sub(other.value)}
}

func (a Amount) LessThan(other Amount) bool {
	return a.value.LessThan(other.value)
}

func (a Amount) LessThanOrEqual(other Amount) bool {
	return a.value.LessThanOrEqual(other.value)
}

// Equal compares numeric value, so 5 and 5.0000 are equal.
func (a Amount) Equal(other Amount) bool {
	return a.value.Equal(other.value)
}

// String renders the amount with exactly DisplayPlaces fractional digits.
func (a Amount) String() string {
	return a.value.StringFixed(DisplayPlaces)
}
