package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places money is kept to.
const Places = 2

var (
	ErrNoShares         = errors.New("nothing to allocate across")
	ErrZeroTotalWeight  = errors.New("total weight is zero")
	ErrNegativeWeight   = errors.New("weights must not be negative")
	ErrNonPositiveTotal = errors.New("amount must be greater than zero")
)

// Allocate splits total across weights in proportion, in minor units, using
// the largest-remainder method. The result always sums exactly to total
// rounded to Places; a zero weight always receives zero.
func Allocate(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, ErrNoShares
	}
	total = total.Round(Places)
	if !total.IsPositive() {
		return nil, ErrNonPositiveTotal
	}

	sum := decimal.Zero
	for i, w := range weights {
		if w.IsNegative() {
			return nil, fmt.Errorf("%w (index %d)", ErrNegativeWeight, i)
		}
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		return nil, ErrZeroTotalWeight
	}

	units := total.Shift(Places) // integral number of minor units
	type part struct {
		index int
		units decimal.Decimal
		frac  decimal.Decimal
	}
	parts := make([]part, len(weights))
	allotted := decimal.Zero
	for i, w := range weights {
		exact := units.Mul(w).Div(sum)
		floor := exact.Floor()
		parts[i] = part{index: i, units: floor, frac: exact.Sub(floor)}
		allotted = allotted.Add(floor)
	}

	remainder := units.Sub(allotted).IntPart()
	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return parts[order[a]].frac.GreaterThan(parts[order[b]].frac)
	})
	for k := int64(0); k < remainder; k++ {
		p := &parts[order[k%int64(len(order))]]
		p.units = p.units.Add(decimal.NewFromInt(1))
	}

	shares := make([]decimal.Decimal, len(parts))
	for _, p := range parts {
		shares[p.index] = p.units.Shift(-Places)
	}
	return shares, nil
}

// Equal splits total evenly across n parts.
func Equal(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return Allocate(total, weights)
}

// Sum adds amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
