// Package fees implements exchange fee schedules and fee-aware edge
// computations. All arithmetic is exact decimal; fee rounding always goes up
// to the next cent so profitability gates never underestimate cost.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	kalshiMakerRate = decimal.RequireFromString("0.0175")
	kalshiTakerRate = decimal.RequireFromString("0.07")
)

// ValidPrice reports whether p lies strictly inside (0,1), the only legal
// domain for a binary contract price.
func ValidPrice(p decimal.Decimal) bool {
	return p.IsPositive() && p.LessThan(one)
}

// CeilCent rounds d up to the next whole cent.
func CeilCent(d decimal.Decimal) decimal.Decimal {
	return d.Mul(hundred).Ceil().Div(hundred)
}

// fee computes ceil_cent(rate * size * price * (1-price)). The quadratic
// p*(1-p) term peaks at price 0.5 and vanishes at the domain boundaries.
func fee(rate, price, size decimal.Decimal) decimal.Decimal {
	return CeilCent(rate.Mul(size).Mul(price).Mul(one.Sub(price)))
}

// Schedule is one venue's trading fee structure.
type Schedule struct {
	MakerRate decimal.Decimal
	TakerRate decimal.Decimal
}

// MakerFee returns the aggregate dollar fee for resting size contracts at
// price.
func (s Schedule) MakerFee(price, size decimal.Decimal) decimal.Decimal {
	if s.MakerRate.IsZero() {
		return decimal.Zero
	}
	return fee(s.MakerRate, price, size)
}

// TakerFee returns the aggregate dollar fee for crossing size contracts at
// price.
func (s Schedule) TakerFee(price, size decimal.Decimal) decimal.Decimal {
	if s.TakerRate.IsZero() {
		return decimal.Zero
	}
	return fee(s.TakerRate, price, size)
}

// ForVenue returns the fee schedule of a venue. Polymarket US charges no
// per-trade fee on moneyline contracts; its cost risk is absorbed by the
// configured minimum edge buffer.
func ForVenue(v domain.Venue) Schedule {
	switch v {
	case domain.VenueKalshi:
		return Schedule{MakerRate: kalshiMakerRate, TakerRate: kalshiTakerRate}
	default:
		return Schedule{}
	}
}

// PerContract converts an aggregate dollar fee over size contracts into a
// per-contract fee so it can be compared against per-contract prices. Zero
// size yields zero.
func PerContract(totalFee, size decimal.Decimal) decimal.Decimal {
	if size.IsZero() {
		return decimal.Zero
	}
	return totalFee.Div(size)
}

// DoubleBuyNetEdge is the per-contract profit of buying every leg of an
// exhaustive outcome set: (1 - Σprice) - Σfee/size. totalFees is the
// aggregate dollar fee over the whole order size.
func DoubleBuyNetEdge(prices []decimal.Decimal, totalFees, size decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return one.Sub(sum).Sub(PerContract(totalFees, size))
}

// DoubleSellNetEdge is the per-contract profit of selling every leg:
// (Σprice - 1) - Σfee/size.
func DoubleSellNetEdge(prices []decimal.Decimal, totalFees, size decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return sum.Sub(one).Sub(PerContract(totalFees, size))
}

// Complement returns 1-p, the implied price of the opposite outcome.
func Complement(p decimal.Decimal) decimal.Decimal {
	return one.Sub(p)
}
