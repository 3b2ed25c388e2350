package core

// calculator.go applies the purchase-price tiers to a subsidy pair and
// computes the acquisition-tax reduction. All amounts are in 만원.
//
// Price tiers:
//
//	price <  5300         full subsidy   (rate 1.0)
//	5300 <= price < 8500  half subsidy   (rate 0.5)
//	price >= 8500         no subsidy     (rate 0)
//
// National and local amounts are scaled and floored separately, and the
// total is the sum of the floored parts.

import (
	"github.com/shopspring/decimal"
)

const (
	// HalfSubsidyPrice is the lowest price that only receives half subsidy.
	HalfSubsidyPrice = 5300
	// NoSubsidyPrice is the lowest price that receives no subsidy.
	NoSubsidyPrice = 8500
	// TaxReductionCap is the maximum acquisition-tax reduction for EVs.
	TaxReductionCap = 140
)

var (
	rateFull = decimal.NewFromInt(1)
	rateHalf = decimal.NewFromFloat(0.5)
	rateNone = decimal.Zero

	// acquisitionTaxRate is 7% of the purchase price.
	acquisitionTaxRate = decimal.RequireFromString("0.07")
)

// Tier names the price tier a calculation fell into.
type Tier string

const (
	TierFull Tier = "full"
	TierHalf Tier = "half"
	TierNone Tier = "none"
)

// Result is the outcome of a subsidy calculation.
type Result struct {
	Price           int     `json:"price"`
	NationalSubsidy int     `json:"nationalSubsidy"`
	LocalSubsidy    int     `json:"localSubsidy"`
	TotalSubsidy    int     `json:"totalSubsidy"`
	SubsidyRate     float64 `json:"subsidyRate"`
	Tier            Tier    `json:"tier"`
	OriginalLocal   int     `json:"originalLocal"`
	Tax             *Tax    `json:"tax,omitempty"`
	FinalPrice      *int    `json:"finalPrice,omitempty"`
}

// Tax is the acquisition-tax breakdown.
type Tax struct {
	BaseTax   int `json:"baseTax"`
	Reduction int `json:"reduction"`
	FinalTax  int `json:"finalTax"`
}

// SubsidyRate returns the share of the subsidy paid at a purchase price.
func SubsidyRate(price int) (decimal.Decimal, Tier) {
	switch {
	case price >= NoSubsidyPrice:
		return rateNone, TierNone
	case price >= HalfSubsidyPrice:
		return rateHalf, TierHalf
	default:
		return rateFull, TierFull
	}
}

// Calculate scales the subsidy pair by the price tier.
// Negative inputs are treated as zero; the function never fails.
func Calculate(price, national, local int) Result {
	price = clampAmount(price)
	national = clampAmount(national)
	local = clampAmount(local)

	rate, tier := SubsidyRate(price)
	appliedNational := scale(national, rate)
	appliedLocal := scale(local, rate)

	f, _ := rate.Float64()
	return Result{
		Price:           price,
		NationalSubsidy: appliedNational,
		LocalSubsidy:    appliedLocal,
		TotalSubsidy:    appliedNational + appliedLocal,
		SubsidyRate:     f,
		Tier:            tier,
		OriginalLocal:   local,
	}
}

// CalculateWithTax is Calculate plus the acquisition tax and the final price
// (price + final tax - total subsidy).
func CalculateWithTax(price, national, local int) Result {
	res := Calculate(price, national, local)

	tax := AcquisitionTax(res.Price)
	final := res.Price + tax.FinalTax - res.TotalSubsidy

	res.Tax = &tax
	res.FinalPrice = &final
	return res
}

// AcquisitionTax returns the 7% acquisition tax of a price with the EV
// reduction of up to 140 applied.
func AcquisitionTax(price int) Tax {
	base := int(decimal.NewFromInt(int64(clampAmount(price))).Mul(acquisitionTaxRate).Floor().IntPart())
	reduction := min(TaxReductionCap, base)
	return Tax{
		BaseTax:   base,
		Reduction: reduction,
		FinalTax:  max(0, base-reduction),
	}
}

// scale returns floor(amount * rate).
func scale(amount int, rate decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(amount)).Mul(rate).Floor().IntPart())
}
