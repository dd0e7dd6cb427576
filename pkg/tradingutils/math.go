package tradingutils

import (
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// StepDecimals returns the number of fractional digits implied by a
// quantity step size, e.g. "0.0001" -> 4, "1" -> 0.
func StepDecimals(stepSize decimal.Decimal) int32 {
	if exp := stepSize.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// RoundToStep rounds a quantity half-up to the step-size decimals.
// Used when sizing buys.
func RoundToStep(qty, stepSize decimal.Decimal) decimal.Decimal {
	return qty.Round(StepDecimals(stepSize))
}

// FloorToStep rounds a quantity down to the step-size decimals.
// Used when sizing sells so the request never exceeds holdings.
func FloorToStep(qty, stepSize decimal.Decimal) decimal.Decimal {
	return qty.RoundFloor(StepDecimals(stepSize))
}

// BreakEvenLevel is the price at which selling the whole inventory repays
// its fee-adjusted cost. Zero when there is no inventory.
func BreakEvenLevel(totalCostWithFee, summaryExecutedQty decimal.Decimal) decimal.Decimal {
	if summaryExecutedQty.IsZero() {
		return decimal.Zero
	}
	return totalCostWithFee.Div(summaryExecutedQty)
}

// ProfitToTarget is the distance of the current inventory value from the
// fee-adjusted cost scaled by the profit target. Positive means the whole
// position could be closed at or above target.
func ProfitToTarget(price, summaryExecutedQty, totalCostWithFee, targetProfit decimal.Decimal) decimal.Decimal {
	return price.Mul(summaryExecutedQty).Sub(totalCostWithFee.Mul(one.Add(targetProfit)))
}

// CostWithFee applies the round-trip fee allowance to a quote cost.
func CostWithFee(cost, takerMakerFee decimal.Decimal) decimal.Decimal {
	return cost.Mul(one.Add(takerMakerFee))
}
