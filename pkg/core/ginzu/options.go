package ginzu

import "math"

// OptionInputs describes an employee-option grant to value against the
// company's equity. Amounts follow the engine's unit conventions: the
// option count and share count share one scale, the result is a total
// currency amount on the same scale as the stock price.
type OptionInputs struct {
	StockPrice         float64 `json:"stock_price"`
	StrikePrice        float64 `json:"strike_price"`
	MaturityYears      float64 `json:"maturity_years"`
	Volatility         float64 `json:"volatility"`
	RiskfreeRate       float64 `json:"riskfree_rate"`
	OptionsOutstanding float64 `json:"options_outstanding"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
}

// DilutionAdjustedOptionValue prices the grant with Black-Scholes on a
// dilution-adjusted share price
//
//	S* = (S*shares + K*options) / (shares + options)
//
// and returns call value x options outstanding. Degenerate inputs
// (non-positive maturity, volatility, strike, or adjusted price) value
// to zero rather than erroring; a non-positive share count is an input
// error because the adjustment is undefined without it.
func DilutionAdjustedOptionValue(in OptionInputs) (float64, error) {
	if in.SharesOutstanding <= 0 {
		return 0, inputErr("shares_outstanding", "must be > 0 for option valuation")
	}
	if in.OptionsOutstanding <= 0 {
		return 0.0, nil
	}

	adjusted := (in.StockPrice*in.SharesOutstanding + in.StrikePrice*in.OptionsOutstanding) /
		(in.SharesOutstanding + in.OptionsOutstanding)

	if in.MaturityYears <= 0 || in.Volatility <= 0 || adjusted <= 0 || in.StrikePrice <= 0 {
		return 0.0, nil
	}

	call := blackScholesCall(adjusted, in.StrikePrice, in.RiskfreeRate, in.Volatility, in.MaturityYears)
	return call * in.OptionsOutstanding, nil
}

func blackScholesCall(s, k, r, sigma, t float64) float64 {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	return s*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2)
}

// normCDF is the standard normal CDF via the error function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}
