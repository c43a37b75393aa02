package ginzu

import "math"

// Compute runs the 14-step Ginzu pipeline and returns the full tableau.
// Inputs are canonicalized and validated first; a failed run returns a
// typed error (*InputError, *StableStateError, *OverflowError) and no
// partial outputs.
func Compute(raw GinzuInputs) (*GinzuOutputs, error) {
	in := Canonicalize(raw)
	if err := validateInputs(in); err != nil {
		return nil, err
	}

	// Step 0: stable-state parameters. Stable ROC defaults to the Year-10
	// cost of capital, which only exists after Step 10, so the default is
	// resolved there.
	stableGrowth := resolvePerpetualGrowth(in)
	terminalTax := resolveTerminalTaxRate(in)
	stableWACC := resolveStableWACC(in)

	// Step 4 (base part): adjusted base-year EBIT.
	baseEBIT := in.EBITReportedBase + baseEBITAdjustments(in)

	// Steps 1-2: growth path and revenues.
	growth := growthPath(in.RevGrowthY1, in.RevCAGRY2_5, stableGrowth)
	revenues := revenuePath(in.RevenuesBase, growth) // base + years 1..10
	revenueTerminal := revenues[ForecastYears] * (1.0 + stableGrowth)

	// Step 3: margin path. The base margin is display-only; with a zero
	// revenue base it reports as zero rather than dividing.
	margins := marginPath(baseEBIT, in.RevenuesBase, in.MarginY1, in.MarginTarget, in.MarginConvergenceYear)
	marginTerminal := margins[ForecastYears]

	// Step 4 (forecast part): EBIT.
	ebit := make([]float64, ForecastYears+1)
	ebit[0] = baseEBIT
	for year := 1; year <= ForecastYears; year++ {
		ebit[year] = revenues[year] * margins[year]
	}
	ebitTerminal := revenueTerminal * marginTerminal

	// Step 5: tax-rate path.
	taxRates := taxRatePath(in.TaxRateEffective, terminalTax)

	// Step 6: NOL-shielded after-tax EBIT.
	nolStart := 0.0
	if in.HasNOLCarryforward {
		nolStart = in.NOLStartYear1
	}
	nol, ebitAfterTax := afterTaxWithNOL(ebit, taxRates, nolStart)
	ebitAfterTaxTerminal := ebitTerminal * (1.0 - terminalTax)

	// Step 7: sales-to-capital path.
	salesToCapital := salesToCapitalPath(in.SalesToCapital1_5, in.SalesToCapital6_10)

	// Step 8 (explicit years): reinvestment with lag.
	reinvest := reinvestmentPath(revenues, salesToCapital, in.ReinvestmentLagYears, stableGrowth)

	// Step 10: cost-of-capital path and discount factors. Stable ROC
	// defaults to Year-10 WACC when not overridden.
	wacc := waccPath(in.WACCInitial, stableWACC)
	var stableROC float64
	if in.OverrideStableROC {
		stableROC = *in.StableROC
	} else {
		stableROC = wacc[ForecastYears-1]
	}
	factors := discountFactors(wacc)

	// Step 8 (terminal): growth/ROC-consistent terminal reinvestment.
	reinvestTerminal, err := terminalReinvestment(stableGrowth, stableROC, ebitAfterTaxTerminal)
	if err != nil {
		return nil, err
	}

	// Step 9: FCFF.
	fcff := make([]float64, ForecastYears)
	for year := 1; year <= ForecastYears; year++ {
		fcff[year-1] = ebitAfterTax[year] - reinvest[year-1]
	}
	fcffTerminal := ebitAfterTaxTerminal - reinvestTerminal

	// Step 11: PV of the explicit years, summed in year order.
	pvFCFF := make([]float64, ForecastYears)
	pv10y := 0.0
	for i := 0; i < ForecastYears; i++ {
		pvFCFF[i] = fcff[i] * factors[i]
		pv10y += pvFCFF[i]
	}

	// Step 12: terminal value. Requires stable WACC strictly above g.
	denom := stableWACC - stableGrowth
	if denom <= 0 {
		return nil, &StableStateError{Reason: "stable_wacc must exceed the perpetual growth rate"}
	}
	terminalValue := fcffTerminal / denom
	pvTerminalValue := terminalValue * factors[ForecastYears-1]
	pvSum := pv10y + pvTerminalValue

	// Step 13: failure-probability adjustment.
	probFailure := 0.0
	if in.OverrideFailureProbability {
		probFailure = in.ProbabilityOfFailure
	}
	proceeds := proceedsIfFailure(in, pvSum)
	operatingAssets := pvSum*(1.0-probFailure) + proceeds*probFailure

	// Step 14: equity bridge.
	debt := in.BookDebt
	if in.CapitalizeOperatingLeases {
		debt += in.LeaseDebt
	}
	cashAdjusted := adjustedCash(in)
	valueOfEquity := operatingAssets - debt - in.MinorityInterests + cashAdjusted + in.NonOperatingAssets

	optionsValue := 0.0
	if in.HasEmployeeOptions {
		optionsValue = in.OptionsValue
	}
	equityCommon := valueOfEquity - optionsValue
	perShare := equityCommon / in.SharesOutstanding

	pricePercent := 0.0
	if perShare != 0 {
		pricePercent = in.StockPrice / perShare
	}

	out := &GinzuOutputs{
		Revenues:        append(revenues, revenueTerminal),
		GrowthRates:     append(growth, stableGrowth),
		Margins:         append(margins, marginTerminal),
		EBIT:            append(ebit, ebitTerminal),
		TaxRates:        append(taxRates, terminalTax),
		NOL:             nol,
		EBITAfterTax:    append(ebitAfterTax, ebitAfterTaxTerminal),
		SalesToCapital:  salesToCapital,
		Reinvestment:    append(reinvest, reinvestTerminal),
		FCFF:            append(fcff, fcffTerminal),
		WACC:            append(wacc, stableWACC),
		DiscountFactors: factors,
		PVFCFF:          pvFCFF,

		PV10Y:            pv10y,
		TerminalCashFlow: fcffTerminal,
		TerminalValue:    terminalValue,
		PVTerminalValue:  pvTerminalValue,
		PVSum:            pvSum,

		PerpetualGrowthRate: stableGrowth,
		StableWACC:          stableWACC,
		StableROC:           stableROC,
		TerminalTaxRate:     terminalTax,

		ProbabilityOfFailure:   probFailure,
		ProceedsIfFailure:      proceeds,
		ValueOfOperatingAssets: operatingAssets,

		Debt:                   debt,
		CashAdjusted:           cashAdjusted,
		ValueOfEquity:          valueOfEquity,
		OptionsValue:           optionsValue,
		ValueOfEquityCommon:    equityCommon,
		EstimatedValuePerShare: perShare,
		PriceAsPercentOfValue:  pricePercent,
	}

	if err := checkFinite(out); err != nil {
		return nil, err
	}
	return out, nil
}

func resolvePerpetualGrowth(in GinzuInputs) float64 {
	if in.OverridePerpetualGrowth {
		return *in.PerpetualGrowthRate
	}
	if in.OverrideRiskfreeAfterYear10 {
		return *in.RiskfreeRateAfter10
	}
	return in.RiskfreeRateNow
}

func resolveTerminalTaxRate(in GinzuInputs) float64 {
	if in.OverrideTaxRateConvergence {
		return in.TaxRateEffective
	}
	return in.TaxRateMarginal
}

func resolveStableWACC(in GinzuInputs) float64 {
	if in.OverrideStableWACC {
		return *in.StableWACC
	}
	riskfree := in.RiskfreeRateNow
	if in.OverrideRiskfreeAfterYear10 {
		riskfree = *in.RiskfreeRateAfter10
	}
	return riskfree + in.MatureMarketERP
}

func baseEBITAdjustments(in GinzuInputs) float64 {
	adj := 0.0
	if in.CapitalizeOperatingLeases {
		adj += in.LeaseEBITAdjustment
	}
	if in.CapitalizeRnD {
		adj += in.RnDEBITAdjustment
	}
	return adj
}

// growthPath builds the Year 1..10 growth rates: Year 1 explicit, Years
// 2..5 at the CAGR, Years 6..10 fading linearly to the stable rate.
func growthPath(year1, years2to5, stable float64) []float64 {
	g := make([]float64, ForecastYears)
	g[0] = year1
	for i := 1; i < 5; i++ {
		g[i] = years2to5
	}
	year5 := g[4]
	step := (year5 - stable) / float64(StableTransitionYears)
	for k := 1; k < StableTransitionYears; k++ {
		g[4+k] = year5 - step*float64(k)
	}
	// The last fade step lands exactly on the stable rate.
	g[4+StableTransitionYears] = stable
	return g
}

// revenuePath forward-compounds the base revenue. Result is base-indexed:
// index 0 is the base year, index t is Year t.
func revenuePath(base float64, growth []float64) []float64 {
	revenues := make([]float64, 0, ForecastYears+1)
	revenues = append(revenues, base)
	current := base
	for _, g := range growth {
		current = current * (1.0 + g)
		revenues = append(revenues, current)
	}
	return revenues
}

// marginPath converges the Year-1 margin onto the target at the
// convergence year and holds it there. Index 0 is the base-year margin.
func marginPath(baseEBIT, baseRevenues, year1, target float64, convergenceYear int) []float64 {
	baseMargin := 0.0
	if baseRevenues != 0 {
		baseMargin = baseEBIT / baseRevenues
	}
	margins := make([]float64, 0, ForecastYears+1)
	margins = append(margins, baseMargin, year1)

	for year := 2; year <= ForecastYears; year++ {
		if year > convergenceYear {
			margins = append(margins, target)
			continue
		}
		slope := (target - year1) / float64(convergenceYear)
		margins = append(margins, target-slope*float64(convergenceYear-year))
	}
	return margins
}

// taxRatePath holds the effective rate through Year 5 then interpolates
// to the terminal rate. Index 0 is the base year.
func taxRatePath(effective, terminal float64) []float64 {
	rates := make([]float64, 0, ForecastYears+1)
	for i := 0; i <= 5; i++ {
		rates = append(rates, effective)
	}
	step := (terminal - effective) / float64(StableTransitionYears)
	for k := 1; k < StableTransitionYears; k++ {
		rates = append(rates, effective+step*float64(k))
	}
	rates = append(rates, terminal)
	return rates
}

// afterTaxWithNOL runs the NOL ledger over the EBIT series. Losses grow
// the balance; profits draw it down before any taxes are paid. Both
// returned series are base-indexed.
func afterTaxWithNOL(ebit, taxRates []float64, nolStart float64) (nol, afterTax []float64) {
	nol = make([]float64, 0, ForecastYears+1)
	afterTax = make([]float64, 0, ForecastYears+1)
	nol = append(nol, nolStart)

	// Base-year EBIT(1-t): tax applies only to a positive base.
	if ebit[0] > 0 {
		afterTax = append(afterTax, ebit[0]*(1.0-taxRates[0]))
	} else {
		afterTax = append(afterTax, ebit[0])
	}

	balance := nolStart
	for year := 1; year <= ForecastYears; year++ {
		e := ebit[year]
		switch {
		case e <= 0:
			afterTax = append(afterTax, e)
			balance -= e // subtracting a loss grows the shield
		case e < balance:
			afterTax = append(afterTax, e)
			balance -= e
		default:
			taxes := (e - balance) * taxRates[year]
			afterTax = append(afterTax, e-taxes)
			balance = 0.0
		}
		nol = append(nol, balance)
	}
	return nol, afterTax
}

func salesToCapitalPath(years1to5, years6to10 float64) []float64 {
	series := make([]float64, ForecastYears)
	for i := range series {
		if i < 5 {
			series[i] = years1to5
		} else {
			series[i] = years6to10
		}
	}
	return series
}

// reinvestmentPath computes Year 1..10 reinvestment as the lagged revenue
// delta over the sales-to-capital ratio. Revenue beyond Year 10 is
// extrapolated at the stable growth rate, matching the sheet's boundary
// behavior.
func reinvestmentPath(revenues, salesToCapital []float64, lag int, stableGrowth float64) []float64 {
	revenueAt := func(index int) float64 {
		if index <= ForecastYears {
			return revenues[index]
		}
		steps := index - ForecastYears
		return revenues[ForecastYears] * math.Pow(1.0+stableGrowth, float64(steps))
	}

	reinvest := make([]float64, ForecastYears)
	for year := 1; year <= ForecastYears; year++ {
		delta := revenueAt(year+lag) - revenueAt(year+lag-1)
		reinvest[year-1] = delta / salesToCapital[year-1]
	}
	return reinvest
}

// waccPath holds the initial WACC through Year 5 then fades linearly to
// the stable WACC by Year 10.
func waccPath(initial, stable float64) []float64 {
	wacc := make([]float64, 0, ForecastYears)
	for i := 0; i < 5; i++ {
		wacc = append(wacc, initial)
	}
	step := (initial - stable) / float64(StableTransitionYears)
	for k := 1; k < StableTransitionYears; k++ {
		wacc = append(wacc, initial-step*float64(k))
	}
	wacc = append(wacc, stable)
	return wacc
}

func discountFactors(wacc []float64) []float64 {
	factors := make([]float64, 0, ForecastYears)
	cumulative := 1.0
	for _, w := range wacc {
		cumulative = cumulative / (1.0 + w)
		factors = append(factors, cumulative)
	}
	return factors
}

// terminalReinvestment enforces the growth/ROC consistency of the stable
// state: reinvestment = g/ROC x after-tax EBIT, zero when g <= 0.
func terminalReinvestment(stableGrowth, stableROC, ebitAfterTaxTerminal float64) (float64, error) {
	if stableGrowth <= 0 {
		return 0.0, nil
	}
	if stableROC <= 0 {
		return 0, &StableStateError{Reason: "stable_roc must be > 0 when the perpetual growth rate is positive"}
	}
	return (stableGrowth / stableROC) * ebitAfterTaxTerminal, nil
}

func proceedsIfFailure(in GinzuInputs, pvSum float64) float64 {
	if !in.OverrideFailureProbability || in.DistressProceedsPercent <= 0 {
		return 0.0
	}
	if in.DistressProceedsTie == "V" {
		return pvSum * in.DistressProceedsPercent
	}
	return (in.BookEquity + in.BookDebt) * in.DistressProceedsPercent
}

func adjustedCash(in GinzuInputs) float64 {
	if !in.OverrideTrappedCash {
		return in.Cash
	}
	additionalTax := in.TrappedCashAmount * (in.TaxRateMarginal - in.TrappedCashForeignTaxRate)
	return in.Cash - additionalTax
}

func checkFinite(out *GinzuOutputs) error {
	series := map[string][]float64{
		"revenues":       out.Revenues,
		"ebit":           out.EBIT,
		"ebit_after_tax": out.EBITAfterTax,
		"reinvestment":   out.Reinvestment,
		"fcff":           out.FCFF,
		"pv_fcff":        out.PVFCFF,
	}
	for name, values := range series {
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &OverflowError{Series: name}
			}
		}
	}
	if math.IsNaN(out.EstimatedValuePerShare) || math.IsInf(out.EstimatedValuePerShare, 0) {
		return &OverflowError{Series: "estimated_value_per_share"}
	}
	return nil
}
