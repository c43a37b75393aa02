package ginzu

// Canonicalize returns a copy of the inputs with engine-side defaults
// filled in for fields left at their zero value; the reinvestment lag is
// reset to its default whenever its override is off. The pipeline itself
// always sees a fully resolved record; validation happens separately in
// validateInputs.
func Canonicalize(in GinzuInputs) GinzuInputs {
	out := in
	if out.DistressProceedsTie == "" {
		out.DistressProceedsTie = DefaultDistressProceedsTie
	}
	if !out.OverrideReinvestmentLag {
		out.ReinvestmentLagYears = DefaultReinvestmentLag
	}
	if out.MatureMarketERP == 0 {
		out.MatureMarketERP = DefaultMatureMarketERP
	}
	return out
}

// validateInputs enforces the unit/sign constraints on a canonicalized
// record. It returns the first violation found.
func validateInputs(in GinzuInputs) error {
	if in.RevenuesBase < 0 {
		return inputErr("revenues_base", "must be >= 0")
	}
	if in.BookDebt < 0 {
		return inputErr("book_debt", "must be >= 0")
	}
	if in.Cash < 0 {
		return inputErr("cash", "must be >= 0")
	}
	if in.NonOperatingAssets < 0 {
		return inputErr("non_operating_assets", "must be >= 0")
	}
	if in.MinorityInterests < 0 {
		return inputErr("minority_interests", "must be >= 0")
	}
	if in.SharesOutstanding <= 0 {
		return inputErr("shares_outstanding", "must be > 0")
	}
	if in.MarginConvergenceYear < 1 || in.MarginConvergenceYear > ForecastYears {
		return inputErr("margin_convergence_year", "must be within 1..10")
	}
	if in.SalesToCapital1_5 <= 0 {
		return inputErr("sales_to_capital_1_5", "must be > 0")
	}
	if in.SalesToCapital6_10 <= 0 {
		return inputErr("sales_to_capital_6_10", "must be > 0")
	}
	if in.TaxRateEffective < 0 || in.TaxRateEffective > 1 {
		return inputErr("tax_rate_effective", "must be within [0,1]")
	}
	if in.TaxRateMarginal < 0 || in.TaxRateMarginal > 1 {
		return inputErr("tax_rate_marginal", "must be within [0,1]")
	}

	// Switch on with a missing payload must fail; switch off ignores the
	// payload entirely.
	if in.OverridePerpetualGrowth && in.PerpetualGrowthRate == nil {
		return inputErr("perpetual_growth_rate", "required when override_perpetual_growth is set")
	}
	if in.OverrideRiskfreeAfterYear10 && in.RiskfreeRateAfter10 == nil {
		return inputErr("riskfree_rate_after10", "required when override_riskfree_after_year10 is set")
	}
	if in.OverrideStableWACC && in.StableWACC == nil {
		return inputErr("stable_wacc", "required when override_stable_wacc is set")
	}
	if in.OverrideStableROC && in.StableROC == nil {
		return inputErr("stable_roc", "required when override_stable_roc is set")
	}

	if in.OverrideReinvestmentLag {
		if in.ReinvestmentLagYears < 0 || in.ReinvestmentLagYears > 3 {
			return inputErr("reinvestment_lag_years", "must be one of {0,1,2,3}")
		}
	}
	if in.OverrideFailureProbability {
		if in.ProbabilityOfFailure < 0 || in.ProbabilityOfFailure > 1 {
			return inputErr("probability_of_failure", "must be within [0,1]")
		}
		if in.DistressProceedsTie != "B" && in.DistressProceedsTie != "V" {
			return inputErr("distress_proceeds_tie", `must be "B" or "V"`)
		}
	}

	if in.CapitalizeOperatingLeases && in.LeaseDebt < 0 {
		return inputErr("lease_debt", "must be >= 0")
	}
	if in.CapitalizeRnD && in.RnDAsset < 0 {
		return inputErr("rnd_asset", "must be >= 0")
	}
	if in.HasEmployeeOptions && in.OptionsValue < 0 {
		return inputErr("options_value", "must be >= 0")
	}
	if in.HasNOLCarryforward && in.NOLStartYear1 < 0 {
		return inputErr("nol_start_year1", "must be >= 0")
	}

	return nil
}
