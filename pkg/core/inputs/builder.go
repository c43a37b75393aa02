// Package inputs prepares ginzu.GinzuInputs from normalized connector
// data and a user assumptions document. It is the single source of truth
// for default heuristics and for the R&D / employee-option
// pre-computations, so every call site (API, CLI, tests) produces
// identical engine inputs.
package inputs

import (
	"fmt"

	"fcff_valuation/pkg/core/connector"
	"fcff_valuation/pkg/core/ginzu"
)

// Canonical defaults. Kept in one place so they never drift between
// call sites.
const (
	DefaultMatureMarketERP       = 0.0460
	DefaultRiskFreeRate          = 0.04
	DefaultWACCInitial           = 0.08
	DefaultEffectiveTaxRate      = 0.20
	DefaultMarginalTaxRate       = 0.25
	DefaultRevGrowth             = 0.05
	DefaultMarginConvergenceYear = 5
	DefaultSalesToCapital        = 1.5
	DefaultRnDAmortizationYears  = 5
)

// Assumptions is a user-supplied override document, decoded from JSON or
// Hjson. Any key present takes precedence over connector data, which in
// turn takes precedence over the canonical defaults.
type Assumptions map[string]interface{}

func (a Assumptions) has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a Assumptions) float(key string, fallback float64) float64 {
	if v, ok := a[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

func (a Assumptions) boolean(key string, fallback bool) bool {
	if v, ok := a[key]; ok {
		if b, isBool := v.(bool); isBool {
			return b
		}
	}
	return fallback
}

func (a Assumptions) integer(key string, fallback int) int {
	if v, ok := a[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return fallback
}

func (a Assumptions) str(key, fallback string) string {
	if v, ok := a[key]; ok {
		if s, isStr := v.(string); isStr {
			return s
		}
	}
	return fallback
}

func (a Assumptions) floatSlice(key string) ([]float64, bool) {
	v, ok := a[key]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		f, ok := item.(float64)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// Build merges fetched data with user assumptions, applies the default
// heuristics, and returns a fully-populated engine record. Optional
// sub-module pre-computations that fail log a warning rather than
// sinking the valuation: a failed R&D capitalization disables its
// switch, a failed option valuation leaves the switch on with a zero
// options value.
func Build(data *connector.CompanyData, assumptions Assumptions) ginzu.GinzuInputs {
	if data == nil {
		data = &connector.CompanyData{}
	}
	if assumptions == nil {
		assumptions = Assumptions{}
	}

	pick := func(key string, dataValue, fallback float64) float64 {
		if assumptions.has(key) {
			return assumptions.float(key, fallback)
		}
		if dataValue != 0 {
			return dataValue
		}
		return fallback
	}

	// R&D capitalization. History index 0 is the latest fiscal year, which
	// the current expense already stands for, so the prior years fed to
	// the amortization schedule start at index 1.
	capitalizeRnD := assumptions.boolean("capitalize_rnd", false)
	rndHistory := data.RnDHistory
	if fromAssumptions, ok := assumptions.floatSlice("rnd_history"); ok {
		rndHistory = fromAssumptions
	}
	currentRnD := pick("rnd_expense", data.RnDExpense, 0.0)

	var rndAsset, rndEBITAdj float64
	if capitalizeRnD {
		amortYears := assumptions.integer("rnd_amortization_years", DefaultRnDAmortizationYears)
		past := make([]float64, 0, amortYears)
		for i := 0; i < amortYears; i++ {
			if i+1 < len(rndHistory) {
				past = append(past, rndHistory[i+1])
			} else {
				past = append(past, 0.0)
			}
		}
		asset, adj, err := ginzu.ComputeRnDCapitalization(ginzu.RnDCapitalizationInputs{
			AmortizationYears:     amortYears,
			CurrentYearRnDExpense: currentRnD,
			PastYearRnDExpenses:   past,
		})
		if err != nil {
			fmt.Printf("[INPUTS] R&D capitalization failed, disabling: %v\n", err)
			capitalizeRnD = false
		} else {
			rndAsset, rndEBITAdj = asset, adj
		}
	}

	// Base financials.
	revenues := pick("revenues_base", data.RevenuesBase, 0.0)
	ebit := pick("ebit_reported_base", data.EBITReportedBase, 0.0)
	bookEquity := pick("book_equity", data.BookEquity, 0.0)
	bookDebt := pick("book_debt", data.BookDebt, 0.0)
	cash := pick("cash", data.Cash, 0.0)

	// Capitalized R&D sits on the balance sheet as a research asset.
	if capitalizeRnD {
		bookEquity += rndAsset
	}

	// Invested capital drives the sales-to-capital default.
	investedCapital := bookEquity + bookDebt - cash
	salesToCapital := DefaultSalesToCapital
	if investedCapital > 0 && revenues > 0 {
		salesToCapital = revenues / investedCapital
	}

	// Margin defaults derive from the (adjusted) base margin.
	adjustedEBIT := ebit
	if capitalizeRnD {
		adjustedEBIT += rndEBITAdj
	}
	currentMargin := 0.10
	if revenues > 0 {
		currentMargin = adjustedEBIT / revenues
	}

	riskFree := data.RiskFreeRate
	if riskFree == 0 {
		riskFree = DefaultRiskFreeRate
	}
	riskFree = assumptions.float("riskfree_rate_now", riskFree)

	// Employee options: pre-computed value wins, otherwise price the
	// grant with the dilution-adjusted Black-Scholes helper.
	hasOptions := assumptions.boolean("has_employee_options", false)
	optionsValue := 0.0
	if hasOptions {
		if assumptions.has("options_value") {
			optionsValue = assumptions.float("options_value", 0.0)
		} else {
			value, err := ginzu.DilutionAdjustedOptionValue(ginzu.OptionInputs{
				StockPrice:         pick("stock_price", data.StockPrice, 0.0),
				StrikePrice:        assumptions.float("options_strike_price", 0.0),
				MaturityYears:      assumptions.float("options_maturity_years", 0.0),
				Volatility:         assumptions.float("options_volatility", 0.0),
				RiskfreeRate:       riskFree,
				OptionsOutstanding: assumptions.float("options_outstanding", 0.0),
				SharesOutstanding:  pick("shares_outstanding", data.SharesOutstanding, 1.0),
			})
			if err != nil {
				fmt.Printf("[INPUTS] option valuation failed, using 0: %v\n", err)
			} else {
				optionsValue = value
			}
		}
	}

	// Operating leases: the connector's liability backfills an explicit
	// lease debt when the switch is on.
	capitalizeLeases := assumptions.boolean("capitalize_operating_leases", false)
	leaseDebt := assumptions.float("lease_debt", 0.0)
	if capitalizeLeases && !assumptions.has("lease_debt") {
		leaseDebt = data.OperatingLeaseLiability
	}

	in := ginzu.GinzuInputs{
		RevenuesBase:       revenues,
		EBITReportedBase:   ebit,
		BookEquity:         bookEquity,
		BookDebt:           bookDebt,
		Cash:               cash,
		NonOperatingAssets: pick("non_operating_assets", data.CrossHoldings, 0.0),
		MinorityInterests:  pick("minority_interests", data.MinorityInterest, 0.0),
		SharesOutstanding:  pick("shares_outstanding", data.SharesOutstanding, 1.0),
		StockPrice:         pick("stock_price", data.StockPrice, 0.0),

		RevGrowthY1:           assumptions.float("rev_growth_y1", DefaultRevGrowth),
		RevCAGRY2_5:           assumptions.float("rev_cagr_y2_5", DefaultRevGrowth),
		MarginY1:              assumptions.float("margin_y1", currentMargin),
		MarginTarget:          assumptions.float("margin_target", currentMargin),
		MarginConvergenceYear: assumptions.integer("margin_convergence_year", DefaultMarginConvergenceYear),
		SalesToCapital1_5:     assumptions.float("sales_to_capital_1_5", salesToCapital),
		SalesToCapital6_10:    assumptions.float("sales_to_capital_6_10", salesToCapital),
		RiskfreeRateNow:       riskFree,
		WACCInitial:           assumptions.float("wacc_initial", DefaultWACCInitial),
		TaxRateEffective:      pick("tax_rate_effective", data.EffectiveTaxRate, DefaultEffectiveTaxRate),
		TaxRateMarginal:       pick("tax_rate_marginal", data.MarginalTaxRate, DefaultMarginalTaxRate),

		CapitalizeRnD:     capitalizeRnD,
		RnDAsset:          rndAsset,
		RnDEBITAdjustment: rndEBITAdj,

		CapitalizeOperatingLeases: capitalizeLeases,
		LeaseDebt:                 leaseDebt,
		LeaseEBITAdjustment:       assumptions.float("lease_ebit_adjustment", 0.0),

		HasEmployeeOptions: hasOptions,
		OptionsValue:       optionsValue,

		MatureMarketERP: assumptions.float("mature_market_erp", DefaultMatureMarketERP),

		OverrideTaxRateConvergence: assumptions.boolean("override_tax_rate_convergence", false),

		OverrideFailureProbability: assumptions.boolean("override_failure_probability", false),
		ProbabilityOfFailure:       assumptions.float("probability_of_failure", 0.0),
		DistressProceedsTie:        assumptions.str("distress_proceeds_tie", "B"),
		DistressProceedsPercent:    assumptions.float("distress_proceeds_percent", 0.0),

		HasNOLCarryforward: assumptions.boolean("has_nol_carryforward", false),
		NOLStartYear1:      assumptions.float("nol_start_year1", 0.0),

		OverrideReinvestmentLag: assumptions.boolean("override_reinvestment_lag", false),
		ReinvestmentLagYears:    assumptions.integer("reinvestment_lag_years", 1),

		OverrideTrappedCash:       assumptions.boolean("override_trapped_cash", false),
		TrappedCashAmount:         assumptions.float("trapped_cash_amount", 0.0),
		TrappedCashForeignTaxRate: assumptions.float("trapped_cash_foreign_tax_rate", 0.0),
	}

	// Fetched valuations pin the perpetual growth rate to the live
	// risk-free rate unless the caller says otherwise; direct engine
	// callers default to the engine's own resolution instead.
	in.OverridePerpetualGrowth = assumptions.boolean("override_perpetual_growth", true)
	if in.OverridePerpetualGrowth {
		rate := assumptions.float("perpetual_growth_rate", riskFree)
		in.PerpetualGrowthRate = &rate
	}

	in.OverrideRiskfreeAfterYear10 = assumptions.boolean("override_riskfree_after_year10", false)
	if assumptions.has("riskfree_rate_after10") {
		rate := assumptions.float("riskfree_rate_after10", riskFree)
		in.RiskfreeRateAfter10 = &rate
	}

	in.OverrideStableWACC = assumptions.boolean("override_stable_wacc", false)
	if assumptions.has("stable_wacc") {
		rate := assumptions.float("stable_wacc", 0.0)
		in.StableWACC = &rate
	}

	in.OverrideStableROC = assumptions.boolean("override_stable_roc", false)
	if assumptions.has("stable_roc") {
		rate := assumptions.float("stable_roc", 0.0)
		in.StableROC = &rate
	}

	return in
}
