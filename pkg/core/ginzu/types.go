// Package ginzu implements the FCFF "Simple Ginzu" valuation engine:
// ten explicit forecast years plus a stable-growth terminal year, folded
// into a single per-share equity value with spreadsheet-faithful
// arithmetic.
//
// The engine is pure: it performs no I/O, reads no clocks, and keeps no
// state between calls. Callers populate a GinzuInputs record (typically
// via the inputs builder) and receive a GinzuOutputs record containing
// every intermediate series alongside the headline values.
package ginzu

// ForecastYears is the number of explicit forecast years.
const ForecastYears = 10

// StableTransitionYears is the length of the fade from the Year-5 state
// to the stable state (growth, tax rate, WACC all interpolate over it).
const StableTransitionYears = 5

// Canonical engine-side defaults, applied by Canonicalize for fields the
// caller left unspecified.
const (
	DefaultMatureMarketERP     = 0.0433
	DefaultDistressProceedsTie = "B"
	DefaultReinvestmentLag     = 1
)

// GinzuInputs is the immutable configuration bundle consumed by Compute.
// All currency amounts must share one unit (e.g. millions), with
// SharesOutstanding on the same scale so the per-share output lands in
// currency per share.
//
// The four overrides whose payload has no meaningful zero value carry
// pointer payloads: the switch on with a nil payload is an input error,
// while the switch off simply ignores whatever payload is present.
type GinzuInputs struct {
	// Base-year snapshot
	RevenuesBase       float64 `json:"revenues_base"`
	EBITReportedBase   float64 `json:"ebit_reported_base"`
	BookEquity         float64 `json:"book_equity"`
	BookDebt           float64 `json:"book_debt"`
	Cash               float64 `json:"cash"`
	NonOperatingAssets float64 `json:"non_operating_assets"`
	MinorityInterests  float64 `json:"minority_interests"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
	StockPrice         float64 `json:"stock_price"` // informational

	// Core levers
	RevGrowthY1           float64 `json:"rev_growth_y1"`
	RevCAGRY2_5           float64 `json:"rev_cagr_y2_5"`
	MarginY1              float64 `json:"margin_y1"`
	MarginTarget          float64 `json:"margin_target"`
	MarginConvergenceYear int     `json:"margin_convergence_year"`
	SalesToCapital1_5     float64 `json:"sales_to_capital_1_5"`
	SalesToCapital6_10    float64 `json:"sales_to_capital_6_10"`
	RiskfreeRateNow       float64 `json:"riskfree_rate_now"`
	WACCInitial           float64 `json:"wacc_initial"`
	TaxRateEffective      float64 `json:"tax_rate_effective"`
	TaxRateMarginal       float64 `json:"tax_rate_marginal"`

	// Optional-module switches
	CapitalizeRnD             bool `json:"capitalize_rnd"`
	CapitalizeOperatingLeases bool `json:"capitalize_operating_leases"`
	HasEmployeeOptions        bool `json:"has_employee_options"`

	// Overrides
	OverrideStableWACC bool     `json:"override_stable_wacc"`
	StableWACC         *float64 `json:"stable_wacc,omitempty"`

	OverrideTaxRateConvergence bool `json:"override_tax_rate_convergence"`

	OverridePerpetualGrowth bool     `json:"override_perpetual_growth"`
	PerpetualGrowthRate     *float64 `json:"perpetual_growth_rate,omitempty"`

	OverrideRiskfreeAfterYear10 bool     `json:"override_riskfree_after_year10"`
	RiskfreeRateAfter10         *float64 `json:"riskfree_rate_after10,omitempty"`

	OverrideStableROC bool     `json:"override_stable_roc"`
	StableROC         *float64 `json:"stable_roc,omitempty"`

	OverrideFailureProbability bool    `json:"override_failure_probability"`
	ProbabilityOfFailure       float64 `json:"probability_of_failure"`
	DistressProceedsTie        string  `json:"distress_proceeds_tie"` // "B" or "V"
	DistressProceedsPercent    float64 `json:"distress_proceeds_percent"`

	HasNOLCarryforward bool    `json:"has_nol_carryforward"`
	NOLStartYear1      float64 `json:"nol_start_year1"`

	OverrideReinvestmentLag bool `json:"override_reinvestment_lag"`
	ReinvestmentLagYears    int  `json:"reinvestment_lag_years"` // 0..3

	OverrideTrappedCash       bool    `json:"override_trapped_cash"`
	TrappedCashAmount         float64 `json:"trapped_cash_amount"`
	TrappedCashForeignTaxRate float64 `json:"trapped_cash_foreign_tax_rate"`

	// Optional-module payloads (pre-computed adjustment outputs)
	LeaseDebt           float64 `json:"lease_debt"`
	LeaseEBITAdjustment float64 `json:"lease_ebit_adjustment"`
	RnDAsset            float64 `json:"rnd_asset"`
	RnDEBITAdjustment   float64 `json:"rnd_ebit_adjustment"`
	OptionsValue        float64 `json:"options_value"`

	// MatureMarketERP is used to derive the stable WACC when it is not
	// overridden.
	MatureMarketERP float64 `json:"mature_market_erp"`
}

// GinzuOutputs is the full valuation tableau. Series layouts follow the
// reference model: base-year-inclusive where the sheet carries a base
// column, with the terminal slot appended where one exists.
type GinzuOutputs struct {
	Revenues        []float64 `json:"revenues"`         // base, years 1..10, terminal
	GrowthRates     []float64 `json:"growth_rates"`     // years 1..10, terminal
	Margins         []float64 `json:"margins"`          // base, years 1..10, terminal
	EBIT            []float64 `json:"ebit"`             // base, years 1..10, terminal
	TaxRates        []float64 `json:"tax_rates"`        // base, years 1..10, terminal
	NOL             []float64 `json:"nol"`              // base, years 1..10
	EBITAfterTax    []float64 `json:"ebit_after_tax"`   // base, years 1..10, terminal
	SalesToCapital  []float64 `json:"sales_to_capital"` // years 1..10
	Reinvestment    []float64 `json:"reinvestment"`     // years 1..10, terminal
	FCFF            []float64 `json:"fcff"`             // years 1..10, terminal
	WACC            []float64 `json:"wacc"`             // years 1..10, stable
	DiscountFactors []float64 `json:"discount_factors"` // years 1..10
	PVFCFF          []float64 `json:"pv_fcff"`          // years 1..10

	PV10Y            float64 `json:"pv_10y"`
	TerminalCashFlow float64 `json:"terminal_cash_flow"`
	TerminalValue    float64 `json:"terminal_value"`
	PVTerminalValue  float64 `json:"pv_terminal_value"`
	PVSum            float64 `json:"pv_sum"`

	// Stable-state parameters actually used
	PerpetualGrowthRate float64 `json:"perpetual_growth_rate"`
	StableWACC          float64 `json:"stable_wacc"`
	StableROC           float64 `json:"stable_roc"`
	TerminalTaxRate     float64 `json:"terminal_tax_rate"`

	ProbabilityOfFailure   float64 `json:"probability_of_failure"`
	ProceedsIfFailure      float64 `json:"proceeds_if_failure"`
	ValueOfOperatingAssets float64 `json:"value_of_operating_assets"`

	Debt                   float64 `json:"debt"`
	CashAdjusted           float64 `json:"cash_adjusted"`
	ValueOfEquity          float64 `json:"value_of_equity"`
	OptionsValue           float64 `json:"options_value"`
	ValueOfEquityCommon    float64 `json:"value_of_equity_common"`
	EstimatedValuePerShare float64 `json:"estimated_value_per_share"`
	PriceAsPercentOfValue  float64 `json:"price_as_percent_of_value"`
}
