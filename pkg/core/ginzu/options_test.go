package ginzu_test

import (
	"errors"
	"math"
	"testing"

	"fcff_valuation/pkg/core/ginzu"
)

func TestOptionValueTextbookCase(t *testing.T) {
	// With strike == price, the dilution adjustment is the identity:
	// S* = (100*1e9 + 100*1)/(1e9+1) = 100. The remaining call is the
	// textbook BS(100, 100, r=5%, sigma=20%, T=1) = 10.4506.
	value, err := ginzu.DilutionAdjustedOptionValue(ginzu.OptionInputs{
		StockPrice:         100.0,
		StrikePrice:        100.0,
		MaturityYears:      1.0,
		Volatility:         0.20,
		RiskfreeRate:       0.05,
		OptionsOutstanding: 1.0,
		SharesOutstanding:  1e9,
	})
	if err != nil {
		t.Fatalf("DilutionAdjustedOptionValue: %v", err)
	}
	if math.Abs(value-10.4506) > 1e-3 {
		t.Errorf("got %v, want ~10.4506", value)
	}
}

func TestOptionValueDilutionLowersPrice(t *testing.T) {
	// In-the-money grant: a large option overhang struck below spot drags
	// the adjusted price below spot, so the diluted valuation is strictly
	// cheaper than the naive one.
	base := ginzu.OptionInputs{
		StockPrice:         50.0,
		StrikePrice:        30.0,
		MaturityYears:      4.0,
		Volatility:         0.35,
		RiskfreeRate:       0.04,
		OptionsOutstanding: 100.0,
		SharesOutstanding:  1000.0,
	}
	diluted, err := ginzu.DilutionAdjustedOptionValue(base)
	if err != nil {
		t.Fatalf("DilutionAdjustedOptionValue: %v", err)
	}

	tiny := base
	tiny.OptionsOutstanding = 1e-9
	perOptionUndiluted, err := ginzu.DilutionAdjustedOptionValue(tiny)
	if err != nil {
		t.Fatalf("DilutionAdjustedOptionValue: %v", err)
	}
	undilutedScaled := perOptionUndiluted / 1e-9 * 100.0
	if diluted >= undilutedScaled {
		t.Errorf("dilution should reduce value: %v >= %v", diluted, undilutedScaled)
	}
	if diluted <= 0 {
		t.Errorf("in-the-money grant should carry value, got %v", diluted)
	}
}

func TestOptionValueNearZeroVolatility(t *testing.T) {
	// As sigma -> 0 with r = 0, the call collapses to max(S*-K, 0).
	in := ginzu.OptionInputs{
		StockPrice:         80.0,
		StrikePrice:        20.0,
		MaturityYears:      1.0,
		Volatility:         1e-8,
		RiskfreeRate:       0.0,
		OptionsOutstanding: 10.0,
		SharesOutstanding:  990.0,
	}
	// S* = (80*990 + 20*10)/1000 = 79.4; intrinsic = 59.4 per option.
	value, err := ginzu.DilutionAdjustedOptionValue(in)
	if err != nil {
		t.Fatalf("DilutionAdjustedOptionValue: %v", err)
	}
	if math.Abs(value-594.0) > 1e-3 {
		t.Errorf("got %v, want ~594", value)
	}
}

func TestOptionValueDegenerateInputs(t *testing.T) {
	base := ginzu.OptionInputs{
		StockPrice:         50.0,
		StrikePrice:        40.0,
		MaturityYears:      2.0,
		Volatility:         0.3,
		RiskfreeRate:       0.04,
		OptionsOutstanding: 100.0,
		SharesOutstanding:  1000.0,
	}

	cases := []struct {
		name   string
		mutate func(*ginzu.OptionInputs)
	}{
		{"zero maturity", func(in *ginzu.OptionInputs) { in.MaturityYears = 0 }},
		{"zero volatility", func(in *ginzu.OptionInputs) { in.Volatility = 0 }},
		{"zero strike", func(in *ginzu.OptionInputs) { in.StrikePrice = 0 }},
		{"no options", func(in *ginzu.OptionInputs) { in.OptionsOutstanding = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			value, err := ginzu.DilutionAdjustedOptionValue(in)
			if err != nil {
				t.Fatalf("DilutionAdjustedOptionValue: %v", err)
			}
			if value != 0 {
				t.Errorf("degenerate input should value to 0, got %v", value)
			}
		})
	}

	in := base
	in.SharesOutstanding = 0
	_, err := ginzu.DilutionAdjustedOptionValue(in)
	var inputErr *ginzu.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("want *InputError for zero shares, got %v", err)
	}
}
