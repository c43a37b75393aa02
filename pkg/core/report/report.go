// Package report renders a valuation into a markdown tableau and, for
// the API, into HTML. Formatting is display-only: the engine's float64
// outputs are rounded here and nowhere else.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"fcff_valuation/pkg/core/ginzu"
)

// BuildMarkdown lays out the headline bridge and the year-by-year
// forecast table for a completed valuation.
func BuildMarkdown(ticker string, out *ginzu.GinzuOutputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# FCFF Valuation: %s\n\n", ticker)

	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| PV of explicit FCFF (10y) | %s |\n", money(out.PV10Y))
	fmt.Fprintf(&b, "| PV of terminal value | %s |\n", money(out.PVTerminalValue))
	fmt.Fprintf(&b, "| Value of operating assets | %s |\n", money(out.ValueOfOperatingAssets))
	fmt.Fprintf(&b, "| Debt | %s |\n", money(out.Debt))
	fmt.Fprintf(&b, "| Cash (adjusted) | %s |\n", money(out.CashAdjusted))
	fmt.Fprintf(&b, "| Value of equity | %s |\n", money(out.ValueOfEquity))
	fmt.Fprintf(&b, "| Value of equity (common) | %s |\n", money(out.ValueOfEquityCommon))
	fmt.Fprintf(&b, "| Estimated value / share | %s |\n", money(out.EstimatedValuePerShare))
	if out.PriceAsPercentOfValue != 0 {
		fmt.Fprintf(&b, "| Price as %% of value | %s |\n", percent(out.PriceAsPercentOfValue))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Stable state: g = %s, WACC = %s, ROC = %s, tax = %s\n\n",
		percent(out.PerpetualGrowthRate), percent(out.StableWACC),
		percent(out.StableROC), percent(out.TerminalTaxRate))

	// Forecast tableau, one row per series. Year columns 1..10 plus the
	// terminal column; base-indexed series skip their base slot here.
	b.WriteString("| Series | Y1 | Y2 | Y3 | Y4 | Y5 | Y6 | Y7 | Y8 | Y9 | Y10 | Terminal |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	writeRow(&b, "Revenue growth", out.GrowthRates, 0, percent)
	writeRow(&b, "Revenues", out.Revenues, 1, money)
	writeRow(&b, "EBIT margin", out.Margins, 1, percent)
	writeRow(&b, "EBIT", out.EBIT, 1, money)
	writeRow(&b, "Tax rate", out.TaxRates, 1, percent)
	writeRow(&b, "EBIT (1-t)", out.EBITAfterTax, 1, money)
	writeRow(&b, "Reinvestment", out.Reinvestment, 0, money)
	writeRow(&b, "FCFF", out.FCFF, 0, money)
	writeRow(&b, "Cost of capital", out.WACC, 0, percent)
	writeRow(&b, "Discount factor", out.DiscountFactors, 0, factor)
	writeRow(&b, "PV (FCFF)", out.PVFCFF, 0, money)

	return b.String()
}

// writeRow emits eleven columns starting at offset (to skip base-year
// slots), padding with blanks when a series has no terminal value.
func writeRow(b *strings.Builder, label string, series []float64, offset int, format func(float64) string) {
	fmt.Fprintf(b, "| %s |", label)
	for i := 0; i < 11; i++ {
		idx := offset + i
		if idx < len(series) {
			fmt.Fprintf(b, " %s |", format(series[idx]))
		} else {
			b.WriteString("  |")
		}
	}
	b.WriteString("\n")
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a markdown report to HTML (GFM tables enabled).
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("markdown render failed: %w", err)
	}
	return buf.String(), nil
}

// money rounds a currency amount to one decimal with thousands intact.
func money(v float64) string {
	return decimal.NewFromFloat(v).Round(1).String()
}

func percent(v float64) string {
	return decimal.NewFromFloat(v * 100).Round(2).String() + "%"
}

func factor(v float64) string {
	return decimal.NewFromFloat(v).Round(4).String()
}
