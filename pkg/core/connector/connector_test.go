package connector

import (
	"math"
	"testing"
)

// A trimmed quoteSummary payload: four quarters of flows, one MRQ
// balance sheet, key statistics, and a profile.
const yahooFixture = `{
  "quoteSummary": {
    "result": [
      {
        "incomeStatementHistoryQuarterly": {
          "incomeStatementHistory": [
            {"totalRevenue": {"raw": 100.0}, "operatingIncome": {"raw": 10.0}, "researchDevelopment": {"raw": 5.0}, "incomeTaxExpense": {"raw": 2.0}, "incomeBeforeTax": {"raw": 11.0}},
            {"totalRevenue": {"raw": 90.0}, "operatingIncome": {"raw": 9.0}, "researchDevelopment": {"raw": 4.0}, "incomeTaxExpense": {"raw": 1.5}, "incomeBeforeTax": {"raw": 10.0}},
            {"totalRevenue": {"raw": 80.0}, "operatingIncome": {"raw": 8.0}, "researchDevelopment": {"raw": 4.0}, "incomeTaxExpense": {"raw": 1.5}, "incomeBeforeTax": {"raw": 9.0}},
            {"totalRevenue": {"raw": 70.0}, "operatingIncome": {"raw": 7.0}, "researchDevelopment": {"raw": 3.0}, "incomeTaxExpense": {"raw": 1.0}, "incomeBeforeTax": {"raw": 8.0}}
          ]
        },
        "incomeStatementHistory": {
          "incomeStatementHistory": [
            {"totalRevenue": {"raw": 320.0}, "researchDevelopment": {"raw": 15.0}},
            {"totalRevenue": {"raw": 280.0}, "researchDevelopment": {"raw": 12.0}}
          ]
        },
        "balanceSheetHistoryQuarterly": {
          "balanceSheetStatements": [
            {
              "totalStockholderEquity": {"raw": 500.0},
              "minorityInterest": {"raw": 20.0},
              "shortLongTermDebt": {"raw": 30.0},
              "longTermDebt": {"raw": 170.0},
              "cash": {"raw": 60.0},
              "shortTermInvestments": {"raw": 40.0},
              "longTermInvestments": {"raw": 15.0}
            }
          ]
        },
        "defaultKeyStatistics": {"sharesOutstanding": {"raw": 1000.0}},
        "financialData": {"currentPrice": {"raw": 42.5}},
        "summaryProfile": {"country": "Ireland"}
      }
    ]
  }
}`

func TestParseYahooValuationInputs(t *testing.T) {
	data, err := parseYahooValuationInputs(yahooFixture, "TEST")
	if err != nil {
		t.Fatalf("parseYahooValuationInputs: %v", err)
	}

	// LTM flows sum the four quarters: 100+90+80+70 = 340 revenue.
	if data.RevenuesBase != 340.0 {
		t.Errorf("revenues: got %v, want 340", data.RevenuesBase)
	}
	if data.EBITReportedBase != 34.0 {
		t.Errorf("ebit: got %v, want 34", data.EBITReportedBase)
	}
	if data.RnDExpense != 16.0 {
		t.Errorf("rnd: got %v, want 16", data.RnDExpense)
	}

	// MRQ stocks: equity grossed up with minority interest.
	if data.BookEquity != 520.0 {
		t.Errorf("book equity: got %v, want 520", data.BookEquity)
	}
	if data.MinorityInterest != 20.0 {
		t.Errorf("minority: got %v, want 20", data.MinorityInterest)
	}
	if data.BookDebt != 200.0 {
		t.Errorf("debt: got %v, want 200", data.BookDebt)
	}
	if data.Cash != 100.0 {
		t.Errorf("cash: got %v, want 100", data.Cash)
	}

	if data.SharesOutstanding != 1000.0 || data.StockPrice != 42.5 {
		t.Errorf("shares/price: got %v / %v", data.SharesOutstanding, data.StockPrice)
	}

	// Ireland maps to the 12.5% marginal rate; effective = 6/38.
	if data.MarginalTaxRate != 0.125 {
		t.Errorf("marginal tax: got %v, want 0.125", data.MarginalTaxRate)
	}
	if math.Abs(data.EffectiveTaxRate-6.0/38.0) > 1e-12 {
		t.Errorf("effective tax: got %v, want %v", data.EffectiveTaxRate, 6.0/38.0)
	}

	// Annual R&D history, newest first.
	if len(data.RnDHistory) != 2 || data.RnDHistory[0] != 15.0 || data.RnDHistory[1] != 12.0 {
		t.Errorf("rnd history: got %v", data.RnDHistory)
	}
}

func TestParseYahooAnnualFallback(t *testing.T) {
	// Only two quarters available: flows fall back to the latest annual.
	const short = `{
	  "quoteSummary": {"result": [{
	    "incomeStatementHistoryQuarterly": {"incomeStatementHistory": [
	      {"totalRevenue": {"raw": 100.0}}, {"totalRevenue": {"raw": 90.0}}
	    ]},
	    "incomeStatementHistory": {"incomeStatementHistory": [
	      {"totalRevenue": {"raw": 320.0}, "operatingIncome": {"raw": 32.0}}
	    ]}
	  }]}
	}`
	data, err := parseYahooValuationInputs(short, "TEST")
	if err != nil {
		t.Fatalf("parseYahooValuationInputs: %v", err)
	}
	if data.RevenuesBase != 320.0 || data.EBITReportedBase != 32.0 {
		t.Errorf("annual fallback: got rev %v ebit %v", data.RevenuesBase, data.EBITReportedBase)
	}
}

func TestParseYahooEmptyPayload(t *testing.T) {
	if _, err := parseYahooValuationInputs(`{"quoteSummary":{"result":[]}}`, "NONE"); err == nil {
		t.Error("expected error for empty result set")
	}
}

func TestExtractQuotePagePrice(t *testing.T) {
	// The embedded blob is cut off mid-object; repair has to close it.
	const page = `<html><body>
	<script>window.__data = {"quoteData":{"TEST":{"regularMarketPrice":{"raw":187.44,"fmt":"187.44"},"currency":"USD","exchangeTimez</script>
	</body></html>`

	price, err := extractQuotePagePrice(page, "TEST")
	if err != nil {
		t.Fatalf("extractQuotePagePrice: %v", err)
	}
	if math.Abs(price-187.44) > 1e-9 {
		t.Errorf("price: got %v, want 187.44", price)
	}
}

const secFixture = `{
  "entityName": "TEST CORP",
  "facts": {
    "dei": {
      "EntityCommonStockSharesOutstanding": {"units": {"shares": [
        {"end": "2023-06-30", "val": 900},
        {"end": "2024-06-30", "val": 1000}
      ]}}
    },
    "us-gaap": {
      "Revenues": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2022-12-31", "val": 800},
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 1000},
        {"form": "10-Q", "fp": "Q2", "end": "2024-06-30", "val": 550}
      ]}},
      "OperatingIncomeLoss": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 150}
      ]}},
      "ResearchAndDevelopmentExpense": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2021-12-31", "val": 40},
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 60},
        {"form": "10-K", "fp": "FY", "end": "2022-12-31", "val": 50}
      ]}},
      "StockholdersEquity": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 600}
      ]}},
      "LongTermDebtNoncurrent": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 250}
      ]}},
      "CashAndCashEquivalentsAtCarryingValue": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 120}
      ]}},
      "IncomeTaxExpenseBenefit": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 30}
      ]}},
      "IncomeLossFromContinuingOperationsBeforeIncomeTaxesExtraordinaryItemsNoncontrollingInterest": {"units": {"USD": [
        {"form": "10-K", "fp": "FY", "end": "2023-12-31", "val": 140}
      ]}}
    }
  }
}`

func TestParseSECValuationInputs(t *testing.T) {
	data, err := parseSECValuationInputs(secFixture, "TEST")
	if err != nil {
		t.Fatalf("parseSECValuationInputs: %v", err)
	}

	if data.RevenuesBase != 1000.0 {
		t.Errorf("revenues should pick the latest FY 10-K: got %v", data.RevenuesBase)
	}
	if data.EBITReportedBase != 150.0 {
		t.Errorf("ebit: got %v", data.EBITReportedBase)
	}
	if data.BookEquity != 600.0 || data.BookDebt != 250.0 || data.Cash != 120.0 {
		t.Errorf("stocks: equity %v debt %v cash %v", data.BookEquity, data.BookDebt, data.Cash)
	}
	if data.SharesOutstanding != 1000.0 {
		t.Errorf("shares should pick the latest instant: got %v", data.SharesOutstanding)
	}

	// History newest first regardless of filing order in the payload.
	want := []float64{60, 50, 40}
	if len(data.RnDHistory) != 3 {
		t.Fatalf("rnd history: got %v", data.RnDHistory)
	}
	for i := range want {
		if data.RnDHistory[i] != want[i] {
			t.Errorf("rnd history[%d]: got %v, want %v", i, data.RnDHistory[i], want[i])
		}
	}

	if math.Abs(data.EffectiveTaxRate-30.0/140.0) > 1e-12 {
		t.Errorf("effective tax: got %v", data.EffectiveTaxRate)
	}
}

func TestFindCIK(t *testing.T) {
	const index = `{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."},"1":{"cik_str":1018724,"ticker":"AMZN","title":"AMAZON COM INC"}}`

	cik, err := findCIK(index, "amzn")
	if err != nil {
		t.Fatalf("findCIK: %v", err)
	}
	if cik != "0001018724" {
		t.Errorf("cik: got %s, want 0001018724", cik)
	}
	if _, err := findCIK(index, "MSFT"); err == nil {
		t.Error("expected error for unknown ticker")
	}
}

func TestConnectorRegistry(t *testing.T) {
	if _, err := Get("yahoo"); err != nil {
		t.Errorf("yahoo connector should be registered: %v", err)
	}
	if _, err := Get("sec"); err != nil {
		t.Errorf("sec connector should be registered: %v", err)
	}
	if _, err := Get("bloomberg"); err == nil {
		t.Error("expected error for unregistered connector")
	}
}

func TestClampEffectiveTaxRate(t *testing.T) {
	if got := clampEffectiveTaxRate(0, 0, 0.25); got != 0 {
		t.Errorf("zero pre-tax income: got %v", got)
	}
	if got := clampEffectiveTaxRate(-5, 100, 0.25); got != 0 {
		t.Errorf("tax credit clamps to 0: got %v", got)
	}
	if got := clampEffectiveTaxRate(150, 100, 0.25); got != 0.25 {
		t.Errorf("confiscatory artifact clamps to marginal: got %v", got)
	}
	if got := clampEffectiveTaxRate(21, 100, 0.25); got != 0.21 {
		t.Errorf("normal rate passes through: got %v", got)
	}
}
