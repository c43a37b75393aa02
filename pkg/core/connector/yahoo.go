package connector

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"fcff_valuation/pkg/core/utils"
)

const (
	yahooQuoteSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary/%s?modules=" +
		"incomeStatementHistory,incomeStatementHistoryQuarterly,balanceSheetHistoryQuarterly," +
		"defaultKeyStatistics,financialData,price,summaryProfile"
	yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%5ETNX?range=1d&interval=1d"
	yahooQuoteURL = "https://finance.yahoo.com/quote/%s"

	// Yahoo rejects the default Go user agent.
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"

	fallbackRiskFreeRate = 0.04
)

// Marginal corporate tax rates by headquarters country. Used only as the
// default marginal rate; the caller can always override it.
var marginalTaxRates = map[string]float64{
	"United States":  0.21,
	"US":             0.21,
	"Ireland":        0.125,
	"United Kingdom": 0.25,
	"China":          0.25,
	"Germany":        0.30,
	"Japan":          0.3062,
}

const defaultMarginalTaxRate = 0.25

// YahooConnector fetches fundamentals and market data from the public
// Yahoo Finance endpoints, with an HTML quote-page fallback for the
// price when the JSON API is unavailable.
type YahooConnector struct {
	client *http.Client
}

func init() {
	Register("yahoo", &YahooConnector{
		client: &http.Client{Timeout: 20 * time.Second},
	})
}

func (y *YahooConnector) fetch(url string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yahoo fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("yahoo fetch failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetFinancials returns the raw annual and quarterly statements as
// decoded JSON, keyed the way the inspection endpoint expects them.
func (y *YahooConnector) GetFinancials(ticker string) (map[string]interface{}, error) {
	body, err := y.fetch(fmt.Sprintf(yahooQuoteSummaryURL, ticker))
	if err != nil {
		return nil, err
	}
	result := gjson.Get(body, "quoteSummary.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("no financials for ticker %s", ticker)
	}
	return map[string]interface{}{
		"income_statement":           result.Get("incomeStatementHistory").Value(),
		"income_statement_quarterly": result.Get("incomeStatementHistoryQuarterly").Value(),
		"balance_sheet_quarterly":    result.Get("balanceSheetHistoryQuarterly").Value(),
	}, nil
}

// GetMarketData returns price, beta, market cap, shares, and the current
// risk-free rate.
func (y *YahooConnector) GetMarketData(ticker string) (map[string]interface{}, error) {
	body, err := y.fetch(fmt.Sprintf(yahooQuoteSummaryURL, ticker))
	if err != nil {
		return nil, err
	}
	result := gjson.Get(body, "quoteSummary.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("no market data for ticker %s", ticker)
	}

	price := result.Get("financialData.currentPrice.raw").Float()
	if price == 0 {
		price = result.Get("price.regularMarketPrice.raw").Float()
	}
	if price == 0 {
		// JSON API throttled or missing the price module: scrape it.
		if scraped, err := y.fetchPriceFromQuotePage(ticker); err == nil {
			price = scraped
		}
	}

	return map[string]interface{}{
		"price":              price,
		"beta":               result.Get("defaultKeyStatistics.beta.raw").Float(),
		"market_cap":         result.Get("price.marketCap.raw").Float(),
		"shares_outstanding": result.Get("defaultKeyStatistics.sharesOutstanding.raw").Float(),
		"risk_free_rate":     y.riskFreeRate(),
	}, nil
}

// GetValuationInputs fetches and normalizes the full engine feed.
func (y *YahooConnector) GetValuationInputs(ticker string) (*CompanyData, error) {
	body, err := y.fetch(fmt.Sprintf(yahooQuoteSummaryURL, ticker))
	if err != nil {
		return nil, err
	}
	data, err := parseYahooValuationInputs(body, ticker)
	if err != nil {
		return nil, err
	}
	data.RiskFreeRate = y.riskFreeRate()

	if data.StockPrice == 0 {
		if scraped, err := y.fetchPriceFromQuotePage(ticker); err == nil {
			data.StockPrice = scraped
		}
	}
	return data, nil
}

// parseYahooValuationInputs normalizes a quoteSummary payload. Split out
// from the fetch so it can be exercised on fixtures.
func parseYahooValuationInputs(body, ticker string) (*CompanyData, error) {
	result := gjson.Get(body, "quoteSummary.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("no valuation data for ticker %s", ticker)
	}

	data := &CompanyData{}

	// Flows: LTM from the trailing four quarters, annual fallback when
	// the quarterly history is short.
	quarters := result.Get("incomeStatementHistoryQuarterly.incomeStatementHistory").Array()
	annuals := result.Get("incomeStatementHistory.incomeStatementHistory").Array()

	var taxExpense, preTaxIncome float64
	if len(quarters) >= 4 {
		data.RevenuesBase = sumQuarters(quarters, "totalRevenue")
		data.EBITReportedBase = sumQuarters(quarters, "operatingIncome")
		data.RnDExpense = sumQuarters(quarters, "researchDevelopment")
		taxExpense = sumQuarters(quarters, "incomeTaxExpense")
		preTaxIncome = sumQuarters(quarters, "incomeBeforeTax")
	} else if len(annuals) > 0 {
		data.RevenuesBase = annuals[0].Get("totalRevenue.raw").Float()
		data.EBITReportedBase = annuals[0].Get("operatingIncome.raw").Float()
		data.RnDExpense = annuals[0].Get("researchDevelopment.raw").Float()
		taxExpense = annuals[0].Get("incomeTaxExpense.raw").Float()
		preTaxIncome = annuals[0].Get("incomeBeforeTax.raw").Float()
	}

	// R&D history, newest first, for the capitalization worksheet.
	for _, year := range annuals {
		data.RnDHistory = append(data.RnDHistory, year.Get("researchDevelopment.raw").Float())
	}

	// Stocks: most recent quarter.
	balance := result.Get("balanceSheetHistoryQuarterly.balanceSheetStatements.0")
	if balance.Exists() {
		equity := balance.Get("totalStockholderEquity.raw").Float()
		minority := balance.Get("minorityInterest.raw").Float()
		data.BookEquity = equity + minority
		if minority > 0 {
			data.MinorityInterest = minority
		}

		data.BookDebt = balance.Get("shortLongTermDebt.raw").Float() +
			balance.Get("longTermDebt.raw").Float()
		data.Cash = balance.Get("cash.raw").Float() +
			balance.Get("shortTermInvestments.raw").Float()
		data.CrossHoldings = balance.Get("longTermInvestments.raw").Float()
	}

	data.SharesOutstanding = result.Get("defaultKeyStatistics.sharesOutstanding.raw").Float()
	data.StockPrice = result.Get("financialData.currentPrice.raw").Float()
	if data.StockPrice == 0 {
		data.StockPrice = result.Get("price.regularMarketPrice.raw").Float()
	}

	country := result.Get("summaryProfile.country").String()
	data.MarginalTaxRate = defaultMarginalTaxRate
	if rate, ok := marginalTaxRates[country]; ok {
		data.MarginalTaxRate = rate
	}
	data.EffectiveTaxRate = clampEffectiveTaxRate(taxExpense, preTaxIncome, data.MarginalTaxRate)

	return data, nil
}

func sumQuarters(quarters []gjson.Result, field string) float64 {
	total := 0.0
	limit := len(quarters)
	if limit > 4 {
		limit = 4
	}
	for i := 0; i < limit; i++ {
		total += quarters[i].Get(field + ".raw").Float()
	}
	return total
}

// clampEffectiveTaxRate derives the effective rate from the tax line,
// clamping tax credits to zero and confiscatory artifacts to the
// marginal rate.
func clampEffectiveTaxRate(taxExpense, preTaxIncome, marginal float64) float64 {
	if preTaxIncome == 0 {
		return 0.0
	}
	rate := taxExpense / preTaxIncome
	switch {
	case rate < 0:
		return 0.0
	case rate > 1:
		return marginal
	default:
		return rate
	}
}

// fetchPriceFromQuotePage scrapes the quote page for the embedded data
// blob. The blob is frequently truncated mid-string by the server, so it
// goes through repair before parsing.
func (y *YahooConnector) fetchPriceFromQuotePage(ticker string) (float64, error) {
	body, err := y.fetch(fmt.Sprintf(yahooQuoteURL, ticker))
	if err != nil {
		return 0, err
	}
	return extractQuotePagePrice(body, ticker)
}

func extractQuotePagePrice(html, ticker string) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("quote page parse failed: %w", err)
	}

	var price float64
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, `"regularMarketPrice"`)
		if idx < 0 {
			return true
		}
		// Carve out a window around the field and repair it into a
		// standalone object gjson can read.
		end := idx + 200
		if end > len(text) {
			end = len(text)
		}
		fragment := "{" + text[idx:end]
		repaired := utils.SanitizeFragment(fragment)
		if v := gjson.Get(repaired, "regularMarketPrice.raw"); v.Exists() {
			price = v.Float()
			return false
		}
		if v := gjson.Get(repaired, "regularMarketPrice"); v.Exists() && v.Type == gjson.Number {
			price = v.Float()
			return false
		}
		return true
	})

	if price == 0 {
		return 0, fmt.Errorf("no price found on quote page for %s", ticker)
	}
	return price, nil
}

func (y *YahooConnector) riskFreeRate() float64 {
	body, err := y.fetch(yahooChartURL)
	if err != nil {
		return fallbackRiskFreeRate
	}
	yield := gjson.Get(body, "chart.result.0.meta.regularMarketPrice").Float()
	if yield <= 0 {
		return fallbackRiskFreeRate
	}
	// ^TNX quotes the 10Y yield in percent.
	return yield / 100.0
}
