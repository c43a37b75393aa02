package connector

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	secTickersURL      = "https://www.sec.gov/files/company_tickers.json"
	secCompanyFactsURL = "https://data.sec.gov/api/xbrl/companyfacts/CIK%s.json"

	// SEC requires a declared contact in the user agent.
	secUserAgent = "fcff_valuation/1.0 (valuation-research; contact: admin@example.com)"
)

// SECConnector pulls fundamentals from the SEC XBRL companyfacts API.
// The SEC publishes no market data, so valuations sourced here rely on
// assumption overrides (or another connector) for price.
type SECConnector struct {
	client *http.Client

	// ticker -> zero-padded CIK, filled lazily from company_tickers.json
	cikCache map[string]string
}

func init() {
	Register("sec", &SECConnector{
		client:   &http.Client{Timeout: 30 * time.Second},
		cikCache: map[string]string{},
	})
}

func (s *SECConnector) fetch(url string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", secUserAgent)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sec fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sec fetch failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// LookupCIK resolves a ticker symbol to its zero-padded CIK.
func (s *SECConnector) LookupCIK(ticker string) (string, error) {
	ticker = strings.ToUpper(ticker)
	if cik, ok := s.cikCache[ticker]; ok {
		return cik, nil
	}

	body, err := s.fetch(secTickersURL)
	if err != nil {
		return "", err
	}
	cik, err := findCIK(body, ticker)
	if err != nil {
		return "", err
	}
	s.cikCache[ticker] = cik
	return cik, nil
}

// findCIK scans the company_tickers.json index (an object of numbered
// entries) for the ticker.
func findCIK(body, ticker string) (string, error) {
	var cik string
	gjson.Parse(body).ForEach(func(_, entry gjson.Result) bool {
		if strings.EqualFold(entry.Get("ticker").String(), ticker) {
			cik = fmt.Sprintf("%010d", entry.Get("cik_str").Int())
			return false
		}
		return true
	})
	if cik == "" {
		return "", fmt.Errorf("ticker %s not found in SEC index", ticker)
	}
	return cik, nil
}

func (s *SECConnector) GetFinancials(ticker string) (map[string]interface{}, error) {
	cik, err := s.LookupCIK(ticker)
	if err != nil {
		return nil, err
	}
	body, err := s.fetch(fmt.Sprintf(secCompanyFactsURL, cik))
	if err != nil {
		return nil, err
	}
	facts := gjson.Get(body, "facts.us-gaap")
	if !facts.Exists() {
		return nil, fmt.Errorf("no us-gaap facts for %s (CIK %s)", ticker, cik)
	}
	return map[string]interface{}{
		"cik":        cik,
		"entity":     gjson.Get(body, "entityName").String(),
		"us_gaap":    facts.Value(),
		"fact_count": len(facts.Map()),
	}, nil
}

// GetMarketData: the SEC has no price feed; callers pair this connector
// with assumption overrides.
func (s *SECConnector) GetMarketData(ticker string) (map[string]interface{}, error) {
	return nil, fmt.Errorf("sec connector provides no market data; supply price via assumptions")
}

func (s *SECConnector) GetValuationInputs(ticker string) (*CompanyData, error) {
	cik, err := s.LookupCIK(ticker)
	if err != nil {
		return nil, err
	}
	body, err := s.fetch(fmt.Sprintf(secCompanyFactsURL, cik))
	if err != nil {
		return nil, err
	}
	return parseSECValuationInputs(body, ticker)
}

// parseSECValuationInputs normalizes a companyfacts payload. Flows use
// the latest annual (10-K) filing, stocks the latest reported instant.
func parseSECValuationInputs(body, ticker string) (*CompanyData, error) {
	facts := gjson.Get(body, "facts.us-gaap")
	if !facts.Exists() {
		return nil, fmt.Errorf("no us-gaap facts for ticker %s", ticker)
	}

	data := &CompanyData{}

	data.RevenuesBase = latestAnnualFact(facts,
		"RevenueFromContractWithCustomerExcludingAssessedTax", "Revenues", "SalesRevenueNet")
	data.EBITReportedBase = latestAnnualFact(facts, "OperatingIncomeLoss")
	data.RnDExpense = latestAnnualFact(facts, "ResearchAndDevelopmentExpense")
	data.RnDHistory = annualFactHistory(facts, "ResearchAndDevelopmentExpense", 10)

	data.BookEquity = latestFact(facts, "StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest")
	if data.BookEquity == 0 {
		data.BookEquity = latestFact(facts, "StockholdersEquity")
	}
	data.MinorityInterest = latestFact(facts, "MinorityInterest")

	data.BookDebt = latestFact(facts, "LongTermDebtNoncurrent") +
		latestFact(facts, "LongTermDebtCurrent")
	if data.BookDebt == 0 {
		data.BookDebt = latestFact(facts, "LongTermDebt")
	}
	data.Cash = latestFact(facts, "CashAndCashEquivalentsAtCarryingValue") +
		latestFact(facts, "ShortTermInvestments")
	data.CrossHoldings = latestFact(facts, "EquityMethodInvestments")
	data.OperatingLeaseLiability = latestFact(facts, "OperatingLeaseLiability")

	data.SharesOutstanding = latestDEIShares(body)

	taxExpense := latestAnnualFact(facts, "IncomeTaxExpenseBenefit")
	preTax := latestAnnualFact(facts,
		"IncomeLossFromContinuingOperationsBeforeIncomeTaxesExtraordinaryItemsNoncontrollingInterest",
		"IncomeLossFromContinuingOperationsBeforeIncomeTaxesMinorityInterestAndIncomeLossFromEquityMethodInvestments")
	data.MarginalTaxRate = marginalTaxRates["United States"]
	data.EffectiveTaxRate = clampEffectiveTaxRate(taxExpense, preTax, data.MarginalTaxRate)
	data.RiskFreeRate = fallbackRiskFreeRate

	return data, nil
}

// latestAnnualFact returns the most recent 10-K (FY) value among the
// candidate tags, in USD.
func latestAnnualFact(facts gjson.Result, tags ...string) float64 {
	for _, tag := range tags {
		units := facts.Get(tag + ".units.USD").Array()
		best := 0.0
		bestEnd := ""
		for _, entry := range units {
			if entry.Get("form").String() != "10-K" || entry.Get("fp").String() != "FY" {
				continue
			}
			if end := entry.Get("end").String(); end > bestEnd {
				bestEnd = end
				best = entry.Get("val").Float()
			}
		}
		if bestEnd != "" {
			return best
		}
	}
	return 0.0
}

// annualFactHistory returns up to limit fiscal-year values, newest first.
func annualFactHistory(facts gjson.Result, tag string, limit int) []float64 {
	units := facts.Get(tag + ".units.USD").Array()
	byEnd := map[string]float64{}
	for _, entry := range units {
		if entry.Get("form").String() != "10-K" || entry.Get("fp").String() != "FY" {
			continue
		}
		byEnd[entry.Get("end").String()] = entry.Get("val").Float()
	}

	ends := make([]string, 0, len(byEnd))
	for end := range byEnd {
		ends = append(ends, end)
	}
	// Newest first; date strings sort lexicographically.
	for i := 0; i < len(ends); i++ {
		for j := i + 1; j < len(ends); j++ {
			if ends[j] > ends[i] {
				ends[i], ends[j] = ends[j], ends[i]
			}
		}
	}

	history := make([]float64, 0, limit)
	for _, end := range ends {
		if len(history) == limit {
			break
		}
		history = append(history, byEnd[end])
	}
	return history
}

// latestFact returns the most recent instant value for a balance tag.
func latestFact(facts gjson.Result, tag string) float64 {
	units := facts.Get(tag + ".units.USD").Array()
	best := 0.0
	bestEnd := ""
	for _, entry := range units {
		if end := entry.Get("end").String(); end > bestEnd {
			bestEnd = end
			best = entry.Get("val").Float()
		}
	}
	return best
}

func latestDEIShares(body string) float64 {
	units := gjson.Get(body, "facts.dei.EntityCommonStockSharesOutstanding.units.shares").Array()
	best := 0.0
	bestEnd := ""
	for _, entry := range units {
		if end := entry.Get("end").String(); end > bestEnd {
			bestEnd = end
			best = entry.Get("val").Float()
		}
	}
	return best
}
