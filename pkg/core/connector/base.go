// Package connector fetches and normalizes company financials for the
// valuation engine. Connectors are contract-only collaborators: they do
// the network work so the engine never has to.
package connector

import (
	"fmt"
	"sync"
)

// CompanyData is the normalized bundle a connector hands to the inputs
// builder. Flows are trailing-twelve-month where the source has four
// quarters (the latest fiscal year otherwise), stocks are the latest
// reported balance, all in the source's reporting currency unit.
type CompanyData struct {
	RevenuesBase     float64   `json:"revenues_base"`
	EBITReportedBase float64   `json:"ebit_reported_base"`
	RnDExpense       float64   `json:"rnd_expense"`
	RnDHistory       []float64 `json:"rnd_history"` // newest first

	BookEquity              float64 `json:"book_equity"`
	BookDebt                float64 `json:"book_debt"`
	Cash                    float64 `json:"cash"`
	CrossHoldings           float64 `json:"cross_holdings"`
	MinorityInterest        float64 `json:"minority_interest"`
	OperatingLeaseLiability float64 `json:"operating_lease_liability"`

	SharesOutstanding float64 `json:"shares_outstanding"`
	StockPrice        float64 `json:"stock_price"`

	EffectiveTaxRate float64 `json:"effective_tax_rate"`
	MarginalTaxRate  float64 `json:"marginal_tax_rate"`
	RiskFreeRate     float64 `json:"risk_free_rate"`
}

// Connector is the data-source contract. GetFinancials and GetMarketData
// surface raw statements for inspection endpoints; GetValuationInputs is
// the normalized feed for the engine.
type Connector interface {
	GetFinancials(ticker string) (map[string]interface{}, error)
	GetMarketData(ticker string) (map[string]interface{}, error)
	GetValuationInputs(ticker string) (*CompanyData, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Connector{}
)

// Register installs a connector under a source name. Called from the
// connector implementations' init functions.
func Register(name string, c Connector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = c
}

// Get returns the connector registered under name.
func Get(name string) (Connector, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("connector %q not found", name)
	}
	return c, nil
}
