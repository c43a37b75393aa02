package valuation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fcff_valuation/pkg/core/connector"
	"fcff_valuation/pkg/core/inputs"
)

type stubConnector struct {
	data *connector.CompanyData
}

func (s *stubConnector) GetFinancials(ticker string) (map[string]interface{}, error) {
	return map[string]interface{}{"ticker": ticker}, nil
}

func (s *stubConnector) GetMarketData(ticker string) (map[string]interface{}, error) {
	return nil, fmt.Errorf("throttled")
}

func (s *stubConnector) GetValuationInputs(ticker string) (*connector.CompanyData, error) {
	return s.data, nil
}

func init() {
	connector.Register("stub", &stubConnector{data: &connector.CompanyData{
		RevenuesBase:      60000.0,
		EBITReportedBase:  7200.0,
		BookEquity:        28000.0,
		BookDebt:          11000.0,
		Cash:              7000.0,
		SharesOutstanding: 1200.0,
		StockPrice:        52.0,
		EffectiveTaxRate:  0.20,
		MarginalTaxRate:   0.25,
		RiskFreeRate:      0.04,
	}})
}

func noDefaults() inputs.Assumptions { return inputs.Assumptions{} }

func TestHandleCalculate(t *testing.T) {
	handler := HandleCalculate(noDefaults)

	body := `{"ticker": "test", "source": "stub", "assumptions": {"rev_growth_y1": 0.07}}`
	req := httptest.NewRequest(http.MethodPost, "/api/valuation/calculate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["ticker"] != "TEST" {
		t.Errorf("ticker: %v", resp["ticker"])
	}
	if resp["id"] == "" || resp["id"] == nil {
		t.Error("response should carry a run id")
	}
	outputs, ok := resp["outputs"].(map[string]interface{})
	if !ok {
		t.Fatalf("outputs missing: %v", resp)
	}
	if outputs["estimated_value_per_share"] == nil {
		t.Error("per-share value missing from outputs")
	}
	ins, ok := resp["inputs"].(map[string]interface{})
	if !ok || ins["rev_growth_y1"] != 0.07 {
		t.Errorf("request assumptions should reach the stored inputs: %v", ins["rev_growth_y1"])
	}
}

func TestHandleCalculateBadInput(t *testing.T) {
	handler := HandleCalculate(noDefaults)

	body := `{"ticker": "test", "source": "stub", "assumptions": {"margin_convergence_year": 99}}`
	req := httptest.NewRequest(http.MethodPost, "/api/valuation/calculate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "margin_convergence_year") {
		t.Errorf("error should name the field: %s", rec.Body.String())
	}
}

func TestHandleCalculateUnknownSource(t *testing.T) {
	handler := HandleCalculate(noDefaults)

	req := httptest.NewRequest(http.MethodPost, "/api/valuation/calculate",
		strings.NewReader(`{"ticker": "test", "source": "nope"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestHandleCalculateMethod(t *testing.T) {
	handler := HandleCalculate(noDefaults)

	req := httptest.NewRequest(http.MethodGet, "/api/valuation/calculate", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/valuation/calculate", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("preflight: got %d, want 200", rec.Code)
	}
}

func TestHandleFinancials(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/data/financials?ticker=test&source=stub", nil)
	rec := httptest.NewRecorder()
	HandleFinancials(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	// Missing ticker is the caller's mistake.
	req = httptest.NewRequest(http.MethodGet, "/api/data/financials?source=stub", nil)
	rec = httptest.NewRecorder()
	HandleFinancials(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing ticker: got %d, want 400", rec.Code)
	}
}

func TestHandleMarketUpstreamFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/data/market?ticker=test&source=stub", nil)
	rec := httptest.NewRecorder()
	HandleMarket(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want 502", rec.Code)
	}
}

func TestHandleReport(t *testing.T) {
	handler := HandleReport(noDefaults)

	req := httptest.NewRequest(http.MethodGet, "/api/valuation/report?ticker=test&source=stub", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type: %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "<table>") {
		t.Error("report should contain the rendered tableau")
	}
}
