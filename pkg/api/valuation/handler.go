// Package valuation exposes the valuation engine over HTTP. Handlers
// are thin: decode, orchestrate via the service layer, sanitize, encode.
package valuation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fcff_valuation/pkg/core/connector"
	"fcff_valuation/pkg/core/ginzu"
	"fcff_valuation/pkg/core/inputs"
	"fcff_valuation/pkg/core/report"
	"fcff_valuation/pkg/core/service"
	"fcff_valuation/pkg/core/store"
	"fcff_valuation/pkg/core/utils"
)

var runRepo *store.RunRepo

// InitHandler wires optional persistence into the handlers. Pass nil to
// run without a database.
func InitHandler(repo *store.RunRepo) {
	runRepo = repo
}

// CalculateRequest is the body of POST /api/valuation/calculate.
type CalculateRequest struct {
	Ticker      string             `json:"ticker"`
	Source      string             `json:"source"`
	Assumptions inputs.Assumptions `json:"assumptions"`
}

func cors(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// writeJSON encodes a payload with NaN/Inf scrubbed out, so responses
// always stay standards-compliant JSON.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.SanitizeForJSON(decoded))
}

func writeError(w http.ResponseWriter, ticker string, err error) {
	var inputErr *ginzu.InputError
	var stableErr *ginzu.StableStateError
	var overflowErr *ginzu.OverflowError
	var upstreamErr *service.UpstreamError

	switch {
	case errors.As(err, &inputErr):
		fmt.Printf("[VALUATION] bad request for %s: %v\n", ticker, err)
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	case errors.As(err, &stableErr), errors.As(err, &overflowErr):
		fmt.Printf("[VALUATION] unprocessable inputs for %s: %v\n", ticker, err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": err.Error()})
	case errors.As(err, &upstreamErr):
		fmt.Printf("[VALUATION] upstream failure for %s: %v\n", ticker, err)
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": err.Error()})
	default:
		fmt.Printf("[ERROR] internal failure for %s: %v\n", ticker, err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal server error"})
	}
}

// HandleCalculate performs a full FCFF valuation with optional
// assumption overrides layered on the configured defaults.
func HandleCalculate(defaults func() inputs.Assumptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cors(w, r, "POST") {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req CalculateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Source == "" {
			req.Source = "yahoo"
		}

		// Config defaults first, request assumptions on top.
		merged := defaults()
		for k, v := range req.Assumptions {
			merged[k] = v
		}

		fmt.Printf("[VALUATION] calculate %s via %s (%d assumption overrides)\n",
			strings.ToUpper(req.Ticker), req.Source, len(req.Assumptions))

		svc, err := service.New(req.Source)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if runRepo != nil {
			svc = svc.WithStore(runRepo)
		}

		run, err := svc.Calculate(r.Context(), req.Ticker, merged)
		if err != nil {
			writeError(w, req.Ticker, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// HandleFinancials serves the connector's raw statements for
// inspection.
func HandleFinancials(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}
	ticker, conn, ok := tickerAndConnector(w, r)
	if !ok {
		return
	}

	data, err := conn.GetFinancials(ticker)
	if err != nil {
		fmt.Printf("[VALUATION] financials fetch failed for %s: %v\n", ticker, err)
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleMarket serves price, beta, shares, and the risk-free rate.
func HandleMarket(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}
	ticker, conn, ok := tickerAndConnector(w, r)
	if !ok {
		return
	}

	data, err := conn.GetMarketData(ticker)
	if err != nil {
		fmt.Printf("[VALUATION] market fetch failed for %s: %v\n", ticker, err)
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleReport runs a default-assumption valuation and renders the
// markdown tableau as HTML.
func HandleReport(defaults func() inputs.Assumptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cors(w, r, "GET") {
			return
		}
		ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
		if ticker == "" {
			http.Error(w, "ticker query parameter required", http.StatusBadRequest)
			return
		}
		source := r.URL.Query().Get("source")
		if source == "" {
			source = "yahoo"
		}

		svc, err := service.New(source)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		run, err := svc.Calculate(r.Context(), ticker, defaults())
		if err != nil {
			writeError(w, ticker, err)
			return
		}

		html, err := report.RenderHTML(report.BuildMarkdown(ticker, run.Outputs))
		if err != nil {
			writeError(w, ticker, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}

func tickerAndConnector(w http.ResponseWriter, r *http.Request) (string, connector.Connector, bool) {
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker query parameter required", http.StatusBadRequest)
		return "", nil, false
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "yahoo"
	}
	conn, err := connector.Get(source)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	return ticker, conn, true
}
