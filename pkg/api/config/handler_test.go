package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fcff_valuation/pkg/core/inputs"
)

func TestConfigRoundTrip(t *testing.T) {
	h := NewHandler(inputs.Assumptions{"wacc_initial": 0.08})

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	h.HandleConfig(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status: %d", rec.Code)
	}

	var got inputs.Assumptions
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["wacc_initial"] != 0.08 {
		t.Errorf("seeded default missing: %v", got)
	}

	// Patch adds one key and removes another via null.
	patch := `{"rev_growth_y1": 0.06, "wacc_initial": null}`
	req = httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(patch))
	rec = httptest.NewRecorder()
	h.HandleConfig(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status: %d", rec.Code)
	}

	defaults := h.Defaults()
	if defaults["rev_growth_y1"] != 0.06 {
		t.Errorf("patched key missing: %v", defaults)
	}
	if _, ok := defaults["wacc_initial"]; ok {
		t.Errorf("null should delete the key: %v", defaults)
	}
}

func TestDefaultsReturnsCopy(t *testing.T) {
	h := NewHandler(inputs.Assumptions{"wacc_initial": 0.08})
	snapshot := h.Defaults()
	snapshot["wacc_initial"] = 0.99
	if h.Defaults()["wacc_initial"] != 0.08 {
		t.Error("Defaults must return a defensive copy")
	}
}
