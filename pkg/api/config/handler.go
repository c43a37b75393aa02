// Package config exposes the server's default valuation assumptions:
// the baseline every calculate request starts from before its own
// overrides apply.
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"fcff_valuation/pkg/core/inputs"
)

// Handler holds the mutable default assumptions.
type Handler struct {
	mu       sync.RWMutex
	defaults inputs.Assumptions
}

// NewHandler seeds the handler with the yaml-loaded defaults.
func NewHandler(defaults inputs.Assumptions) *Handler {
	if defaults == nil {
		defaults = inputs.Assumptions{}
	}
	return &Handler{defaults: defaults}
}

// Defaults returns a copy of the current default assumptions.
func (h *Handler) Defaults() inputs.Assumptions {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(inputs.Assumptions, len(h.defaults))
	for k, v := range h.defaults {
		out[k] = v
	}
	return out
}

// HandleConfig serves GET (view) and POST (patch) of the defaults.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Defaults())
	case http.MethodPost:
		var patch inputs.Assumptions
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.mu.Lock()
		for k, v := range patch {
			if v == nil {
				delete(h.defaults, k)
				continue
			}
			h.defaults[k] = v
		}
		h.mu.Unlock()
		fmt.Printf("[CONFIG] defaults patched (%d keys)\n", len(patch))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Defaults())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
