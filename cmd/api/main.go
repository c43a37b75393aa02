package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"fcff_valuation/pkg/api/config"
	"fcff_valuation/pkg/api/valuation"
	"fcff_valuation/pkg/core/inputs"
	"fcff_valuation/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Default assumptions: optional yaml file, patchable at runtime via
	// the config endpoint.
	defaults := inputs.Assumptions{}
	if raw, err := os.ReadFile("config/defaults.yaml"); err == nil {
		if err := yaml.Unmarshal(raw, &defaults); err != nil {
			fmt.Printf("[WARNING] failed to parse config/defaults.yaml: %v\n", err)
			defaults = inputs.Assumptions{}
		} else {
			fmt.Printf("[CONFIG] loaded %d default assumptions\n", len(defaults))
		}
	}

	// Persistence is opt-in: no DATABASE_URL means no store.
	var repo *store.RunRepo
	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] store unavailable, running without persistence: %v\n", err)
		} else {
			repo = store.NewRunRepo()
			fmt.Println("[STORE] valuation runs will be persisted")
		}
	}

	configHandler := config.NewHandler(defaults)
	valuation.InitHandler(repo)

	http.HandleFunc("/api/config", configHandler.HandleConfig)
	http.HandleFunc("/api/valuation/calculate", valuation.HandleCalculate(configHandler.Defaults))
	http.HandleFunc("/api/valuation/report", valuation.HandleReport(configHandler.Defaults))
	http.HandleFunc("/api/data/financials", valuation.HandleFinancials)
	http.HandleFunc("/api/data/market", valuation.HandleMarket)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("API server starting on :%s...\n", port)
	fmt.Println("  - GET/POST /api/config")
	fmt.Println("  - POST /api/valuation/calculate")
	fmt.Println("  - GET  /api/valuation/report?ticker=")
	fmt.Println("  - GET  /api/data/financials?ticker=")
	fmt.Println("  - GET  /api/data/market?ticker=")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		fmt.Printf("[FATAL] server failed to start: %v\n", err)
		os.Exit(1)
	}
}
