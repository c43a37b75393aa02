// Command valuation runs a single FCFF valuation from the terminal:
// either from a local company document (hjson or JSON, no network) or
// by fetching a ticker through a registered connector.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"fcff_valuation/pkg/core/connector"
	"fcff_valuation/pkg/core/inputs"
	"fcff_valuation/pkg/core/report"
	"fcff_valuation/pkg/core/service"
	"fcff_valuation/pkg/core/store"
	"fcff_valuation/pkg/core/utils"
)

// Document is the on-disk valuation input: normalized company data plus
// assumption overrides. Comments and unquoted keys are fine (hjson).
type Document struct {
	Ticker      string                `json:"ticker"`
	Data        connector.CompanyData `json:"data"`
	Assumptions inputs.Assumptions    `json:"assumptions"`
}

func main() {
	file := flag.String("file", "", "valuation document (hjson or json); runs offline")
	ticker := flag.String("ticker", "", "ticker to fetch and value via a connector")
	source := flag.String("source", "yahoo", "data source when fetching (yahoo, sec)")
	asJSON := flag.Bool("json", false, "emit the raw outputs as JSON instead of the report")
	flag.Parse()

	godotenv.Load()

	var run *store.ValuationRun
	var label string
	var err error

	switch {
	case *file != "":
		run, label, err = runFromFile(*file)
	case *ticker != "":
		label = *ticker
		svc, svcErr := service.New(*source)
		if svcErr != nil {
			fail(svcErr)
		}
		run, err = svc.Calculate(context.Background(), *ticker, nil)
	default:
		fmt.Fprintln(os.Stderr, "usage: valuation -file doc.hjson | -ticker AMZN [-source yahoo] [-json]")
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}

	if *asJSON {
		encoded, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			fail(err)
		}
		fmt.Println(string(encoded))
		return
	}
	fmt.Println(report.BuildMarkdown(label, run.Outputs))
}

func runFromFile(path string) (*store.ValuationRun, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	var doc Document
	if err := utils.ParseHJSONToStruct(string(raw), &doc); err != nil {
		return nil, "", err
	}
	label := doc.Ticker
	if label == "" {
		label = path
	}

	run, err := service.CalculateFromData(&doc.Data, doc.Assumptions)
	if err != nil {
		return nil, "", err
	}
	run.Ticker = doc.Ticker
	return run, label, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
	os.Exit(1)
}
