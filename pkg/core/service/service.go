// Package service orchestrates a valuation: fetch data via a connector,
// prepare inputs via the shared builder, run the engine, and optionally
// persist the run. All computation logic lives in pkg/core/ginzu so
// there is exactly one source of truth.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fcff_valuation/pkg/core/connector"
	"fcff_valuation/pkg/core/ginzu"
	"fcff_valuation/pkg/core/inputs"
	"fcff_valuation/pkg/core/store"
)

// UpstreamError marks a failure in the data source rather than in the
// valuation itself; the API layer maps it to 502.
type UpstreamError struct {
	Source string
	Ticker string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed for %s: %v", e.Source, e.Ticker, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ValuationService runs valuations against one data source.
type ValuationService struct {
	source string
	conn   connector.Connector
	repo   *store.RunRepo // nil when persistence is not configured
}

// New creates a service for a registered connector source.
func New(source string) (*ValuationService, error) {
	conn, err := connector.Get(source)
	if err != nil {
		return nil, err
	}
	return &ValuationService{source: source, conn: conn}, nil
}

// WithStore enables best-effort persistence of completed runs.
func (s *ValuationService) WithStore(repo *store.RunRepo) *ValuationService {
	s.repo = repo
	return s
}

// Calculate fetches, builds, computes, and (when configured) persists
// a valuation run for the ticker.
func (s *ValuationService) Calculate(ctx context.Context, ticker string, assumptions inputs.Assumptions) (*store.ValuationRun, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, &ginzu.InputError{Field: "ticker", Constraint: "must not be empty"}
	}

	data, err := s.conn.GetValuationInputs(ticker)
	if err != nil {
		return nil, &UpstreamError{Source: s.source, Ticker: ticker, Err: err}
	}

	in := inputs.Build(data, assumptions)
	out, err := ginzu.Compute(in)
	if err != nil {
		return nil, err
	}

	run := &store.ValuationRun{
		ID:            uuid.NewString(),
		Ticker:        ticker,
		Source:        s.source,
		Inputs:        ginzu.Canonicalize(in),
		Outputs:       out,
		ValuePerShare: out.EstimatedValuePerShare,
		CreatedAt:     time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, run); err != nil {
			fmt.Printf("[WARNING] failed to persist valuation run %s: %v\n", run.ID, err)
		}
	}
	return run, nil
}

// CalculateFromData runs the builder and engine over already-fetched
// data, bypassing the connector. Used by the CLI and by tests.
func CalculateFromData(data *connector.CompanyData, assumptions inputs.Assumptions) (*store.ValuationRun, error) {
	in := inputs.Build(data, assumptions)
	out, err := ginzu.Compute(in)
	if err != nil {
		return nil, err
	}
	return &store.ValuationRun{
		ID:            uuid.NewString(),
		Source:        "manual",
		Inputs:        ginzu.Canonicalize(in),
		Outputs:       out,
		ValuePerShare: out.EstimatedValuePerShare,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
