package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fcff_valuation/pkg/core/ginzu"
)

// ValuationRun is a persisted valuation: the resolved inputs, the full
// tableau, and enough metadata to list and replay it.
type ValuationRun struct {
	ID            string              `json:"id"`
	Ticker        string              `json:"ticker"`
	Source        string              `json:"source"`
	Inputs        ginzu.GinzuInputs   `json:"inputs"`
	Outputs       *ginzu.GinzuOutputs `json:"outputs"`
	ValuePerShare float64             `json:"value_per_share"`
	CreatedAt     time.Time           `json:"created_at"`
}

// RunRepo handles storage of valuation runs.
type RunRepo struct{}

// NewRunRepo creates a new repository instance.
func NewRunRepo() *RunRepo {
	return &RunRepo{}
}

// Save persists a run. Replays of the same run id upsert.
func (r *RunRepo) Save(ctx context.Context, run *ValuationRun) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	inputsJSON, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	outputsJSON, err := json.Marshal(run.Outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}

	query := `
		INSERT INTO valuation_runs (id, ticker, source, inputs_json, outputs_json, value_per_share, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			ticker = EXCLUDED.ticker,
			source = EXCLUDED.source,
			inputs_json = EXCLUDED.inputs_json,
			outputs_json = EXCLUDED.outputs_json,
			value_per_share = EXCLUDED.value_per_share,
			created_at = EXCLUDED.created_at;
	`
	_, err = pool.Exec(ctx, query, run.ID, run.Ticker, run.Source,
		inputsJSON, outputsJSON, run.ValuePerShare, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save valuation run: %w", err)
	}
	return nil
}

// GetByID loads one run with its full inputs and tableau.
func (r *RunRepo) GetByID(ctx context.Context, id string) (*ValuationRun, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT id, ticker, source, inputs_json, outputs_json, value_per_share, created_at
		FROM valuation_runs WHERE id = $1
	`
	run := &ValuationRun{}
	var inputsJSON, outputsJSON []byte
	err := pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Ticker, &run.Source, &inputsJSON, &outputsJSON,
		&run.ValuePerShare, &run.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no valuation run with id %s", id)
		}
		return nil, fmt.Errorf("failed to load valuation run: %w", err)
	}

	if err := json.Unmarshal(inputsJSON, &run.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal(outputsJSON, &run.Outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
	}
	return run, nil
}

// ListByTicker returns recent runs for a ticker, newest first, without
// the heavyweight JSON payloads.
func (r *RunRepo) ListByTicker(ctx context.Context, ticker string, limit int) ([]*ValuationRun, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, ticker, source, value_per_share, created_at
		FROM valuation_runs
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := pool.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list valuation runs: %w", err)
	}
	defer rows.Close()

	var runs []*ValuationRun
	for rows.Next() {
		run := &ValuationRun{}
		if err := rows.Scan(&run.ID, &run.Ticker, &run.Source, &run.ValuePerShare, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan valuation run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
