package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned by Load when no run has the given ID.
var ErrRunNotFound = errors.New("valuation run not found")

// RunRecord is one persisted valuation run. Result holds the full JSON result;
// the headline figures are duplicated into columns for querying and are nil
// when the run could not produce them.
type RunRecord struct {
	ID         uuid.UUID       `json:"run_id"`
	Ticker     string          `json:"ticker"`
	PeriodDate time.Time       `json:"period_date"`
	Mode       string          `json:"mode"`
	Horizon    int             `json:"horizon"`
	TTMFFO     *float64        `json:"ttm_ffo"`
	PriceToFFO *float64        `json:"price_to_ffo"`
	ForwardFFO *float64        `json:"forward_ffo"`
	Result     json.RawMessage `json:"result"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RunRepository persists valuation runs.
type RunRepository interface {
	Save(ctx context.Context, run *RunRecord) error
}

// RunRepo stores runs in Postgres.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo creates a repository on p, or on the shared pool when p is nil.
func NewRunRepo(p *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: p}
}

func (r *RunRepo) db() (*pgxpool.Pool, error) {
	if r.pool != nil {
		return r.pool, nil
	}
	if p := GetPool(); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("database pool not initialized")
}

// Save upserts run by ID.
func (r *RunRepo) Save(ctx context.Context, run *RunRecord) error {
	p, err := r.db()
	if err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if len(run.Result) == 0 {
		run.Result = json.RawMessage("{}")
	}

	query := `
		INSERT INTO valuation_runs (run_id, ticker, period_date, mode, horizon, ttm_ffo, price_to_ffo, forward_ffo, result_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id)
		DO UPDATE SET
			ticker = EXCLUDED.ticker,
			period_date = EXCLUDED.period_date,
			mode = EXCLUDED.mode,
			horizon = EXCLUDED.horizon,
			ttm_ffo = EXCLUDED.ttm_ffo,
			price_to_ffo = EXCLUDED.price_to_ffo,
			forward_ffo = EXCLUDED.forward_ffo,
			result_json = EXCLUDED.result_json;
	`

	_, err = p.Exec(ctx, query,
		run.ID, run.Ticker, run.PeriodDate, run.Mode, run.Horizon,
		run.TTMFFO, run.PriceToFFO, run.ForwardFFO, []byte(run.Result), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save valuation run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT run_id, ticker, period_date, mode, horizon, ttm_ffo, price_to_ffo, forward_ffo, result_json, created_at
	FROM valuation_runs`

// Load retrieves one run.
func (r *RunRepo) Load(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	p, err := r.db()
	if err != nil {
		return nil, err
	}

	run, err := scanRun(p.QueryRow(ctx, selectRun+` WHERE run_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load valuation run: %w", err)
	}
	return run, nil
}

// ListByTicker returns the most recent runs for ticker, newest first.
func (r *RunRepo) ListByTicker(ctx context.Context, ticker string, limit int) ([]*RunRecord, error) {
	p, err := r.db()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.Query(ctx, selectRun+` WHERE ticker = $1 ORDER BY created_at DESC LIMIT $2`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list valuation runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan valuation run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*RunRecord, error) {
	var (
		run    RunRecord
		result []byte
	)
	err := row.Scan(&run.ID, &run.Ticker, &run.PeriodDate, &run.Mode, &run.Horizon,
		&run.TTMFFO, &run.PriceToFFO, &run.ForwardFFO, &result, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.Result = json.RawMessage(result)
	return &run, nil
}
