package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"income_valuation/pkg/core/logging"
	"income_valuation/pkg/core/valuation"
)

// ErrRunNotFound is returned by Load for an unknown run id.
var ErrRunNotFound = errors.New("valuation run not found")

// RunSummary is one row of a run listing.
type RunSummary struct {
	RunID     uuid.UUID `json:"run_id"`
	Property  string    `json:"property"`
	CreatedAt time.Time `json:"created_at"`
}

// RunRepo persists completed valuation reports as JSONB keyed by run id.
type RunRepo struct {
	db  DBTX
	log logging.Logger
}

// NewRunRepo creates a repository. A nil db uses the shared pool from InitDB.
func NewRunRepo(db DBTX, log logging.Logger) *RunRepo {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RunRepo{db: db, log: log.Named("store")}
}

func (r *RunRepo) conn() (DBTX, error) {
	if r.db != nil {
		return r.db, nil
	}
	if p := GetPool(); p != nil {
		return p, nil
	}
	return nil, ErrNotInitialized
}

// Save upserts the report. Re-saving the same run id replaces the payload.
func (r *RunRepo) Save(ctx context.Context, report *valuation.Report) error {
	if report == nil {
		return errors.New("nil report")
	}
	if report.RunID == uuid.Nil {
		return errors.New("report has no run id")
	}
	db, err := r.conn()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO valuation_runs (run_id, property, payload, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id)
		DO UPDATE SET
			property = EXCLUDED.property,
			payload = EXCLUDED.payload;
	`
	if _, err := db.Exec(ctx, query, report.RunID, report.Property.Name, payload, report.CreatedAt); err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}
	r.log.Info("valuation run saved",
		logging.String("run_id", report.RunID.String()),
		logging.String("property", report.Property.Name),
		logging.Int("bytes", len(payload)),
	)
	return nil
}

// Load retrieves a saved report.
func (r *RunRepo) Load(ctx context.Context, runID uuid.UUID) (*valuation.Report, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRow(ctx, `SELECT payload FROM valuation_runs WHERE run_id = $1`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var report valuation.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	return &report, nil
}

// ListByProperty returns the newest runs for a property, newest first.
func (r *RunRepo) ListByProperty(ctx context.Context, property string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, `
		SELECT run_id, property, created_at
		FROM valuation_runs
		WHERE property = $1
		ORDER BY created_at DESC
		LIMIT $2`, property, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Property, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}
