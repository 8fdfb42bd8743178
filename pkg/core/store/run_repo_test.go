package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"income_valuation/pkg/core/projection"
	"income_valuation/pkg/core/valuation"
)

// fakeDB keeps payloads in memory, keyed by run id.
type fakeDB struct {
	payloads map[uuid.UUID][]byte
	listed   []RunSummary
	execErr  error
	lastSQL  string
	lastArgs []any
}

func newFakeDB() *fakeDB {
	return &fakeDB{payloads: make(map[uuid.UUID][]byte)}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if len(args) == 4 {
		f.payloads[args[0].(uuid.UUID)] = args[2].([]byte)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	payload, ok := f.payloads[args[0].(uuid.UUID)]
	return fakeRow{payload: payload, found: ok}
}

func (f *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	f.lastArgs = args
	return &fakeRows{items: f.listed, i: -1}, nil
}

type fakeRow struct {
	payload []byte
	found   bool
}

func (r fakeRow) Scan(dest ...any) error {
	if !r.found {
		return pgx.ErrNoRows
	}
	*dest[0].(*[]byte) = r.payload
	return nil
}

type fakeRows struct {
	items []RunSummary
	i     int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.i++
	return r.i < len(r.items)
}

func (r *fakeRows) Scan(dest ...any) error {
	it := r.items[r.i]
	*dest[0].(*uuid.UUID) = it.RunID
	*dest[1].(*string) = it.Property
	*dest[2].(*time.Time) = it.CreatedAt
	return nil
}

func sampleReport() *valuation.Report {
	pv := 12_500_000.0
	return &valuation.Report{
		RunID:     uuid.New(),
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Property:  projection.PropertySummary{Name: "Maple Court", UnitCount: 120, TotalArea: 96000},
		Tiles: []valuation.ValueTile{
			{Basis: valuation.BasisCurrent, NOI: 625_000, CapitalizedValue: &pv},
		},
	}
}

func TestRunRepo_SaveAndLoad(t *testing.T) {
	db := newFakeDB()
	repo := NewRunRepo(db, nil)
	report := sampleReport()

	require.NoError(t, repo.Save(context.Background(), report))
	assert.Contains(t, db.lastSQL, "ON CONFLICT (run_id)")
	assert.Equal(t, "Maple Court", db.lastArgs[1])
	assert.True(t, json.Valid(db.lastArgs[2].([]byte)))

	got, err := repo.Load(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.Property, got.Property)
	require.Len(t, got.Tiles, 1)
	assert.Equal(t, 12_500_000.0, *got.Tiles[0].CapitalizedValue)
}

func TestRunRepo_LoadMissing(t *testing.T) {
	repo := NewRunRepo(newFakeDB(), nil)
	_, err := repo.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepo_SaveErrors(t *testing.T) {
	db := newFakeDB()
	repo := NewRunRepo(db, nil)

	assert.Error(t, repo.Save(context.Background(), nil))
	assert.Error(t, repo.Save(context.Background(), &valuation.Report{}))

	db.execErr = errors.New("connection reset")
	err := repo.Save(context.Background(), sampleReport())
	assert.ErrorContains(t, err, "connection reset")
}

func TestRunRepo_ListByProperty(t *testing.T) {
	db := newFakeDB()
	a, b := uuid.New(), uuid.New()
	db.listed = []RunSummary{
		{RunID: a, Property: "Maple Court", CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{RunID: b, Property: "Maple Court", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	repo := NewRunRepo(db, nil)

	runs, err := repo.ListByProperty(context.Background(), "Maple Court", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, a, runs[0].RunID)
	assert.Equal(t, []any{"Maple Court", 20}, db.lastArgs)
}

func TestRunRepo_NotInitialized(t *testing.T) {
	Close()
	repo := NewRunRepo(nil, nil)

	assert.ErrorIs(t, repo.Save(context.Background(), sampleReport()), ErrNotInitialized)
	_, err := repo.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = repo.ListByProperty(context.Background(), "x", 5)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, EnsureSchema(context.Background(), nil), ErrNotInitialized)
}

func TestEnsureSchema(t *testing.T) {
	db := newFakeDB()
	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.Contains(t, db.lastSQL, "CREATE TABLE IF NOT EXISTS valuation_runs")
}

func TestInitDB_Errors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	assert.Error(t, InitDB(context.Background(), ""))
	assert.Error(t, InitDB(context.Background(), "postgres://user@localhost:5432/db?sslmode=bogus"))
	assert.Nil(t, GetPool())
}
