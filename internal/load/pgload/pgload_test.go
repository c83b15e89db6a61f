package pgload

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/pyplyn/pyplyn/internal/connector"
	"github.com/pyplyn/pyplyn/internal/model"
	"github.com/pyplyn/pyplyn/internal/status"
)

func emptyRegistry(t *testing.T) *connector.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connectors.json")
	if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
		t.Fatalf("write connectors: %v", err)
	}
	reg, err := connector.Load(path)
	if err != nil {
		t.Fatalf("load connectors: %v", err)
	}
	return reg
}

func newStatus() *status.Status {
	return status.New(zap.NewNop())
}

// newTestProcessor builds a Processor with a sqlmock DB pre-seated under
// endpointID, bypassing the real connector.Registry/sql.Open path.
func newTestProcessor(t *testing.T, endpointID string) (*Processor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := New(nil, newStatus())
	p.dbs[endpointID] = db
	return p, mock
}

func TestProcessorRunWritesBatch(t *testing.T) {
	p, mock := newTestProcessor(t, "ep1")

	ts := time.Now().UTC()
	matrix := model.Matrix{
		{model.Transmutation{Name: "cpu.load", Time: ts, Value: 1.5, OriginalValue: 1.5}},
	}

	expected := regexp.QuoteMeta("INSERT INTO samples (name, ts, value, original_value, metadata) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (name, ts) DO NOTHING")
	mock.ExpectExec(expected).
		WithArgs("cpu.load", ts, 1.5, 1.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	loads := []model.Load{
		{Kind: model.LoadKindPostgres, Postgres: &model.PostgresLoad{ID: "sink-1", EndpointID: "ep1", Table: "samples"}},
	}

	results := p.Run(context.Background(), matrix, loads)
	if len(results) != 1 || !results[0] {
		t.Fatalf("expected single successful result, got %v", results)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessorRunSkipsNonPostgresLoads(t *testing.T) {
	p, mock := newTestProcessor(t, "ep1")

	loads := []model.Load{{Kind: "other"}}

	results := p.Run(context.Background(), model.Matrix{{model.Transmutation{Name: "x"}}}, loads)
	if len(results) != 1 || results[0] {
		t.Fatalf("expected skipped load to report false, got %v", results)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query executed: %v", err)
	}
}

func TestProcessorRunEmptyMatrixIsSuccess(t *testing.T) {
	p, mock := newTestProcessor(t, "ep1")

	loads := []model.Load{
		{Kind: model.LoadKindPostgres, Postgres: &model.PostgresLoad{ID: "sink-1", EndpointID: "ep1", Table: "samples"}},
	}

	results := p.Run(context.Background(), nil, loads)
	if len(results) != 1 || !results[0] {
		t.Fatalf("expected empty matrix to succeed trivially, got %v", results)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query executed for empty matrix: %v", err)
	}
}

func TestProcessorRunFailsForUnknownEndpoint(t *testing.T) {
	p := New(emptyRegistry(t), newStatus())

	loads := []model.Load{
		{Kind: model.LoadKindPostgres, Postgres: &model.PostgresLoad{ID: "sink-1", EndpointID: "missing", Table: "samples"}},
	}

	results := p.Run(context.Background(), model.Matrix{{model.Transmutation{Name: "x"}}}, loads)
	if len(results) != 1 || results[0] {
		t.Fatalf("expected failure for a sink whose endpoint has no connector, got %v", results)
	}
}
