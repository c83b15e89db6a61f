// Package pgload implements the reference Postgres/Timescale Load processor
// of spec.md §4.6: writes the final Matrix to a table via a parameterized
// multi-row INSERT, one per declared PostgresLoad sink, in parallel. Each
// sink's EndpointID resolves to a Connector whose Endpoint is the sink's
// Postgres DSN; connections are opened lazily and cached per endpoint,
// mirroring AppConnectors' memoize-under-lock shape for HTTP clients.
package pgload

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/lib/pq"

	"github.com/pyplyn/pyplyn/internal/connector"
	"github.com/pyplyn/pyplyn/internal/model"
	"github.com/pyplyn/pyplyn/internal/status"
)

// MeterName is the metering name this processor exposes per spec.md §4.6.
const MeterName = "load.postgres"

// Processor is the reference PostgresLoad processor. Its filteredType is
// model.LoadKindPostgres; Loads of any other kind are skipped.
type Processor struct {
	registry *connector.Registry
	status   *status.Status

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// New constructs a Processor. registry resolves a PostgresLoad's EndpointID
// to the Connector whose Endpoint is used as the "postgres" driver DSN
// (driver registered by the blank lib/pq import above).
func New(registry *connector.Registry, st *status.Status) *Processor {
	return &Processor{registry: registry, status: st, dbs: make(map[string]*sql.DB)}
}

// MeterName satisfies the processor metering contract of spec.md §4.6.
func (p *Processor) MeterName() string { return MeterName }

// Run dispatches matrix to every Postgres sink in loads, in parallel, and
// returns one bool per sink indicating success. Loads whose Kind is not
// LoadKindPostgres are skipped (reported as false, not attempted).
func (p *Processor) Run(ctx context.Context, matrix model.Matrix, loads []model.Load) []bool {
	results := make([]bool, len(loads))

	var wg sync.WaitGroup
	for i, l := range loads {
		if l.Kind != model.LoadKindPostgres || l.Postgres == nil {
			continue
		}
		wg.Add(1)
		go func(i int, l *model.PostgresLoad) {
			defer wg.Done()
			results[i] = p.writeOne(ctx, l, matrix)
		}(i, l.Postgres)
	}
	wg.Wait()

	return results
}

func (p *Processor) writeOne(ctx context.Context, l *model.PostgresLoad, matrix model.Matrix) bool {
	db, err := p.dbFor(l.EndpointID)
	if err != nil {
		p.status.LogError("postgres_load_connect_failed", fmt.Errorf("sink %s: %w", l.ID, err))
		p.status.Meter(MeterName, status.Failure)
		return false
	}

	if len(matrix) == 0 {
		p.status.Meter(MeterName, status.Success)
		return true
	}

	stop := p.status.Timer(MeterName, "write_batch")
	query, args, err := buildInsert(l.Table, matrix)
	if err == nil {
		_, err = db.ExecContext(ctx, query, args...)
	}
	stop()

	if err != nil {
		p.status.LogError("postgres_load_failed", fmt.Errorf("sink %s: %w", l.ID, err))
		p.status.Meter(MeterName, status.Failure)
		return false
	}

	p.status.Meter(MeterName, status.Success)
	return true
}

func (p *Processor) dbFor(endpointID string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.dbs[endpointID]; ok {
		return db, nil
	}

	conn, err := p.registry.Get(endpointID)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", conn.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection for %s: %w", endpointID, err)
	}
	p.dbs[endpointID] = db
	return db, nil
}

// buildInsert flattens matrix into a single multi-row
// INSERT ... ON CONFLICT DO NOTHING, mirroring the teacher's TimescaleSink
// batching shape but against the Transmutation columns of spec.md §3.
func buildInsert(table string, matrix model.Matrix) (string, []any, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (name, ts, value, original_value, metadata) VALUES ")

	var args []any
	n := 0
	for _, row := range matrix {
		for _, t := range row {
			if n > 0 {
				b.WriteString(",")
			}
			base := n * 5
			b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5))
			meta, err := json.Marshal(t.Metadata)
			if err != nil {
				return "", nil, fmt.Errorf("marshal metadata: %w", err)
			}
			args = append(args, t.Name, t.Time, t.Value, t.OriginalValue, meta)
			n++
		}
	}

	b.WriteString(" ON CONFLICT (name, ts) DO NOTHING")
	return b.String(), args, nil
}
