package exporters

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"rite/internal/config"
	"rite/internal/dbclient"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── PostgreSQL COPY Exporter ───────────────────────────────
// Buffers rows and loads them with COPY FROM on SignalEnd. The columns
// default to the first record's field names.

type pgCopyExporter struct {
	dsn     string
	table   pgx.Identifier
	columns []string

	rows [][]any
}

func init() {
	etl.RegisterExporter(etl.ComponentSpec{
		Name:        "pgcopy",
		Description: "Bulk-loads records into PostgreSQL with COPY",
		ConfigKeys: []etl.ConfigKey{
			{Key: "dsn", Required: true, Help: "postgres:// URL or key=value connection string"},
			{Key: "table", Required: true, Help: "Table name, optionally schema-qualified"},
			{Key: "columns", Help: "Comma-separated column list"},
		},
	}, func() etl.Exporter { return &pgCopyExporter{} })
}

func (e *pgCopyExporter) Init(cfg *config.Configuration) error {
	dsn, err := cfg.GetResult("dsn")
	if err != nil {
		return err
	}
	table, err := cfg.GetResult("table")
	if err != nil {
		return err
	}
	e.dsn = dsn
	e.table = pgx.Identifier(strings.Split(table, "."))
	e.columns = config.List[string](cfg, "columns")
	return nil
}

func (e *pgCopyExporter) Event(ctx context.Context, sig etl.Signal) error {
	switch sig {
	case etl.SignalStart:
		e.rows = nil
	case etl.SignalEnd:
		if len(e.rows) == 0 {
			return nil
		}
		conn, err := pgx.Connect(ctx, e.dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close(ctx)

		n, err := conn.CopyFrom(ctx, e.table, e.columns, pgx.CopyFromRows(e.rows))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", e.table.Sanitize(), err)
		}
		if int(n) != len(e.rows) {
			return fmt.Errorf("copy into %s: wrote %d of %d rows", e.table.Sanitize(), n, len(e.rows))
		}
		e.rows = nil
	}
	return nil
}

func (e *pgCopyExporter) Write(_ context.Context, rec *model.Record) error {
	if len(e.columns) == 0 {
		e.columns = etl.SchemaOf(rec).ColumnNames()
	}
	row, err := copyRow(rec, e.columns)
	if err != nil {
		return err
	}
	e.rows = append(e.rows, row)
	return nil
}

// copyRow orders the record's values by columns; missing fields are NULL.
func copyRow(rec *model.Record, columns []string) ([]any, error) {
	row := make([]any, len(columns))
	for i, col := range columns {
		arg, err := dbclient.SQLArg(rec.Get(col))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		row[i] = arg
	}
	return row, nil
}
