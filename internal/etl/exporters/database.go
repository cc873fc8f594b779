package exporters

import (
	"context"
	"fmt"

	"rite/internal/config"
	"rite/internal/dbclient"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── Database Exporter ──────────────────────────────────────
// Inserts records into a table inside one transaction per run: begun on
// SignalStart, committed on SignalEnd. A run that never reaches SignalEnd
// is rolled back on Close.

// Sync modes.
const (
	SyncAppend  = "append"  // add rows without deleting existing
	SyncReplace = "replace" // delete all existing rows, insert fresh
)

type databaseExporter struct {
	conn        *dbclient.Connection
	table       string
	createTable bool
	mode        string
	batchSize   int

	w       dbclient.Writer
	prepped bool
}

func init() {
	etl.RegisterExporter(etl.ComponentSpec{
		Name:        "database",
		Description: "Inserts records into a SQL table",
		ConfigKeys: append(connectionKeys(),
			etl.ConfigKey{Key: "table", Required: true},
			etl.ConfigKey{Key: "create_table", Default: "false", Help: "Create the table from the first record's fields"},
			etl.ConfigKey{Key: "mode", Default: SyncAppend, Help: "append or replace"},
		),
	}, func() etl.Exporter { return &databaseExporter{} })

	etl.RegisterExporter(etl.ComponentSpec{
		Name:        "mongodb",
		Description: "Inserts records as documents into a MongoDB collection",
		ConfigKeys: []etl.ConfigKey{
			{Key: "uri", Required: true},
			{Key: "database"},
			{Key: "collection", Required: true},
			{Key: "password", Help: "Replaces <password> in the URI"},
			{Key: "batch_size", Default: "500", Help: "Documents per InsertMany"},
			{Key: "mode", Default: SyncAppend, Help: "append or replace"},
		},
	}, func() etl.Exporter { return &mongoExporter{} })
}

func connectionKeys() []etl.ConfigKey {
	return []etl.ConfigKey{
		{Key: "driver", Required: true, Help: "postgres, mysql or sqlite"},
		{Key: "dsn", Help: "Full connection string; overrides the keys below"},
		{Key: "host", Help: "Server host, or the file path for sqlite"},
		{Key: "port"},
		{Key: "database"},
		{Key: "user"},
		{Key: "password"},
		{Key: "sslmode"},
	}
}

func syncMode(cfg *config.Configuration) (string, error) {
	switch mode := cfg.GetOr("mode", SyncAppend); mode {
	case SyncAppend, SyncReplace:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q, want %s or %s", mode, SyncAppend, SyncReplace)
	}
}

func (e *databaseExporter) Init(cfg *config.Configuration) error {
	conn, err := dbclient.ConnectionFromConfig(cfg)
	if err != nil {
		return err
	}
	if conn.Driver == dbclient.DriverMongoDB {
		return fmt.Errorf("driver mongodb is served by the mongodb exporter")
	}
	table, err := cfg.GetResult("table")
	if err != nil {
		return err
	}
	if e.mode, err = syncMode(cfg); err != nil {
		return err
	}
	e.conn, e.table = conn, table
	e.createTable = cfg.GetBoolOr("create_table", false)
	return nil
}

func (e *databaseExporter) Event(ctx context.Context, sig etl.Signal) error {
	switch sig {
	case etl.SignalStart:
		if e.w == nil {
			w, err := dbclient.NewWriter(e.conn)
			if err != nil {
				return err
			}
			dbclient.SetBatchSize(w, e.batchSize)
			e.w = w
		}
		e.prepped = false
		return e.w.Begin(ctx)
	case etl.SignalEnd:
		if e.w == nil {
			return nil
		}
		// A run without records still empties the table in replace mode.
		if !e.prepped && e.mode == SyncReplace && !e.createTable {
			if err := e.w.Truncate(ctx, e.table); err != nil {
				return err
			}
		}
		return e.w.Commit(ctx)
	}
	return nil
}

// prepare creates and clears the table once the first record shows its
// shape.
func (e *databaseExporter) prepare(ctx context.Context, rec *model.Record) error {
	if e.createTable {
		if err := e.w.EnsureTable(ctx, e.table, rec); err != nil {
			return err
		}
	}
	if e.mode == SyncReplace {
		if err := e.w.Truncate(ctx, e.table); err != nil {
			return err
		}
	}
	e.prepped = true
	return nil
}

func (e *databaseExporter) Write(ctx context.Context, rec *model.Record) error {
	if e.w == nil {
		return fmt.Errorf("%s exporter: write before start", e.conn.Driver)
	}
	if !e.prepped {
		if err := e.prepare(ctx, rec); err != nil {
			return err
		}
	}
	return e.w.Insert(ctx, e.table, rec)
}

func (e *databaseExporter) Close() error {
	if e.w == nil {
		return nil
	}
	err := e.w.Close()
	e.w = nil
	return err
}

// ── MongoDB Exporter ───────────────────────────────────────

type mongoExporter struct {
	databaseExporter
}

func (e *mongoExporter) Init(cfg *config.Configuration) error {
	uri, err := cfg.GetResult("uri")
	if err != nil {
		return err
	}
	collection, err := cfg.GetResult("collection")
	if err != nil {
		return err
	}
	if e.batchSize, err = config.Optional(cfg, "batch_size", 500); err != nil {
		return err
	}
	if e.mode, err = syncMode(cfg); err != nil {
		return err
	}
	e.conn = &dbclient.Connection{
		Driver:   dbclient.DriverMongoDB,
		DSN:      uri,
		Database: cfg.GetOr("database", ""),
		Password: cfg.GetOr("password", ""),
	}
	e.table = collection
	return nil
}
