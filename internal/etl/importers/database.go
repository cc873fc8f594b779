package importers

import (
	"context"
	"fmt"

	"rite/internal/config"
	"rite/internal/dbclient"
	"rite/internal/etl"
)

// ── Database Importer ──────────────────────────────────────
// Runs a query against PostgreSQL, MySQL or SQLite and pages through the
// cursor, emitting one record per row in column order.

const defaultFetchSize = 500

type databaseImporter struct {
	etl.NoReset
	conn      *dbclient.Connection
	query     string
	fetchSize int
}

func init() {
	etl.RegisterImporter(etl.ComponentSpec{
		Name:        "database",
		Description: "Reads the rows of a SQL query",
		ConfigKeys: append(connectionKeys(),
			etl.ConfigKey{Key: "query", Required: true, Help: "SELECT statement to run"},
			etl.ConfigKey{Key: "fetch_size", Default: "500", Help: "Rows fetched per page"},
		),
	}, func() etl.Importer { return &databaseImporter{} })
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
		{Key: "sslmode", Help: "postgres sslmode, or 'require' for mysql TLS"},
	}
}

func (s *databaseImporter) Init(cfg *config.Configuration) error {
	conn, err := dbclient.ConnectionFromConfig(cfg)
	if err != nil {
		return err
	}
	if conn.Driver == dbclient.DriverMongoDB {
		return fmt.Errorf("driver mongodb is served by the mongodb importer")
	}
	query, err := cfg.GetResult("query")
	if err != nil {
		return err
	}
	fetchSize, err := config.Optional(cfg, "fetch_size", defaultFetchSize)
	if err != nil {
		return err
	}
	s.conn, s.query, s.fetchSize = conn, query, fetchSize
	return nil
}

func (s *databaseImporter) Read(ctx context.Context, h etl.RecordHandler) error {
	c, err := dbclient.NewConnector(s.conn)
	if err != nil {
		return err
	}
	defer c.Close()
	return readPages(ctx, c, s.query, s.fetchSize, h)
}

// readPages executes query and hands every record of every page to h.
func readPages(ctx context.Context, c dbclient.Connector, query string, fetchSize int, h etl.RecordHandler) error {
	page, err := c.Execute(ctx, query, fetchSize)
	if err != nil {
		return err
	}
	if page.IsWrite {
		return fmt.Errorf("query is not a read: %d rows affected", page.AffectedRows)
	}
	for {
		for _, rec := range page.Records {
			if err := h.HandleRecord(rec); err != nil {
				return err
			}
		}
		if !page.HasMore {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if page, err = c.FetchMore(ctx, fetchSize); err != nil {
			return err
		}
	}
}
