package dbclient

import (
	"context"
	"fmt"
	"strings"

	"rite/internal/config"
	"rite/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

// Connection describes how to reach an external database. When DSN is set
// it is used as is; otherwise one is built from the remaining fields.
// For SQLite, Host is the database file path.
type Connection struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"user,omitempty"`
	Password string `json:"-"`
	SSLMode  string `json:"sslmode,omitempty"`
}

// ConnectionFromConfig reads the connection keys shared by the database
// importer and exporter: driver, dsn, host, port, database, user, password
// and sslmode.
func ConnectionFromConfig(cfg *config.Configuration) (*Connection, error) {
	driver, err := cfg.GetResult("driver")
	if err != nil {
		return nil, err
	}
	conn := &Connection{
		Driver:   strings.ToLower(driver),
		DSN:      cfg.GetOr("dsn", ""),
		Host:     cfg.GetOr("host", ""),
		Database: cfg.GetOr("database", ""),
		Username: cfg.GetOr("user", ""),
		Password: cfg.GetOr("password", ""),
		SSLMode:  cfg.GetOr("sslmode", ""),
	}
	if _, ok := cfg.Get("port"); ok {
		port, ok := config.Value[int](cfg, "port")
		if !ok {
			return nil, fmt.Errorf("port must be a number")
		}
		conn.Port = port
	}
	if conn.DSN == "" && conn.Host == "" {
		return nil, fmt.Errorf("either dsn or host is required for driver %s", conn.Driver)
	}
	return conn, nil
}

// QueryPage is a batch of records fetched from a query cursor.
type QueryPage struct {
	Columns      []string        `json:"columns"`
	Records      []*model.Record `json:"records"`
	TotalFetched int             `json:"totalFetched"` // total rows fetched so far
	HasMore      bool            `json:"hasMore"`      // cursor has more rows
	IsWrite      bool            `json:"isWrite"`
	AffectedRows int             `json:"affectedRows"`
}

// Connector abstracts reading from an external database.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Execute runs a query and returns the first batch of records.
	// For reads: opens a cursor and fetches fetchSize rows.
	// For writes: executes and returns affected rows count.
	Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error)

	// FetchMore continues reading from the open cursor.
	FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error)

	// Close closes the connection and any open cursors.
	Close() error
}

// NewConnector creates a Connector for the given database connection.
func NewConnector(conn *Connection) (Connector, error) {
	switch conn.Driver {
	case DriverSQLite:
		return newSQLiteConnector(conn)
	case DriverMySQL:
		return newSQLConnector(DriverMySQL, buildMySQLDSN(conn))
	case DriverPostgres:
		return newSQLConnector(DriverPostgres, buildPostgresDSN(conn))
	case DriverMongoDB:
		return newMongoConnector(conn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
