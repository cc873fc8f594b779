package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"rite/internal/model"
)

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	driverName string
	db         *sql.DB

	mu         sync.Mutex
	activeRows *sql.Rows
	lastAccess time.Time
	columns    []string
	dbTypes    []string
	fetched    int
}

// openDB opens a pooled handle for driverName.
func openDB(driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	return db, nil
}

// newSQLConnector creates a generic SQL connector.
func newSQLConnector(driverName, dsn string) (*sqlConnector, error) {
	db, err := openDB(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &sqlConnector{driverName: driverName, db: db}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// isReadQuery detects if a query is a read (SELECT, WITH, SHOW, DESCRIBE, EXPLAIN, PRAGMA).
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA", "VALUES"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

func (c *sqlConnector) Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Close any previously open cursor
	c.closeCursorLocked()

	if fetchSize <= 0 {
		fetchSize = 50
	}

	if !isReadQuery(query) {
		return c.execWrite(ctx, query)
	}
	return c.execRead(ctx, query, fetchSize)
}

func (c *sqlConnector) execWrite(ctx context.Context, query string) (*QueryPage, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	affected, _ := result.RowsAffected()
	return &QueryPage{
		IsWrite:      true,
		AffectedRows: int(affected),
	}, nil
}

// execRead opens a cursor bound to ctx; the cursor lives until it is
// drained, replaced or the connector is closed.
func (c *sqlConnector) execRead(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("columns: %w", err)
	}
	types := make([]string, len(cols))
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			types[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	c.activeRows = rows
	c.columns = cols
	c.dbTypes = types
	c.fetched = 0
	c.lastAccess = time.Now()

	return c.fetchBatchLocked(fetchSize)
}

func (c *sqlConnector) FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeRows == nil {
		return nil, fmt.Errorf("no active cursor, execute a query first")
	}
	if err := ctx.Err(); err != nil {
		c.closeCursorLocked()
		return nil, err
	}
	if fetchSize <= 0 {
		fetchSize = 50
	}
	c.lastAccess = time.Now()
	return c.fetchBatchLocked(fetchSize)
}

// fetchBatchLocked reads up to fetchSize rows from the active cursor.
// Must be called while holding c.mu.
func (c *sqlConnector) fetchBatchLocked(fetchSize int) (*QueryPage, error) {
	var records []*model.Record
	numCols := len(c.columns)

	for i := 0; i < fetchSize; i++ {
		if !c.activeRows.Next() {
			break
		}
		values := make([]any, numCols)
		ptrs := make([]any, numCols)
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := c.activeRows.Scan(ptrs...); err != nil {
			c.closeCursorLocked()
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec := model.NewRecord()
		for j, v := range values {
			rec.Add(c.columns[j], sqlValue(v, c.dbTypes[j]))
		}
		records = append(records, rec)
	}

	c.fetched += len(records)

	// Check for iteration errors before a short page closes the cursor
	if err := c.activeRows.Err(); err != nil {
		c.closeCursorLocked()
		return nil, fmt.Errorf("iterate: %w", err)
	}

	hasMore := true
	if len(records) < fetchSize {
		hasMore = false
		c.closeCursorLocked()
	}

	return &QueryPage{
		Columns:      c.columns,
		Records:      records,
		TotalFetched: c.fetched,
		HasMore:      hasMore,
	}, nil
}

func (c *sqlConnector) Close() error {
	c.mu.Lock()
	c.closeCursorLocked()
	c.mu.Unlock()
	return c.db.Close()
}

func (c *sqlConnector) closeCursorLocked() {
	if c.activeRows != nil {
		c.activeRows.Close()
		c.activeRows = nil
	}
}
