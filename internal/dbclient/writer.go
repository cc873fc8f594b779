package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rite/internal/model"
)

// Writer inserts records into a table or collection inside a unit of work
// opened by Begin and finished by Commit or Rollback.
type Writer interface {
	// EnsureTable creates table if it does not exist, deriving column
	// types from sample.
	EnsureTable(ctx context.Context, table string, sample *model.Record) error
	Begin(ctx context.Context) error
	// Truncate removes every row of table.
	Truncate(ctx context.Context, table string) error
	Insert(ctx context.Context, table string, rec *model.Record) error
	Commit(ctx context.Context) error
	Rollback() error
	Close() error
}

// NewWriter creates a Writer for the given database connection.
func NewWriter(conn *Connection) (Writer, error) {
	switch conn.Driver {
	case DriverSQLite:
		return newSQLWriter(DriverSQLite, sqliteDSN(conn))
	case DriverMySQL:
		return newSQLWriter(DriverMySQL, buildMySQLDSN(conn))
	case DriverPostgres:
		return newSQLWriter(DriverPostgres, buildPostgresDSN(conn))
	case DriverMongoDB:
		return newMongoWriter(conn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}

type sqlWriter struct {
	driverName string
	db         *sql.DB
	tx         *sql.Tx
}

func newSQLWriter(driverName, dsn string) (*sqlWriter, error) {
	db, err := openDB(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &sqlWriter{driverName: driverName, db: db}, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// exec runs inside the open transaction when there is one.
func (w *sqlWriter) exec() execer {
	if w.tx != nil {
		return w.tx
	}
	return w.db
}

func (w *sqlWriter) EnsureTable(ctx context.Context, table string, sample *model.Record) error {
	if sample.Len() == 0 {
		return fmt.Errorf("create table %s: record has no fields", table)
	}
	cols := make([]string, 0, sample.Len())
	for _, f := range sample.Fields() {
		cols = append(cols, quoteIdent(w.driverName, f.Name())+" "+columnType(w.driverName, f.Value().Kind()))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(w.driverName, table), strings.Join(cols, ", "))
	if _, err := w.exec().ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (w *sqlWriter) Begin(ctx context.Context) error {
	if w.tx != nil {
		return fmt.Errorf("transaction already open")
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	w.tx = tx
	return nil
}

func (w *sqlWriter) Truncate(ctx context.Context, table string) error {
	if _, err := w.exec().ExecContext(ctx, "DELETE FROM "+quoteIdent(w.driverName, table)); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

func (w *sqlWriter) Insert(ctx context.Context, table string, rec *model.Record) error {
	if w.tx == nil {
		return fmt.Errorf("insert into %s: no open transaction", table)
	}
	cols := make([]string, 0, rec.Len())
	marks := make([]string, 0, rec.Len())
	args := make([]any, 0, rec.Len())
	for i, f := range rec.Fields() {
		arg, err := SQLArg(f.Value())
		if err != nil {
			return fmt.Errorf("column %s: %w", f.Name(), err)
		}
		cols = append(cols, quoteIdent(w.driverName, f.Name()))
		marks = append(marks, placeholder(w.driverName, i+1))
		args = append(args, arg)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(w.driverName, table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := w.tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (w *sqlWriter) Commit(context.Context) error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Commit()
	w.tx = nil
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (w *sqlWriter) Rollback() error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Rollback()
	w.tx = nil
	return err
}

func (w *sqlWriter) Close() error {
	w.Rollback()
	return w.db.Close()
}
