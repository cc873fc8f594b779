package dbclient

import (
	_ "modernc.org/sqlite"
)

// sqliteDSN opens the file in WAL mode with a busy timeout for concurrent access.
func sqliteDSN(conn *Connection) string {
	if conn.DSN != "" {
		return conn.DSN
	}
	return conn.Host + "?_journal_mode=WAL&_busy_timeout=5000"
}

// newSQLiteConnector creates a connector for an external SQLite file.
func newSQLiteConnector(conn *Connection) (*sqlConnector, error) {
	return newSQLConnector(DriverSQLite, sqliteDSN(conn))
}
