package dbclient

import (
	"fmt"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from a Connection.
func buildPostgresDSN(conn *Connection) string {
	if conn.DSN != "" {
		return conn.DSN
	}
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		conn.Host, port, conn.Username, conn.Password, conn.Database, sslMode,
	)
}
