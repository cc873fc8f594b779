package importers

import (
	"context"

	"rite/internal/config"
	"rite/internal/dbclient"
	"rite/internal/etl"
)

// ── MongoDB Importer ───────────────────────────────────────
// Finds the documents of a collection matching an Extended JSON filter,
// or runs an aggregation pipeline over it. Each document becomes a record
// in its stored field order.

type mongoImporter struct {
	etl.NoReset
	conn      *dbclient.Connection
	query     string
	fetchSize int
}

func init() {
	etl.RegisterImporter(etl.ComponentSpec{
		Name:        "mongodb",
		Description: "Reads documents from a MongoDB collection",
		ConfigKeys: []etl.ConfigKey{
			{Key: "uri", Required: true, Help: "mongodb:// or mongodb+srv:// connection string"},
			{Key: "database", Help: "Database name; defaults to the one in the URI"},
			{Key: "collection", Required: true},
			{Key: "filter", Help: `Extended JSON filter, e.g. {"status": "open"}`},
			{Key: "pipeline", Help: `Extended JSON aggregation stages, e.g. [{"$group": {"_id": "$status"}}]`},
			{Key: "password", Help: "Replaces <password> in the URI"},
			{Key: "fetch_size", Default: "500"},
		},
	}, func() etl.Importer { return &mongoImporter{} })
}

func (s *mongoImporter) Init(cfg *config.Configuration) error {
	uri, err := cfg.GetResult("uri")
	if err != nil {
		return err
	}
	collection, err := cfg.GetResult("collection")
	if err != nil {
		return err
	}
	query, err := dbclient.MongoQuery(collection, cfg.GetOr("filter", ""), cfg.GetOr("pipeline", ""))
	if err != nil {
		return err
	}
	fetchSize, err := config.Optional(cfg, "fetch_size", defaultFetchSize)
	if err != nil {
		return err
	}
	s.conn = &dbclient.Connection{
		Driver:   dbclient.DriverMongoDB,
		DSN:      uri,
		Database: cfg.GetOr("database", ""),
		Password: cfg.GetOr("password", ""),
	}
	s.query, s.fetchSize = query, fetchSize
	return nil
}

func (s *mongoImporter) Read(ctx context.Context, h etl.RecordHandler) error {
	c, err := dbclient.NewConnector(s.conn)
	if err != nil {
		return err
	}
	defer c.Close()
	return readPages(ctx, c, s.query, s.fetchSize, h)
}
