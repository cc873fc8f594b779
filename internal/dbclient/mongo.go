package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"rite/internal/model"
)

// mongoConnector implements Connector for MongoDB.
type mongoConnector struct {
	client *mongo.Client
	dbName string

	mu         sync.Mutex
	cursor     *mongo.Cursor
	lastAccess time.Time
	fetched    int
}

// mongoQuery is the JSON structure of a MongoDB query.
type mongoQuery struct {
	Collection string         `json:"collection"`
	Operation  string           `json:"operation,omitempty"` // find (default) or aggregate
	Filter     map[string]any   `json:"filter,omitempty"`
	Projection map[string]any   `json:"projection,omitempty"`
	Sort       map[string]any   `json:"sort,omitempty"`
	Pipeline   []map[string]any `json:"pipeline,omitempty"` // for aggregate
}

// MongoQuery builds the JSON query for collection. filter is an Extended
// JSON document and pipeline an Extended JSON array of stages; both may
// be empty. A pipeline turns the query into an aggregate, with a non-empty
// filter prepended as a $match stage.
func MongoQuery(collection, filter, pipeline string) (string, error) {
	q := map[string]any{"collection": collection}
	var f map[string]any
	if strings.TrimSpace(filter) != "" {
		if err := json.Unmarshal([]byte(filter), &f); err != nil {
			return "", fmt.Errorf("invalid filter JSON: %w", err)
		}
	}
	if strings.TrimSpace(pipeline) != "" {
		var stages []map[string]any
		if err := json.Unmarshal([]byte(pipeline), &stages); err != nil {
			return "", fmt.Errorf("invalid pipeline JSON: %w", err)
		}
		if f != nil {
			stages = append([]map[string]any{{"$match": f}}, stages...)
		}
		q["operation"] = "aggregate"
		q["pipeline"] = stages
	} else if f != nil {
		q["filter"] = f
	}
	b, err := json.Marshal(q)
	return string(b), err
}

// mongoURI returns the connection string and database name for conn.
func mongoURI(conn *Connection) (string, string) {
	uri := conn.DSN
	if uri == "" && (strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://")) {
		uri = conn.Host
	}
	if uri != "" {
		// Replace <password> placeholder commonly found in Atlas connection strings
		if conn.Password != "" {
			uri = strings.ReplaceAll(uri, "<password>", conn.Password)
			uri = strings.ReplaceAll(uri, "<db_password>", conn.Password)
		}
	} else {
		port := conn.Port
		if port == 0 {
			port = 27017
		}
		if conn.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, conn.Password, conn.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
		}
	}

	dbName := conn.Database
	if dbName == "" {
		dbName = dbNameFromURI(uri)
	}
	return uri, dbName
}

// dbNameFromURI extracts the database from user:pass@host/DB_NAME?params,
// falling back to "test".
func dbNameFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if atIdx := strings.Index(rest, "@"); atIdx != -1 {
		rest = rest[atIdx+1:]
	}
	if slashIdx := strings.Index(rest, "/"); slashIdx != -1 {
		path := rest[slashIdx+1:]
		if qIdx := strings.Index(path, "?"); qIdx != -1 {
			path = path[:qIdx]
		}
		if path != "" {
			return path
		}
	}
	return "test"
}

func connectMongo(conn *Connection) (*mongo.Client, string, error) {
	uri, dbName := mongoURI(conn)

	logURI := uri
	if conn.Password != "" {
		logURI = strings.ReplaceAll(logURI, conn.Password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s (database %s)", logURI, dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, "", fmt.Errorf("connect mongo: %w", err)
	}
	return client, dbName, nil
}

func newMongoConnector(conn *Connection) (*mongoConnector, error) {
	client, dbName, err := connectMongo(conn)
	if err != nil {
		return nil, err
	}
	return &mongoConnector{client: client, dbName: dbName}, nil
}

// unmarshalEJSON re-encodes a map[string]any field and uses bson.UnmarshalExtJSON
// to convert MongoDB Extended JSON types ($oid, $date, $numberLong, etc.) to BSON.
func unmarshalEJSON(field map[string]any) any {
	if field == nil {
		return nil
	}
	raw, err := json.Marshal(field)
	if err != nil {
		return field
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		log.Printf("[MONGO] EJSON parse warning: %v", err)
		return field
	}
	return doc
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCursorLocked(ctx)

	if fetchSize <= 0 {
		fetchSize = 50
	}

	var mq mongoQuery
	if err := json.Unmarshal([]byte(query), &mq); err != nil {
		return nil, fmt.Errorf("invalid query JSON: %w", err)
	}
	if mq.Collection == "" {
		return nil, fmt.Errorf("query must specify 'collection'")
	}

	coll := m.client.Database(m.dbName).Collection(mq.Collection)

	op := mq.Operation
	if op == "" {
		op = "find"
	}

	switch op {
	case "find":
		return m.execFind(ctx, coll, mq, fetchSize)
	case "aggregate":
		return m.execAggregate(ctx, coll, mq, fetchSize)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", op)
	}
}

func filterOf(mq mongoQuery) any {
	if f := unmarshalEJSON(mq.Filter); f != nil {
		return f
	}
	return bson.D{}
}

func (m *mongoConnector) execFind(ctx context.Context, coll *mongo.Collection, mq mongoQuery, fetchSize int) (*QueryPage, error) {
	opts := options.Find()
	if p := unmarshalEJSON(mq.Projection); p != nil {
		opts.SetProjection(p)
	}
	if s := unmarshalEJSON(mq.Sort); s != nil {
		opts.SetSort(s)
	}
	opts.SetBatchSize(int32(fetchSize))

	cursor, err := coll.Find(ctx, filterOf(mq), opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	m.cursor = cursor
	m.fetched = 0
	m.lastAccess = time.Now()

	return m.fetchMongoBatchLocked(ctx, fetchSize)
}

// pipelineOf converts each stage from Extended JSON so $oid, $date and
// friends reach the server as BSON types.
func pipelineOf(mq mongoQuery) bson.A {
	stages := bson.A{}
	for _, stage := range mq.Pipeline {
		stages = append(stages, unmarshalEJSON(stage))
	}
	return stages
}

func (m *mongoConnector) execAggregate(ctx context.Context, coll *mongo.Collection, mq mongoQuery, fetchSize int) (*QueryPage, error) {
	cursor, err := coll.Aggregate(ctx, pipelineOf(mq), options.Aggregate().SetBatchSize(int32(fetchSize)))
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	m.cursor = cursor
	m.fetched = 0
	m.lastAccess = time.Now()

	return m.fetchMongoBatchLocked(ctx, fetchSize)
}

func (m *mongoConnector) FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor == nil {
		return nil, fmt.Errorf("no active cursor, execute a query first")
	}
	if fetchSize <= 0 {
		fetchSize = 50
	}
	m.lastAccess = time.Now()
	return m.fetchMongoBatchLocked(ctx, fetchSize)
}

// fetchMongoBatchLocked decodes up to fetchSize documents, keeping each
// document's own field order. Columns lists every key seen in the page in
// first-seen order.
func (m *mongoConnector) fetchMongoBatchLocked(ctx context.Context, fetchSize int) (*QueryPage, error) {
	var records []*model.Record
	colSet := map[string]bool{}
	var columns []string
	for i := 0; i < fetchSize; i++ {
		if !m.cursor.Next(ctx) {
			break
		}
		var doc bson.D
		if err := m.cursor.Decode(&doc); err != nil {
			m.closeCursorLocked(ctx)
			return nil, fmt.Errorf("decode: %w", err)
		}
		for _, elem := range doc {
			if !colSet[elem.Key] {
				colSet[elem.Key] = true
				columns = append(columns, elem.Key)
			}
		}
		records = append(records, docRecord(doc))
	}

	if err := m.cursor.Err(); err != nil {
		m.closeCursorLocked(ctx)
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	m.fetched += len(records)

	hasMore := len(records) == fetchSize
	if !hasMore {
		m.closeCursorLocked(ctx)
	}

	return &QueryPage{
		Columns:      columns,
		Records:      records,
		TotalFetched: m.fetched,
		HasMore:      hasMore,
	}, nil
}

func (m *mongoConnector) Close() error {
	m.mu.Lock()
	m.closeCursorLocked(context.Background())
	m.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *mongoConnector) closeCursorLocked(ctx context.Context) {
	if m.cursor != nil {
		m.cursor.Close(ctx)
		m.cursor = nil
	}
}

// ── Writer ─────────────────────────────────────────────────

const defaultMongoBatch = 500

// mongoWriter buffers documents and sends them with InsertMany. MongoDB
// has no schema, so EnsureTable is a no-op and Rollback only discards
// the pending batch.
type mongoWriter struct {
	client    *mongo.Client
	dbName    string
	batchSize int

	table   string
	pending []any
}

func newMongoWriter(conn *Connection) (*mongoWriter, error) {
	client, dbName, err := connectMongo(conn)
	if err != nil {
		return nil, err
	}
	return &mongoWriter{client: client, dbName: dbName, batchSize: defaultMongoBatch}, nil
}

// SetBatchSize changes how many documents are sent per InsertMany.
func SetBatchSize(w Writer, n int) {
	if mw, ok := w.(*mongoWriter); ok && n > 0 {
		mw.batchSize = n
	}
}

func (w *mongoWriter) EnsureTable(context.Context, string, *model.Record) error { return nil }

func (w *mongoWriter) Begin(context.Context) error {
	w.pending = w.pending[:0]
	return nil
}

func (w *mongoWriter) Truncate(ctx context.Context, table string) error {
	if _, err := w.client.Database(w.dbName).Collection(table).DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

func (w *mongoWriter) Insert(ctx context.Context, table string, rec *model.Record) error {
	if w.table != "" && w.table != table {
		if err := w.flush(ctx); err != nil {
			return err
		}
	}
	w.table = table
	w.pending = append(w.pending, RecordDoc(rec))
	if len(w.pending) >= w.batchSize {
		return w.flush(ctx)
	}
	return nil
}

func (w *mongoWriter) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	coll := w.client.Database(w.dbName).Collection(w.table)
	if _, err := coll.InsertMany(ctx, w.pending); err != nil {
		return fmt.Errorf("insertMany %s: %w", w.table, err)
	}
	w.pending = w.pending[:0]
	return nil
}

func (w *mongoWriter) Commit(ctx context.Context) error { return w.flush(ctx) }

func (w *mongoWriter) Rollback() error {
	w.pending = w.pending[:0]
	return nil
}

func (w *mongoWriter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.client.Disconnect(ctx)
}
