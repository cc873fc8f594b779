package importers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rite/internal/config"
	"rite/internal/dbclient"
	"rite/internal/etl"
	"rite/internal/model"
	"rite/internal/objectstore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newImporter(t *testing.T, name string, cfg *config.Configuration) etl.Importer {
	t.Helper()
	imp, err := etl.NewImporter(name)
	require.NoError(t, err)
	require.NoError(t, imp.Init(cfg))
	return imp
}

func readAll(t *testing.T, imp etl.Importer) []string {
	t.Helper()
	h := &etl.CollectingHandler{}
	require.NoError(t, imp.Read(context.Background(), h))
	return strings.Fields(recordsString(h.Records))
}

func recordsString(recs []*model.Record) string {
	var sb strings.Builder
	for _, r := range recs {
		sb.WriteString(strings.ReplaceAll(r.String(), " ", "_"))
		sb.WriteByte(' ')
	}
	return sb.String()
}

// ── JSON ───────────────────────────────────────────────────

func TestJSONImporterDataPath(t *testing.T) {
	path := writeFile(t, "in.json", `{"data": {"items": [{"name": "John Doe", "age": 30}, {"name": "Jane", "age": -5}, 7]}}`)
	imp := newImporter(t, "json", config.New("file_name", path, "data_path", "data.items"))

	h := &etl.CollectingHandler{}
	require.NoError(t, imp.Read(context.Background(), h))
	require.Len(t, h.Records, 3)
	assert.Equal(t, "{name=John Doe, age=30}", h.Records[0].String())
	assert.Equal(t, model.KindU8, h.Records[0].Get("age").Kind())
	assert.Equal(t, model.KindI8, h.Records[1].Get("age").Kind())
	assert.Equal(t, "{value=7}", h.Records[2].String())
}

func TestJSONImporterSingleObject(t *testing.T) {
	path := writeFile(t, "in.json", `{"b": "2023-10-27", "a": "x"}`)
	imp := newImporter(t, "json", config.New("file_name", path))

	h := &etl.CollectingHandler{}
	require.NoError(t, imp.Read(context.Background(), h))
	require.Len(t, h.Records, 1)
	assert.Equal(t, []string{"b", "a"}, h.Records[0].Names())
	assert.Equal(t, model.KindDate, h.Records[0].Get("b").Kind())
	assert.Equal(t, model.KindChar, h.Records[0].Get("a").Kind())
}

func TestJSONImporterLines(t *testing.T) {
	path := writeFile(t, "in.ndjson", "{\"n\": 1}\n{\"n\": 2}\n\n{\"n\": 3}\n")
	imp := newImporter(t, "json", config.New("file_name", path, "lines", "true"))
	assert.Equal(t, []string{"{n=1}", "{n=2}", "{n=3}"}, readAll(t, imp))
}

func TestJSONImporterErrors(t *testing.T) {
	bad := writeFile(t, "bad.json", `[{"a": 1}`)
	err := newImporter(t, "json", config.New("file_name", bad)).Read(context.Background(), &etl.CollectingHandler{})
	assert.ErrorContains(t, err, "parse json")

	ok := writeFile(t, "ok.json", `{"data": []}`)
	err = newImporter(t, "json", config.New("file_name", ok, "data_path", "items")).Read(context.Background(), &etl.CollectingHandler{})
	assert.ErrorContains(t, err, `"items" not found`)

	empty := writeFile(t, "empty.json", "")
	assert.Empty(t, readAll(t, newImporter(t, "json", config.New("file_name", empty))))

	imp, err := etl.NewImporter("json")
	require.NoError(t, err)
	assert.ErrorContains(t, imp.Init(config.New()), "file_name")
}

// ── Text ───────────────────────────────────────────────────

func TestTextImporterResumesAndResets(t *testing.T) {
	path := writeFile(t, "in.txt", "first\r\nsecond\nthird")
	imp := newImporter(t, "text", config.New("file_name", path))
	defer imp.(*textImporter).Close()

	h := &etl.CollectingHandler{Max: 2}
	assert.ErrorIs(t, imp.Read(context.Background(), h), etl.ErrStopImport)
	require.Len(t, h.Records, 2)
	assert.Equal(t, "{line_number=1, line=first}", h.Records[0].String())
	assert.Equal(t, model.KindU64, h.Records[0].Get("line_number").Kind())

	rest := &etl.CollectingHandler{}
	require.NoError(t, imp.Read(context.Background(), rest))
	require.Len(t, rest.Records, 1)
	assert.Equal(t, "{line_number=3, line=third}", rest.Records[0].String())

	require.NoError(t, imp.Reset())
	again := &etl.CollectingHandler{}
	require.NoError(t, imp.Read(context.Background(), again))
	assert.Len(t, again.Records, 3)
}

func TestTextImporterMissingFile(t *testing.T) {
	imp := newImporter(t, "text", config.New("file_name", filepath.Join(t.TempDir(), "nope.txt")))
	assert.ErrorContains(t, imp.Read(context.Background(), &etl.CollectingHandler{}), "open file")
}

// ── CSV ────────────────────────────────────────────────────

func TestCSVImporterInfersCells(t *testing.T) {
	path := writeFile(t, "in.csv", "name,age,active,note\nann,30,true,\nbob,-2,false,x,extra\n")
	imp := newImporter(t, "csv", config.New("file_name", path))

	h := &etl.CollectingHandler{}
	require.NoError(t, imp.Read(context.Background(), h))
	require.Len(t, h.Records, 2)
	assert.Equal(t, "{name=ann, age=30, active=true, note=<None>}", h.Records[0].String())
	assert.Equal(t, model.KindBool, h.Records[0].Get("active").Kind())
	assert.True(t, h.Records[0].Get("note").IsNone())
	assert.Equal(t, "{name=bob, age=-2, active=false, note=x, col_5=extra}", h.Records[1].String())
	assert.Equal(t, model.KindI8, h.Records[1].Get("age").Kind())
}

func TestCSVImporterWithoutHeader(t *testing.T) {
	path := writeFile(t, "in.csv", "1;2.5\n300;abc\n")
	imp := newImporter(t, "csv", config.New("file_name", path, "delimiter", ";", "has_header", "false"))
	assert.Equal(t, []string{"{col_1=1,_col_2=2.5}", "{col_1=300,_col_2=abc}"}, readAll(t, imp))
}

func TestCSVImporterRejectsLongDelimiter(t *testing.T) {
	imp, err := etl.NewImporter("csv")
	require.NoError(t, err)
	assert.ErrorContains(t, imp.Init(config.New("file_name", "x.csv", "delimiter", "||")), "single character")
}

// ── HTTP ───────────────────────────────────────────────────

func TestHTTPImporterFollowsNextPage(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/items":
			w.Write([]byte(`{"result": {"items": [{"id": 1, "name": "a"}, {"id": 2, "name": "b"}]}, "next": "/items/2"}`))
		case "/items/2":
			w.Write([]byte(`{"result": {"items": [{"id": 3, "name": "c"}]}, "next": null}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	imp := newImporter(t, "http", config.New(
		"url", srv.URL+"/items",
		"headers", `{"Authorization": "Bearer t0k"}`,
		"data_path", "result.items",
		"next_path", "next",
		"rate", "50",
	))
	assert.Equal(t, []string{"{id=1,_name=a}", "{id=2,_name=b}", "{id=3,_name=c}"}, readAll(t, imp))
	assert.Equal(t, []string{"Bearer t0k", "Bearer t0k"}, auth)
}

func TestHTTPImporterMaxPages(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"items": [{"n": 1}], "next": "/again?page=` + r.URL.Query().Get("page") + `x"}`))
	}))
	defer srv.Close()

	imp := newImporter(t, "http", config.New("url", srv.URL, "data_path", "items", "next_path", "next", "max_pages", "3"))
	assert.Len(t, readAll(t, imp), 3)
	assert.Equal(t, 3, calls)
}

func TestHTTPImporterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	imp := newImporter(t, "http", config.New("url", srv.URL))
	err := imp.Read(context.Background(), &etl.CollectingHandler{})
	assert.ErrorContains(t, err, "http 500")
}

func TestHTTPImporterInit(t *testing.T) {
	imp, err := etl.NewImporter("http")
	require.NoError(t, err)
	assert.ErrorContains(t, imp.Init(config.New("url", "not a url")), "invalid url")
	assert.ErrorContains(t, imp.Init(config.New("url", "http://x", "headers", "[1]")), "headers")
	assert.ErrorContains(t, imp.Init(config.New("url", "http://x", "timeout", "soon")), "timeout")
}

func TestNextURL(t *testing.T) {
	tree := model.Object{{Key: "links", Value: model.Object{{Key: "next", Value: "?page=2"}}}}
	next, err := nextURL(tree, "links.next", "http://api.local/v1/items?page=1")
	require.NoError(t, err)
	assert.Equal(t, "http://api.local/v1/items?page=2", next)

	next, err = nextURL(tree, "links.prev", "http://api.local/v1/items")
	require.NoError(t, err)
	assert.Empty(t, next)

	_, err = nextURL(model.Object{{Key: "next", Value: []any{}}}, "next", "http://x")
	assert.Error(t, err)
}

// ── Database ───────────────────────────────────────────────

func TestDatabaseImporterPagesThroughSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "src.db")
	c, err := dbclient.NewConnector(&dbclient.Connection{Driver: dbclient.DriverSQLite, Host: dbPath})
	require.NoError(t, err)
	_, err = c.Execute(context.Background(), "CREATE TABLE t (id INTEGER, name TEXT)", 0)
	require.NoError(t, err)
	_, err = c.Execute(context.Background(), "INSERT INTO t VALUES (1, 'a'), (2, 'b'), (3, NULL)", 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	imp := newImporter(t, "database", config.New(
		"driver", "sqlite", "host", dbPath,
		"query", "SELECT id, name FROM t ORDER BY id",
		"fetch_size", "2",
	))
	assert.Equal(t, []string{"{id=1,_name=a}", "{id=2,_name=b}", "{id=3,_name=<None>}"}, readAll(t, imp))
}

func TestDatabaseImporterInit(t *testing.T) {
	imp, err := etl.NewImporter("database")
	require.NoError(t, err)
	assert.ErrorContains(t, imp.Init(config.New("driver", "sqlite", "host", "x.db")), "query")
	assert.ErrorContains(t, imp.Init(config.New("driver", "mongodb", "host", "h", "query", "{}")), "mongodb importer")
	assert.ErrorContains(t, imp.Init(config.New("driver", "sqlite", "host", "x.db", "query", "SELECT 1", "fetch_size", "many")), "fetch_size")
}

func TestDatabaseImporterRejectsWrites(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "w.db")
	imp := newImporter(t, "database", config.New("driver", "sqlite", "host", dbPath, "query", "CREATE TABLE x (a INTEGER)"))
	assert.ErrorContains(t, imp.Read(context.Background(), &etl.CollectingHandler{}), "not a read")
}

// ── MongoDB ────────────────────────────────────────────────

func TestMongoImporterInit(t *testing.T) {
	imp, err := etl.NewImporter("mongodb")
	require.NoError(t, err)
	assert.ErrorContains(t, imp.Init(config.New("uri", "mongodb://localhost")), "collection")
	assert.ErrorContains(t, imp.Init(config.New("uri", "mongodb://localhost", "collection", "c", "filter", "{")), "filter")

	require.NoError(t, imp.Init(config.New("uri", "mongodb://localhost/shop", "collection", "orders", "filter", `{"status": "open"}`)))
	m := imp.(*mongoImporter)
	assert.JSONEq(t, `{"collection": "orders", "filter": {"status": "open"}}`, m.query)
	assert.Equal(t, defaultFetchSize, m.fetchSize)
}

func TestMongoImporterPipeline(t *testing.T) {
	imp := newImporter(t, "mongodb", config.New(
		"uri", "mongodb://localhost/shop",
		"collection", "orders",
		"filter", `{"status": "open"}`,
		"pipeline", `[{"$group": {"_id": "$customer", "n": {"$sum": 1}}}]`,
	))
	assert.JSONEq(t, `{
		"collection": "orders",
		"operation": "aggregate",
		"pipeline": [
			{"$match": {"status": "open"}},
			{"$group": {"_id": "$customer", "n": {"$sum": 1}}}
		]
	}`, imp.(*mongoImporter).query)

	bad, err := etl.NewImporter("mongodb")
	require.NoError(t, err)
	assert.ErrorContains(t, bad.Init(config.New("uri", "mongodb://localhost", "collection", "c", "pipeline", `{"$match": {}}`)), "pipeline")
}

// ── Object storage ─────────────────────────────────────────

func withMemoryStore(t *testing.T) *objectstore.MemoryStore {
	t.Helper()
	mem := objectstore.NewMemoryStore()
	prev := newStore
	newStore = func(objectstore.Config) (objectstore.Store, error) { return mem, nil }
	t.Cleanup(func() { newStore = prev })
	return mem
}

func TestObjectImporter(t *testing.T) {
	mem := withMemoryStore(t)
	mem.Objects["in/data.jsonl"] = []byte("{\"k\": \"v1\"}\n{\"k\": \"v2\"}\n")
	mem.Objects["in/doc.json"] = []byte(`{"rows": [{"k": true}]}`)

	base := []string{"endpoint", "localhost:9000", "bucket", "b", "access_key", "a", "secret_key", "s"}

	imp := newImporter(t, "object", config.New(append(base, "object", "in/data.jsonl")...))
	assert.Equal(t, []string{"{k=v1}", "{k=v2}"}, readAll(t, imp))

	imp = newImporter(t, "object", config.New(append(base, "object", "in/doc.json", "data_path", "rows")...))
	assert.Equal(t, []string{"{k=true}"}, readAll(t, imp))

	imp = newImporter(t, "object", config.New(append(base, "object", "missing.json")...))
	assert.Error(t, imp.Read(context.Background(), &etl.CollectingHandler{}))
}

func TestRegisteredImporters(t *testing.T) {
	var names []string
	for _, c := range etl.ListComponents() {
		if c.Kind == etl.KindImporter {
			names = append(names, c.Name)
		}
	}
	assert.Equal(t, []string{"csv", "database", "http", "json", "mongodb", "object", "text"}, names)
}
