package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rite/internal/etl"
	"rite/internal/secret"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Name("rite"), kong.Vars{"version": Version}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	return parser
}

func TestParseFlags(t *testing.T) {
	var cli CLI
	kctx, err := newParser(t, &cli).Parse([]string{
		"-f", "procs.yaml", "-D", "HOST=db", "-D", "PORT=5432", "--no-env", "--no-history", "run", "a", "b",
	})
	require.NoError(t, err)

	assert.Equal(t, "run <id>", kctx.Command())
	assert.True(t, strings.HasSuffix(cli.File, "procs.yaml"))
	assert.Equal(t, map[string]string{"HOST": "db", "PORT": "5432"}, cli.Var)
	assert.Equal(t, []string{"a", "b"}, cli.Run.IDs)

	opts := cli.Globals.options()
	assert.False(t, opts.UseEnv)
	assert.True(t, opts.NoHistory)
	assert.Equal(t, cli.File, opts.DescriptionPath)
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"run"}, "run"},
		{[]string{"preview", "p1", "-n", "3"}, "preview <id>"},
		{[]string{"serve"}, "serve"},
		{[]string{"mcp", "--read-only"}, "mcp"},
		{[]string{"list"}, "list"},
		{[]string{"history"}, "history"},
		{[]string{"history", "p1"}, "history <id>"},
		{[]string{"components", "--json"}, "components"},
		{[]string{"infer"}, "infer"},
		{[]string{"secret", "set", "DB_PASSWORD"}, "secret set <key>"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			var cli CLI
			kctx, err := newParser(t, &cli).Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kctx.Command())
		})
	}

	var cli CLI
	_, err := newParser(t, &cli).Parse([]string{"preview"})
	assert.Error(t, err, "preview needs a process id")
}

func TestInfer(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, infer(&out, strings.NewReader(`{"id": 7, "name": "alice", "joined": "2024-03-01"}`), false))

	text := out.String()
	assert.Contains(t, text, "{id=7, name=alice, joined=2024-03-01}")
	assert.Regexp(t, `id\s+U8`, text)
	assert.Regexp(t, `name\s+String`, text)
	assert.Regexp(t, `joined\s+Date`, text)
}

func TestInferScalarAndErrors(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, infer(&out, strings.NewReader(`-300`), false))
	assert.Equal(t, "I16: -300\n", out.String())

	assert.Error(t, infer(&out, strings.NewReader(`{"a":`), false))
	assert.Error(t, infer(&out, strings.NewReader(``), false))
}

func TestPrintComponents(t *testing.T) {
	specs := []etl.ComponentSpec{
		{Kind: etl.KindImporter, Name: "text", Description: "Lines of a text file"},
		{Kind: etl.KindExporter, Name: "console", Description: "Print records"},
	}

	var out bytes.Buffer
	require.NoError(t, printComponents(&out, specs, false))
	assert.Regexp(t, `importer\s+text\s+Lines of a text file`, out.String())

	out.Reset()
	require.NoError(t, printComponents(&out, specs, true))
	assert.Contains(t, out.String(), `"name": "console"`)
}

func TestPrintResults(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, []*etl.RunResult{{ProcessID: "p1", Status: etl.StatusSuccess, RecordsRead: 3, RecordsWritten: 2, RecordsDropped: 1}})
	assert.Equal(t, "p1: success read=3 dropped=1 written=2 in 0s\n", out.String())
}

func TestSetSecret(t *testing.T) {
	s := secret.NewMemoryStore()
	require.NoError(t, setSecret(s, "DB_PASSWORD", strings.NewReader("hunter2\n")))
	v, err := s.Get("DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(v))

	assert.Error(t, setSecret(s, "EMPTY", strings.NewReader("\n")))
}
