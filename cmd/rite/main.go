package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"rite/internal/app"
	apperrors "rite/internal/errors"
	"rite/internal/etl"
	_ "rite/internal/etl/exporters"
	_ "rite/internal/etl/importers"
	_ "rite/internal/etl/transformers"
	"rite/internal/model"
	"rite/internal/secret"
)

// Version information
const Version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	File      string            `help:"Process description (XML or YAML)." short:"f" type:"path" default:"rite.xml"`
	Var       map[string]string `help:"Variable for substitution, KEY=VALUE. Repeatable." short:"D"`
	EnvFile   []string          `help:"Read variables from a .env file. Repeatable." type:"path"`
	NoEnv     bool              `help:"Do not resolve variables from the process environment."`
	Keychain  bool              `help:"Resolve variables from the macOS Keychain (service rite)."`
	DataDir   string            `help:"Directory for the run history database." type:"path"`
	NoHistory bool              `help:"Do not record run history."`
	Debug     bool              `help:"Enable debug logging." short:"d"`
	Version   kong.VersionFlag  `help:"Show version information." short:"v"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Run        RunCmd        `cmd:"" help:"Run processes once."`
	Preview    PreviewCmd    `cmd:"" help:"Show the first records a process would export."`
	Serve      ServeCmd      `cmd:"" help:"Run scheduled and watched processes until interrupted."`
	Mcp        McpCmd        `cmd:"" help:"Serve the MCP protocol on stdin/stdout."`
	List       ListCmd       `cmd:"" help:"List the processes of the description."`
	History    HistoryCmd    `cmd:"" help:"Show recent runs."`
	Components ComponentsCmd `cmd:"" help:"List the registered importers, transformers and exporters."`
	Infer      InferCmd      `cmd:"" help:"Infer a typed record from JSON."`
	Secret     SecretCmd     `cmd:"" help:"Manage variables stored in the macOS Keychain."`
}

func (g *Globals) options() app.Options {
	var secrets secret.Store
	if g.Keychain {
		secrets = secret.NewKeychainStore("")
	}
	return app.Options{
		Secrets:         secrets,
		DescriptionPath: g.File,
		DataDir:         g.DataDir,
		Vars:            g.Var,
		EnvFiles:        g.EnvFile,
		UseEnv:          !g.NoEnv,
		NoHistory:       g.NoHistory,
	}
}

// withApp starts an App for the duration of fn.
func (g *Globals) withApp(ctx context.Context, fn func(*app.App) error) error {
	a := app.New(g.options())
	if err := a.Startup(ctx); err != nil {
		return err
	}
	defer a.Shutdown(ctx)
	return fn(a)
}

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("rite"),
		kong.Description("Import, transform and export records as described by a process file"),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	if cli.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(0)
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	if err := kctx.Run(&cli.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", apperrors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: rite --help\n")
		stop()
		os.Exit(1)
	}
}

// ── Commands ───────────────────────────────────────────────

type RunCmd struct {
	IDs []string `arg:"" optional:"" name:"id" help:"Processes to run. All when omitted."`
}

func (c *RunCmd) Run(ctx context.Context, g *Globals) error {
	return g.withApp(ctx, func(a *app.App) error {
		var results []*etl.RunResult
		if len(c.IDs) == 0 {
			rs, err := a.Pipelines().RunAll(ctx)
			printResults(os.Stdout, rs)
			return err
		}
		for _, id := range c.IDs {
			r, err := a.Pipelines().RunProcess(ctx, id)
			if r != nil {
				results = append(results, r)
			}
			if err != nil {
				printResults(os.Stdout, results)
				return err
			}
		}
		printResults(os.Stdout, results)
		return nil
	})
}

type PreviewCmd struct {
	ID  string `arg:"" help:"Process to preview."`
	Max int    `help:"Maximum number of records." short:"n" default:"10"`
}

func (c *PreviewCmd) Run(ctx context.Context, g *Globals) error {
	return g.withApp(ctx, func(a *app.App) error {
		res, err := a.Pipelines().Preview(ctx, c.ID, c.Max)
		if err != nil {
			return err
		}
		printSchema(os.Stdout, res.Schema)
		fmt.Fprintln(os.Stdout)
		for _, rec := range res.Records {
			fmt.Fprintln(os.Stdout, rec.String())
		}
		return nil
	})
}

type ServeCmd struct{}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	// serve is long running; keep its log even without --debug.
	if !g.Debug {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	}
	return g.withApp(ctx, func(a *app.App) error {
		return a.Serve(ctx)
	})
}

type McpCmd struct {
	ReadOnly bool `help:"Do not expose tools that run processes."`
}

func (c *McpCmd) Run(ctx context.Context, g *Globals) error {
	return g.withApp(ctx, func(a *app.App) error {
		return a.ServeMCP(c.ReadOnly, Version)
	})
}

type ListCmd struct{}

func (c *ListCmd) Run(ctx context.Context, g *Globals) error {
	return g.withApp(ctx, func(a *app.App) error {
		procs, err := a.Pipelines().ListProcesses()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tIMPORTER\tEXPORTERS\tSCHEDULE\tWATCH\tLAST RUN")
		for _, p := range procs {
			last := "-"
			if p.Status != nil && p.Status.LastRunAt != nil {
				last = fmt.Sprintf("%s %s", p.Status.LastRunAt.Format("2006-01-02 15:04:05"), p.Status.LastStatus)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", p.ID, p.Importer, len(p.Exporters), dash(p.Schedule), dash(p.Watch), last)
		}
		return w.Flush()
	})
}

type HistoryCmd struct {
	ID    string `arg:"" optional:"" help:"Only runs of this process."`
	Limit int    `help:"Number of runs to show." short:"n" default:"20"`
}

func (c *HistoryCmd) Run(ctx context.Context, g *Globals) error {
	return g.withApp(ctx, func(a *app.App) error {
		logs, err := a.Pipelines().ListRunLogs(c.ID, c.Limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tPROCESS\tTRIGGER\tSTATUS\tREAD\tDROPPED\tWRITTEN\tDURATION\tERROR")
		for _, l := range logs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				l.StartedAt.Format("2006-01-02 15:04:05"), l.ProcessID, l.Trigger, l.Status,
				l.RecordsRead, l.RecordsDropped, l.RecordsWritten, l.Duration, l.Error)
		}
		return w.Flush()
	})
}

// ComponentsCmd needs no description file.
type ComponentsCmd struct {
	JSON bool `help:"Print as JSON."`
}

func (c *ComponentsCmd) Run() error {
	return printComponents(os.Stdout, etl.ListComponents(), c.JSON)
}

// InferCmd needs no description file.
type InferCmd struct {
	Input string `arg:"" optional:"" help:"JSON file. Reads stdin when omitted." type:"path"`
	JSON  bool   `help:"Print the record back as JSON."`
}

func (c *InferCmd) Run() error {
	in := io.Reader(os.Stdin)
	if c.Input != "" {
		f, err := os.Open(c.Input)
		if err != nil {
			return fmt.Errorf("open %s: %w", c.Input, err)
		}
		defer f.Close()
		in = f
	}
	return infer(os.Stdout, in, c.JSON)
}

type SecretCmd struct {
	Set    SecretSetCmd    `cmd:"" help:"Store a variable. The value is read from stdin."`
	Delete SecretDeleteCmd `cmd:"" help:"Remove a variable."`
}

type SecretSetCmd struct {
	Key string `arg:"" help:"Variable name."`
}

func (c *SecretSetCmd) Run() error {
	return setSecret(secret.NewKeychainStore(""), c.Key, os.Stdin)
}

type SecretDeleteCmd struct {
	Key string `arg:"" help:"Variable name."`
}

func (c *SecretDeleteCmd) Run() error {
	return secret.NewKeychainStore("").Delete(c.Key)
}

func setSecret(s secret.Store, key string, in io.Reader) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	value := strings.TrimRight(string(data), "\r\n")
	if value == "" {
		return fmt.Errorf("secret %s: empty value", key)
	}
	return s.Set(key, []byte(value))
}

// ── Output ─────────────────────────────────────────────────

func infer(w io.Writer, in io.Reader, asJSON bool) error {
	v, err := model.DecodeJSON(in)
	if err != nil {
		return err
	}
	rec, ok := v.Record()
	if !ok {
		// Scalars and arrays have no schema; show the value itself.
		fmt.Fprintf(w, "%s: %s\n", v.Kind(), v)
		return nil
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	fmt.Fprintln(w, rec.String())
	fmt.Fprintln(w)
	printSchema(w, etl.SchemaOf(rec))
	return nil
}

func printResults(w io.Writer, results []*etl.RunResult) {
	for _, r := range results {
		fmt.Fprintf(w, "%s: %s read=%d dropped=%d written=%d in %s\n",
			r.ProcessID, r.Status, r.RecordsRead, r.RecordsDropped, r.RecordsWritten, r.Duration)
	}
}

func printSchema(w io.Writer, s *etl.Schema) {
	if s == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE")
	for _, c := range s.Columns {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Type)
	}
	tw.Flush()
}

func printComponents(w io.Writer, specs []etl.ComponentSpec, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(specs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tDESCRIPTION")
	for _, s := range specs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Kind, s.Name, s.Description)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
