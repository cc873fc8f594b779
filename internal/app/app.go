package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rite/internal/rite"
	"rite/internal/secret"
	"rite/internal/service"
	"rite/internal/storage"
)

// Options configures an App.
type Options struct {
	// DescriptionPath is the XML or YAML process description.
	DescriptionPath string
	// DataDir holds the run history database. Empty means
	// ~/.local/share/rite.
	DataDir string
	// Vars are user variables for substitution. They win over EnvFiles,
	// then Secrets, then the process environment when UseEnv is set.
	Vars     map[string]string
	EnvFiles []string
	Secrets  secret.Store
	UseEnv   bool
	// NoHistory skips the run history database.
	NoHistory bool
	Emitter   service.EventEmitter
}

// App owns the loaded description, the run history database and the
// pipeline service built on them.
type App struct {
	opts      Options
	lookup    rite.Lookup
	db        *storage.DB
	runs      *storage.RunStore
	pipelines *service.PipelineService
	watcher   *descriptionWatcher
}

// New creates a new App. Call Startup before using it.
func New(opts Options) *App {
	return &App{opts: opts}
}

// Startup loads the description and opens the run history.
func (a *App) Startup(ctx context.Context) error {
	lookup, err := a.buildLookup()
	if err != nil {
		return err
	}
	a.lookup = lookup

	r, err := a.loadDescription()
	if err != nil {
		return err
	}

	if !a.opts.NoHistory {
		dbPath := filepath.Join(a.dataDir(), "rite.db")
		db, err := storage.New(dbPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		a.db = db
		a.runs = storage.NewRunStore(db)
	}

	a.pipelines = service.NewPipelineService(r, a.runs, a.opts.Emitter)
	return nil
}

// Shutdown stops triggers and closes the database.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.pipelines != nil {
		a.pipelines.Stop()
		a.pipelines.WaitRunning(ctx)
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Pipelines returns the service. Nil before Startup.
func (a *App) Pipelines() *service.PipelineService {
	return a.pipelines
}

// Runs returns the run history store, or nil with NoHistory.
func (a *App) Runs() *storage.RunStore {
	return a.runs
}

func (a *App) buildLookup() (rite.Lookup, error) {
	lookups := []rite.Lookup{rite.MapLookup(a.opts.Vars)}
	if len(a.opts.EnvFiles) > 0 {
		dotenv, err := rite.DotEnvLookup(a.opts.EnvFiles...)
		if err != nil {
			return nil, err
		}
		lookups = append(lookups, dotenv)
	}
	if a.opts.Secrets != nil {
		lookups = append(lookups, secret.Lookup(a.opts.Secrets))
	}
	if a.opts.UseEnv {
		lookups = append(lookups, rite.EnvLookup())
	}
	return rite.Chain(lookups...), nil
}

func (a *App) loadDescription() (*rite.Rite, error) {
	r, err := rite.Load(a.opts.DescriptionPath, a.lookup)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *App) dataDir() string {
	if a.opts.DataDir != "" {
		return a.opts.DataDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("rite: no home directory, keeping run history in %s", rite.Pwd())
		return filepath.Join(rite.Pwd(), ".rite")
	}
	return filepath.Join(homeDir, ".local", "share", "rite")
}
