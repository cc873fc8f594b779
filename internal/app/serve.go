package app

import (
	"context"
	"log"
	"time"

	mcpserver "rite/internal/mcp"
)

const shutdownGrace = 30 * time.Second

// Serve starts the schedule and watch triggers, reloads the description
// when its file changes, and blocks until ctx is cancelled. Running
// processes get shutdownGrace to finish.
func (a *App) Serve(ctx context.Context) error {
	if err := a.pipelines.StartTriggers(ctx); err != nil {
		// Valid triggers are running; report the broken ones.
		log.Printf("rite serve: %v", err)
	}

	a.watcher = newDescriptionWatcher(ctx, a.opts.DescriptionPath, a.reload)
	a.watcher.Start()

	log.Printf("rite serve: running %s", a.opts.DescriptionPath)
	<-ctx.Done()
	log.Println("rite serve: shutting down")

	a.watcher.Stop()
	a.pipelines.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	a.pipelines.WaitRunning(waitCtx)
	return nil
}

// reload re-reads the description and restarts triggers. A description
// that no longer loads leaves the previous one in place.
func (a *App) reload(ctx context.Context) {
	r, err := a.loadDescription()
	if err != nil {
		log.Printf("rite serve: reload failed, keeping previous description: %v", err)
		return
	}
	a.pipelines.SetRite(r)
	if err := a.pipelines.StartTriggers(ctx); err != nil {
		log.Printf("rite serve: %v", err)
	}
	log.Printf("rite serve: reloaded %s (%d processes)", a.opts.DescriptionPath, len(r.Processes))
}

// ServeMCP runs the MCP server on stdin/stdout until the client leaves.
func (a *App) ServeMCP(readOnly bool, version string) error {
	srv := mcpserver.New(mcpserver.Deps{
		Pipelines: a.pipelines,
		ReadOnly:  readOnly,
		Version:   version,
	})
	return srv.ServeStdio()
}
