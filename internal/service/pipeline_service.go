package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	apperrors "rite/internal/errors"
	"rite/internal/etl"
	"rite/internal/model"
	"rite/internal/rite"
	"rite/internal/storage"
)

const (
	defaultRunTimeout     = 5 * time.Minute
	defaultPreviewTimeout = 30 * time.Second
	watchDebounce         = 500 * time.Millisecond
)

// ─────────────────────────────────────────────────────────────
// PipelineService — runs the processes of a loaded description
// ─────────────────────────────────────────────────────────────

// PipelineService runs processes on demand, on a cron schedule or when a
// watched file changes, and records every run.
type PipelineService struct {
	mu      sync.RWMutex
	rite    *rite.Rite
	store   *storage.RunStore
	emitter EventEmitter
	engine  *etl.Engine
	running runningGuard

	// RunTimeout bounds a single run; zero means five minutes.
	RunTimeout time.Duration

	// trigger lifecycle
	triggerMu   sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewPipelineService creates a PipelineService. store may be nil to skip
// run history; a nil emitter logs events.
func NewPipelineService(r *rite.Rite, store *storage.RunStore, emitter EventEmitter) *PipelineService {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	return &PipelineService{
		rite:    r,
		store:   store,
		emitter: emitter,
		engine:  &etl.Engine{},
	}
}

// SetRite swaps the loaded description. Running processes keep the spec
// they started with.
func (s *PipelineService) SetRite(r *rite.Rite) {
	s.mu.Lock()
	s.rite = r
	s.mu.Unlock()
}

func (s *PipelineService) description() (*rite.Rite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rite == nil {
		return nil, apperrors.NewDescriptionError("no description loaded", apperrors.ErrNoProcesses)
	}
	return s.rite, nil
}

// ── Processes ──────────────────────────────────────────────

// ProcessInfo summarizes a process of the loaded description.
type ProcessInfo struct {
	ID           string                 `json:"id"`
	Schedule     string                 `json:"schedule,omitempty"`
	Watch        string                 `json:"watch,omitempty"`
	Importer     string                 `json:"importer"`
	Transformers []string               `json:"transformers,omitempty"`
	Exporters    []string               `json:"exporters"`
	Running      bool                   `json:"running"`
	Status       *storage.ProcessStatus `json:"status,omitempty"`
}

// ListProcesses describes every process in description order.
func (s *PipelineService) ListProcesses() ([]ProcessInfo, error) {
	r, err := s.description()
	if err != nil {
		return nil, err
	}
	running := map[string]bool{}
	for _, id := range s.running.Running() {
		running[id] = true
	}

	out := make([]ProcessInfo, 0, len(r.Processes))
	for i := range r.Processes {
		p := &r.Processes[i]
		spec := r.ProcessSpec(p)
		info := ProcessInfo{
			ID:       p.ID,
			Schedule: p.Schedule,
			Watch:    p.Watch,
			Importer: spec.Importer.Name,
			Running:  running[p.ID],
		}
		for _, t := range spec.Transformers {
			info.Transformers = append(info.Transformers, t.Name)
		}
		for _, x := range spec.Exporters {
			info.Exporters = append(info.Exporters, x.Name)
		}
		if s.store != nil {
			if st, err := s.store.GetStatus(p.ID); err == nil {
				info.Status = st
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// ListComponents returns every registered component.
func (s *PipelineService) ListComponents() []etl.ComponentSpec {
	return etl.ListComponents()
}

// ── Run ────────────────────────────────────────────────────

// RunProcess runs process id synchronously.
func (s *PipelineService) RunProcess(ctx context.Context, id string) (*etl.RunResult, error) {
	return s.runProcess(ctx, id, storage.TriggerManual)
}

func (s *PipelineService) runProcess(ctx context.Context, id, trigger string) (*etl.RunResult, error) {
	r, err := s.description()
	if err != nil {
		return nil, err
	}
	spec, err := r.Spec(id)
	if err != nil {
		return nil, err
	}

	// Prevent concurrent execution of the same process.
	if !s.running.TryLock(id) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAlreadyRunning, id)
	}
	defer s.running.Unlock(id)

	timeout := s.RunTimeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, runErr := s.engine.Run(runCtx, spec)

	if s.store != nil {
		if err := s.store.CreateRunLog(&storage.RunLog{RunResult: *result, Trigger: trigger}); err != nil {
			log.Printf("rite service: save run log for %s: %v", id, err)
		}
	}
	s.emitter.Emit(ctx, EventProcessCompleted, result)
	return result, runErr
}

// RunAll runs every process once, in description order. A failing
// process does not stop the others.
func (s *PipelineService) RunAll(ctx context.Context) ([]*etl.RunResult, error) {
	r, err := s.description()
	if err != nil {
		return nil, err
	}
	var results []*etl.RunResult
	var errs []error
	for _, p := range r.Processes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.RunProcess(ctx, p.ID)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("process %s: %w", p.ID, err))
		}
	}
	return results, errors.Join(errs...)
}

// ListRunLogs returns the latest runs of process id. An empty id lists
// all processes.
func (s *PipelineService) ListRunLogs(id string, limit int) ([]storage.RunLog, error) {
	if s.store == nil {
		return nil, apperrors.NewStorageError("run history is disabled", nil)
	}
	return s.store.ListRunLogs(id, limit)
}

// ── Preview ────────────────────────────────────────────────

// PreviewResult is the response from Preview.
type PreviewResult struct {
	Schema  *etl.Schema     `json:"schema"`
	Records []*model.Record `json:"records"`
}

// Preview imports and transforms at most maxRecords records of process id
// without exporting them.
func (s *PipelineService) Preview(ctx context.Context, id string, maxRecords int) (*PreviewResult, error) {
	r, err := s.description()
	if err != nil {
		return nil, err
	}
	spec, err := r.Spec(id)
	if err != nil {
		return nil, err
	}
	if maxRecords <= 0 {
		maxRecords = 10
	}

	previewCtx, cancel := context.WithTimeout(ctx, defaultPreviewTimeout)
	defer cancel()

	records, schema, err := s.engine.Preview(previewCtx, spec, maxRecords)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Schema: schema, Records: records}, nil
}

// ── Triggers (cron + watch) ────────────────────────────────

// StartTriggers tears down the current scheduler and watcher and starts
// new ones for every process with a schedule or a watch path. Processes
// whose trigger cannot be set up are reported in the returned error; the
// others still start.
func (s *PipelineService) StartTriggers(ctx context.Context) error {
	r, err := s.description()
	if err != nil {
		return err
	}

	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()
	s.stopTriggersLocked()

	var errs []error

	// ── Cron schedules ──
	c := cron.New()
	scheduled := 0
	for _, p := range r.Processes {
		if p.Schedule == "" {
			continue
		}
		id := p.ID
		_, err := c.AddFunc(p.Schedule, func() {
			log.Printf("rite cron: running process %s", id)
			s.emitter.Emit(ctx, EventTriggerFired, map[string]string{"processId": id, "trigger": storage.TriggerSchedule})
			if _, err := s.runProcess(ctx, id, storage.TriggerSchedule); err != nil {
				log.Printf("rite cron: process %s failed: %v", id, err)
			}
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("process %s: invalid schedule %q: %w", id, p.Schedule, err))
			continue
		}
		scheduled++
	}
	if scheduled > 0 {
		c.Start()
		s.cronSched = c
		log.Printf("rite cron: scheduled %d process(es)", scheduled)
	}

	// ── File watchers ──
	// One file may trigger several processes.
	pathToProcess := map[string][]string{}
	for _, p := range r.Processes {
		if p.Watch == "" {
			continue
		}
		abs, err := filepath.Abs(p.Watch)
		if err != nil {
			errs = append(errs, fmt.Errorf("process %s: bad watch path %q: %w", p.ID, p.Watch, err))
			continue
		}
		pathToProcess[abs] = append(pathToProcess[abs], p.ID)
	}
	if len(pathToProcess) == 0 {
		return errors.Join(errs...)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		errs = append(errs, fmt.Errorf("create watcher: %w", err))
		return errors.Join(errs...)
	}
	s.watcher = watcher

	watchedDirs := map[string]bool{}
	for abs, ids := range pathToProcess {
		dir := filepath.Dir(abs)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			errs = append(errs, fmt.Errorf("process %s: watch %q: %w", strings.Join(ids, ", "), dir, err))
			continue
		}
		watchedDirs[dir] = true
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel
	go s.watchLoop(watchCtx, watcher, pathToProcess)

	log.Printf("rite watcher: watching %d file(s)", len(pathToProcess))
	return errors.Join(errs...)
}

// watchLoop debounces file events per process and runs the process once
// the file has been quiet for watchDebounce.
func (s *PipelineService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pathToProcess map[string][]string) {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			for _, id := range pathToProcess[abs] {
				if t, exists := timers[id]; exists {
					t.Stop()
				}
				timers[id] = time.AfterFunc(watchDebounce, func() {
					if ctx.Err() != nil {
						return
					}
					log.Printf("rite watcher: file changed %q, running process %s", abs, id)
					s.emitter.Emit(ctx, EventTriggerFired, map[string]string{"processId": id, "trigger": storage.TriggerWatch})
					if _, err := s.runProcess(ctx, id, storage.TriggerWatch); err != nil {
						log.Printf("rite watcher: process %s failed: %v", id, err)
					}
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("rite watcher: error: %v", err)
		}
	}
}

// WaitRunning blocks until all running processes finish or ctx is done.
// Used for graceful shutdown.
func (s *PipelineService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// Running returns the ids of the processes currently running.
func (s *PipelineService) Running() []string {
	return s.running.Running()
}

// Stop tears down the scheduler and the watcher. Safe to call repeatedly.
func (s *PipelineService) Stop() {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()
	s.stopTriggersLocked()
}

func (s *PipelineService) stopTriggersLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
