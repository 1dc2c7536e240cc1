package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"orderbot/internal/strategy"
)

// TWAP run states.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
	RunStatusAborted   = "ABORTED"
)

// twapRun is one background TWAP execution.
type twapRun struct {
	id        string
	startedAt time.Time
	cancel    context.CancelFunc

	mu     sync.Mutex
	status string
	result *strategy.TWAPResult
	err    error
}

func (r *twapRun) view() TWAPRunView {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := TWAPRunView{
		ID:        r.id,
		Status:    r.status,
		StartedAt: r.startedAt,
		Result:    r.result,
	}
	if r.err != nil {
		view.Error = r.err.Error()
	}
	return view
}

// storedGrid is a created grid retained for teardown by id.
type storedGrid struct {
	id     string
	result *strategy.GridResult
}

// Registry tracks background TWAP runs and created grids so they can be
// inspected and torn down over the API.
type Registry struct {
	mu    sync.RWMutex
	twaps map[string]*twapRun
	grids map[string]*storedGrid
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		twaps: make(map[string]*twapRun),
		grids: make(map[string]*storedGrid),
	}
}

// StartTWAP launches run in the background and returns its id. The run gets
// its own cancellable context detached from the HTTP request.
func (reg *Registry) StartTWAP(executor *strategy.TWAPExecutor, req strategy.TWAPRequest) string {
	ctx, cancel := context.WithCancel(context.Background())
	run := &twapRun{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
		cancel:    cancel,
		status:    RunStatusRunning,
	}

	reg.mu.Lock()
	reg.twaps[run.id] = run
	reg.mu.Unlock()

	go func() {
		defer cancel()
		result, err := executor.Execute(ctx, req)

		run.mu.Lock()
		defer run.mu.Unlock()
		run.result = result
		run.err = err
		switch {
		case err == nil:
			run.status = RunStatusCompleted
		case ctx.Err() != nil:
			run.status = RunStatusAborted
		default:
			run.status = RunStatusFailed
		}
	}()

	return run.id
}

// TWAP returns the state of a run.
func (reg *Registry) TWAP(id string) (TWAPRunView, bool) {
	reg.mu.RLock()
	run, ok := reg.twaps[id]
	reg.mu.RUnlock()
	if !ok {
		return TWAPRunView{}, false
	}
	return run.view(), true
}

// CancelTWAP aborts a running TWAP. Cancelling a finished run is a no-op.
func (reg *Registry) CancelTWAP(id string) bool {
	reg.mu.RLock()
	run, ok := reg.twaps[id]
	reg.mu.RUnlock()
	if !ok {
		return false
	}
	run.cancel()
	return true
}

// AddGrid stores a created grid and returns its id.
func (reg *Registry) AddGrid(result *strategy.GridResult) string {
	grid := &storedGrid{id: uuid.NewString(), result: result}

	reg.mu.Lock()
	reg.grids[grid.id] = grid
	reg.mu.Unlock()
	return grid.id
}

// Grid returns a stored grid.
func (reg *Registry) Grid(id string) (GridView, bool) {
	reg.mu.RLock()
	grid, ok := reg.grids[id]
	reg.mu.RUnlock()
	if !ok {
		return GridView{}, false
	}
	return GridView{ID: grid.id, Result: grid.result}, true
}

// RemoveGrid drops a stored grid after teardown.
func (reg *Registry) RemoveGrid(id string) (GridView, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	grid, ok := reg.grids[id]
	if !ok {
		return GridView{}, false
	}
	delete(reg.grids, id)
	return GridView{ID: grid.id, Result: grid.result}, true
}
