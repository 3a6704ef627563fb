package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/simfinder/internal/core/model"
	"github.com/agenthands/simfinder/internal/logger"
)

const subscriberBuffer = 64

// Runner starts detection runs in the background and keeps them addressable
// by id until the process exits.
type Runner struct {
	Finder *Finder
	Log    logger.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

func NewRunner(finder *Finder, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Runner{
		Finder: finder,
		Log:    log,
		runs:   make(map[string]*Run),
	}
}

// Run is one asynchronous FindSimilar call.
type Run struct {
	ID     string
	Filter model.Filter

	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.RWMutex
	state      State
	progress   float64
	clusters   []model.Cluster
	err        error
	startedAt  time.Time
	finishedAt time.Time
	subs       map[int]chan float64
	nextSub    int
}

type ClusterView struct {
	IDs    []int    `json:"ids"`
	Titles []string `json:"titles"`
}

// RunSnapshot is a point-in-time copy of a Run.
type RunSnapshot struct {
	ID         string        `json:"id"`
	State      State         `json:"state"`
	Progress   float64       `json:"progress"`
	Filter     model.Filter  `json:"filter"`
	Clusters   []ClusterView `json:"clusters"`
	Articles   int           `json:"articles"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Start validates the threshold and launches FindSimilar under a context
// that only Cancel or Shutdown cancel.
func (r *Runner) Start(filter model.Filter) (*Run, error) {
	if err := validateThreshold(filter.SimilarityThreshold); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:        uuid.New().String(),
		Filter:    filter,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateRunning,
		startedAt: time.Now().UTC(),
		subs:      make(map[int]chan float64),
	}

	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()

	log := r.Log.With("run", run.ID)
	log.Info("run started", "threshold", filter.SimilarityThreshold, "media", len(filter.Media))

	go func() {
		defer cancel()
		clusters, err := r.Finder.FindSimilar(ctx, filter, WithProgress(run.publish))
		run.finish(clusters, err)
		if err != nil {
			log.Warn("run ended", "state", run.State(), "error", err)
			return
		}
		log.Info("run completed", "clusters", len(clusters), "articles", model.CountArticles(clusters))
	}()

	return run, nil
}

func (r *Runner) Get(id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// List returns all runs, newest first.
func (r *Runner) List() []*Run {
	r.mu.RLock()
	runs := make([]*Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	r.mu.RUnlock()
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].startedAt.After(runs[j].startedAt)
	})
	return runs
}

// Cancel requests an abort. The run reaches StateAborted at its next row
// boundary.
func (r *Runner) Cancel(id string) error {
	run, err := r.Get(id)
	if err != nil {
		return err
	}
	if run.State().Terminal() {
		return ErrRunFinished
	}
	run.cancel()
	return nil
}

// Subscribe returns a channel of progress values for the run, starting with
// the current one. The channel is closed when the run ends or unsubscribe
// is called. Values are dropped for subscribers that fall behind.
func (r *Runner) Subscribe(id string) (<-chan float64, func(), error) {
	run, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := run.subscribe()
	return ch, unsubscribe, nil
}

// Shutdown cancels every unfinished run.
func (r *Runner) Shutdown() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, run := range r.runs {
		run.cancel()
	}
}

// Done is closed once the run has reached a terminal state.
func (run *Run) Done() <-chan struct{} {
	return run.done
}

func (run *Run) State() State {
	run.mu.RLock()
	defer run.mu.RUnlock()
	return run.state
}

func (run *Run) Progress() float64 {
	run.mu.RLock()
	defer run.mu.RUnlock()
	return run.progress
}

// Clusters returns the result of a completed run.
func (run *Run) Clusters() []model.Cluster {
	run.mu.RLock()
	defer run.mu.RUnlock()
	out := make([]model.Cluster, len(run.clusters))
	copy(out, run.clusters)
	return out
}

func (run *Run) Err() error {
	run.mu.RLock()
	defer run.mu.RUnlock()
	return run.err
}

func (run *Run) Snapshot() RunSnapshot {
	run.mu.RLock()
	defer run.mu.RUnlock()

	s := RunSnapshot{
		ID:        run.ID,
		State:     run.state,
		Progress:  run.progress,
		Filter:    run.Filter,
		Clusters:  make([]ClusterView, 0, len(run.clusters)),
		Articles:  model.CountArticles(run.clusters),
		StartedAt: run.startedAt,
	}
	for _, c := range run.clusters {
		view := ClusterView{IDs: make([]int, 0, len(c)), Titles: make([]string, 0, len(c))}
		for _, a := range c {
			view.IDs = append(view.IDs, a.ID)
			view.Titles = append(view.Titles, a.Title)
		}
		s.Clusters = append(s.Clusters, view)
	}
	if run.err != nil {
		s.Error = run.err.Error()
	}
	if !run.finishedAt.IsZero() {
		t := run.finishedAt
		s.FinishedAt = &t
	}
	return s
}

func (run *Run) publish(p float64) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.progress = p
	for _, ch := range run.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (run *Run) finish(clusters []model.Cluster, err error) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.state = StateOf(err)
	run.err = err
	run.clusters = clusters
	run.finishedAt = time.Now().UTC()
	if err == nil {
		run.progress = 1
	}
	for id, ch := range run.subs {
		close(ch)
		delete(run.subs, id)
	}
	close(run.done)
}

func (run *Run) subscribe() (<-chan float64, func()) {
	run.mu.Lock()
	defer run.mu.Unlock()

	ch := make(chan float64, subscriberBuffer)
	ch <- run.progress
	if run.state.Terminal() {
		close(ch)
		return ch, func() {}
	}

	id := run.nextSub
	run.nextSub++
	run.subs[id] = ch
	return ch, func() {
		run.mu.Lock()
		defer run.mu.Unlock()
		if sub, ok := run.subs[id]; ok {
			close(sub)
			delete(run.subs, id)
		}
	}
}
