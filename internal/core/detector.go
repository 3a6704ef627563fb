package core

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/simfinder/internal/core/community"
	"github.com/agenthands/simfinder/internal/core/dedupe"
	"github.com/agenthands/simfinder/internal/core/model"
	"github.com/agenthands/simfinder/internal/logger"
)

// Detector groups articles whose contents are transitively similar.
// A Detector holds no per-run state and may be shared.
type Detector struct {
	Workers int
	Log     logger.Logger
}

func NewDetector(workers int, log logger.Logger) *Detector {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Detector{Workers: workers, Log: log}
}

// row tracks the outstanding comparisons of one coordinator row.
type row struct {
	i       int
	pending atomic.Int64
	done    chan struct{}
}

type comparison struct {
	row *row
	j   int
}

// Detect compares every ordered pair of articles and returns the groups of
// size two or more, ordered by the list position of their first member.
// Cancelling ctx aborts the run at the next row boundary with an error
// wrapping ErrDetectionAborted and ctx.Err().
//
// Before any comparison, Detect rejects with ErrInvalidArgument a nil list,
// a nil element, a threshold outside [0, 1] and, since clusters are
// reported by id, two articles sharing an id.
func (d *Detector) Detect(ctx context.Context, articles []*model.Article, threshold float64, opts ...DetectOption) ([]model.Cluster, error) {
	o := detectOptions{workers: d.Workers}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.NumCPU()
	}

	if err := validate(articles, threshold); err != nil {
		return nil, err
	}

	n := len(articles)
	if n == 0 {
		o.emit(1)
		return []model.Cluster{}, nil
	}

	start := time.Now()
	d.Log.Info("detection started", "articles", n, "threshold", threshold, "workers", o.workers)

	for _, a := range articles {
		a.EnsureSignature()
	}

	acc := community.NewAccumulator(n)
	scorer := dedupe.NewScorer(threshold)

	// Sends never block: a row enqueues at most n-1 tasks and the previous
	// row is drained before the next one starts.
	tasks := make(chan comparison, n)
	var g errgroup.Group
	for w := 0; w < o.workers; w++ {
		g.Go(func() error {
			for t := range tasks {
				if scorer.Similar(articles[t.row.i], articles[t.j]) {
					acc.Merge(t.row.i, t.j)
				}
				if t.row.pending.Add(-1) == 0 {
					close(t.row.done)
				}
			}
			return nil
		})
	}

	for i := 0; i < n; i++ {
		r := &row{i: i, done: make(chan struct{})}
		if !articles[i].HasContent() {
			close(r.done)
		} else {
			js := make([]int, 0, n-1)
			for j := 0; j < n; j++ {
				if j != i && articles[j].HasContent() {
					js = append(js, j)
				}
			}
			if len(js) == 0 {
				close(r.done)
			} else {
				r.pending.Store(int64(len(js)))
				for _, j := range js {
					tasks <- comparison{row: r, j: j}
				}
			}
		}

		select {
		case <-r.done:
		case <-ctx.Done():
		}
		if err := ctx.Err(); err != nil {
			// Workers drain what is already queued and exit; their merges
			// land in an accumulator nobody reads.
			close(tasks)
			d.Log.Warn("detection aborted", "row", i, "articles", n, "elapsed", time.Since(start))
			return nil, fmt.Errorf("%w after %d of %d rows: %w", ErrDetectionAborted, i, n, err)
		}

		if i+1 < n {
			progress := float64(i+1) / float64(n)
			d.Log.Debug("row compared", "row", i, "progress", progress)
			o.emit(progress)
		}
	}

	close(tasks)
	_ = g.Wait()
	o.emit(1)

	groups := acc.Collect()
	clusters := make([]model.Cluster, 0, len(groups))
	for _, group := range groups {
		c := make(model.Cluster, 0, len(group))
		for _, idx := range group {
			c = append(c, articles[idx])
		}
		clusters = append(clusters, c)
	}

	d.Log.Info("detection finished",
		"articles", n,
		"clusters", len(clusters),
		"merges", acc.Merges(),
		"elapsed", time.Since(start))
	return clusters, nil
}

func validate(articles []*model.Article, threshold float64) error {
	if articles == nil {
		return invalidArgument("article list is nil")
	}
	if err := validateThreshold(threshold); err != nil {
		return err
	}
	seen := make(map[int]int, len(articles))
	for pos, a := range articles {
		if a == nil {
			return invalidArgument("article at position %d is nil", pos)
		}
		if prev, ok := seen[a.ID]; ok {
			return invalidArgument("article id %d at positions %d and %d", a.ID, prev, pos)
		}
		seen[a.ID] = pos
	}
	return nil
}

func validateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < model.MinSimilarityThreshold || threshold > model.MaxSimilarityThreshold {
		return invalidArgument("threshold %v outside [%v, %v]", threshold, model.MinSimilarityThreshold, model.MaxSimilarityThreshold)
	}
	return nil
}
