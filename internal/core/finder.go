package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthands/simfinder/internal/core/model"
)

const DefaultMaxArticles = 1000

// ArticleSource is the read side of the article store.
type ArticleSource interface {
	QueryArticles(ctx context.Context, filter model.Filter) ([]*model.Article, error)
	QueryMedia(ctx context.Context) ([]string, error)
}

// Finder loads the articles selected by a filter and runs detection on
// them. It keeps the progress and the result of the latest run.
type Finder struct {
	Source      ArticleSource
	Detector    *Detector
	MaxArticles int

	run sync.Mutex

	mu           sync.RWMutex
	progress     float64
	similarities []model.Cluster
}

func NewFinder(source ArticleSource, detector *Detector, maxArticles int) *Finder {
	if maxArticles < 1 {
		maxArticles = DefaultMaxArticles
	}
	return &Finder{
		Source:      source,
		Detector:    detector,
		MaxArticles: maxArticles,
	}
}

// FindSimilar queries the articles matching filter and groups them with the
// filter's similarity threshold. Concurrent calls run one after another.
func (f *Finder) FindSimilar(ctx context.Context, filter model.Filter, opts ...DetectOption) ([]model.Cluster, error) {
	f.run.Lock()
	defer f.run.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w before start: %w", ErrDetectionAborted, err)
	}
	f.setProgress(0)

	articles, err := f.Source.QueryArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	if articles == nil {
		articles = []*model.Article{}
	}
	if len(articles) > f.MaxArticles {
		return nil, &MaxArticlesError{Max: f.MaxArticles, Found: len(articles)}
	}

	opts = append([]DetectOption{WithProgress(f.setProgress)}, opts...)
	clusters, err := f.Detector.Detect(ctx, articles, filter.SimilarityThreshold, opts...)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.similarities = clusters
	f.progress = 1
	f.mu.Unlock()
	return clusters, nil
}

func (f *Finder) setProgress(p float64) {
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	f.mu.Lock()
	f.progress = p
	f.mu.Unlock()
}

// Progress returns the progress of the current or latest run, in [0, 1].
func (f *Finder) Progress() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.progress
}

// Similarities returns the clusters of the latest successful run.
func (f *Finder) Similarities() []model.Cluster {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.Cluster, len(f.similarities))
	copy(out, f.similarities)
	return out
}

// CountAllArticles counts the articles over all clusters of the latest run.
func (f *Finder) CountAllArticles() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return model.CountArticles(f.similarities)
}

func (f *Finder) Media(ctx context.Context) ([]string, error) {
	media, err := f.Source.QueryMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	return media, nil
}
