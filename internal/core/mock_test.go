package core

import (
	"context"
	"sync"

	"github.com/agenthands/simfinder/internal/core/model"
)

type MockSource struct {
	mu sync.Mutex

	Articles []*model.Article
	Media    []string
	Err      error
	// Block, when set, makes QueryArticles wait until it is closed.
	Block chan struct{}

	Queries []model.Filter
}

func (m *MockSource) QueryArticles(ctx context.Context, filter model.Filter) ([]*model.Article, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, filter)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Articles, nil
}

func (m *MockSource) QueryMedia(ctx context.Context) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Media, nil
}

func (m *MockSource) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

func articles(contents ...string) []*model.Article {
	out := make([]*model.Article, 0, len(contents))
	for i, c := range contents {
		out = append(out, model.NewArticleWithContent(i+1, c))
	}
	return out
}

func clusterIDs(clusters []model.Cluster) [][]int {
	out := make([][]int, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, c.IDs())
	}
	return out
}
