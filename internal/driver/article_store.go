package driver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/simfinder/internal/core/model"
)

// ArticleStore reads articles and media from the graph.
type ArticleStore struct {
	Driver GraphDriver
}

func NewArticleStore(d GraphDriver) *ArticleStore {
	return &ArticleStore{Driver: d}
}

// QueryMedia returns the names of all media, sorted case-insensitively.
func (s *ArticleStore) QueryMedia(ctx context.Context) ([]string, error) {
	res, err := s.Driver.ExecuteQuery(ctx, QueryMediaQuery, nil)
	if err != nil {
		return nil, err
	}

	media := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		name, _ := rec.Get("name")
		if n, ok := name.(string); ok && n != "" {
			media = append(media, n)
		}
	}
	sort.Slice(media, func(i, j int) bool {
		return strings.ToLower(media[i]) < strings.ToLower(media[j])
	})
	return media, nil
}

// QueryArticles returns the articles matching filter, ordered by id. The
// filter's similarity threshold is ignored here.
func (s *ArticleStore) QueryArticles(ctx context.Context, filter model.Filter) ([]*model.Article, error) {
	res, err := s.Driver.ExecuteQuery(ctx, QueryArticlesQuery, FilterParams(filter))
	if err != nil {
		return nil, err
	}

	articles := make([]*model.Article, 0, len(res.Records))
	for i, rec := range res.Records {
		a, err := articleFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// SaveArticle creates or replaces an article and links it to its medium.
func (s *ArticleStore) SaveArticle(ctx context.Context, a *model.Article) error {
	params := map[string]interface{}{
		"id":               int64(a.ID),
		"title":            a.Title,
		"content":          nil,
		"medium":           a.Medium,
		"publication_date": nil,
		"author":           a.Author,
		"relevant":         a.Relevant,
	}
	if a.Content != nil {
		params["content"] = *a.Content
	}
	if a.PublicationDate != nil {
		params["publication_date"] = dateParam(*a.PublicationDate)
	}

	if _, err := s.Driver.ExecuteQuery(ctx, SaveArticleQuery, params); err != nil {
		return fmt.Errorf("failed to save article %d: %w", a.ID, err)
	}
	return nil
}

func (s *ArticleStore) DeleteArticles(ctx context.Context, ids []int) error {
	list := make([]int64, 0, len(ids))
	for _, id := range ids {
		list = append(list, int64(id))
	}
	_, err := s.Driver.ExecuteQuery(ctx, DeleteArticlesQuery, map[string]interface{}{"ids": list})
	return err
}

// FilterParams maps a filter to the parameters of QueryArticlesQuery.
func FilterParams(f model.Filter) map[string]interface{} {
	media := f.Media
	if media == nil {
		media = []string{}
	}
	params := map[string]interface{}{
		"media":         media,
		"from_date":     nil,
		"to_date":       nil,
		"title":         strings.TrimSpace(f.Title),
		"min_letters":   int64(f.MinLetters),
		"relevant_only": f.RelevantOnly,
	}
	if f.FromDate != nil {
		params["from_date"] = dateParam(*f.FromDate)
	}
	if f.ToDate != nil {
		params["to_date"] = dateParam(*f.ToDate)
	}
	return params
}

func articleFromRecord(rec *neo4j.Record) (*model.Article, error) {
	rawID, ok := rec.Get("id")
	if !ok || rawID == nil {
		return nil, fmt.Errorf("article without id")
	}
	id, ok := rawID.(int64)
	if !ok {
		return nil, fmt.Errorf("article id has type %T", rawID)
	}

	a := model.NewArticle(int(id))
	a.Title = stringValue(rec, "title")
	a.Medium = stringValue(rec, "medium")
	a.Author = stringValue(rec, "author")
	if v, ok := rec.Get("relevant"); ok {
		a.Relevant, _ = v.(bool)
	}
	if v, ok := rec.Get("content"); ok {
		if c, ok := v.(string); ok {
			a.SetContent(&c)
		}
	}
	if v, ok := rec.Get("publication_date"); ok {
		a.PublicationDate = timeValue(v)
	}
	a.EnsureSignature()
	return a, nil
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func timeValue(v any) *time.Time {
	var t time.Time
	switch d := v.(type) {
	case neo4j.Date:
		t = d.Time()
	case neo4j.LocalDateTime:
		t = d.Time()
	case time.Time:
		t = d
	case string:
		parsed, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	return &t
}

// dateParam truncates t to its calendar date, the type publication dates
// are stored as.
func dateParam(t time.Time) neo4j.Date {
	y, m, d := t.Date()
	return neo4j.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
