package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/simfinder/internal/core/model"
)

func TestQueryArticles(t *testing.T) {
	published := time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)
	mock := &MockDriver{
		MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{
				articleRecord(int64(1), "Storm warning", "Heavy rain expected", "Daily", dateParam(published), "Ann", true),
				articleRecord(int64(2), "No content", nil, nil, nil, nil, nil),
			},
		},
	}
	store := NewArticleStore(mock)

	articles, err := store.QueryArticles(context.Background(), model.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "Storm warning", first.Title)
	assert.Equal(t, "Heavy rain expected", first.ContentString())
	assert.Equal(t, "Daily", first.Medium)
	assert.Equal(t, "Ann", first.Author)
	assert.True(t, first.Relevant)
	require.NotNil(t, first.PublicationDate)
	assert.True(t, published.Equal(*first.PublicationDate))
	assert.Equal(t, 17, first.Signature().Total())

	second := articles[1]
	assert.Equal(t, 2, second.ID)
	assert.False(t, second.HasContent())
	assert.Nil(t, second.PublicationDate)
	assert.True(t, second.Signature().Empty())

	assert.Equal(t, QueryArticlesQuery, mock.QueryExecuted)
}

func TestQueryArticles_FilterParams(t *testing.T) {
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	mock := &MockDriver{}
	store := NewArticleStore(mock)

	filter := model.Filter{
		SimilarityThreshold: 0.8,
		Media:               []string{"Daily", "Weekly"},
		FromDate:            &from,
		ToDate:              &to,
		Title:               "  Election ",
		MinLetters:          200,
		RelevantOnly:        true,
	}
	_, err := store.QueryArticles(context.Background(), filter)
	require.NoError(t, err)

	p := mock.QueryParams
	assert.Equal(t, []string{"Daily", "Weekly"}, p["media"])
	assert.Equal(t, dateParam(from), p["from_date"])
	assert.Equal(t, dateParam(to), p["to_date"])
	assert.Equal(t, "Election", p["title"])
	assert.Equal(t, int64(200), p["min_letters"])
	assert.Equal(t, true, p["relevant_only"])
	_, hasThreshold := p["threshold"]
	assert.False(t, hasThreshold)
}

func TestFilterParams_Defaults(t *testing.T) {
	p := FilterParams(model.DefaultFilter())

	assert.Equal(t, []string{}, p["media"])
	assert.Nil(t, p["from_date"])
	assert.Nil(t, p["to_date"])
	assert.Equal(t, "", p["title"])
	assert.Equal(t, int64(0), p["min_letters"])
	assert.Equal(t, false, p["relevant_only"])
}

func TestQueryArticles_Errors(t *testing.T) {
	t.Run("driver error", func(t *testing.T) {
		boom := errors.New("connection refused")
		store := NewArticleStore(&MockDriver{Err: boom})

		_, err := store.QueryArticles(context.Background(), model.DefaultFilter())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing id", func(t *testing.T) {
		store := NewArticleStore(&MockDriver{MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{articleRecord(nil, "t", "c", "m", nil, "", false)},
		}})

		_, err := store.QueryArticles(context.Background(), model.DefaultFilter())
		assert.ErrorContains(t, err, "without id")
	})

	t.Run("wrong id type", func(t *testing.T) {
		store := NewArticleStore(&MockDriver{MockResult: neo4j.EagerResult{
			Records: []*neo4j.Record{articleRecord("7", "t", "c", "m", nil, "", false)},
		}})

		_, err := store.QueryArticles(context.Background(), model.DefaultFilter())
		assert.ErrorContains(t, err, "type string")
	})
}

func TestQueryMedia(t *testing.T) {
	mock := &MockDriver{MockResult: neo4j.EagerResult{
		Records: []*neo4j.Record{
			{Keys: []string{"name"}, Values: []any{"weekly"}},
			{Keys: []string{"name"}, Values: []any{"Daily"}},
			{Keys: []string{"name"}, Values: []any{""}},
			{Keys: []string{"name"}, Values: []any{"Abend"}},
		},
	}}
	store := NewArticleStore(mock)

	media, err := store.QueryMedia(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Abend", "Daily", "weekly"}, media)
	assert.Equal(t, QueryMediaQuery, mock.QueryExecuted)
}

func TestSaveArticle(t *testing.T) {
	mock := &MockDriver{}
	store := NewArticleStore(mock)
	published := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	a := model.NewArticleWithContent(42, "body")
	a.Title = "Title"
	a.Medium = "Daily"
	a.PublicationDate = &published

	require.NoError(t, store.SaveArticle(context.Background(), a))
	assert.Equal(t, SaveArticleQuery, mock.QueryExecuted)
	assert.Equal(t, int64(42), mock.QueryParams["id"])
	assert.Equal(t, "body", mock.QueryParams["content"])
	assert.Equal(t, dateParam(published), mock.QueryParams["publication_date"])

	require.NoError(t, store.SaveArticle(context.Background(), model.NewArticle(43)))
	assert.Nil(t, mock.QueryParams["content"])
	assert.Nil(t, mock.QueryParams["publication_date"])
}

func TestTimeValue(t *testing.T) {
	day := time.Date(2018, 5, 4, 0, 0, 0, 0, time.UTC)

	assert.True(t, day.Equal(*timeValue(day)))
	assert.True(t, day.Equal(*timeValue("2018-05-04")))
	assert.Nil(t, timeValue("yesterday"))
	assert.Nil(t, timeValue(int64(3)))
	assert.Nil(t, timeValue(nil))
}
