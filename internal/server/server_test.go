package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/simfinder/internal/config"
	"github.com/agenthands/simfinder/internal/core"
	"github.com/agenthands/simfinder/internal/core/model"
	"github.com/agenthands/simfinder/internal/core/summary"
	"github.com/agenthands/simfinder/internal/logger"
)

type mockSource struct {
	articles []*model.Article
	media    []string
	err      error
	block    chan struct{}
}

func (m *mockSource) QueryArticles(ctx context.Context, filter model.Filter) ([]*model.Article, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.articles, nil
}

func (m *mockSource) QueryMedia(ctx context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.media, nil
}

func newTestServer(source *mockSource, summarizer *summary.Summarizer) *Server {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(logger.TestConfig())
	finder := core.NewFinder(source, core.NewDetector(2, log), 3)
	return NewServer(core.NewRunner(finder, log), summarizer, 1, log)
}

func testArticles() []*model.Article {
	contents := []string{"flood in the valley", "flood in the valley", "election results"}
	out := make([]*model.Article, 0, len(contents))
	for i, c := range contents {
		a := model.NewArticleWithContent(i+1, c)
		a.Title = c
		out = append(out, a)
	}
	return out
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// streamRecorder adds the CloseNotifier that gin's Context.Stream requires.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func startRun(t *testing.T, s *Server, body string) *core.Run {
	t.Helper()
	w := do(t, s.SetupRouter(), http.MethodPost, "/runs", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	run, err := s.Runner.Get(resp.ID)
	require.NoError(t, err)
	return run
}

func waitDone(t *testing.T, run *core.Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("run %s did not finish", run.ID)
	}
}

func TestMedia(t *testing.T) {
	s := newTestServer(&mockSource{media: []string{"Daily", "Weekly"}}, nil)

	w := do(t, s.SetupRouter(), http.MethodGet, "/media", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"media": ["Daily", "Weekly"]}`, w.Body.String())

	s = newTestServer(&mockSource{err: errors.New("bolt down")}, nil)
	w = do(t, s.SetupRouter(), http.MethodGet, "/media", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStartAndGetRun(t *testing.T) {
	s := newTestServer(&mockSource{articles: testArticles()}, nil)

	run := startRun(t, s, `{"threshold": 0.9, "media": ["Daily"]}`)
	waitDone(t, run)

	w := do(t, s.SetupRouter(), http.MethodGet, "/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap core.RunSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, core.StateCompleted, snap.State)
	assert.Equal(t, 1.0, snap.Progress)
	assert.Equal(t, 0.9, snap.Filter.SimilarityThreshold)
	require.Len(t, snap.Clusters, 1)
	assert.Equal(t, []int{1, 2}, snap.Clusters[0].IDs)
	assert.Equal(t, []string{"flood in the valley", "flood in the valley"}, snap.Clusters[0].Titles)

	w = do(t, s.SetupRouter(), http.MethodGet, "/runs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), run.ID)
}

func TestStartRun_DefaultThreshold(t *testing.T) {
	s := newTestServer(&mockSource{}, nil)
	s.DefaultThreshold = 0.75

	run := startRun(t, s, "")
	waitDone(t, run)
	assert.Equal(t, 0.75, run.Filter.SimilarityThreshold)
}

func TestStartRun_BadRequests(t *testing.T) {
	s := newTestServer(&mockSource{}, nil)
	r := s.SetupRouter()

	tests := []struct {
		name string
		body string
	}{
		{"threshold above range", `{"threshold": 1.1}`},
		{"threshold below range", `{"threshold": -0.1}`},
		{"malformed json", `{"threshold": `},
		{"bad date", `{"from_date": "last week"}`},
		{"reversed dates", `{"from_date": "2020-02-01", "to_date": "2020-01-01"}`},
		{"negative min letters", `{"min_letters": -5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, s.Runner.List())
}

func TestRunRequest_Filter(t *testing.T) {
	threshold := 0.5
	req := RunRequest{
		Threshold:    &threshold,
		Media:        []string{"Daily"},
		FromDate:     "2020-01-01",
		ToDate:       "2020-12-31T23:59:59Z",
		Title:        "vote",
		MinLetters:   100,
		RelevantOnly: true,
	}

	f, err := req.Filter(1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, f.SimilarityThreshold)
	assert.Equal(t, []string{"Daily"}, f.Media)
	require.NotNil(t, f.FromDate)
	assert.Equal(t, "2020-01-01", f.FromDate.Format(time.DateOnly))
	require.NotNil(t, f.ToDate)
	assert.Equal(t, 2020, f.ToDate.Year())
	assert.Equal(t, "vote", f.Title)
	assert.Equal(t, 100, f.MinLetters)
	assert.True(t, f.RelevantOnly)
}

func TestTooManyArticles(t *testing.T) {
	many := append(testArticles(), model.NewArticleWithContent(4, "four"))
	s := newTestServer(&mockSource{articles: many}, nil)

	run := startRun(t, s, `{"threshold": 1}`)
	waitDone(t, run)

	w := do(t, s.SetupRouter(), http.MethodGet, "/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"rejected"`)
	assert.Contains(t, w.Body.String(), "at most 3")
}

func TestUnknownRun(t *testing.T) {
	s := newTestServer(&mockSource{}, nil)
	r := s.SetupRouter()

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/runs/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/runs/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/runs/nope/progress", "").Code)
}

func TestCancelRun(t *testing.T) {
	source := &mockSource{articles: testArticles(), block: make(chan struct{})}
	s := newTestServer(source, nil)
	r := s.SetupRouter()

	run := startRun(t, s, `{}`)

	w := do(t, r, http.MethodDelete, "/runs/"+run.ID, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	waitDone(t, run)
	assert.Equal(t, core.StateAborted, run.State())

	w = do(t, r, http.MethodDelete, "/runs/"+run.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStreamProgress(t *testing.T) {
	s := newTestServer(&mockSource{articles: testArticles()}, nil)

	run := startRun(t, s, `{"threshold": 1}`)
	waitDone(t, run)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID+"/progress", nil)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	s.SetupRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "event:progress")
	assert.Contains(t, body, `"progress":1`)
	assert.Contains(t, body, "event:done")
	assert.True(t, strings.Index(body, "event:progress") < strings.Index(body, "event:done"))
}

func TestSummaries(t *testing.T) {
	mockLLM := &summary.MockLLMClient{Responses: []string{
		`{"summary": "The valley flooded."}`,
		`{"name": "Valley flood"}`,
		`0, 1`,
	}}
	summarizer := summary.NewSummarizer(mockLLM, config.Default().Summary)
	s := newTestServer(&mockSource{articles: testArticles()}, summarizer)

	run := startRun(t, s, `{"threshold": 1}`)
	waitDone(t, run)

	w := do(t, s.SetupRouter(), http.MethodPost, "/runs/"+run.ID+"/summaries", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Clusters []model.ClusterDescription `json:"clusters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Clusters, 1)
	assert.Equal(t, "Valley flood", resp.Clusters[0].Name)
	assert.Equal(t, "The valley flooded.", resp.Clusters[0].Summary)
	assert.Equal(t, []int{1, 2}, resp.Clusters[0].IDs)
	assert.Equal(t, 1, resp.Clusters[0].LeadID)
}

func TestSummaries_Errors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(&mockSource{}, nil)
		run := startRun(t, s, `{}`)
		waitDone(t, run)

		w := do(t, s.SetupRouter(), http.MethodPost, "/runs/"+run.ID+"/summaries", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("run not completed", func(t *testing.T) {
		source := &mockSource{block: make(chan struct{})}
		summarizer := summary.NewSummarizer(&summary.MockLLMClient{}, config.Default().Summary)
		s := newTestServer(source, summarizer)
		run := startRun(t, s, `{}`)
		defer func() {
			close(source.block)
			waitDone(t, run)
		}()

		w := do(t, s.SetupRouter(), http.MethodPost, "/runs/"+run.ID+"/summaries", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("llm failure", func(t *testing.T) {
		summarizer := summary.NewSummarizer(&summary.MockLLMClient{Err: errors.New("quota")}, config.Default().Summary)
		s := newTestServer(&mockSource{articles: testArticles()}, summarizer)
		run := startRun(t, s, `{"threshold": 1}`)
		waitDone(t, run)

		w := do(t, s.SetupRouter(), http.MethodPost, "/runs/"+run.ID+"/summaries", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
