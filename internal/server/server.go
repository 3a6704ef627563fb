package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/simfinder/internal/core"
	"github.com/agenthands/simfinder/internal/core/model"
	"github.com/agenthands/simfinder/internal/core/summary"
	"github.com/agenthands/simfinder/internal/logger"
)

const summaryConcurrency = 4

var ErrSummariesDisabled = errors.New("no llm provider configured")

type Server struct {
	Runner     *core.Runner
	Summarizer *summary.Summarizer
	Log        logger.Logger
	// DefaultThreshold applies when a run request omits the threshold.
	DefaultThreshold float64
}

func NewServer(runner *core.Runner, summarizer *summary.Summarizer, defaultThreshold float64, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Server{
		Runner:           runner,
		Summarizer:       summarizer,
		Log:              log,
		DefaultThreshold: defaultThreshold,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/media", s.Media)
	r.GET("/runs", s.ListRuns)
	r.POST("/runs", s.StartRun)
	r.GET("/runs/:id", s.GetRun)
	r.GET("/runs/:id/progress", s.StreamProgress)
	r.DELETE("/runs/:id", s.CancelRun)
	r.POST("/runs/:id/summaries", s.Summaries)

	return r
}

type RunRequest struct {
	Threshold    *float64 `json:"threshold"`
	Media        []string `json:"media"`
	FromDate     string   `json:"from_date"`
	ToDate       string   `json:"to_date"`
	Title        string   `json:"title"`
	MinLetters   int      `json:"min_letters"`
	RelevantOnly bool     `json:"relevant_only"`
}

// Filter converts the request into a detection filter. Dates are accepted
// as YYYY-MM-DD or RFC 3339.
func (req RunRequest) Filter(defaultThreshold float64) (model.Filter, error) {
	f := model.DefaultFilter()
	f.SimilarityThreshold = defaultThreshold
	if req.Threshold != nil {
		f.SimilarityThreshold = *req.Threshold
	}
	f.Media = req.Media
	f.Title = req.Title
	f.MinLetters = req.MinLetters
	f.RelevantOnly = req.RelevantOnly

	var err error
	if f.FromDate, err = parseDate(req.FromDate); err != nil {
		return f, fmt.Errorf("%w: from_date: %w", core.ErrInvalidArgument, err)
	}
	if f.ToDate, err = parseDate(req.ToDate); err != nil {
		return f, fmt.Errorf("%w: to_date: %w", core.ErrInvalidArgument, err)
	}
	if f.FromDate != nil && f.ToDate != nil && f.ToDate.Before(*f.FromDate) {
		return f, fmt.Errorf("%w: to_date before from_date", core.ErrInvalidArgument)
	}
	if f.MinLetters < 0 {
		return f, fmt.Errorf("%w: min_letters is negative", core.ErrInvalidArgument)
	}
	return f, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}

func (s *Server) Media(c *gin.Context) {
	media, err := s.Runner.Finder.Media(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": media})
}

func (s *Server) ListRuns(c *gin.Context) {
	runs := s.Runner.List()
	snapshots := make([]core.RunSnapshot, 0, len(runs))
	for _, run := range runs {
		snapshots = append(snapshots, run.Snapshot())
	}
	c.JSON(http.StatusOK, gin.H{"runs": snapshots})
}

func (s *Server) StartRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	filter, err := req.Filter(s.DefaultThreshold)
	if err != nil {
		s.writeError(c, err)
		return
	}

	run, err := s.Runner.Start(filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": run.ID, "state": run.State()})
}

func (s *Server) GetRun(c *gin.Context) {
	run, err := s.Runner.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run.Snapshot())
}

// StreamProgress sends a "progress" event per reported value and a final
// "done" event carrying the run snapshot.
func (s *Server) StreamProgress(c *gin.Context) {
	id := c.Param("id")
	progress, unsubscribe, err := s.Runner.Subscribe(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer unsubscribe()

	run, err := s.Runner.Get(id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case p, ok := <-progress:
			if !ok {
				c.SSEvent("done", run.Snapshot())
				return false
			}
			c.SSEvent("progress", gin.H{"progress": p})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) CancelRun(c *gin.Context) {
	id := c.Param("id")
	if err := s.Runner.Cancel(id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "cancelling"})
}

func (s *Server) Summaries(c *gin.Context) {
	if s.Summarizer == nil {
		s.writeError(c, ErrSummariesDisabled)
		return
	}
	run, err := s.Runner.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if state := run.State(); state != core.StateCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("run is %s", state)})
		return
	}

	clusters := run.Clusters()
	descriptions := make([]model.ClusterDescription, len(clusters))

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(summaryConcurrency)
	for i, cluster := range clusters {
		i, cluster := i, cluster
		g.Go(func() error {
			desc, err := s.Summarizer.Describe(ctx, cluster)
			if err != nil {
				return fmt.Errorf("cluster %d: %w", i, err)
			}
			descriptions[i] = desc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Log.Error("failed to summarize clusters", "run", run.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to summarize clusters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": run.ID, "clusters": descriptions})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyArticles):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrRunFinished), errors.Is(err, core.ErrDetectionAborted):
		status = http.StatusConflict
	case errors.Is(err, ErrSummariesDisabled):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.Log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
