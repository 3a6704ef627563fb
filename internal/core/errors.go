package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned before any comparison starts when the
	// article list or the threshold is unusable.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDetectionAborted is returned when a run is cancelled. No partial
	// clusters are returned with it.
	ErrDetectionAborted = errors.New("detection aborted")

	// ErrTooManyArticles is returned when a filter matches more articles
	// than a single run may compare.
	ErrTooManyArticles = errors.New("too many articles")

	ErrRunNotFound = errors.New("run not found")
	ErrRunFinished = errors.New("run already finished")
)

// MaxArticlesError reports how many articles a filter matched against the
// configured maximum.
type MaxArticlesError struct {
	Max   int
	Found int
}

func (e *MaxArticlesError) Error() string {
	return fmt.Sprintf("found %d articles, at most %d can be compared", e.Found, e.Max)
}

func (e *MaxArticlesError) Unwrap() error {
	return ErrTooManyArticles
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
