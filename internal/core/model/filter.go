package model

import "time"

const (
	MinSimilarityThreshold = 0.0
	MaxSimilarityThreshold = 1.0

	DefaultSimilarityThreshold = MaxSimilarityThreshold
	DefaultMinLetters          = 0
)

// Filter selects the candidate articles of a detection run and carries the
// similarity threshold to detect with.
type Filter struct {
	SimilarityThreshold float64    `json:"threshold"`
	Media               []string   `json:"media,omitempty"`
	FromDate            *time.Time `json:"from_date,omitempty"`
	ToDate              *time.Time `json:"to_date,omitempty"`
	Title               string     `json:"title,omitempty"`
	MinLetters          int        `json:"min_letters"`
	RelevantOnly        bool       `json:"relevant_only"`
}

func DefaultFilter() Filter {
	return Filter{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MinLetters:          DefaultMinLetters,
	}
}
