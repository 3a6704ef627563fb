package dedupe

import (
	"math"

	"github.com/agenthands/simfinder/internal/core/model"
	"github.com/agenthands/simfinder/internal/core/ngram"
)

// IsSimilar decides whether two contents are similar at the given threshold.
// A threshold at or below zero accepts every pair and identical contents are
// accepted without scoring; otherwise the cosine similarity of the two
// signatures must reach the threshold.
func IsSimilar(contentA, contentB string, sigA, sigB ngram.Signature, threshold float64) bool {
	if threshold <= model.MinSimilarityThreshold {
		return true
	}
	if contentA == contentB {
		return true
	}
	return CosineSimilarity(sigA, sigB) >= threshold
}

// CosineSimilarity returns a·b / (|a|·|b|) over the union of both key sets,
// or 0 when either signature is empty. Sums are kept as integers so the
// result does not depend on map iteration order.
func CosineSimilarity(a, b ngram.Signature) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Keys only in b contribute nothing to the dot product.
	var dot, magA, magB int64
	for gram, ca := range a {
		dot += int64(ca) * int64(b[gram])
		magA += int64(ca) * int64(ca)
	}
	for _, cb := range b {
		magB += int64(cb) * int64(cb)
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	score := float64(dot) / math.Sqrt(float64(magA)*float64(magB))
	if score > 1 {
		return 1
	}
	return score
}

// Scorer applies IsSimilar to articles at a fixed threshold.
type Scorer struct {
	Threshold float64
}

func NewScorer(threshold float64) Scorer {
	return Scorer{Threshold: threshold}
}

// Similar compares two articles. Both must have content.
func (s Scorer) Similar(a, b *model.Article) bool {
	return IsSimilar(a.ContentString(), b.ContentString(), a.Signature(), b.Signature(), s.Threshold)
}
