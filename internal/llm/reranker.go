package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const rerankSnippetLength = 200

var indexPattern = regexp.MustCompile(`\d+`)

// SimpleLLMReranker asks the LLM for an ordering of the documents.
type SimpleLLMReranker struct {
	LLM LLMClient
}

func NewSimpleLLMReranker(client LLMClient) *SimpleLLMReranker {
	return &SimpleLLMReranker{LLM: client}
}

// Rank always returns a permutation of the document indices. Indices the
// model omits keep their original relative order at the end, and on an LLM
// error the original order is returned.
func (r *SimpleLLMReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) == 1 {
		return []int{0}, nil
	}

	var docList strings.Builder
	for i, d := range docs {
		runes := []rune(d)
		if len(runes) > rerankSnippetLength {
			d = string(runes[:rerankSnippetLength]) + "..."
		}
		fmt.Fprintf(&docList, "[%d] %s\n", i, d)
	}

	prompt := fmt.Sprintf(`You are a news editor choosing the most representative article.
Query: %s

Documents:
%s
Rank the documents above based on how well they represent the query.
Output ONLY the indices of the documents in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, query, docList.String())

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return completeRanking(nil, len(docs)), nil
	}

	return completeRanking(parseIndices(resp), len(docs)), nil
}

func parseIndices(s string) []int {
	matches := indexPattern.FindAllString(s, -1)
	var indices []int
	for _, m := range matches {
		if i, err := strconv.Atoi(m); err == nil {
			indices = append(indices, i)
		}
	}
	return indices
}

// completeRanking drops out-of-range and repeated indices and appends the
// missing ones in ascending order.
func completeRanking(indices []int, n int) []int {
	seen := make([]bool, n)
	out := make([]int, 0, n)
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			out = append(out, i)
		}
	}
	return out
}
