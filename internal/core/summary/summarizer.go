package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/simfinder/internal/config"
	"github.com/agenthands/simfinder/internal/core/common"
	"github.com/agenthands/simfinder/internal/core/model"
	"github.com/agenthands/simfinder/internal/llm"
)

const (
	ChunkSize     = 20
	SnippetLength = 300
)

type Summarizer struct {
	LLM      llm.LLMClient
	Reranker llm.RerankerClient
	Prompts  config.SummaryPrompts
}

func NewSummarizer(llmClient llm.LLMClient, prompts config.SummaryPrompts) *Summarizer {
	return &Summarizer{
		LLM:      llmClient,
		Reranker: llm.NewSimpleLLMReranker(llmClient),
		Prompts:  prompts,
	}
}

// Describe summarizes and names a cluster and picks its lead article.
func (s *Summarizer) Describe(ctx context.Context, cluster model.Cluster) (model.ClusterDescription, error) {
	desc := model.ClusterDescription{IDs: cluster.IDs()}
	if len(cluster) == 0 {
		return desc, nil
	}

	summary, err := s.SummarizeCluster(ctx, cluster)
	if err != nil {
		return desc, err
	}
	desc.Summary = summary

	name, err := s.GenerateClusterName(ctx, summary)
	if err != nil {
		return desc, err
	}
	desc.Name = name

	lead, err := s.LeadArticle(ctx, cluster, summary)
	if err != nil {
		return desc, err
	}
	desc.LeadID = lead.ID
	return desc, nil
}

// SummarizeCluster summarizes the articles of a cluster. Clusters larger
// than ChunkSize are summarized in chunks whose summaries are reduced again.
func (s *Summarizer) SummarizeCluster(ctx context.Context, cluster model.Cluster) (string, error) {
	items := make([]string, 0, len(cluster))
	for _, a := range cluster {
		items = append(items, articleLine(a))
	}
	return s.summarize(ctx, items)
}

func (s *Summarizer) summarize(ctx context.Context, items []string) (string, error) {
	if len(items) <= ChunkSize {
		var lines strings.Builder
		for _, item := range items {
			if item != "" {
				fmt.Fprintf(&lines, "- %s\n", item)
			}
		}
		if lines.Len() == 0 {
			return "No significant information.", nil
		}

		prompt := fmt.Sprintf(s.Prompts.Cluster, lines.String())
		response, err := s.LLM.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("failed to generate cluster summary: %w", err)
		}

		result, err := common.ParseJSON[model.ClusterSummary](response)
		if err == nil {
			return result.Summary, nil
		}
		return strings.TrimSpace(response), nil
	}

	var partials []string
	for i := 0; i < len(items); i += ChunkSize {
		end := min(i+ChunkSize, len(items))
		summary, err := s.summarize(ctx, items[i:end])
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			continue
		}
		partials = append(partials, fmt.Sprintf("Part %d: %s", i/ChunkSize+1, summary))
	}

	if len(partials) == 0 {
		return "", fmt.Errorf("failed to summarize any of %d chunks", (len(items)+ChunkSize-1)/ChunkSize)
	}
	return s.summarize(ctx, partials)
}

func (s *Summarizer) GenerateClusterName(ctx context.Context, summary string) (string, error) {
	if s.Prompts.ClusterName == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(s.Prompts.ClusterName, summary)

	response, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate cluster name: %w", err)
	}

	result, err := common.ParseJSON[model.ClusterName](response)
	if err == nil {
		return result.Name, nil
	}
	return strings.Trim(strings.TrimSpace(response), `"`), nil
}

// LeadArticle returns the member whose title best represents summary.
func (s *Summarizer) LeadArticle(ctx context.Context, cluster model.Cluster, summary string) (*model.Article, error) {
	if len(cluster) == 0 {
		return nil, fmt.Errorf("empty cluster")
	}
	if s.Reranker == nil {
		return cluster[0], nil
	}

	titles := make([]string, 0, len(cluster))
	for _, a := range cluster {
		titles = append(titles, a.Title)
	}
	order, err := s.Reranker.Rank(ctx, summary, titles)
	if err != nil {
		return nil, fmt.Errorf("failed to rank cluster members: %w", err)
	}
	if len(order) == 0 || order[0] < 0 || order[0] >= len(cluster) {
		return cluster[0], nil
	}
	return cluster[order[0]], nil
}

func articleLine(a *model.Article) string {
	content := []rune(strings.TrimSpace(a.ContentString()))
	snippet := string(content)
	if len(content) > SnippetLength {
		snippet = string(content[:SnippetLength]) + "..."
	}

	switch {
	case a.Title != "" && snippet != "":
		return fmt.Sprintf("%s: %s", a.Title, snippet)
	case a.Title != "":
		return a.Title
	default:
		return snippet
	}
}
