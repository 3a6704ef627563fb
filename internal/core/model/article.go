package model

import (
	"time"

	"github.com/agenthands/simfinder/internal/core/ngram"
)

// Article is a published article as read from the article store.
// Content is nil when the store holds no content for the article.
type Article struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Content         *string    `json:"content,omitempty"`
	Medium          string     `json:"medium,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	Author          string     `json:"author,omitempty"`
	Relevant        bool       `json:"relevant"`

	// signature was built from source, holding text at the time.
	signature ngram.Signature
	source    *string
	text      string
	built     bool
}

func NewArticle(id int) *Article {
	return &Article{ID: id}
}

// NewArticleWithContent is shorthand for NewArticle followed by SetContent.
func NewArticleWithContent(id int, content string) *Article {
	a := NewArticle(id)
	a.SetContent(&content)
	return a
}

// SetContent replaces the content and rebuilds the n-gram signature.
func (a *Article) SetContent(content *string) {
	a.Content = content
	a.rebuild()
}

func (a *Article) HasContent() bool {
	return a.Content != nil
}

// ContentString returns the content, or "" when absent.
func (a *Article) ContentString() string {
	if a.Content == nil {
		return ""
	}
	return *a.Content
}

// EnsureSignature rebuilds the signature when Content no longer holds the
// text it was built from, which happens when Content is assigned directly.
// It must not race with writers of Content.
func (a *Article) EnsureSignature() {
	if a.stale() {
		a.rebuild()
	}
}

func (a *Article) stale() bool {
	if !a.built || a.Content != a.source {
		return true
	}
	return a.Content != nil && *a.Content != a.text
}

// Signature returns the n-gram signature of the current content.
func (a *Article) Signature() ngram.Signature {
	a.EnsureSignature()
	return a.signature
}

func (a *Article) rebuild() {
	a.source = a.Content
	if a.Content == nil {
		a.text = ""
		a.signature = ngram.Signature{}
	} else {
		a.text = *a.Content
		a.signature = ngram.Build(a.text)
	}
	a.built = true
}
