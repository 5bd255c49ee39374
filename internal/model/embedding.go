package model

import (
	"encoding/json"
	"fmt"
)

// Embedding types a vectorization step can produce for one article.
const (
	EmbeddingTypeTitle            = "title"
	EmbeddingTypeDescription      = "description"
	EmbeddingTypeContent          = "content"
	EmbeddingTypeTitleDescription = "title-description"
	EmbeddingTypeTitleContent     = "title-content"
)

// RawArticleEmbedding is a vector representation of one article for one
// embedding type and model. Unlike articles, embeddings are stored with
// overwrite allowed: re-embedding is idempotent.
type RawArticleEmbedding struct {
	ArticleID          string    `json:"article_id"`
	EmbeddingType      string    `json:"embedding_type"`
	EmbeddingModelName string    `json:"embedding_model_name"`
	Embedding          []float64 `json:"embedding"`
}

func (e RawArticleEmbedding) Validate() error {
	switch {
	case e.ArticleID == "":
		return fmt.Errorf("%w: embedding article_id is required", ErrInvalidArticle)
	case e.EmbeddingType == "":
		return fmt.Errorf("%w: embedding_type is required", ErrInvalidArticle)
	case e.EmbeddingModelName == "":
		return fmt.Errorf("%w: embedding_model_name is required", ErrInvalidArticle)
	case len(e.Embedding) == 0:
		return fmt.Errorf("%w: embedding vector is empty", ErrInvalidArticle)
	}
	return nil
}

// JSON returns the canonical storage body.
func (e RawArticleEmbedding) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// ParseRawArticleEmbedding decodes a stored object body back into a
// RawArticleEmbedding.
func ParseRawArticleEmbedding(body []byte) (RawArticleEmbedding, error) {
	var e RawArticleEmbedding
	if err := json.Unmarshal(body, &e); err != nil {
		return RawArticleEmbedding{}, fmt.Errorf("%w: %v", ErrInvalidArticle, err)
	}
	if err := e.Validate(); err != nil {
		return RawArticleEmbedding{}, err
	}
	return e, nil
}
