package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticlesPrefix(t *testing.T) {
	assert.Equal(t,
		"raw_candidate_articles/test_topic_id/2023/04/11",
		ArticlesPrefix("test_topic_id", "2023/04/11"))
}

func TestArticleKey(t *testing.T) {
	assert.Equal(t,
		"raw_candidate_articles/test_topic_id/2023/04/11/article_id.json",
		ArticleKey("test_topic_id", "2023/04/11", "article_id"))
	// Pure and deterministic.
	assert.Equal(t,
		ArticleKey("test_topic_id", "2023/04/11", "article_id"),
		ArticleKey("test_topic_id", "2023/04/11", "article_id"))
}

func TestEmbeddingKeys(t *testing.T) {
	assert.Equal(t,
		"raw_candidate_article_embeddings/test_topic_id/2023/04/11",
		EmbeddingsPrefix("test_topic_id", "2023/04/11"))
	assert.Equal(t,
		"raw_candidate_article_embeddings/test_topic_id/2023/04/11/article_id.json",
		EmbeddingKey("test_topic_id", "2023/04/11", "article_id"))
}
