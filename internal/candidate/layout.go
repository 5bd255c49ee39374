package candidate

import "fmt"

// Key layout, current generation: everything is partitioned by topic id and
// the article's own published date. Earlier generations keyed by aggregation
// run id or by (aggregator, topic); none of those are read or written here.
const (
	rawCandidateArticlesRoot   = "raw_candidate_articles"
	rawCandidateEmbeddingsRoot = "raw_candidate_article_embeddings"

	// ArticleExtension is the suffix every stored article and embedding
	// object carries; listing filters on it so success markers are skipped.
	ArticleExtension = ".json"
)

// ArticlesPrefix returns the date-partitioned prefix candidate articles for
// a topic live under. publishedDate is YYYY/MM/DD.
func ArticlesPrefix(topicID, publishedDate string) string {
	return fmt.Sprintf("%s/%s/%s", rawCandidateArticlesRoot, topicID, publishedDate)
}

// ArticleKey returns the full object key for one candidate article.
func ArticleKey(topicID, publishedDate, articleID string) string {
	return fmt.Sprintf("%s/%s%s", ArticlesPrefix(topicID, publishedDate), articleID, ArticleExtension)
}

// EmbeddingsPrefix returns the date-partitioned prefix article embeddings
// for a topic live under.
func EmbeddingsPrefix(topicID, publishedDate string) string {
	return fmt.Sprintf("%s/%s/%s", rawCandidateEmbeddingsRoot, topicID, publishedDate)
}

// EmbeddingKey returns the full object key for one article embedding.
func EmbeddingKey(topicID, publishedDate, articleID string) string {
	return fmt.Sprintf("%s/%s%s", EmbeddingsPrefix(topicID, publishedDate), articleID, ArticleExtension)
}
