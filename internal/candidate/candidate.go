// Package candidate implements the repository article producers and
// consumers call: storing candidate articles and their embeddings, loading
// a day's articles back with tag and uniqueness filtering, and flipping the
// is_sourced tag as articles get promoted.
package candidate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"newsdal/internal/model"
	"newsdal/internal/objstore"
	"newsdal/internal/timeutil"
)

// ResultRefType selects where candidate articles are persisted. The object
// store is the only implemented backend; the enum exists so new backends can
// be added without touching call sites.
type ResultRefType string

const ResultRefTypeS3 ResultRefType = "s3"

var (
	ErrBackendNotImplemented = errors.New("result reference type not implemented")
	ErrInvalidTagValue       = errors.New("invalid is_sourced tag value")
	ErrBatchMismatch         = errors.New("articles and embeddings are misaligned")
)

// Object metadata and tag vocabulary for stored candidate articles.
const (
	MetadataKeyAggregationRunID = "aggregation_run_id"
	MetadataKeyAggregatorID     = "aggregator_id"

	TagKeyIsSourcedArticle = "is_sourced_article"
	ArticleSourcedFlag     = "True"
	ArticleNotSourcedFlag  = "False"

	successMetadataAggregatorsKey   = "aggregators"
	successMetadataAggregatorsDtKey = "aggregators_dt"
)

// StoredArticle is one loaded article together with the object metadata and
// tags it was stored with.
type StoredArticle struct {
	Article  model.RawArticle
	Metadata map[string]string
	Tags     map[string]string
}

// CandidateArticles is the repository for one topic's candidate articles.
// The store client is injected; the repository owns no connections.
type CandidateArticles struct {
	refType ResultRefType
	topicID string
	bucket  string
	store   objstore.Store
	logger  *zap.Logger

	// last result of LoadArticles, replaced on every load
	candidateArticles []StoredArticle
}

func NewCandidateArticles(refType ResultRefType, topicID, bucket string, store objstore.Store, logger *zap.Logger) *CandidateArticles {
	return &CandidateArticles{
		refType: refType,
		topicID: topicID,
		bucket:  bucket,
		store:   store,
		logger:  logger,
	}
}

func (c *CandidateArticles) checkBackend() error {
	if c.refType != ResultRefTypeS3 {
		return fmt.Errorf("%w: %q", ErrBackendNotImplemented, c.refType)
	}
	return nil
}

// StoreArticles writes each article under its topic/published-date key with
// the aggregation run id and aggregator id as object metadata and an
// unsourced tag. Writes are first-writer-wins: a duplicate article id within
// the same topic and date fails with ErrObjectAlreadyExists. The whole batch
// is validated before the first write, but writes themselves are not
// transactional; on failure, earlier writes stay committed. After the
// articles, the success marker of every touched prefix is updated with the
// accumulating aggregator audit metadata. Returns the bucket and the
// distinct set of date-partitioned prefixes written to.
func (c *CandidateArticles) StoreArticles(ctx context.Context, articles []model.RawArticle, aggregationRunID string) (string, []string, error) {
	if err := c.checkBackend(); err != nil {
		return "", nil, err
	}
	if aggregationRunID == "" {
		return "", nil, fmt.Errorf("%w: aggregation run id is required", model.ErrInvalidArticle)
	}
	if len(articles) == 0 {
		return "", nil, fmt.Errorf("%w: articles are required", model.ErrInvalidArticle)
	}
	aggregatorID := articles[0].AggregatorID
	for i := range articles {
		if err := articles[i].Validate(); err != nil {
			return "", nil, fmt.Errorf("article %d: %w", i, err)
		}
		if articles[i].AggregatorID != aggregatorID {
			return "", nil, fmt.Errorf("%w: one store call covers one aggregation run, got aggregators %q and %q",
				model.ErrInvalidArticle, aggregatorID, articles[i].AggregatorID)
		}
	}

	prefixes := make(map[string]struct{})
	for i := range articles {
		article := articles[i]
		date, err := article.PublishedDate()
		if err != nil {
			return "", nil, err
		}
		body, err := article.JSON()
		if err != nil {
			return "", nil, err
		}
		key := ArticleKey(c.topicID, date, article.ArticleID)
		err = c.store.Put(ctx, c.bucket, key, body, objstore.PutOptions{
			Metadata: map[string]string{
				MetadataKeyAggregationRunID: aggregationRunID,
				MetadataKeyAggregatorID:     article.AggregatorID,
			},
			Tags: map[string]string{TagKeyIsSourcedArticle: ArticleNotSourcedFlag},
		})
		if err != nil {
			return "", nil, fmt.Errorf("storing article %s: %w", key, err)
		}
		prefixes[ArticlesPrefix(c.topicID, date)] = struct{}{}
	}

	result := sortedSet(prefixes)
	for _, prefix := range result {
		if err := c.accumulateSuccessMarker(ctx, prefix, aggregatorID); err != nil {
			return "", nil, err
		}
	}
	c.logger.Info("stored candidate articles",
		zap.String("topic_id", c.topicID),
		zap.String("aggregation_run_id", aggregationRunID),
		zap.Int("count", len(articles)),
		zap.Strings("prefixes", result))
	return c.bucket, result, nil
}

// accumulateSuccessMarker appends this aggregator and the current timestamp
// to the marker's comma-joined audit metadata, creating the marker when the
// prefix has none yet. Repeated aggregator ids are not deduplicated; the
// metadata is an append-only log.
func (c *CandidateArticles) accumulateSuccessMarker(ctx context.Context, prefix, aggregatorID string) error {
	metadata := map[string]string{
		successMetadataAggregatorsKey:   "",
		successMetadataAggregatorsDtKey: "",
	}
	exists, err := objstore.SuccessMarkerExists(ctx, c.store, c.bucket, prefix)
	if err != nil {
		return err
	}
	if exists {
		marker, err := objstore.GetSuccessMarker(ctx, c.store, c.bucket, prefix)
		if err != nil {
			return err
		}
		for k := range metadata {
			metadata[k] = marker.Metadata[k]
		}
	}
	metadata[successMetadataAggregatorsKey] = appendCSV(metadata[successMetadataAggregatorsKey], aggregatorID)
	metadata[successMetadataAggregatorsDtKey] = appendCSV(metadata[successMetadataAggregatorsDtKey], timeutil.ToLexicographic(time.Now().UTC()))
	return objstore.StoreSuccessMarker(ctx, c.store, c.bucket, prefix, metadata)
}

func appendCSV(existing, value string) string {
	if existing == "" {
		return value
	}
	return existing + "," + value
}

// StoreEmbeddings writes one embedding per article, aligned positionally.
// Both batches are checked for equal length and matching article ids before
// anything is written; embeddings are stored with overwrite allowed since
// re-embedding is idempotent. Returns the bucket and the distinct embedding
// prefixes written to.
func (c *CandidateArticles) StoreEmbeddings(ctx context.Context, articles []model.RawArticle, embeddings []model.RawArticleEmbedding) (string, []string, error) {
	if err := c.checkBackend(); err != nil {
		return "", nil, err
	}
	if len(articles) != len(embeddings) {
		return "", nil, fmt.Errorf("%w: %d articles vs %d embeddings", ErrBatchMismatch, len(articles), len(embeddings))
	}
	for i := range articles {
		if articles[i].ArticleID != embeddings[i].ArticleID {
			return "", nil, fmt.Errorf("%w: index %d has article %q but embedding %q",
				ErrBatchMismatch, i, articles[i].ArticleID, embeddings[i].ArticleID)
		}
		if err := embeddings[i].Validate(); err != nil {
			return "", nil, fmt.Errorf("embedding %d: %w", i, err)
		}
	}

	prefixes := make(map[string]struct{})
	for i := range articles {
		date, err := articles[i].PublishedDate()
		if err != nil {
			return "", nil, err
		}
		body, err := embeddings[i].JSON()
		if err != nil {
			return "", nil, err
		}
		key := EmbeddingKey(c.topicID, date, embeddings[i].ArticleID)
		err = c.store.Put(ctx, c.bucket, key, body, objstore.PutOptions{OverwriteAllowed: true})
		if err != nil {
			return "", nil, fmt.Errorf("storing embedding %s: %w", key, err)
		}
		prefixes[EmbeddingsPrefix(c.topicID, date)] = struct{}{}
	}
	result := sortedSet(prefixes)
	c.logger.Info("stored article embeddings",
		zap.String("topic_id", c.topicID),
		zap.Int("count", len(embeddings)),
		zap.Strings("prefixes", result))
	return c.bucket, result, nil
}

// LoadArticles lists every article stored for the topic on publishingDate's
// date partition, in lexicographic key order. When tagFilterKey is non-empty
// only articles whose tag value under that key equals tagFilterValue are
// kept. Articles sharing a URL are then deduplicated, keeping the first
// occurrence. The result replaces the repository's cached last-loaded set.
func (c *CandidateArticles) LoadArticles(ctx context.Context, publishingDate time.Time, tagFilterKey, tagFilterValue string) ([]StoredArticle, error) {
	if err := c.checkBackend(); err != nil {
		return nil, err
	}
	prefix := ArticlesPrefix(c.topicID, timeutil.ToLexicographicDate(publishingDate))
	objs, err := c.store.ListWithSuffix(ctx, c.bucket, prefix, ArticleExtension, false)
	if err != nil {
		return nil, err
	}

	seenURLs := make(map[string]struct{})
	loaded := make([]StoredArticle, 0, len(objs))
	for _, obj := range objs {
		article, err := model.ParseRawArticle(obj.Body)
		if err != nil {
			return nil, fmt.Errorf("parsing article %s: %w", obj.Key, err)
		}
		if tagFilterKey != "" && obj.Tags[tagFilterKey] != tagFilterValue {
			continue
		}
		if _, dup := seenURLs[article.URL]; dup {
			continue
		}
		seenURLs[article.URL] = struct{}{}
		loaded = append(loaded, StoredArticle{
			Article:  article,
			Metadata: obj.Metadata,
			Tags:     obj.Tags,
		})
	}
	c.candidateArticles = loaded
	c.logger.Info("loaded candidate articles",
		zap.String("prefix", prefix),
		zap.Int("listed", len(objs)),
		zap.Int("returned", len(loaded)))
	return loaded, nil
}

// UpdateIsSourcedTag overlays the is_sourced tag of each article's stored
// object with updatedTagValue, preserving any other tags. The value is
// validated against the two sentinel flags before any read or write.
func (c *CandidateArticles) UpdateIsSourcedTag(ctx context.Context, articles []model.RawArticle, updatedTagValue string) error {
	if err := c.checkBackend(); err != nil {
		return err
	}
	if updatedTagValue != ArticleSourcedFlag && updatedTagValue != ArticleNotSourcedFlag {
		return fmt.Errorf("%w: %q must be %q or %q", ErrInvalidTagValue, updatedTagValue, ArticleSourcedFlag, ArticleNotSourcedFlag)
	}
	for i := range articles {
		date, err := articles[i].PublishedDate()
		if err != nil {
			return err
		}
		key := ArticleKey(c.topicID, date, articles[i].ArticleID)
		tags, err := c.store.GetTags(ctx, c.bucket, key)
		if err != nil {
			return fmt.Errorf("reading tags for %s: %w", key, err)
		}
		updated := make(map[string]string, len(tags)+1)
		for k, v := range tags {
			updated[k] = v
		}
		updated[TagKeyIsSourcedArticle] = updatedTagValue
		if err := c.store.ReplaceTags(ctx, c.bucket, key, updated); err != nil {
			return fmt.Errorf("updating tags for %s: %w", key, err)
		}
	}
	return nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
