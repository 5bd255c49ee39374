package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrRecordNotFound = errors.New("record not found")

// Store reads and writes pipeline records through an injected redis client.
// It owns no connection lifecycle.
type Store struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewStore(rdb *redis.Client, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, logger: logger}
}

func runKey(aggregatorID, runID string) string {
	return fmt.Sprintf("aggregator_run:%s:%s", aggregatorID, runID)
}

func runIndexKey(aggregatorID string) string {
	return fmt.Sprintf("aggregator_runs:%s", aggregatorID)
}

func userTopicKey(userID, topic string) string {
	return fmt.Sprintf("user_topic:%s:%s", userID, topic)
}

func userTopicsIndexKey(userID string) string {
	return fmt.Sprintf("user_topics:%s", userID)
}

func providerKey(providerName string) string {
	return fmt.Sprintf("trusted_provider:%s", providerName)
}

func sourcedArticleKey(articleID string) string {
	return fmt.Sprintf("sourced_article:%s", articleID)
}

func sourcedStatusKey(status ApprovalStatus) string {
	return fmt.Sprintf("sourced_articles:status:%s", status)
}

// SaveRun upserts a run record and indexes it by run datetime.
func (s *Store) SaveRun(ctx context.Context, run AggregatorRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, runKey(run.AggregatorID, run.RunID), data, 0)
	pipe.ZAdd(ctx, runIndexKey(run.AggregatorID), redis.Z{
		Score:  float64(run.RunDatetime.UnixMicro()),
		Member: run.RunID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving run %s: %w", run.RunID, err)
	}
	return nil
}

// GetRun fetches one run record.
func (s *Store) GetRun(ctx context.Context, aggregatorID, runID string) (AggregatorRun, error) {
	val, err := s.rdb.Get(ctx, runKey(aggregatorID, runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return AggregatorRun{}, fmt.Errorf("%w: run %s/%s", ErrRecordNotFound, aggregatorID, runID)
	}
	if err != nil {
		return AggregatorRun{}, err
	}
	var run AggregatorRun
	if err := json.Unmarshal(val, &run); err != nil {
		return AggregatorRun{}, err
	}
	return run, nil
}

// CompleteRun marks a run complete with a pointer to its stored results.
func (s *Store) CompleteRun(ctx context.Context, run *AggregatorRun, ref ResultRef) error {
	now := time.Now().UTC()
	run.RunStatus = RunStatusComplete
	run.RunEndTime = &now
	run.ResultRef = &ref
	return s.SaveRun(ctx, *run)
}

// FailRun marks a run failed.
func (s *Store) FailRun(ctx context.Context, run *AggregatorRun) error {
	now := time.Now().UTC()
	run.RunStatus = RunStatusFailed
	run.RunEndTime = &now
	return s.SaveRun(ctx, *run)
}

// ListRuns returns up to limit runs for an aggregator, most recent first.
func (s *Store) ListRuns(ctx context.Context, aggregatorID string, limit int) ([]AggregatorRun, error) {
	runIDs, err := s.rdb.ZRevRange(ctx, runIndexKey(aggregatorID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	runs := make([]AggregatorRun, 0, len(runIDs))
	for _, runID := range runIDs {
		run, err := s.GetRun(ctx, aggregatorID, runID)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// PutUserTopic upserts a topic subscription.
func (s *Store) PutUserTopic(ctx context.Context, topic UserTopic) error {
	data, err := json.Marshal(topic)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, userTopicKey(topic.UserID, topic.Topic), data, 0)
	pipe.SAdd(ctx, userTopicsIndexKey(topic.UserID), topic.Topic)
	_, err = pipe.Exec(ctx)
	return err
}

// ListUserTopics returns all of a user's subscriptions, sorted by topic.
func (s *Store) ListUserTopics(ctx context.Context, userID string) ([]UserTopic, error) {
	names, err := s.rdb.SMembers(ctx, userTopicsIndexKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	topics := make([]UserTopic, 0, len(names))
	for _, name := range names {
		val, err := s.rdb.Get(ctx, userTopicKey(userID, name)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var topic UserTopic
		if err := json.Unmarshal(val, &topic); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

// PutTrustedProvider upserts a provider, defaulting the trust score.
func (s *Store) PutTrustedProvider(ctx context.Context, provider TrustedNewsProvider) error {
	if provider.TrustScore == 0 {
		provider.TrustScore = DefaultTrustScore
	}
	data, err := json.Marshal(provider)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, providerKey(provider.ProviderName), data, 0).Err()
}

// GetTrustedProvider fetches one provider record.
func (s *Store) GetTrustedProvider(ctx context.Context, providerName string) (TrustedNewsProvider, error) {
	val, err := s.rdb.Get(ctx, providerKey(providerName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return TrustedNewsProvider{}, fmt.Errorf("%w: provider %s", ErrRecordNotFound, providerName)
	}
	if err != nil {
		return TrustedNewsProvider{}, err
	}
	var provider TrustedNewsProvider
	if err := json.Unmarshal(val, &provider); err != nil {
		return TrustedNewsProvider{}, err
	}
	return provider, nil
}

// PutSourcedArticle upserts a sourced article and indexes it by approval
// status so pending articles can be queried for review.
func (s *Store) PutSourcedArticle(ctx context.Context, article SourcedArticle) error {
	if article.ApprovalStatus == "" {
		article.ApprovalStatus = ApprovalStatusPending
	}
	data, err := json.Marshal(article)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, sourcedArticleKey(article.ArticleID), data, 0)
	pipe.SAdd(ctx, sourcedStatusKey(article.ApprovalStatus), article.ArticleID)
	_, err = pipe.Exec(ctx)
	return err
}

// GetSourcedArticle fetches one sourced article record.
func (s *Store) GetSourcedArticle(ctx context.Context, articleID string) (SourcedArticle, error) {
	val, err := s.rdb.Get(ctx, sourcedArticleKey(articleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SourcedArticle{}, fmt.Errorf("%w: sourced article %s", ErrRecordNotFound, articleID)
	}
	if err != nil {
		return SourcedArticle{}, err
	}
	var article SourcedArticle
	if err := json.Unmarshal(val, &article); err != nil {
		return SourcedArticle{}, err
	}
	return article, nil
}

// UpdateApprovalStatus moves a sourced article between status indexes.
func (s *Store) UpdateApprovalStatus(ctx context.Context, articleID string, status ApprovalStatus) error {
	article, err := s.GetSourcedArticle(ctx, articleID)
	if err != nil {
		return err
	}
	previous := article.ApprovalStatus
	article.ApprovalStatus = status
	data, err := json.Marshal(article)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, sourcedArticleKey(articleID), data, 0)
	pipe.SRem(ctx, sourcedStatusKey(previous), articleID)
	pipe.SAdd(ctx, sourcedStatusKey(status), articleID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	s.logger.Info("updated sourced article approval status",
		zap.String("article_id", articleID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))
	return nil
}

// ListSourcedByApprovalStatus returns the sourced articles currently in the
// given status, sorted by article id.
func (s *Store) ListSourcedByApprovalStatus(ctx context.Context, status ApprovalStatus) ([]SourcedArticle, error) {
	ids, err := s.rdb.SMembers(ctx, sourcedStatusKey(status)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	articles := make([]SourcedArticle, 0, len(ids))
	for _, id := range ids {
		article, err := s.GetSourcedArticle(ctx, id)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, nil
}
