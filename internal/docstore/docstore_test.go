package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, zap.NewNop())
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := NewAggregatorRun("bing", "topic-1")
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, RunStatusInProgress, run.RunStatus)

	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "bing", run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, "topic-1", got.TopicID)
	assert.Nil(t, got.ResultRef)

	ref := ResultRef{
		Type:     "s3",
		Bucket:   "candidate-bucket",
		Prefixes: []string{"raw_candidate_articles/topic-1/2023/04/11"},
	}
	require.NoError(t, store.CompleteRun(ctx, &run, ref))

	got, err = store.GetRun(ctx, "bing", run.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.RunStatus)
	require.NotNil(t, got.RunEndTime)
	require.NotNil(t, got.ResultRef)
	assert.Equal(t, ref.Prefixes, got.ResultRef.Prefixes)
}

func TestFailRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := NewAggregatorRun("gnews", "topic-1")
	require.NoError(t, store.SaveRun(ctx, run))
	require.NoError(t, store.FailRun(ctx, &run))

	got, err := store.GetRun(ctx, "gnews", run.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.RunStatus)
	assert.NotNil(t, got.RunEndTime)
	assert.Nil(t, got.ResultRef)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), "bing", "no-such-run")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestListRunsMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := NewAggregatorRun("bing", "topic-1")
	older.RunDatetime = time.Date(2023, 4, 10, 12, 0, 0, 0, time.UTC)
	newer := NewAggregatorRun("bing", "topic-1")
	newer.RunDatetime = time.Date(2023, 4, 11, 12, 0, 0, 0, time.UTC)
	other := NewAggregatorRun("gnews", "topic-1")
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))
	require.NoError(t, store.SaveRun(ctx, other))

	runs, err := store.ListRuns(ctx, "bing", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].RunID)
	assert.Equal(t, older.RunID, runs[1].RunID)

	runs, err = store.ListRuns(ctx, "bing", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, newer.RunID, runs[0].RunID)
}

func TestUserTopics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutUserTopic(ctx, UserTopic{
		UserID:      "user-1",
		Topic:       "science",
		Categories:  []string{"science"},
		IsActive:    true,
		DateCreated: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.PutUserTopic(ctx, UserTopic{
		UserID:   "user-1",
		Topic:    "ai",
		IsActive: true,
	}))
	require.NoError(t, store.PutUserTopic(ctx, UserTopic{
		UserID:   "user-2",
		Topic:    "sports",
		IsActive: true,
	}))

	topics, err := store.ListUserTopics(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "ai", topics[0].Topic)
	assert.Equal(t, "science", topics[1].Topic)
	assert.Equal(t, []string{"science"}, topics[1].Categories)
}

func TestTrustedProviderDefaultScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutTrustedProvider(ctx, TrustedNewsProvider{
		ProviderName: "bbc.co.uk",
		ProviderURL:  "https://www.bbc.co.uk",
	}))

	got, err := store.GetTrustedProvider(ctx, "bbc.co.uk")
	require.NoError(t, err)
	assert.Equal(t, DefaultTrustScore, got.TrustScore)

	_, err = store.GetTrustedProvider(ctx, "unknown.example")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSourcedArticleApprovalFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	article := SourcedArticle{
		ArticleID:         "sourced-1",
		OriginalArticleID: "article-1",
		TopicID:           "topic-1",
		Topic:             "science",
		Title:             "a title",
		DtSourced:         time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.PutSourcedArticle(ctx, article))

	got, err := store.GetSourcedArticle(ctx, "sourced-1")
	require.NoError(t, err)
	assert.Equal(t, ApprovalStatusPending, got.ApprovalStatus)

	pending, err := store.ListSourcedByApprovalStatus(ctx, ApprovalStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "sourced-1", pending[0].ArticleID)

	require.NoError(t, store.UpdateApprovalStatus(ctx, "sourced-1", ApprovalStatusApproved))

	pending, err = store.ListSourcedByApprovalStatus(ctx, ApprovalStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	approved, err := store.ListSourcedByApprovalStatus(ctx, ApprovalStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, ApprovalStatusApproved, approved[0].ApprovalStatus)
}

func TestUpdateApprovalStatusUnknownArticle(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateApprovalStatus(context.Background(), "missing", ApprovalStatusApproved)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
