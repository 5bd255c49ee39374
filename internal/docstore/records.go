// Package docstore persists the aggregation pipeline's run, topic, provider
// and sourced-article records. These are thin, evolving schemas next to the
// candidate-article core; the store keeps one JSON document per record in
// redis plus small index sets for the queries consumers actually run.
package docstore

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusInProgress RunStatus = "InProgress"
	RunStatusComplete   RunStatus = "Complete"
	RunStatusFailed     RunStatus = "Failed"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "Pending"
	ApprovalStatusApproved ApprovalStatus = "Approved"
	ApprovalStatusRejected ApprovalStatus = "Rejected"
)

// ResultRef points at where a run left its candidate articles.
type ResultRef struct {
	Type     string   `json:"type"`
	Bucket   string   `json:"bucket"`
	Prefixes []string `json:"prefixes"`
}

// AggregatorRun records one execution of one aggregator against one topic.
type AggregatorRun struct {
	AggregatorID string     `json:"aggregator_id"`
	RunID        string     `json:"run_id"`
	TopicID      string     `json:"topic_id"`
	RunDatetime  time.Time  `json:"run_datetime"`
	RunStatus    RunStatus  `json:"run_status"`
	RunEndTime   *time.Time `json:"run_end_time,omitempty"`
	ResultRef    *ResultRef `json:"result_ref,omitempty"`
}

// NewAggregatorRun starts an in-progress run record with a fresh run id.
func NewAggregatorRun(aggregatorID, topicID string) AggregatorRun {
	return AggregatorRun{
		AggregatorID: aggregatorID,
		RunID:        uuid.NewString(),
		TopicID:      topicID,
		RunDatetime:  time.Now().UTC(),
		RunStatus:    RunStatusInProgress,
	}
}

// UserTopic is one user's subscription to a search topic.
type UserTopic struct {
	UserID               string    `json:"user_id"`
	Topic                string    `json:"topic"`
	Categories           []string  `json:"categories"`
	IsActive             bool      `json:"is_active"`
	DateCreated          time.Time `json:"date_created"`
	MaxAggregatorResults int       `json:"max_aggregator_results,omitempty"`
}

// DefaultTrustScore is assigned to providers that have not been scored yet.
const DefaultTrustScore = 50

// TrustedNewsProvider carries the trust score derived from a provider's
// registrable domain.
type TrustedNewsProvider struct {
	ProviderName    string   `json:"provider_name"`
	ProviderURL     string   `json:"provider_url"`
	TrustScore      int      `json:"trust_score"`
	ProviderAliases []string `json:"provider_aliases,omitempty"`
}

// SourcedArticle is a candidate article promoted for publication. The
// candidate object itself is never deleted; this record references it by
// original article id.
type SourcedArticle struct {
	ArticleID         string         `json:"article_id"`
	OriginalArticleID string         `json:"original_article_id"`
	TopicID           string         `json:"topic_id"`
	Topic             string         `json:"topic"`
	RequestedCategory string         `json:"requested_category"`
	Category          string         `json:"category,omitempty"`
	Title             string         `json:"title"`
	DtPublished       time.Time      `json:"dt_published"`
	DtSourced         time.Time      `json:"dt_sourced"`
	Providers         []string       `json:"providers,omitempty"`
	ApprovalStatus    ApprovalStatus `json:"article_approval_status"`
	ShortSummaryRef   string         `json:"short_summary_ref,omitempty"`
	MediumSummaryRef  string         `json:"medium_summary_ref,omitempty"`
	LongSummaryRef    string         `json:"long_summary_ref,omitempty"`
	ThumbsUp          int64          `json:"thumbs_up"`
	ThumbsDown        int64          `json:"thumbs_down"`
}
