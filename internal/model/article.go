package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"newsdal/internal/timeutil"
)

var ErrInvalidArticle = errors.New("invalid article")

// Sorting values an aggregator can report for a result set.
const (
	SortingRelevance = "relevance"
	SortingDate      = "date"
)

const ArticleTypeNews = "news"

// NoCategory is the sentinel used when an aggregator reports no category or
// an unmapped one.
const NoCategory = "no-category"

// RawArticle is a candidate news item discovered by an aggregator for a
// topic. Its JSON form is the object-store body; field order is fixed by the
// struct so serialization is canonical.
type RawArticle struct {
	ArticleID        string `json:"article_id"`
	AggregatorID     string `json:"aggregator_id"`
	DtPublished      string `json:"dt_published"`
	AggregationIndex int    `json:"aggregation_index"`
	TopicID          string `json:"topic_id"`
	// Topic is the human search string; DiscoveredTopic is algorithmically
	// inferred later, if ever.
	Topic             string `json:"topic"`
	DiscoveredTopic   string `json:"discovered_topic"`
	Category          string `json:"category"`
	RequestedCategory string `json:"requested_category"`
	Title             string `json:"title"`
	URL               string `json:"url"`
	Author            string `json:"author"`
	// Full-text fields populated at most once by enrichment.
	ArticleFullText        string `json:"article_full_text"`
	ArticleTextSnippet     string `json:"article_text_snippet"`
	ArticleTextDescription string `json:"article_text_description"`
	// ArticleData is the raw serialized aggregator payload.
	ArticleData          string `json:"article_data"`
	Sorting              string `json:"sorting"`
	ArticleType          string `json:"article_type"`
	ProviderDomain       string `json:"provider_domain"`
	ArticleProcessedData string `json:"article_processed_data"`
}

// Normalize applies the defaults a freshly discovered article gets, then
// validates it. Producers call this once before handing the article to the
// repository.
func (a *RawArticle) Normalize() error {
	if a.Category == "" {
		a.Category = NoCategory
	}
	if a.RequestedCategory == "" {
		a.RequestedCategory = NoCategory
	}
	if a.ArticleType == "" {
		a.ArticleType = ArticleTypeNews
	}
	return a.Validate()
}

// Validate checks the fields the storage layout and dedup logic depend on.
func (a *RawArticle) Validate() error {
	switch {
	case a.ArticleID == "":
		return fmt.Errorf("%w: article_id is required", ErrInvalidArticle)
	case a.AggregatorID == "":
		return fmt.Errorf("%w: aggregator_id is required", ErrInvalidArticle)
	case a.TopicID == "":
		return fmt.Errorf("%w: topic_id is required", ErrInvalidArticle)
	case a.URL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidArticle)
	case a.AggregationIndex < 0:
		return fmt.Errorf("%w: aggregation_index must be >= 0", ErrInvalidArticle)
	case a.Sorting != SortingRelevance && a.Sorting != SortingDate:
		return fmt.Errorf("%w: sorting must be %q or %q, got %q", ErrInvalidArticle, SortingRelevance, SortingDate, a.Sorting)
	}
	if _, err := timeutil.ParsePublishedDate(a.DtPublished); err != nil {
		return err
	}
	return nil
}

// ParseRawArticle decodes a stored object body back into a RawArticle.
func ParseRawArticle(body []byte) (RawArticle, error) {
	var a RawArticle
	if err := json.Unmarshal(body, &a); err != nil {
		return RawArticle{}, fmt.Errorf("%w: %v", ErrInvalidArticle, err)
	}
	if err := a.Normalize(); err != nil {
		return RawArticle{}, err
	}
	return a, nil
}

// JSON returns the canonical storage body.
func (a RawArticle) JSON() ([]byte, error) {
	return json.Marshal(a)
}

// PublishedDate returns the YYYY/MM/DD partition the article belongs to,
// derived from its own dt_published.
func (a RawArticle) PublishedDate() (string, error) {
	t, err := timeutil.ParsePublishedDate(a.DtPublished)
	if err != nil {
		return "", err
	}
	return timeutil.ToLexicographicDate(t), nil
}

// DeriveProviderDomain fills ProviderDomain from the article URL: the
// registrable domain plus suffix, lower-cased, without a leading "www" label.
// Best effort; an unparseable URL leaves the field untouched.
func (a *RawArticle) DeriveProviderDomain() {
	if a.ProviderDomain != "" {
		return
	}
	u, err := url.Parse(a.URL)
	if err != nil || u.Hostname() == "" {
		return
	}
	host := strings.ToLower(u.Hostname())
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		a.ProviderDomain = domain
		return
	}
	a.ProviderDomain = strings.TrimPrefix(host, "www.")
}

// ExtractedContent is what an Extractor pulls out of an article's source URL.
// Processed carries the structured extraction result with the main text
// excluded; the text lives in MainText instead.
type ExtractedContent struct {
	MainText    string
	Description string
	Snippet     string
	Processed   string
}

// Extractor fetches and parses an article's source URL into structured text.
type Extractor interface {
	Extract(ctx context.Context, url string) (ExtractedContent, error)
}

// ProcessArticleData enriches the article from its source URL. The derivation
// is memoized: once any full-text or processed data is present it never runs
// again, and nothing is overwritten. Extraction failures and empty results
// degrade silently; callers see empty text fields rather than an error.
func (a *RawArticle) ProcessArticleData(ctx context.Context, ex Extractor) {
	a.DeriveProviderDomain()
	if a.ArticleProcessedData != "" || a.ArticleFullText != "" {
		return
	}
	content, err := ex.Extract(ctx, a.URL)
	if err != nil || content.MainText == "" {
		return
	}
	a.ArticleFullText = content.MainText
	a.ArticleTextSnippet = content.Snippet
	a.ArticleTextDescription = content.Description
	a.ArticleProcessedData = content.Processed
}

// GetArticleText returns the enriched main text, deriving it on first use.
func (a *RawArticle) GetArticleText(ctx context.Context, ex Extractor) string {
	a.ProcessArticleData(ctx, ex)
	return a.ArticleFullText
}

// GetArticleTextDescription returns the enriched description, deriving it on
// first use.
func (a *RawArticle) GetArticleTextDescription(ctx context.Context, ex Extractor) string {
	a.ProcessArticleData(ctx, ex)
	return a.ArticleTextDescription
}
