// Package extract fills in missing article text by fetching the article URL
// and running readability over the page. Extraction is best effort: a page
// that cannot be fetched or parsed leaves the article untouched.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"newsdal/internal/model"
)

const (
	defaultTimeout = 15 * time.Second
	snippetRunes   = 300
)

// ReadabilityExtractor implements model.Extractor over plain HTTP.
type ReadabilityExtractor struct {
	client *http.Client
	logger *zap.Logger
}

func NewReadabilityExtractor(logger *zap.Logger) *ReadabilityExtractor {
	return &ReadabilityExtractor{
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}
}

func (e *ReadabilityExtractor) Extract(ctx context.Context, articleURL string) (model.ExtractedContent, error) {
	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		return model.ExtractedContent{}, fmt.Errorf("parsing article url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return model.ExtractedContent{}, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return model.ExtractedContent{}, fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.ExtractedContent{}, fmt.Errorf("fetching article: status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return model.ExtractedContent{}, fmt.Errorf("parsing article content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		// TODO: record a metric when extraction comes back empty
		e.logger.Warn("extraction returned no text", zap.String("url", articleURL))
	}

	description := strings.TrimSpace(article.Excerpt)
	if description == "" {
		description = metaDescription(article.Content)
	}

	processed, _ := json.Marshal(map[string]any{
		"title":     article.Title,
		"byline":    article.Byline,
		"excerpt":   article.Excerpt,
		"site_name": article.SiteName,
		"length":    article.Length,
	})

	return model.ExtractedContent{
		MainText:    text,
		Description: description,
		Snippet:     snippet(text),
		Processed:   string(processed),
	}, nil
}

// metaDescription pulls a description out of the page markup when
// readability did not produce an excerpt.
func metaDescription(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	for _, selector := range []string{
		`meta[property="og:description"]`,
		`meta[name="description"]`,
	} {
		if val, ok := doc.Find(selector).Attr("content"); ok {
			if val = strings.TrimSpace(val); val != "" {
				return val
			}
		}
	}
	return ""
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:snippetRunes])) + "..."
}
