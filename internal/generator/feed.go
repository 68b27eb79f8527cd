package generator

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/horobot/horobot/internal/model"
)

// TextSanitizer はHTML断片をプレーンテキストにする。
type TextSanitizer interface {
	PlainText(raw string) string
}

// FeedConfig はRSS/Atomソースの設定。URLTemplateの%sに星座コードが入る。
type FeedConfig struct {
	URLTemplate string
	Fetch       FetchConfig
}

// FeedSource は星座ごとのRSS/Atomフィードの最新記事を本文とするコンテンツソース。
type FeedSource struct {
	fetcher   *pageFetcher
	template  string
	sanitizer TextSanitizer
}

// NewFeedSource はFeedSourceを生成する。
func NewFeedSource(guard SSRFValidator, sanitizer TextSanitizer, config FeedConfig) *FeedSource {
	return &FeedSource{
		fetcher:   newPageFetcher(guard, config.Fetch),
		template:  config.URLTemplate,
		sanitizer: sanitizer,
	}
}

// Generate はフィードを取得し、本文を持つ最初の記事をプレーンテキストで返す。
func (s *FeedSource) Generate(ctx context.Context, sign model.Sign) (string, error) {
	url := fmt.Sprintf(s.template, sign.Code)
	body, err := s.fetcher.get(ctx, url, "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")
	if err != nil {
		return "", fmt.Errorf("%sのフィード取得に失敗しました: %w", sign.Code, err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return "", fmt.Errorf("%sのフィードパースに失敗しました: %w", sign.Code, err)
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		raw := item.Content
		if raw == "" {
			raw = item.Description
		}
		if text := s.sanitizer.PlainText(raw); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("%s: %w (フィードに記事がありません)", sign.Code, model.ErrContentNotFound)
}
