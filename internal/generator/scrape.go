package generator

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/horobot/horobot/internal/model"
)

// ScrapeConfig はスクレイピング対象の設定。
// URLTemplateの%sに星座コードが入る。
type ScrapeConfig struct {
	URLTemplate string
	Selector    string
	Fetch       FetchConfig
}

// ScrapeSource は星座ごとの固定ページから本文ブロックを抜き出すコンテンツソース。
type ScrapeSource struct {
	fetcher  *pageFetcher
	template string
	selector string
}

// NewScrapeSource はScrapeSourceを生成する。guardがnilの場合はSSRF検証を行わない。
func NewScrapeSource(guard SSRFValidator, config ScrapeConfig) *ScrapeSource {
	return &ScrapeSource{
		fetcher:  newPageFetcher(guard, config.Fetch),
		template: config.URLTemplate,
		selector: config.Selector,
	}
}

// URL は星座のページURLを返す。
func (s *ScrapeSource) URL(sign model.Sign) string {
	return fmt.Sprintf(s.template, sign.Code)
}

// Generate はページを取得して本文ブロックの表示テキストを返す。
func (s *ScrapeSource) Generate(ctx context.Context, sign model.Sign) (string, error) {
	body, err := s.fetcher.get(ctx, s.URL(sign), "text/html,application/xhtml+xml")
	if err != nil {
		return "", fmt.Errorf("%sのページ取得に失敗しました: %w", sign.Code, err)
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%sのHTMLパースに失敗しました: %w", sign.Code, err)
	}

	block := goquery.NewDocumentFromNode(root).Find(s.selector).First()
	if block.Length() == 0 {
		return "", fmt.Errorf("%s: %w (selector=%q)", sign.Code, model.ErrContentNotFound, s.selector)
	}

	text := visibleText(block)
	if text == "" {
		return "", fmt.Errorf("%s: %w (本文が空)", sign.Code, model.ErrContentNotFound)
	}
	return text, nil
}

// visibleText はブロック内の段落を空行区切りで連結する。
// 段落が無い場合はブロック全体のテキストを使う。
func visibleText(block *goquery.Selection) string {
	block.Find("script, style, noscript").Remove()

	var paragraphs []string
	block.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := collapseSpaces(p.Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}
	return collapseSpaces(block.Text())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
