package generator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.Guardを抽象化してテストではnilを渡せるようにする。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// FetchConfig は外部サイト取得のタイムアウトとサイズ上限。
type FetchConfig struct {
	Timeout     time.Duration
	MaxBodySize int64
}

// pageFetcher はスクレイピングとフィード取得で共有するHTTP GET処理。
type pageFetcher struct {
	guard  SSRFValidator
	client *http.Client
	config FetchConfig
}

func newPageFetcher(guard SSRFValidator, config FetchConfig) *pageFetcher {
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 2 * 1024 * 1024
	}
	var client *http.Client
	if guard != nil {
		client = guard.NewSafeClient(config.Timeout, config.MaxBodySize)
	} else {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &pageFetcher{guard: guard, client: client, config: config}
}

// get はURLを取得し、Content-Typeの文字コードからUTF-8に変換した本文を返す。
func (f *pageFetcher) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if f.guard != nil {
		if err := f.guard.ValidateURL(rawURL); err != nil {
			return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; horobot/1.0)")
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTPステータス %d: %s", resp.StatusCode, rawURL)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.config.MaxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("文字コードの判定に失敗: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}
	return body, nil
}
