package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/horobot/horobot/internal/model"
	"github.com/horobot/horobot/internal/security"
)

var leo = model.Sign{Code: "leo", Name: "Лев", Emoji: "♌️"}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("パス = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("リクエストのデコードに失敗: %v", err)
		}
		if req.Model != "gpt-4o" || req.MaxTokens != 500 || req.Temperature != 0.8 {
			t.Errorf("パラメータが不正: %+v", req)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("メッセージが不正: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Привет, Лев!  "}}]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), OpenAIConfig{
		BaseURL: server.URL + "/", APIKey: "sk-test", Model: "gpt-4o", MaxTokens: 500, Temperature: 0.8,
	})

	got, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete がエラーを返した: %v", err)
	}
	if got != "Привет, Лев!" {
		t.Errorf("Complete() = %q", got)
	}
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), OpenAIConfig{BaseURL: server.URL, APIKey: "k"})

	_, err := c.Complete(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %v, want rate limited を含むエラー", err)
	}
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewOpenAIClient(server.Client(), newTestLogger(&buf), OpenAIConfig{BaseURL: server.URL, APIKey: "k"})

	if _, err := c.Complete(context.Background(), "prompt"); !errors.Is(err, model.ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

type mockCompleter struct {
	prompt string
	reply  string
	err    error
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.reply, m.err
}

func TestPromptSource_SubstitutesSignAndTrims(t *testing.T) {
	long := strings.Repeat("слово ", 200)
	m := &mockCompleter{reply: long}
	p := NewPromptSource(m, MemePrompt)

	got, err := p.Generate(context.Background(), leo)
	if err != nil {
		t.Fatalf("Generate がエラーを返した: %v", err)
	}
	if strings.Contains(m.prompt, "{sign}") {
		t.Error("プロンプトに {sign} が残っている")
	}
	if !strings.Contains(m.prompt, "для знака Лев") {
		t.Error("プロンプトに星座の表示名が入っていない")
	}
	if n := utf8.RuneCountInString(got); n > 600 {
		t.Errorf("長さ = %d, want <= 600", n)
	}
	if !strings.HasSuffix(got, "слово") {
		t.Errorf("単語の途中で切られている: %q", got[len(got)-12:])
	}
}

func TestPromptSource_PropagatesError(t *testing.T) {
	p := NewPromptSource(&mockCompleter{err: errors.New("boom")}, NormalPrompt)
	if _, err := p.Generate(context.Background(), leo); err == nil {
		t.Error("エラーが伝播していない")
	}
}

func TestScrapeSource_ExtractsBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prediction/leo/today/" {
			t.Errorf("パス = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>
<div class="menu">Меню</div>
<div class="article__item_html">
  <p>Сегодня   Львам стоит отдохнуть.</p>
  <script>var x = 1;</script>
  <p>Вечером &laquo;звёзды&raquo; благосклонны.</p>
</div>
<div class="article__item_html"><p>второй блок</p></div>
</body></html>`))
	}))
	defer server.Close()

	s := NewScrapeSource(nil, ScrapeConfig{
		URLTemplate: server.URL + "/prediction/%s/today/",
		Selector:    "div.article__item_html",
	})

	got, err := s.Generate(context.Background(), leo)
	if err != nil {
		t.Fatalf("Generate がエラーを返した: %v", err)
	}
	want := "Сегодня Львам стоит отдохнуть.\n\nВечером «звёзды» благосклонны."
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestScrapeSource_MissingBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="other">нет</div></body></html>`))
	}))
	defer server.Close()

	s := NewScrapeSource(nil, ScrapeConfig{URLTemplate: server.URL + "/%s", Selector: ".article"})

	if _, err := s.Generate(context.Background(), leo); !errors.Is(err, model.ErrContentNotFound) {
		t.Errorf("error = %v, want ErrContentNotFound", err)
	}
}

func TestScrapeSource_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := NewScrapeSource(nil, ScrapeConfig{URLTemplate: server.URL + "/%s", Selector: ".article"})

	if _, err := s.Generate(context.Background(), leo); err == nil {
		t.Error("HTTPエラーが返されていない")
	}
}

func TestScrapeSource_GuardBlocksLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ブロックされるべきリクエストがサーバーに届いた")
	}))
	defer server.Close()

	s := NewScrapeSource(security.NewGuard(), ScrapeConfig{URLTemplate: server.URL + "/%s", Selector: "p"})

	if _, err := s.Generate(context.Background(), leo); err == nil {
		t.Error("ループバックへのアクセスがブロックされていない")
	}
}

func TestFeedSource_FirstItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Гороскоп</title>
<item><title>Лев</title><description><![CDATA[<p>Лев, <b>сегодня</b> твой день.</p>]]></description></item>
<item><title>old</title><description>вчера</description></item>
</channel></rss>`))
	}))
	defer server.Close()

	s := NewFeedSource(nil, security.NewTextSanitizer(), FeedConfig{URLTemplate: server.URL + "/%s.xml"})

	got, err := s.Generate(context.Background(), leo)
	if err != nil {
		t.Fatalf("Generate がエラーを返した: %v", err)
	}
	if got != "Лев, сегодня твой день." {
		t.Errorf("Generate() = %q", got)
	}
}

func TestFeedSource_EmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`))
	}))
	defer server.Close()

	s := NewFeedSource(nil, security.NewTextSanitizer(), FeedConfig{URLTemplate: server.URL + "/%s.xml"})

	if _, err := s.Generate(context.Background(), leo); !errors.Is(err, model.ErrContentNotFound) {
		t.Errorf("error = %v, want ErrContentNotFound", err)
	}
}
