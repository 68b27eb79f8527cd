package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/horobot/horobot/internal/config"
	"github.com/horobot/horobot/internal/generator"
	"github.com/horobot/horobot/internal/horoscope"
	"github.com/horobot/horobot/internal/metrics"
	"github.com/horobot/horobot/internal/model"
	"github.com/horobot/horobot/internal/security"
	"github.com/horobot/horobot/internal/store"
)

// horoscopeDeps は占い配信に必要なコンポーネント一式。
type horoscopeDeps struct {
	zodiac  *model.Zodiac
	cache   *store.CacheStore
	service *horoscope.Service
	now     func() time.Time
}

// clock は設定のタイムゾーンで現在時刻を返す関数を作る。
func clock(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}

// buildHoroscope はキャッシュ、コンテンツソース、生成器、サービスを組み立てる。
func buildHoroscope(cfg *config.Config, collector metrics.MetricsCollector, logger *slog.Logger) (*horoscopeDeps, error) {
	zodiac := model.NewZodiac(model.DefaultSigns())
	now := clock(cfg.Location)

	// 1. キャッシュ
	cache := store.NewCacheStore(cfg.CacheFiles, logger)

	// 2. コンテンツソース
	sources, err := buildSources(cfg, security.NewGuard(), security.NewTextSanitizer(), logger)
	if err != nil {
		return nil, err
	}

	// 3. 生成器とサービス
	gen := generator.New(zodiac, sources, cache, collector, logger, generator.Config{
		Rate: cfg.GeneratorRate,
		Now:  now,
	})
	service := horoscope.NewService(zodiac, cache, gen, collector, logger, now)

	return &horoscopeDeps{
		zodiac:  zodiac,
		cache:   cache,
		service: service,
		now:     now,
	}, nil
}

// buildSources はモードごとの設定に従ってコンテンツソースを生成する。
func buildSources(
	cfg *config.Config,
	guard generator.SSRFValidator,
	sanitizer generator.TextSanitizer,
	logger *slog.Logger,
) (map[model.Mode]generator.Source, error) {
	fetch := generator.FetchConfig{
		Timeout:     cfg.FetchTimeout,
		MaxBodySize: cfg.FetchMaxSize,
	}

	var completer *generator.OpenAIClient
	sources := make(map[model.Mode]generator.Source, len(cfg.Sources))
	for _, mode := range model.Modes() {
		switch kind := cfg.Sources[mode]; kind {
		case config.SourceOpenAI:
			if completer == nil {
				completer = generator.NewOpenAIClient(
					&http.Client{Timeout: cfg.FetchTimeout},
					logger,
					generator.OpenAIConfig{
						BaseURL:     cfg.OpenAIBaseURL,
						APIKey:      cfg.OpenAIAPIKey,
						Model:       cfg.OpenAIModel,
						MaxTokens:   cfg.OpenAIMaxTokens,
						Temperature: cfg.OpenAITemperature,
					},
				)
			}
			sources[mode] = generator.NewPromptSource(completer, generator.PromptFor(mode))
		case config.SourceScrape:
			sources[mode] = generator.NewScrapeSource(guard, generator.ScrapeConfig{
				URLTemplate: cfg.ScrapeURLTemplate,
				Selector:    cfg.ScrapeSelector,
				Fetch:       fetch,
			})
		case config.SourceRSS:
			sources[mode] = generator.NewFeedSource(guard, sanitizer, generator.FeedConfig{
				URLTemplate: cfg.FeedURLTemplate,
				Fetch:       fetch,
			})
		default:
			return nil, fmt.Errorf("unknown source %q for mode %s", kind, mode)
		}
		logger.Info("コンテンツソースを設定しました",
			slog.String("mode", string(mode)),
			slog.String("source", cfg.Sources[mode]),
		)
	}
	return sources, nil
}
