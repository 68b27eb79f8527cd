// Package generator は全星座分の占い本文を生成する。
// 生成APIへのプロンプト、占いサイトのスクレイピング、RSSフィードの3種類のソースを持つ。
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/horobot/horobot/internal/metrics"
	"github.com/horobot/horobot/internal/model"
)

// Source は1星座分の本文を生成するインターフェース。
type Source interface {
	Generate(ctx context.Context, sign model.Sign) (string, error)
}

// CacheLoader は前回のキャッシュを読み込むインターフェース。
type CacheLoader interface {
	Load(mode model.Mode) model.HoroscopeCache
}

// Config はGeneratorの設定。
type Config struct {
	// Rate は外部APIへの1秒あたりの最大リクエスト数。0以下なら制限しない。
	Rate float64
	// Now は現在時刻を返す。日付の判定に使う。
	Now func() time.Time
}

// Generator はモードごとのソースで全星座を順番に生成する。
// 1星座の失敗でバッチは止まらない。失敗した星座は前回の有効な値かプレースホルダーになる。
type Generator struct {
	zodiac  *model.Zodiac
	sources map[model.Mode]Source
	cache   CacheLoader
	limiter *rate.Limiter
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
}

// New はGeneratorを生成する。
func New(
	zodiac *model.Zodiac,
	sources map[model.Mode]Source,
	cache CacheLoader,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	config Config,
) *Generator {
	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Limit(config.Rate)
	}
	burst := 1
	if config.Rate > 1 {
		burst = int(math.Ceil(config.Rate))
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Generator{
		zodiac:  zodiac,
		sources: sources,
		cache:   cache,
		limiter: rate.NewLimiter(limit, burst),
		metrics: collector,
		logger:  logger,
		now:     now,
	}
}

// GenerateAll はモードの全星座を生成し、新しいキャッシュを返す。保存は呼び出し元が行う。
//
// 全星座が成功した場合のみ日付を今日にする。1つでも失敗した場合は前回の日付を残し、
// 次のリクエストで再生成が走るようにする。成功した星座の本文はそのまま保持する。
func (g *Generator) GenerateAll(ctx context.Context, mode model.Mode) (model.HoroscopeCache, error) {
	source, ok := g.sources[mode]
	if !ok {
		return model.HoroscopeCache{}, fmt.Errorf("%w: %q", model.ErrUnknownMode, mode)
	}

	start := time.Now()
	today := g.now()
	prev := g.cache.Load(mode)
	prevValid := prev.ValidOn(today)

	g.logger.Info("占いの生成を開始します",
		slog.String("mode", string(mode)),
		slog.String("previous_date", prev.Date),
	)

	result := model.HoroscopeCache{Horoscopes: make(map[string]string, len(g.zodiac.Signs()))}
	failed := 0

	for _, sign := range g.zodiac.Signs() {
		text, err := g.generateOne(ctx, source, sign)
		if err != nil {
			failed++
			g.metrics.RecordSignFailure(string(mode), sign.Code)
			g.logger.Error("星座の生成に失敗しました",
				slog.String("mode", string(mode)),
				slog.String("sign", sign.Code),
				slog.String("error", err.Error()),
			)
			text = model.NotFoundText
			if prevValid {
				if old, ok := prev.Text(sign.Code); ok {
					text = old
				}
			}
		} else {
			g.logger.Info("星座の本文を受信しました",
				slog.String("mode", string(mode)),
				slog.String("sign", sign.Code),
				slog.Int("length", len([]rune(text))),
			)
		}
		result.Horoscopes[sign.Code] = text
	}

	if failed == 0 {
		result.Date = today.Format(model.DateLayout)
	} else {
		result.Date = prev.Date
	}

	duration := time.Since(start)
	g.metrics.RecordGeneration(string(mode), failed == 0, duration)
	g.logger.Info("占いの生成が完了しました",
		slog.String("mode", string(mode)),
		slog.String("date", result.Date),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return result, nil
}

func (g *Generator) generateOne(ctx context.Context, source Source, sign model.Sign) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("レート制限の待機に失敗しました: %w", err)
	}
	text, err := source.Generate(ctx, sign)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", model.ErrEmptyResponse
	}
	return text, nil
}
