// Package horoscope は日次キャッシュの有効性を判定し、必要なときだけ再生成する。
package horoscope

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/horobot/horobot/internal/metrics"
	"github.com/horobot/horobot/internal/model"
	"github.com/horobot/horobot/internal/textnorm"
)

// CacheStore はモードごとのキャッシュの読み書きを抽象化する。
type CacheStore interface {
	Load(mode model.Mode) model.HoroscopeCache
	Save(c model.HoroscopeCache, mode model.Mode)
}

// Regenerator は全星座分のキャッシュを生成する。
type Regenerator interface {
	GenerateAll(ctx context.Context, mode model.Mode) (model.HoroscopeCache, error)
}

// Service は占い本文の取得窓口。
// キャッシュが今日の日付なら保存済みの本文を返し、そうでなければ同期的に再生成する。
// 同じモードへの同時のキャッシュミスは1回の再生成にまとめる。
type Service struct {
	zodiac     *model.Zodiac
	store      CacheStore
	generator  Regenerator
	normalizer textnorm.Normalizer
	flight     singleflight.Group
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。nowがnilの場合はtime.Nowを使う。
func NewService(
	zodiac *model.Zodiac,
	store CacheStore,
	generator Regenerator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		zodiac:     zodiac,
		store:      store,
		generator:  generator,
		normalizer: textnorm.Default(),
		metrics:    collector,
		logger:     logger,
		now:        now,
	}
}

// Get は星座の今日の本文を返す。
// 再生成後も本文が無い場合は固定の「後でもう一度」メッセージを返す。
func (s *Service) Get(ctx context.Context, code string, mode model.Mode) string {
	if _, ok := s.zodiac.ByCode(code); !ok {
		s.logger.Warn("未知の星座コードです", slog.String("sign", code))
		return model.NotFoundText
	}

	if text, ok := s.Cached(code, mode); ok {
		s.metrics.RecordCacheHit(string(mode))
		s.metrics.RecordHoroscopeServed(string(mode), code)
		return text
	}
	s.metrics.RecordCacheMiss(string(mode))

	c, err := s.ensure(ctx, mode)
	if err != nil {
		s.logger.Error("キャッシュの再生成に失敗しました",
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		return model.NotFoundText
	}

	text, ok := c.Text(code)
	if !ok {
		return model.NotFoundText
	}
	s.metrics.RecordHoroscopeServed(string(mode), code)
	return s.normalizer.Trim(text)
}

// Cached はキャッシュだけを参照する。今日の日付でない、または本文が無い場合はfalseを返す。
func (s *Service) Cached(code string, mode model.Mode) (string, bool) {
	c := s.store.Load(mode)
	if !c.ValidOn(s.now()) {
		return "", false
	}
	text, ok := c.Text(code)
	if !ok {
		return "", false
	}
	return s.normalizer.Trim(text), true
}

// Refresh はキャッシュの有効性にかかわらずモードを再生成して保存する。
// 定時の事前生成とgenerateコマンドから呼ばれる。
func (s *Service) Refresh(ctx context.Context, mode model.Mode) (model.HoroscopeCache, error) {
	v, err, _ := s.flight.Do(string(mode), func() (any, error) {
		return s.regenerate(ctx, mode)
	})
	if err != nil {
		return model.HoroscopeCache{}, err
	}
	return v.(model.HoroscopeCache), nil
}

// ensure は今日のキャッシュを返す。無効なら再生成する。
// 待っている間に他のリクエストが再生成を終えている場合があるため、フライト内で再確認する。
func (s *Service) ensure(ctx context.Context, mode model.Mode) (model.HoroscopeCache, error) {
	v, err, shared := s.flight.Do(string(mode), func() (any, error) {
		if c := s.store.Load(mode); c.ValidOn(s.now()) && len(c.Horoscopes) >= len(s.zodiac.Signs()) {
			return c, nil
		}
		return s.regenerate(ctx, mode)
	})
	if err != nil {
		return model.HoroscopeCache{}, err
	}
	if shared {
		s.logger.Debug("進行中の再生成の結果を共有しました", slog.String("mode", string(mode)))
	}
	return v.(model.HoroscopeCache), nil
}

// regenerate は生成して保存する。
// リクエスト元のキャンセルで共有中のバッチが止まらないよう、キャンセルは切り離す。
func (s *Service) regenerate(ctx context.Context, mode model.Mode) (model.HoroscopeCache, error) {
	c, err := s.generator.GenerateAll(context.WithoutCancel(ctx), mode)
	if err != nil {
		return model.HoroscopeCache{}, fmt.Errorf("%sモードの生成に失敗しました: %w", mode, err)
	}
	s.store.Save(c, mode)
	return c, nil
}
