// Package reminder はリマインダー購読者へ朝の通知を一斉送信するジョブを提供する。
package reminder

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/horobot/horobot/internal/metrics"
)

// SubscriberLister は購読中のチャット一覧を返す。
type SubscriberLister interface {
	List() []int64
}

// Notifier は1チャットに通知を送る。
type Notifier interface {
	SendReminder(ctx context.Context, chatID int64) error
}

// Result は1回の送信結果の集計。
type Result struct {
	Sent   int
	Failed int
}

// Sweeper は購読者全員に通知を送る。
// 1件の送信失敗で全体は止まらない。送信間隔はlimiterで制御する。
type Sweeper struct {
	subscribers SubscriberLister
	notifier    Notifier
	limiter     *rate.Limiter
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
}

// NewSweeper はSweeperを生成する。perSecondが0以下の場合は送信間隔を制御しない。
func NewSweeper(subscribers SubscriberLister, notifier Notifier, perSecond float64, collector metrics.MetricsCollector, logger *slog.Logger) *Sweeper {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Sweeper{
		subscribers: subscribers,
		notifier:    notifier,
		limiter:     rate.NewLimiter(limit, 1),
		metrics:     collector,
		logger:      logger,
	}
}

// Run はdaily.Jobの実装。
func (s *Sweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

// Sweep は購読者を順に通知し、集計を返す。
// コンテキストがキャンセルされた場合はそこで打ち切ってエラーを返す。
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	start := time.Now()
	chats := s.subscribers.List()
	var res Result

	s.logger.Info("リマインダーの送信を開始します", slog.Int("subscriber_count", len(chats)))

	for _, chatID := range chats {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("リマインダーの送信を中断しました",
				slog.Int("sent", res.Sent),
				slog.Int("remaining", len(chats)-res.Sent-res.Failed),
			)
			return res, err
		}

		if err := s.notifier.SendReminder(ctx, chatID); err != nil {
			res.Failed++
			s.metrics.RecordReminder(false)
			s.logger.Error("リマインダーの送信に失敗しました",
				slog.Int64("chat_id", chatID),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Sent++
		s.metrics.RecordReminder(true)
	}

	s.logger.Info("リマインダーの送信が完了しました",
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res, nil
}
