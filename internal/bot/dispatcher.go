package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/horobot/horobot/internal/metrics"
	"github.com/horobot/horobot/internal/middleware"
)

// Dispatcher は更新をチャットごとに到着順で直列化しつつ、異なるチャットは並行に処理する。
// 処理待ちの更新があるチャットにだけワーカーが1つ走り、キューが空になると終了する。
// ハンドラー内のpanicは回復してログに残し、ユーザーには何も返さない。
type Dispatcher struct {
	handler UpdateHandler
	flood   *FloodGuard
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	mu     sync.Mutex
	queues map[int64]*chatQueue
	wg     sync.WaitGroup
}

// chatQueue は1チャット分の処理待ちの更新。先頭から順に処理する。
type chatQueue struct {
	pending []tgbotapi.Update
}

// NewDispatcher はDispatcherを生成する。floodがnilなら流量制限を行わない。
func NewDispatcher(handler UpdateHandler, flood *FloodGuard, collector metrics.MetricsCollector, logger *slog.Logger) *Dispatcher {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Dispatcher{
		handler: handler,
		flood:   flood,
		metrics: collector,
		logger:  logger,
		queues:  make(map[int64]*chatQueue),
	}
}

// Run はctxがキャンセルされるかチャネルが閉じるまで更新を受け取り続ける。
// 終了時は処理中のハンドラーの完了を待つ。
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer d.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("更新の受信を停止します")
			return
		case update, ok := <-updates:
			if !ok {
				d.logger.Info("更新チャネルが閉じられました")
				return
			}
			d.Dispatch(ctx, update)
		}
	}
}

// Dispatch は更新をチャットのキューに積む。ワーカーが無ければ起動する。ブロックしない。
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := chatIDOf(update)
	if chatID != 0 && d.flood != nil && !d.flood.Allow(chatID) {
		d.logger.Warn("流量制限を超えた更新を破棄しました",
			slog.Int64("chat_id", chatID),
			slog.Int("update_id", update.UpdateID),
		)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[chatID]; ok {
		q.pending = append(q.pending, update)
		return
	}
	q := &chatQueue{pending: []tgbotapi.Update{update}}
	d.queues[chatID] = q
	d.wg.Add(1)
	go d.drain(ctx, chatID, q)
}

// Wait は処理中の全ハンドラーの完了を待つ。
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Active はワーカーが動いているチャット数を返す。
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// drain はキューが空になるまで更新を1件ずつ処理し、空になったらチャットのエントリを消して終了する。
func (d *Dispatcher) drain(ctx context.Context, chatID int64, q *chatQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(q.pending) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		update := q.pending[0]
		q.pending[0] = tgbotapi.Update{}
		q.pending = q.pending[1:]
		d.mu.Unlock()

		d.handle(ctx, update)
	}
}

func (d *Dispatcher) handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			d.metrics.RecordUpdatePanic()
			middleware.LogPanic(d.logger, rec,
				slog.Int("update_id", update.UpdateID),
				slog.Int64("chat_id", chatIDOf(update)),
			)
		}
	}()
	d.handler.HandleUpdate(ctx, update)
}
