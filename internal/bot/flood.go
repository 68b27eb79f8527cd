package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FloodConfig はチャットごとの流量制限の設定。
type FloodConfig struct {
	Rate            rate.Limit    // 1チャットあたりの更新数（件/秒）
	Burst           int           // バーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultFloodConfig はデフォルトの設定を返す。1チャットあたり毎秒1件、バースト5件。
func DefaultFloodConfig() FloodConfig {
	return FloodConfig{
		Rate:            rate.Limit(1),
		Burst:           5,
		CleanupInterval: 5 * time.Minute,
	}
}

type chatLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// FloodGuard はチャットごとのレート制限を管理する。
// 上限を超えた更新は処理せずに捨てる。
type FloodGuard struct {
	config FloodConfig

	mu       sync.Mutex
	limiters map[int64]*chatLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewFloodGuard はFloodGuardを生成し、バックグラウンドのクリーンアップを開始する。
func NewFloodGuard(config FloodConfig) *FloodGuard {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	g := &FloodGuard{
		config:   config,
		limiters: make(map[int64]*chatLimiter),
		stopCh:   make(chan struct{}),
	}
	go g.cleanupLoop()
	return g
}

// Stop はクリーンアップのゴルーチンを停止する。
func (g *FloodGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

// Allow はチャットの更新を処理してよいかを返す。
func (g *FloodGuard) Allow(chatID int64) bool {
	g.mu.Lock()
	cl, ok := g.limiters[chatID]
	if !ok {
		cl = &chatLimiter{limiter: rate.NewLimiter(g.config.Rate, g.config.Burst)}
		g.limiters[chatID] = cl
	}
	cl.lastAccess = time.Now()
	g.mu.Unlock()

	return cl.limiter.Allow()
}

// Count は管理中のチャット数を返す。テスト用。
func (g *FloodGuard) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.limiters)
}

func (g *FloodGuard) cleanupLoop() {
	ticker := time.NewTicker(g.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.cleanup(time.Now())
		case <-g.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスがCleanupIntervalの2倍より古いエントリを削除する。
func (g *FloodGuard) cleanup(now time.Time) {
	ttl := g.config.CleanupInterval * 2

	g.mu.Lock()
	defer g.mu.Unlock()
	for chatID, cl := range g.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(g.limiters, chatID)
		}
	}
}
