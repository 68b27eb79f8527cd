package store

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/horobot/horobot/internal/model"
)

// StatsStore は利用統計を保持し、更新のたびにファイルへ書き出す。
type StatsStore struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	stats model.UsageStats
}

// NewStatsStore はファイルから統計を読み込んでStatsStoreを生成する。
// ファイルが無い場合はゼロから始める。
func NewStatsStore(path string, logger *slog.Logger) *StatsStore {
	s := &StatsStore{
		path:   path,
		logger: logger,
		stats:  model.UsageStats{Signs: make(map[string]int)},
	}

	var loaded model.UsageStats
	if err := readJSON(path, &loaded); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("統計の読み込みに失敗しました",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return s
	}
	if loaded.Signs == nil {
		loaded.Signs = make(map[string]int)
	}
	s.stats = loaded
	return s
}

// IncrementStart は/startの回数を1増やして保存する。
func (s *StatsStore) IncrementStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Starts++
	return s.persistLocked()
}

// IncrementSign は星座の選択回数を1増やして保存する。
func (s *StatsStore) IncrementSign(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Signs[code]++
	return s.persistLocked()
}

// Snapshot は現在の統計のコピーを返す。
func (s *StatsStore) Snapshot() model.UsageStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	signs := make(map[string]int, len(s.stats.Signs))
	for k, v := range s.stats.Signs {
		signs[k] = v
	}
	return model.UsageStats{Starts: s.stats.Starts, Signs: signs}
}

func (s *StatsStore) persistLocked() error {
	if err := writeJSON(s.path, s.stats); err != nil {
		s.logger.Error("統計の保存に失敗しました",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
