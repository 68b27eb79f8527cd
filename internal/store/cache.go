package store

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/horobot/horobot/internal/model"
)

// CacheStore はモードごとの占いキャッシュファイルを読み書きする。
// 読み込み失敗は空キャッシュとして扱い、書き込み失敗はログに記録して握りつぶす。
type CacheStore struct {
	paths  map[model.Mode]string
	logger *slog.Logger
}

// NewCacheStore はCacheStoreを生成する。pathsはモードからファイルパスへの対応。
func NewCacheStore(paths map[model.Mode]string, logger *slog.Logger) *CacheStore {
	copied := make(map[model.Mode]string, len(paths))
	for m, p := range paths {
		copied[m] = p
	}
	return &CacheStore{paths: copied, logger: logger}
}

// Path はモードのキャッシュファイルパスを返す。
func (s *CacheStore) Path(mode model.Mode) string {
	return s.paths[mode]
}

// Load はモードのキャッシュを読み込む。
// ファイルが無い、またはJSONが壊れている場合は空のキャッシュを返す。
func (s *CacheStore) Load(mode model.Mode) model.HoroscopeCache {
	path, ok := s.paths[mode]
	if !ok {
		s.logger.Error("キャッシュファイルのパスが未設定です", slog.String("mode", string(mode)))
		return model.NewHoroscopeCache()
	}

	var c model.HoroscopeCache
	if err := readJSON(path, &c); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("キャッシュの読み込みに失敗しました",
				slog.String("mode", string(mode)),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return model.NewHoroscopeCache()
	}
	if c.Horoscopes == nil {
		c.Horoscopes = make(map[string]string)
	}

	s.logger.Info("キャッシュを読み込みました",
		slog.String("mode", string(mode)),
		slog.String("date", c.Date),
	)
	return c
}

// Save はモードのキャッシュを保存する。失敗してもエラーは返さない。
func (s *CacheStore) Save(c model.HoroscopeCache, mode model.Mode) {
	path, ok := s.paths[mode]
	if !ok {
		s.logger.Error("キャッシュファイルのパスが未設定です", slog.String("mode", string(mode)))
		return
	}
	if c.Horoscopes == nil {
		c.Horoscopes = make(map[string]string)
	}

	if err := writeJSON(path, c); err != nil {
		s.logger.Error("キャッシュの保存に失敗しました",
			slog.String("mode", string(mode)),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("キャッシュを保存しました",
		slog.String("mode", string(mode)),
		slog.String("date", c.Date),
		slog.Int("signs", len(c.Horoscopes)),
	)
}
