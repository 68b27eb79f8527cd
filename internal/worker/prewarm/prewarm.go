// Package prewarm は定時に全モードのキャッシュを作り直すジョブを提供する。
package prewarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/horobot/horobot/internal/model"
)

// Refresher はモードのキャッシュを再生成して保存する。
type Refresher interface {
	Refresh(ctx context.Context, mode model.Mode) (model.HoroscopeCache, error)
}

// Job は全モードを順に再生成する。1モードの失敗で残りは止めない。
type Job struct {
	refresher Refresher
	modes     []model.Mode
	logger    *slog.Logger
}

// NewJob はJobを生成する。
func NewJob(refresher Refresher, modes []model.Mode, logger *slog.Logger) *Job {
	return &Job{refresher: refresher, modes: modes, logger: logger}
}

// Run はdaily.Jobの実装。失敗したモードのエラーをまとめて返す。
func (j *Job) Run(ctx context.Context) error {
	var errs []error
	for _, mode := range j.modes {
		c, err := j.refresher.Refresh(ctx, mode)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", mode, err))
			continue
		}
		j.logger.Info("キャッシュを事前生成しました",
			slog.String("mode", string(mode)),
			slog.String("date", c.Date),
			slog.Int("sign_count", len(c.Horoscopes)),
		)
	}
	return errors.Join(errs...)
}
