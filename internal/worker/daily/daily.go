// Package daily は毎日決まった時刻にジョブを実行するスケジューラを提供する。
package daily

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job は定時に実行される処理。
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc は関数をJobとして扱うアダプター。
type JobFunc func(ctx context.Context) error

// Run はJobの実装。
func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// TimeOfDay は1日のうちの時刻（時・分）。
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay は"HH:MM"形式の文字列を解釈する。
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("時刻の形式が不正です（HH:MM）: %q", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Next はnow以降で最初にこの時刻になる瞬間を返す。nowと同時刻ちょうどの場合は翌日。
func (t TimeOfDay) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Scheduler は毎日At時刻（locのタイムゾーン）にジョブを1回実行する。
// ジョブの失敗はログに残し、翌日も実行を続ける。
type Scheduler struct {
	name   string
	at     TimeOfDay
	loc    *time.Location
	job    Job
	logger *slog.Logger

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// NewScheduler はSchedulerを生成する。locがnilの場合はtime.Localを使う。
func NewScheduler(name string, at TimeOfDay, loc *time.Location, job Job, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		name:   name,
		at:     at,
		loc:    loc,
		job:    job,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}
}

// Start はコンテキストがキャンセルされるまで毎日ジョブを実行する。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("定時ジョブのスケジューラを開始しました",
		slog.String("job", s.name),
		slog.String("at", s.at.String()),
		slog.String("timezone", s.loc.String()),
	)

	for {
		next := s.at.Next(s.now().In(s.loc))
		wait := next.Sub(s.now())
		s.logger.Info("次回の実行を予約しました",
			slog.String("job", s.name),
			slog.Time("next_run", next),
		)

		select {
		case <-ctx.Done():
			s.logger.Info("定時ジョブのスケジューラを停止しました", slog.String("job", s.name))
			return
		case <-s.after(wait):
			s.RunOnce(ctx)
		}
	}
}

// RunOnce はジョブを1回実行し、結果をログに残す。
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	if err := s.job.Run(ctx); err != nil {
		s.logger.Error("定時ジョブの実行に失敗しました",
			slog.String("job", s.name),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("定時ジョブが完了しました",
		slog.String("job", s.name),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
