package daily

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", TimeOfDay{9, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{"00:05", TimeOfDay{0, 5}, false},
		{"24:00", TimeOfDay{}, true},
		{"9am", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTimeOfDay_Next(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	at := TimeOfDay{Hour: 9, Minute: 0}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"当日の予定時刻前", time.Date(2024, 3, 15, 8, 30, 0, 0, loc), time.Date(2024, 3, 15, 9, 0, 0, 0, loc)},
		{"予定時刻ちょうどは翌日", time.Date(2024, 3, 15, 9, 0, 0, 0, loc), time.Date(2024, 3, 16, 9, 0, 0, 0, loc)},
		{"予定時刻後は翌日", time.Date(2024, 3, 15, 21, 0, 0, 0, loc), time.Date(2024, 3, 16, 9, 0, 0, 0, loc)},
		{"月末をまたぐ", time.Date(2024, 2, 29, 10, 0, 0, 0, loc), time.Date(2024, 3, 1, 9, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := at.Next(tt.now); !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_RunsJobAtScheduledTime(t *testing.T) {
	var buf bytes.Buffer
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := JobFunc(func(ctx context.Context) error {
		if runs.Add(1) == 2 {
			cancel()
		}
		return nil
	})
	s := NewScheduler("test", TimeOfDay{Hour: 9}, time.UTC, job, newTestLogger(&buf))
	s.now = func() time.Time { return time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC) }

	var waits []time.Duration
	s.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("スケジューラが停止しない")
	}

	if runs.Load() < 2 {
		t.Errorf("実行回数 = %d, want >= 2", runs.Load())
	}
	if len(waits) == 0 || waits[0] != time.Hour {
		t.Errorf("待ち時間 = %v, want 1h", waits)
	}
}

func TestScheduler_JobErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler("failing", TimeOfDay{}, nil, JobFunc(func(ctx context.Context) error {
		return errors.New("boom")
	}), newTestLogger(&buf))

	s.RunOnce(context.Background())

	if !strings.Contains(buf.String(), "boom") || !strings.Contains(buf.String(), `"job":"failing"`) {
		t.Errorf("エラーログが出力されていない: %s", buf.String())
	}
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler("idle", TimeOfDay{Hour: 3}, time.UTC, JobFunc(func(ctx context.Context) error {
		t.Error("キャンセル済みなのにジョブが実行された")
		return nil
	}), newTestLogger(&buf))
	s.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	s.Start(ctx)
}
