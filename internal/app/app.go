package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/horobot/horobot/internal/bot"
	"github.com/horobot/horobot/internal/config"
	"github.com/horobot/horobot/internal/handler"
	"github.com/horobot/horobot/internal/intake"
	"github.com/horobot/horobot/internal/logger"
	"github.com/horobot/horobot/internal/metrics"
	"github.com/horobot/horobot/internal/model"
	"github.com/horobot/horobot/internal/store"
	"github.com/horobot/horobot/internal/textnorm"
	"github.com/horobot/horobot/internal/worker/daily"
	"github.com/horobot/horobot/internal/worker/prewarm"
	"github.com/horobot/horobot/internal/worker/reminder"
)

// ロングポーリングのタイムアウト（秒）。
const pollTimeoutSec = 60

const intakeGreeting = "Intake bot is running!"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルで作り直す
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck と trim は軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		return runHealthcheck(healthcheckPort())
	case CommandTrim:
		var path string
		if len(args) > 1 {
			path = args[1]
		}
		return runTrim(os.Stdin, os.Stdout, path)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("timezone", cfg.Location.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandIntake:
		return runIntake(ctx, cfg)
	case CommandGenerate:
		return runGenerate(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe は占いボットとして起動する。
// リマインダーと事前生成の定時ジョブを起動し、ヘルスチェック用のHTTPサーバーと並行して更新を処理する。
func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	if err := cfg.RequireSources(); err != nil {
		return err
	}
	log := slog.Default()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 占いサービス
	deps, err := buildHoroscope(cfg, collector, log)
	if err != nil {
		return fmt.Errorf("failed to build horoscope service: %w", err)
	}

	// 3. 統計とリマインダー
	stats := store.NewStatsStore(cfg.StatsFile, log)
	reminders := store.NewReminderStore(cfg.RemindersFile, log)

	// 4. Telegram
	api, err := bot.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}
	horoscopeBot := bot.NewHoroscopeBot(api, deps.service, stats, reminders, deps.zodiac, bot.HoroscopeConfig{
		AdminChatID:     cfg.AdminChatID,
		PsychologistURL: cfg.PsychologistURL,
		AuxDelay:        cfg.AuxMessageDelay,
	}, log)

	// 5. 定時ジョブ
	sweeper := reminder.NewSweeper(reminders, horoscopeBot, cfg.ReminderRate, collector, log)
	jobs := []*daily.Scheduler{
		daily.NewScheduler("reminder", cfg.ReminderTime, cfg.Location, sweeper, log),
	}
	if cfg.PrewarmEnabled {
		job := prewarm.NewJob(deps.service, model.Modes(), log)
		jobs = append(jobs, daily.NewScheduler("prewarm", cfg.PrewarmTime, cfg.Location, job, log))
	}

	return runBot(ctx, cfg, api, horoscopeBot, registry, collector, "", jobs, log)
}

// runIntake はアンケートボットとして起動する。
// ADMIN_CHAT_IDが未設定の場合、回答はオペレーターに届かずログにだけ残る。
func runIntake(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	log := slog.Default()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	api, err := bot.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}

	var operator intake.Operator
	if cfg.AdminChatID != 0 {
		operator = bot.NewTelegramOperator(api, cfg.AdminChatID)
	} else {
		log.Warn("ADMIN_CHAT_IDが未設定のため、回答はオペレーターに転送されません")
	}

	machine := intake.NewMachine(intake.DefaultScenarios(), intake.ClassicScenario(), operator, collector, log)
	admin := bot.NewAdmin(api, cfg.AdminChatID, nil, model.NewZodiac(model.DefaultSigns()), log)
	intakeBot := bot.NewIntakeBot(api, machine, admin, log)

	return runBot(ctx, cfg, api, intakeBot, registry, collector, intakeGreeting, nil, log)
}

// runBot はヘルスチェック用のHTTPサーバーと定時ジョブを起動し、ctxが終了するまで更新を処理する。
// 終了時は処理中のハンドラーとジョブを待ってからHTTPサーバーを停止する。
func runBot(
	ctx context.Context,
	cfg *config.Config,
	api *tgbotapi.BotAPI,
	h bot.UpdateHandler,
	registry *prometheus.Registry,
	collector metrics.MetricsCollector,
	greeting string,
	jobs []*daily.Scheduler,
	log *slog.Logger,
) error {
	// 1. HTTPサーバーの起動
	server := newHealthServer(cfg.ServerPort, greeting, registry, log)
	go func() {
		log.Info("health server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	// 2. 定時ジョブ
	var wg sync.WaitGroup
	for _, job := range jobs {
		job := job // per-iteration copy (Go 1.22 loopvar semantics under go 1.21)
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Start(ctx)
		}()
	}

	// 3. 更新の処理（ブロッキング）
	flood := bot.NewFloodGuard(bot.DefaultFloodConfig())
	defer flood.Stop()
	dispatcher := bot.NewDispatcher(h, flood, collector, log)

	log.Info("bot started", slog.String("username", api.Self.UserName))
	dispatcher.Run(ctx, bot.Updates(api, pollTimeoutSec))

	log.Info("shutting down bot...")
	api.StopReceivingUpdates()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("bot stopped gracefully")
	return nil
}

func newHealthServer(port, greeting string, registry *prometheus.Registry, log *slog.Logger) *http.Server {
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:   log,
		Gatherer: registry,
		Greeting: greeting,
	})
	return &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// runGenerate は全モードのキャッシュを作り直して終了する。
// 1星座でも失敗したモードがある場合はエラーを返す。
func runGenerate(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireSources(); err != nil {
		return err
	}
	log := slog.Default()

	deps, err := buildHoroscope(cfg, metrics.Nop{}, log)
	if err != nil {
		return fmt.Errorf("failed to build horoscope service: %w", err)
	}

	if err := prewarm.NewJob(deps.service, model.Modes(), log).Run(ctx); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	var incomplete []string
	for _, mode := range model.Modes() {
		c := deps.cache.Load(mode)
		if !c.ValidOn(deps.now()) {
			incomplete = append(incomplete, string(mode))
			continue
		}
		log.Info("キャッシュを保存しました",
			slog.String("mode", string(mode)),
			slog.String("path", deps.cache.Path(mode)),
		)
	}
	if len(incomplete) > 0 {
		return fmt.Errorf("generation incomplete for modes: %s", strings.Join(incomplete, ", "))
	}
	return nil
}

// runTrim はファイルまたは標準入力のテキストを整形して出力する。pathが空なら標準入力を読む。
func runTrim(in io.Reader, out io.Writer, path string) error {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if _, err := io.WriteString(out, textnorm.Trim(string(data))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func healthcheckPort() string {
	for _, key := range []string{"SERVER_PORT", "PORT"} {
		if port := os.Getenv(key); port != "" {
			return port
		}
	}
	return "8080"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
