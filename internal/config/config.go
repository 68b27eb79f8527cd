package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // distrolessイメージでもTIMEZONEを解決する

	"github.com/joho/godotenv"

	"github.com/horobot/horobot/internal/model"
	"github.com/horobot/horobot/internal/worker/daily"
)

// コンテンツソースの種類。
const (
	SourceOpenAI = "openai"
	SourceScrape = "scrape"
	SourceRSS    = "rss"
)

// DefaultPsychologistURL は相談窓口ボタンのリンク先の既定値。
const DefaultPsychologistURL = "https://t.me/crisis_navigatorbot?start=github_com_kot96kot_crisis_navigator_bot_edit_main_bot_py"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Telegram
	TelegramToken string
	AdminChatID   int64

	// Cache / Storage
	CacheFiles    map[model.Mode]string
	StatsFile     string
	RemindersFile string

	// Sources
	Sources map[model.Mode]string

	// OpenAI
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	// Scrape / Feed
	ScrapeURLTemplate string
	ScrapeSelector    string
	FeedURLTemplate   string
	FetchTimeout      time.Duration
	FetchMaxSize      int64
	GeneratorRate     float64

	// Schedule
	Location     *time.Location
	ReminderTime daily.TimeOfDay
	ReminderRate float64
	// PrewarmTime はPrewarmEnabledがtrueの場合のみ有効。
	PrewarmTime    daily.TimeOfDay
	PrewarmEnabled bool

	// Bot
	AuxMessageDelay time.Duration
	PsychologistURL string

	// Server
	ServerPort string

	// Logging
	LogLevel string
}

// Load は.envと環境変数からConfigを読み込む。
// 値の形式が不正な場合はエラーを返す。コマンドごとの必須項目はRequire系のメソッドで検証する。
func Load() (*Config, error) {
	// .envが無いのは正常系
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	// Optional fields with defaults
	cfg.AdminChatID = getEnvInt64("ADMIN_CHAT_ID", 0)
	cfg.CacheFiles = map[model.Mode]string{
		model.ModeMeme:   absPath(getEnvString("CACHE_FILE_MEME", "horoscope_cache.json")),
		model.ModeNormal: absPath(getEnvString("CACHE_FILE_NORMAL", "horoscope_cache_normal.json")),
	}
	cfg.StatsFile = getEnvString("STATS_FILE", "stats.json")
	cfg.RemindersFile = getEnvString("REMINDERS_FILE", "reminders.json")
	cfg.Sources = map[model.Mode]string{
		model.ModeMeme:   strings.ToLower(getEnvString("SOURCE_MEME", SourceOpenAI)),
		model.ModeNormal: strings.ToLower(getEnvString("SOURCE_NORMAL", SourceScrape)),
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o")
	cfg.OpenAIMaxTokens = getEnvInt("OPENAI_MAX_TOKENS", 500)
	cfg.OpenAITemperature = getEnvFloat("OPENAI_TEMPERATURE", 0.8)
	cfg.ScrapeURLTemplate = getEnvString("SCRAPE_URL_TEMPLATE", "https://horo.mail.ru/prediction/%s/today/")
	cfg.ScrapeSelector = getEnvString("SCRAPE_SELECTOR", "div.article__item_html")
	cfg.FeedURLTemplate = getEnvString("FEED_URL_TEMPLATE", "")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 20*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 2097152)
	cfg.GeneratorRate = getEnvFloat("GENERATOR_RATE", 2)
	cfg.ReminderRate = getEnvFloat("REMINDER_RATE", 20)
	cfg.AuxMessageDelay = getEnvDuration("AUX_MESSAGE_DELAY", 2*time.Second)
	cfg.PsychologistURL = getEnvString("PSYCHOLOGIST_URL", DefaultPsychologistURL)
	cfg.ServerPort = getEnvString("SERVER_PORT", getEnvString("PORT", "8080"))
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	var invalid []error

	loc, err := loadLocation(os.Getenv("TIMEZONE"))
	if err != nil {
		invalid = append(invalid, fmt.Errorf("TIMEZONE: %w", err))
	}
	cfg.Location = loc

	cfg.ReminderTime, err = daily.ParseTimeOfDay(getEnvString("REMINDER_TIME", "09:00"))
	if err != nil {
		invalid = append(invalid, fmt.Errorf("REMINDER_TIME: %w", err))
	}

	if v := os.Getenv("PREWARM_TIME"); v != "" {
		cfg.PrewarmTime, err = daily.ParseTimeOfDay(v)
		if err != nil {
			invalid = append(invalid, fmt.Errorf("PREWARM_TIME: %w", err))
		}
		cfg.PrewarmEnabled = err == nil
	}

	for _, mode := range model.Modes() {
		switch cfg.Sources[mode] {
		case SourceOpenAI, SourceScrape, SourceRSS:
		default:
			invalid = append(invalid, fmt.Errorf("SOURCE_%s: unknown source %q", strings.ToUpper(string(mode)), cfg.Sources[mode]))
		}
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(invalid...))
	}

	return cfg, nil
}

// RequireTelegram はTelegramに接続するコマンドに必要な設定を検証する。
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("required environment variables are not set: %v", []string{"TELEGRAM_TOKEN"})
	}
	return nil
}

// RequireSources はコンテンツ生成に必要な設定が揃っているかを検証する。
// 生成を行うコマンドだけが呼び出す。
func (c *Config) RequireSources() error {
	var missing []string
	if c.usesSource(SourceOpenAI) && c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.usesSource(SourceRSS) && c.FeedURLTemplate == "" {
		missing = append(missing, "FEED_URL_TEMPLATE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

func (c *Config) usesSource(kind string) bool {
	for _, s := range c.Sources {
		if s == kind {
			return true
		}
	}
	return false
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
