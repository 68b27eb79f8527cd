package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/horobot/horobot/internal/model"
)

// モード切替ボタンの文言。
const (
	ButtonModeMeme   = "😂 Мемный"
	ButtonModeNormal = "🔮 Классический"
)

const (
	msgWelcome      = "Привет! Выберите ваш знак зодиака:"
	msgChooseSign   = "Выберите ваш знак зодиака:"
	msgUnknownSign  = "Пожалуйста, выберите знак зодиака из списка."
	msgPsychologist = "Карманный психолог | Солнышко, держись ☀️"
	msgReminderOn   = "Напоминания включены. Каждое утро я буду присылать вам гороскоп ☀️"
	msgReminderOff  = "Напоминания выключены."
	msgReminderSame = "Напоминания уже включены."
	msgReminderNone = "Напоминания и так выключены."
	msgReminderFail = "Не удалось сохранить настройку, попробуйте позже."
	msgNudge        = "☀️ Доброе утро! Ваш гороскоп на сегодня уже готов. Выберите знак зодиака:"
)

// HoroscopeService は占い本文の取得窓口。
type HoroscopeService interface {
	Get(ctx context.Context, code string, mode model.Mode) string
	Cached(code string, mode model.Mode) (string, bool)
}

// StatsRecorder は利用統計を記録する。
type StatsRecorder interface {
	StatsReader
	IncrementStart() error
	IncrementSign(code string) error
}

// ReminderRegistry はリマインダー購読の登録・解除を行う。
type ReminderRegistry interface {
	Add(chatID int64) (bool, error)
	Remove(chatID int64) (bool, error)
}

// HoroscopeConfig は占いボットの設定。
type HoroscopeConfig struct {
	AdminChatID     int64
	PsychologistURL string
	// AuxDelay は本文の後に補助メッセージを送るまでの待ち時間。0以下なら即時に送る。
	AuxDelay time.Duration
}

// chatPrefs はチャットごとのモードと最後に選んだ星座。メモリ上だけで保持する。
type chatPrefs struct {
	mode     model.Mode
	lastSign string
}

// HoroscopeBot は星座ボタンに応じて今日の占いを返すボット。
type HoroscopeBot struct {
	sender    Sender
	service   HoroscopeService
	stats     StatsRecorder
	reminders ReminderRegistry
	zodiac    *model.Zodiac
	admin     *Admin
	config    HoroscopeConfig
	logger    *slog.Logger

	mu    sync.Mutex
	prefs map[int64]chatPrefs
}

// NewHoroscopeBot はHoroscopeBotを生成する。
func NewHoroscopeBot(
	sender Sender,
	service HoroscopeService,
	stats StatsRecorder,
	reminders ReminderRegistry,
	zodiac *model.Zodiac,
	config HoroscopeConfig,
	logger *slog.Logger,
) *HoroscopeBot {
	return &HoroscopeBot{
		sender:    sender,
		service:   service,
		stats:     stats,
		reminders: reminders,
		zodiac:    zodiac,
		admin:     NewAdmin(sender, config.AdminChatID, stats, zodiac, logger),
		config:    config,
		logger:    logger,
		prefs:     make(map[int64]chatPrefs),
	}
}

// HandleUpdate はUpdateHandlerの実装。
func (b *HoroscopeBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleText(ctx, msg.Chat.ID, msg.Text)
}

func (b *HoroscopeBot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if b.admin.Handle(msg) {
		return
	}

	switch msg.Command() {
	case "start":
		if err := b.stats.IncrementStart(); err != nil {
			b.logger.Warn("startの記録に失敗しました", slog.String("error", err.Error()))
		}
		b.sendWithKeyboard(chatID, msgWelcome)
	case "reminder_on":
		b.toggleReminder(chatID, true)
	case "reminder_off":
		b.toggleReminder(chatID, false)
	case "cancel":
		b.sendWithKeyboard(chatID, msgChooseSign)
	default:
		b.sendWithKeyboard(chatID, msgUnknownSign)
	}
}

func (b *HoroscopeBot) handleText(ctx context.Context, chatID int64, text string) {
	switch strings.TrimSpace(text) {
	case ButtonModeMeme:
		b.setMode(chatID, model.ModeMeme)
		b.sendWithKeyboard(chatID, "Режим: мемный 😂\n"+msgChooseSign)
		return
	case ButtonModeNormal:
		b.setMode(chatID, model.ModeNormal)
		b.sendWithKeyboard(chatID, "Режим: классический 🔮\n"+msgChooseSign)
		return
	}

	sign, ok := b.zodiac.Lookup(text)
	if !ok {
		b.sendWithKeyboard(chatID, msgUnknownSign)
		return
	}

	if err := b.stats.IncrementSign(sign.Code); err != nil {
		b.logger.Warn("星座選択の記録に失敗しました", slog.String("error", err.Error()))
	}

	mode := b.rememberSign(chatID, sign.Code)
	horoscope := b.service.Get(ctx, sign.Code, mode)

	b.logger.Info("占いを配信します",
		slog.Int64("chat_id", chatID),
		slog.String("sign", sign.Code),
		slog.String("mode", string(mode)),
	)
	b.send(tgbotapi.NewMessage(chatID, horoscope))
	b.sendWithKeyboard(chatID, msgChooseSign)
	b.scheduleAux(chatID)
}

// scheduleAux は一定時間後に相談窓口へのインラインボタンを送る。予約後は取り消さない。
func (b *HoroscopeBot) scheduleAux(chatID int64) {
	if b.config.PsychologistURL == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, msgPsychologist)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(msgPsychologist, b.config.PsychologistURL),
		),
	)

	if b.config.AuxDelay <= 0 {
		b.send(msg)
		return
	}
	time.AfterFunc(b.config.AuxDelay, func() { b.send(msg) })
}

func (b *HoroscopeBot) toggleReminder(chatID int64, on bool) {
	var (
		changed bool
		err     error
	)
	if on {
		changed, err = b.reminders.Add(chatID)
	} else {
		changed, err = b.reminders.Remove(chatID)
	}
	if err != nil {
		b.logger.Error("リマインダー設定の保存に失敗しました",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		b.send(tgbotapi.NewMessage(chatID, msgReminderFail))
		return
	}

	switch {
	case on && changed:
		b.send(tgbotapi.NewMessage(chatID, msgReminderOn))
	case on:
		b.send(tgbotapi.NewMessage(chatID, msgReminderSame))
	case changed:
		b.send(tgbotapi.NewMessage(chatID, msgReminderOff))
	default:
		b.send(tgbotapi.NewMessage(chatID, msgReminderNone))
	}
}

// SendReminder は購読者に朝の通知を送る。
// 最後に選んだ星座の今日の本文がキャッシュにあれば、生成を待たずにそれを添える。
func (b *HoroscopeBot) SendReminder(ctx context.Context, chatID int64) error {
	text := msgNudge
	mode, lastSign := b.prefsOf(chatID)
	if lastSign != "" {
		if cached, ok := b.service.Cached(lastSign, mode); ok {
			if sign, found := b.zodiac.ByCode(lastSign); found {
				text = fmt.Sprintf("☀️ Доброе утро! Гороскоп для %s на сегодня:\n\n%s", sign.Label(), cached)
			}
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.keyboard()
	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("チャット %d へのリマインダー送信に失敗しました: %w", chatID, err)
	}
	return nil
}

// Mode はチャットの現在のモードを返す。未設定ならミーム。
func (b *HoroscopeBot) Mode(chatID int64) model.Mode {
	mode, _ := b.prefsOf(chatID)
	return mode
}

func (b *HoroscopeBot) prefsOf(chatID int64) (model.Mode, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.prefs[chatID]
	if !ok || p.mode == "" {
		return model.ModeMeme, p.lastSign
	}
	return p.mode, p.lastSign
}

func (b *HoroscopeBot) setMode(chatID int64, mode model.Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.prefs[chatID]
	p.mode = mode
	b.prefs[chatID] = p
}

// rememberSign は最後に選んだ星座を記録し、そのチャットのモードを返す。
func (b *HoroscopeBot) rememberSign(chatID int64, code string) model.Mode {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.prefs[chatID]
	p.lastSign = code
	if p.mode == "" {
		p.mode = model.ModeMeme
	}
	b.prefs[chatID] = p
	return p.mode
}

// keyboard は星座4行×3列とモード切替の行からなるキーボードを返す。
func (b *HoroscopeBot) keyboard() tgbotapi.ReplyKeyboardMarkup {
	rows := b.zodiac.Rows(3)
	rows = append(rows, []string{ButtonModeMeme, ButtonModeNormal})
	return replyKeyboard(rows)
}

func (b *HoroscopeBot) sendWithKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.keyboard()
	b.send(msg)
}

func (b *HoroscopeBot) send(c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.logger.Error("メッセージの送信に失敗しました", slog.String("error", err.Error()))
	}
}
