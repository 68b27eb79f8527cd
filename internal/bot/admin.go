package bot

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/horobot/horobot/internal/model"
)

const (
	msgAdminOnly   = "Команда доступна только администратору."
	msgReplyUsage  = "Использование: /reply <chat_id> <текст>"
	msgReplySent   = "Сообщение отправлено."
	msgStatsNoData = "Статистика недоступна."
)

// StatsReader は利用統計のスナップショットを返す。
type StatsReader interface {
	Snapshot() model.UsageStats
}

// Admin は管理者専用コマンド（/stats と /reply）を処理する。
// adminIDが0の場合は管理者がいないものとして全て拒否する。
type Admin struct {
	sender  Sender
	adminID int64
	stats   StatsReader
	zodiac  *model.Zodiac
	logger  *slog.Logger
}

// NewAdmin はAdminを生成する。statsはnilでもよい。
func NewAdmin(sender Sender, adminID int64, stats StatsReader, zodiac *model.Zodiac, logger *slog.Logger) *Admin {
	return &Admin{
		sender:  sender,
		adminID: adminID,
		stats:   stats,
		zodiac:  zodiac,
		logger:  logger,
	}
}

// IsAdmin はチャットが管理者かどうかを返す。
func (a *Admin) IsAdmin(chatID int64) bool {
	return a.adminID != 0 && chatID == a.adminID
}

// Handle は管理者コマンドであれば処理してtrueを返す。
func (a *Admin) Handle(msg *tgbotapi.Message) bool {
	switch msg.Command() {
	case "stats":
		a.handleStats(msg)
		return true
	case "reply":
		a.handleReply(msg)
		return true
	default:
		return false
	}
}

func (a *Admin) handleStats(msg *tgbotapi.Message) {
	if !a.IsAdmin(msg.Chat.ID) {
		a.send(tgbotapi.NewMessage(msg.Chat.ID, msgAdminOnly))
		return
	}
	if a.stats == nil {
		a.send(tgbotapi.NewMessage(msg.Chat.ID, msgStatsNoData))
		return
	}
	a.send(tgbotapi.NewMessage(msg.Chat.ID, FormatStats(a.stats.Snapshot(), a.zodiac)))
}

func (a *Admin) handleReply(msg *tgbotapi.Message) {
	if !a.IsAdmin(msg.Chat.ID) {
		a.send(tgbotapi.NewMessage(msg.Chat.ID, msgAdminOnly))
		return
	}

	target, text, ok := parseReplyArgs(msg.CommandArguments())
	if !ok {
		a.send(tgbotapi.NewMessage(msg.Chat.ID, msgReplyUsage))
		return
	}

	if _, err := a.sender.Send(tgbotapi.NewMessage(target, text)); err != nil {
		a.logger.Error("管理者メッセージの中継に失敗しました",
			slog.Int64("target_chat_id", target),
			slog.String("error", err.Error()),
		)
		a.send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Не удалось отправить сообщение: %v", err)))
		return
	}
	a.logger.Info("管理者メッセージを中継しました", slog.Int64("target_chat_id", target))
	a.send(tgbotapi.NewMessage(msg.Chat.ID, msgReplySent))
}

// parseReplyArgs は"<chat_id> <text>"を分解する。本文の改行や空白はそのまま残す。
func parseReplyArgs(args string) (int64, string, bool) {
	args = strings.TrimLeft(args, " \t")
	idx := strings.IndexAny(args, " \t\n")
	if idx <= 0 {
		return 0, "", false
	}
	target, err := strconv.ParseInt(args[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	text := strings.TrimSpace(args[idx+1:])
	if text == "" {
		return 0, "", false
	}
	return target, text, true
}

// FormatStats は統計を人気順に並べたテキストにする。同数の場合は星座コード順。
func FormatStats(stats model.UsageStats, zodiac *model.Zodiac) string {
	type entry struct {
		code  string
		count int
	}
	entries := make([]entry, 0, len(stats.Signs))
	total := 0
	for code, n := range stats.Signs {
		entries = append(entries, entry{code: code, count: n})
		total += n
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].code < entries[j].code
	})

	var b strings.Builder
	b.WriteString("📊 Статистика\n")
	fmt.Fprintf(&b, "Запусков /start: %d\n", stats.Starts)
	fmt.Fprintf(&b, "Запросов гороскопа: %d\n", total)
	if len(entries) > 0 {
		b.WriteString("\nПо знакам:\n")
	}
	for _, e := range entries {
		label := e.code
		if zodiac != nil {
			if s, ok := zodiac.ByCode(e.code); ok {
				label = s.Label()
			}
		}
		fmt.Fprintf(&b, "%s: %d\n", label, e.count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Admin) send(c tgbotapi.Chattable) {
	if _, err := a.sender.Send(c); err != nil {
		a.logger.Error("メッセージの送信に失敗しました", slog.String("error", err.Error()))
	}
}
