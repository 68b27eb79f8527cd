// Package bot はTelegramの更新を受け取り、占いボットとアンケートボットの各ハンドラーへ振り分ける。
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender はTelegramへの送信を抽象化する。*tgbotapi.BotAPIが実装する。
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UpdateHandler は1件の更新を処理する。
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// NewBotAPI はトークンでTelegram Bot APIクライアントを生成する。
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("Telegram Bot APIへの接続に失敗しました: %w", err)
	}
	return api, nil
}

// Updates はロングポーリングの更新チャネルを開く。
func Updates(api *tgbotapi.BotAPI, timeoutSec int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	return api.GetUpdatesChan(u)
}

// replyKeyboard はテキストボタンの行からリサイズ付きのキーボードを作る。
func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			r = append(r, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, r)
	}
	kb := tgbotapi.NewReplyKeyboard(buttons...)
	kb.ResizeKeyboard = true
	return kb
}

// chatIDOf は更新の送信元チャットIDを返す。メッセージ以外の更新は0。
func chatIDOf(update tgbotapi.Update) int64 {
	if update.Message != nil && update.Message.Chat != nil {
		return update.Message.Chat.ID
	}
	return 0
}
