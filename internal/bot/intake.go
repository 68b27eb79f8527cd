package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/horobot/horobot/internal/intake"
)

const (
	msgUnsupported    = "Пожалуйста, ответьте текстом, фото, голосовым, аудио, документом или видео."
	msgUnknownCommand = "Неизвестная команда. Отправьте /start, чтобы начать заново, или /cancel, чтобы прервать анкету."
)

// Conversation は会話ステートマシンの操作。
type Conversation interface {
	Start(ctx context.Context, contact intake.Contact) []intake.Reply
	Handle(ctx context.Context, contact intake.Contact, answer intake.Answer) []intake.Reply
	Cancel(ctx context.Context, chatID int64) []intake.Reply
}

// IntakeBot はアンケート会話をTelegramのメッセージに対応付けるボット。
type IntakeBot struct {
	sender       Sender
	conversation Conversation
	admin        *Admin
	logger       *slog.Logger
}

// NewIntakeBot はIntakeBotを生成する。
func NewIntakeBot(sender Sender, conversation Conversation, admin *Admin, logger *slog.Logger) *IntakeBot {
	return &IntakeBot{
		sender:       sender,
		conversation: conversation,
		admin:        admin,
		logger:       logger,
	}
}

// HandleUpdate はUpdateHandlerの実装。
func (b *IntakeBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	contact := contactOf(msg)

	if msg.IsCommand() {
		if b.admin != nil && b.admin.Handle(msg) {
			return
		}
		switch msg.Command() {
		case "start":
			b.render(msg.Chat.ID, b.conversation.Start(ctx, contact))
			return
		case "cancel":
			b.render(msg.Chat.ID, b.conversation.Cancel(ctx, msg.Chat.ID))
			return
		default:
			// 未知のコマンドは回答として扱わない。会話の状態はそのまま
			b.send(tgbotapi.NewMessage(msg.Chat.ID, msgUnknownCommand))
			return
		}
	}

	answer, ok := AnswerOf(msg)
	if !ok {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, msgUnsupported))
		return
	}
	b.render(msg.Chat.ID, b.conversation.Handle(ctx, contact, answer))
}

// AnswerOf はメッセージを回答に変換する。対応していない種類の場合はfalseを返す。
func AnswerOf(msg *tgbotapi.Message) (intake.Answer, bool) {
	switch {
	case len(msg.Photo) > 0:
		// 最後の要素が最大サイズ
		return intake.MediaAnswer{Kind: intake.MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}, true
	case msg.Voice != nil:
		return intake.MediaAnswer{Kind: intake.MediaVoice, FileID: msg.Voice.FileID}, true
	case msg.Audio != nil:
		return intake.MediaAnswer{Kind: intake.MediaAudio, FileID: msg.Audio.FileID}, true
	case msg.Document != nil:
		return intake.MediaAnswer{Kind: intake.MediaDocument, FileID: msg.Document.FileID}, true
	case msg.Video != nil:
		return intake.MediaAnswer{Kind: intake.MediaVideo, FileID: msg.Video.FileID}, true
	case msg.Text != "":
		return intake.TextAnswer{Text: msg.Text}, true
	default:
		return nil, false
	}
}

func contactOf(msg *tgbotapi.Message) intake.Contact {
	c := intake.Contact{ChatID: msg.Chat.ID}
	if msg.From != nil {
		c.Username = msg.From.UserName
		c.FullName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	return c
}

func (b *IntakeBot) render(chatID int64, replies []intake.Reply) {
	for _, r := range replies {
		msg := tgbotapi.NewMessage(chatID, r.Text)
		switch {
		case len(r.Keyboard) > 0:
			msg.ReplyMarkup = replyKeyboard(r.Keyboard)
		case r.RemoveKeyboard:
			msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		}
		b.send(msg)
	}
}

func (b *IntakeBot) send(c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.logger.Error("メッセージの送信に失敗しました", slog.String("error", err.Error()))
	}
}

// TelegramOperator はオペレーターのチャットへ通知を送るintake.Operatorの実装。
type TelegramOperator struct {
	sender Sender
	chatID int64
}

// NewTelegramOperator はTelegramOperatorを生成する。
func NewTelegramOperator(sender Sender, chatID int64) *TelegramOperator {
	return &TelegramOperator{sender: sender, chatID: chatID}
}

// SendText はオペレーターにテキストを送る。
func (o *TelegramOperator) SendText(ctx context.Context, text string) error {
	if _, err := o.sender.Send(tgbotapi.NewMessage(o.chatID, text)); err != nil {
		return fmt.Errorf("オペレーターへの送信に失敗しました: %w", err)
	}
	return nil
}

// ForwardMedia はファイルIDでメディアを再送し、キャプションを付ける。
func (o *TelegramOperator) ForwardMedia(ctx context.Context, media intake.MediaAnswer, caption string) error {
	file := tgbotapi.FileID(media.FileID)

	var c tgbotapi.Chattable
	switch media.Kind {
	case intake.MediaPhoto:
		m := tgbotapi.NewPhoto(o.chatID, file)
		m.Caption = caption
		c = m
	case intake.MediaVoice:
		m := tgbotapi.NewVoice(o.chatID, file)
		m.Caption = caption
		c = m
	case intake.MediaAudio:
		m := tgbotapi.NewAudio(o.chatID, file)
		m.Caption = caption
		c = m
	case intake.MediaDocument:
		m := tgbotapi.NewDocument(o.chatID, file)
		m.Caption = caption
		c = m
	case intake.MediaVideo:
		m := tgbotapi.NewVideo(o.chatID, file)
		m.Caption = caption
		c = m
	default:
		return fmt.Errorf("未対応のメディア種別です: %q", media.Kind)
	}

	if _, err := o.sender.Send(c); err != nil {
		return fmt.Errorf("オペレーターへの%s転送に失敗しました: %w", media.Kind, err)
	}
	return nil
}
