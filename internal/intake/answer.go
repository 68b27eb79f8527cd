package intake

// Answer はユーザーの1回分の回答。TextAnswerかMediaAnswerのどちらか。
type Answer interface {
	isAnswer()
}

// TextAnswer はテキストでの回答。
type TextAnswer struct {
	Text string
}

// MediaKind はメディア回答の種類。
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVoice    MediaKind = "voice"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
)

// Placeholder はトランスクリプトでメディアの代わりに記録するラベル。
func (k MediaKind) Placeholder() string {
	switch k {
	case MediaPhoto:
		return "[Фото отправлено]"
	case MediaVoice:
		return "[Голосовое сообщение отправлено]"
	case MediaAudio:
		return "[Аудио отправлено]"
	case MediaDocument:
		return "[Документ отправлен]"
	case MediaVideo:
		return "[Видео отправлено]"
	default:
		return "[Вложение отправлено]"
	}
}

// MediaAnswer はメディアでの回答。FileIDはメッセージングプラットフォーム上の参照。
type MediaAnswer struct {
	Kind   MediaKind
	FileID string
}

func (TextAnswer) isAnswer()  {}
func (MediaAnswer) isAnswer() {}
