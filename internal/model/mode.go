package model

import "fmt"

// Mode はコンテンツの区分（トーン）を表す。モードごとにキャッシュを持つ。
type Mode string

const (
	// ModeMeme はミーム調の友達っぽい占い。
	ModeMeme Mode = "meme"
	// ModeNormal は通常の占い。
	ModeNormal Mode = "normal"
)

// Modes は全モードを返す。
func Modes() []Mode {
	return []Mode{ModeMeme, ModeNormal}
}

// ParseMode は文字列をModeに変換する。
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMeme, ModeNormal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}
