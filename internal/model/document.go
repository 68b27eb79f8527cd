package model

import "time"

// DateLayout はキャッシュファイルの日付形式（ISO 8601、時刻なし）。
const DateLayout = "2006-01-02"

// NotFoundText は星座の占いが用意できなかった場合の固定メッセージ。
const NotFoundText = "Сегодня гороскоп не найден, попробуйте позже."

// HoroscopeCache は1モード分の日次キャッシュ。
type HoroscopeCache struct {
	Date       string            `json:"date"`
	Horoscopes map[string]string `json:"horoscopes"`
}

// NewHoroscopeCache は空のキャッシュを生成する。
func NewHoroscopeCache() HoroscopeCache {
	return HoroscopeCache{Horoscopes: make(map[string]string)}
}

// ValidOn はキャッシュの日付がdayと一致するかを返す。
// 一致しないキャッシュは全体として存在しないものとして扱う。
func (c HoroscopeCache) ValidOn(day time.Time) bool {
	return c.Date != "" && c.Date == day.Format(DateLayout)
}

// Text は星座コードの本文を返す。
func (c HoroscopeCache) Text(code string) (string, bool) {
	text, ok := c.Horoscopes[code]
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// UsageStats は利用統計。カウンタは増加のみ。
type UsageStats struct {
	Starts int            `json:"starts"`
	Signs  map[string]int `json:"signs"`
}

// Reminders はリマインダー購読中のチャット一覧。
type Reminders struct {
	Chats []int64 `json:"chats"`
}
