package model

import "strings"

// Sign は十二星座の1つを表す。
// Code はキャッシュやファイルで使う識別子、Name はユーザーに表示する名前。
type Sign struct {
	Code  string
	Name  string
	Emoji string
}

// Label はキーボードボタンに表示するラベルを返す。
func (s Sign) Label() string {
	return s.Emoji + s.Name
}

// DefaultSigns は既定の星座表を返す。呼び出しごとに新しいスライスを返す。
func DefaultSigns() []Sign {
	return []Sign{
		{Code: "aries", Name: "Овен", Emoji: "♈️"},
		{Code: "taurus", Name: "Телец", Emoji: "♉️"},
		{Code: "gemini", Name: "Близнецы", Emoji: "♊️"},
		{Code: "cancer", Name: "Рак", Emoji: "♋️"},
		{Code: "leo", Name: "Лев", Emoji: "♌️"},
		{Code: "virgo", Name: "Дева", Emoji: "♍️"},
		{Code: "libra", Name: "Весы", Emoji: "♎️"},
		{Code: "scorpio", Name: "Скорпион", Emoji: "♏️"},
		{Code: "sagittarius", Name: "Стрелец", Emoji: "♐️"},
		{Code: "capricorn", Name: "Козерог", Emoji: "♑️"},
		{Code: "aquarius", Name: "Водолей", Emoji: "♒️"},
		{Code: "pisces", Name: "Рыбы", Emoji: "♓️"},
	}
}

// Zodiac は起動時に1回構築されるイミュータブルな星座テーブル。
// 表示名・絵文字付きラベル・コードのいずれからも星座を引ける。
type Zodiac struct {
	signs   []Sign
	byLabel map[string]Sign
	byCode  map[string]Sign
}

// NewZodiac は星座リストからZodiacを生成する。
func NewZodiac(signs []Sign) *Zodiac {
	z := &Zodiac{
		signs:   append([]Sign(nil), signs...),
		byLabel: make(map[string]Sign, len(signs)*2),
		byCode:  make(map[string]Sign, len(signs)),
	}
	for _, s := range signs {
		z.byLabel[s.Name] = s
		z.byLabel[s.Label()] = s
		z.byCode[s.Code] = s
	}
	return z
}

// Signs は星座を定義順で返す。
func (z *Zodiac) Signs() []Sign {
	return append([]Sign(nil), z.signs...)
}

// Lookup はボタンのラベルまたは表示名から星座を探す。
func (z *Zodiac) Lookup(label string) (Sign, bool) {
	s, ok := z.byLabel[strings.TrimSpace(label)]
	return s, ok
}

// ByCode は星座コードから星座を探す。
func (z *Zodiac) ByCode(code string) (Sign, bool) {
	s, ok := z.byCode[code]
	return s, ok
}

// Rows は星座ラベルをperRow個ずつの行に分割する。
// 既定のキーボードは3列×4行。
func (z *Zodiac) Rows(perRow int) [][]string {
	if perRow <= 0 {
		perRow = 3
	}
	var rows [][]string
	for i := 0; i < len(z.signs); i += perRow {
		end := i + perRow
		if end > len(z.signs) {
			end = len(z.signs)
		}
		row := make([]string, 0, end-i)
		for _, s := range z.signs[i:end] {
			row = append(row, s.Label())
		}
		rows = append(rows, row)
	}
	return rows
}
