// Package textnorm は生成・取得した占い本文を文の区切りで整形する。
package textnorm

import (
	"strings"
	"unicode"
)

const (
	// DefaultMin はこれ未満の長さの本文をそのまま返す下限。
	DefaultMin = 500
	// DefaultMax は配信時の上限。
	DefaultMax = 1000
	// StrictMax は生成APIの応答に適用する厳しい上限。
	StrictMax = 600
)

// Normalizer は本文を[Min, Max]の長さ窓に収める。
// 長さはバイトではなく文字（rune）で数える。
type Normalizer struct {
	Min int
	Max int
	// WordSafe が真の場合、文末記号が見つからないときに単語の途中で切らない。
	WordSafe bool
}

// Default は配信用のNormalizer（500〜1000文字）を返す。
func Default() Normalizer {
	return Normalizer{Min: DefaultMin, Max: DefaultMax}
}

// Strict は生成API用のNormalizer（500〜600文字、単語境界保護あり）を返す。
func Strict() Normalizer {
	return Normalizer{Min: DefaultMin, Max: StrictMax, WordSafe: true}
}

// Trim は本文を整形する。
//   - Min未満: そのまま返す
//   - Min以上Max以下: 最後の文末記号（. ! ?）で切る。既に末尾が文末記号なら変更しない
//   - Max超: Maxで切ってから窓内の最後の文末記号まで戻る。見つからなければそのまま
func (n Normalizer) Trim(text string) string {
	r := []rune(text)
	length := len(r)

	if length < n.Min {
		return text
	}

	if length <= n.Max {
		last := lastTerminal(r)
		if last != -1 && last != length-1 {
			return string(r[:last+1])
		}
		return text
	}

	window := r[:n.Max]
	if last := lastTerminal(window); last != -1 {
		return string(window[:last+1])
	}

	if n.WordSafe {
		if sp := lastSpace(window); sp > 0 {
			return strings.TrimRightFunc(string(window[:sp]), unicode.IsSpace)
		}
	}
	return string(window)
}

// Trim はDefault().Trimの省略形。
func Trim(text string) string {
	return Default().Trim(text)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func lastTerminal(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if isTerminal(r[i]) {
			return i
		}
	}
	return -1
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return -1
}
