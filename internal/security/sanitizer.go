package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は取得したHTML断片からタグを全て除去し、
// Telegramにそのまま送れるプレーンテキストに変換する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyでTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// PlainText はタグを除去し、エンティティを戻し、行ごとの余分な空白を詰める。
// 空行は段落区切りとして1つだけ残す。
func (s *TextSanitizer) PlainText(raw string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(raw))

	var out []string
	blank := false
	for _, line := range strings.Split(stripped, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 && !blank {
				blank = true
			}
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
