package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/horobot/horobot/internal/model"
	"github.com/horobot/horobot/internal/textnorm"
)

// Completer はプロンプトから本文を生成するインターフェース。
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PromptSource は生成APIに星座ごとのプロンプトを送るコンテンツソース。
// 応答は単語境界を壊さずに長さ窓へ収める。
type PromptSource struct {
	completer  Completer
	template   string
	normalizer textnorm.Normalizer
}

// NewPromptSource はPromptSourceを生成する。templateの{sign}が星座の表示名に置き換わる。
func NewPromptSource(completer Completer, template string) *PromptSource {
	return &PromptSource{
		completer:  completer,
		template:   template,
		normalizer: textnorm.Strict(),
	}
}

// Prompt は星座のプロンプトを組み立てる。
func (p *PromptSource) Prompt(sign model.Sign) string {
	return strings.ReplaceAll(p.template, "{sign}", sign.Name)
}

// Generate は星座の本文を生成する。
func (p *PromptSource) Generate(ctx context.Context, sign model.Sign) (string, error) {
	text, err := p.completer.Complete(ctx, p.Prompt(sign))
	if err != nil {
		return "", fmt.Errorf("%sの生成に失敗しました: %w", sign.Code, err)
	}
	return p.normalizer.Trim(text), nil
}
