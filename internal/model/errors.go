// Package model はドメインモデルを定義する。
package model

import "errors"

var (
	// ErrUnknownMode は未定義のモードが指定された場合のエラー。
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownSign は未定義の星座コードが指定された場合のエラー。
	ErrUnknownSign = errors.New("unknown sign")
	// ErrUnknownSource は未定義のコンテンツソースが指定された場合のエラー。
	ErrUnknownSource = errors.New("unknown content source")
	// ErrEmptyResponse は生成APIが空の本文を返した場合のエラー。
	ErrEmptyResponse = errors.New("empty response")
	// ErrContentNotFound はスクレイピング対象のブロックが見つからない場合のエラー。
	ErrContentNotFound = errors.New("content block not found")
)
