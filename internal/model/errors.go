package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// MessageはそのままレスポンスのdetailとしてUIに表示される。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: not_found, invalid_state, validation, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeActivityNotFound  = "ACTIVITY_NOT_FOUND"
	ErrCodeNotSignedUp       = "NOT_SIGNED_UP"
	ErrCodeAlreadySignedUp   = "ALREADY_SIGNED_UP"
	ErrCodeMissingEmail      = "MISSING_EMAIL"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// エラーカテゴリ
const (
	CategoryNotFound     = "not_found"
	CategoryInvalidState = "invalid_state"
	CategoryValidation   = "validation"
	CategorySystem       = "system"
)

// NewActivityNotFoundError は活動未検出エラーを生成する。
// メッセージは既存クライアントとの互換のため固定文言とする。
func NewActivityNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeActivityNotFound,
		Message:  "Activity not found",
		Category: CategoryNotFound,
	}
}

// NewNotSignedUpError は未登録のメールアドレスを登録解除しようとした場合のエラーを生成する。
func NewNotSignedUpError() *APIError {
	return &APIError{
		Code:     ErrCodeNotSignedUp,
		Message:  "Student is not signed up for this activity",
		Category: CategoryInvalidState,
	}
}

// NewAlreadySignedUpError は登録済みのメールアドレスを再登録しようとした場合のエラーを生成する。
// 重複登録の拒否が有効な場合のみ使われる。
func NewAlreadySignedUpError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadySignedUp,
		Message:  "Student is already signed up for this activity",
		Category: CategoryInvalidState,
	}
}

// NewMissingEmailError はemailクエリパラメータが無い場合のエラーを生成する。
func NewMissingEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingEmail,
		Message:  "email query parameter is required",
		Category: CategoryValidation,
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Too many requests. Please try again later.",
		Category: CategorySystem,
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: CategorySystem,
	}
}

// IsNotFound はerrが参照先の存在しないことを示すAPIErrorかどうかを返す。
func IsNotFound(err error) bool {
	return hasCategory(err, CategoryNotFound)
}

// IsInvalidState はerrが現在の状態では許可されない操作を示すAPIErrorかどうかを返す。
func IsInvalidState(err error) bool {
	return hasCategory(err, CategoryInvalidState)
}

func hasCategory(err error, category string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category == category
	}
	return false
}
