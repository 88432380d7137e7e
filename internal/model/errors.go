// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, profile, record, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials        = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized              = "UNAUTHORIZED"
	ErrCodePasswordMismatch          = "PASSWORD_MISMATCH"
	ErrCodePasswordTooShort          = "PASSWORD_TOO_SHORT"
	ErrCodeExternalAuth              = "EXTERNAL_AUTH_ERROR"
	ErrCodeProfileInsertFailed       = "PROFILE_INSERT_FAILED"
	ErrCodeUpdateRejected            = "UPDATE_REJECTED"
	ErrCodeProfileNotFound           = "PROFILE_NOT_FOUND"
	ErrCodeInvalidProfileField       = "INVALID_PROFILE_FIELD"
	ErrCodeInvalidAppointmentRequest = "INVALID_APPOINTMENT_REQUEST"
	ErrCodeInvalidRequest            = "INVALID_REQUEST"
	ErrCodeAuthenticationRequired    = "AUTHENTICATION_REQUIRED"
	ErrCodeCSRFInvalid               = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimited               = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal                  = "INTERNAL_ERROR"
)

// MinPasswordLength はサインアップ時のクライアント側パスワード長下限。
const MinPasswordLength = 6

// NewInvalidCredentialsError は資格情報不一致エラーを生成する。
// 外部認証サービスのメッセージがあればそのまま使用する。
func NewInvalidCredentialsError(message string) *APIError {
	if message == "" {
		message = "Invalid login credentials"
	}
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  message,
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewUnauthorizedError はロール未承認・プロフィール欠落時のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Access denied. Your account is unauthorized or is pending admin approval.",
		Category: "auth",
		Action:   "Wait for an administrator to approve your account.",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "Passwords do not match",
		Category: "validation",
		Action:   "Enter the same password in both fields.",
	}
}

// NewPasswordTooShortError はパスワード長不足エラーを生成する。
func NewPasswordTooShortError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordTooShort,
		Message:  fmt.Sprintf("Password must be at least %d characters", MinPasswordLength),
		Category: "validation",
		Action:   "Choose a longer password.",
	}
}

// NewExternalAuthError は外部認証サービスのエラーをそのまま伝えるエラーを生成する。
func NewExternalAuthError(message string) *APIError {
	if message == "" {
		message = "The authentication service rejected the request"
	}
	return &APIError{
		Code:     ErrCodeExternalAuth,
		Message:  message,
		Category: "auth",
		Action:   "Try again later. Contact support if the problem persists.",
	}
}

// NewProfileInsertFailedError はプロフィール作成失敗を表すエラーを生成する。
// ログ記録専用でユーザーには返さない。
func NewProfileInsertFailedError(identityID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileInsertFailed,
		Message:  fmt.Sprintf("failed to create profile record for %s", identityID),
		Category: "system",
		Action:   "An administrator must create the missing profile.",
	}
}

// NewUpdateRejectedError は本人以外のプロフィール更新が拒否された場合のエラーを生成する。
func NewUpdateRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeUpdateRejected,
		Message:  "Failed to update profile",
		Category: "profile",
		Action:   "You can only update your own profile. Sign in again and retry.",
	}
}

// NewProfileNotFoundError はプロフィールが存在しない場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "Profile not found.",
		Category: "profile",
		Action:   "Contact an administrator to restore your profile.",
	}
}

// NewInvalidProfileFieldError はプロフィール項目の形式エラーを生成する。
func NewInvalidProfileFieldError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfileField,
		Message:  fmt.Sprintf("Invalid %s: %s", field, reason),
		Category: "validation",
		Action:   "Correct the highlighted field and submit again.",
	}
}

// NewInvalidAppointmentRequestError は予約フォームの入力エラーを生成する。
func NewInvalidAppointmentRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAppointmentRequest,
		Message:  reason,
		Category: "record",
		Action:   "Select a department, a future date and describe the reason for your visit.",
	}
}

// NewInvalidRequestError はリクエストボディの形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the request format.",
	}
}

// NewAuthenticationRequiredError はセッションがない、または失効している場合のエラーを生成する。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationRequired,
		Message:  "Please sign in to continue.",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewCSRFInvalidError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRF token validation failed",
		Category: "auth",
		Action:   "Reload the page and try again.",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Wait for the time given in Retry-After and retry.",
	}
}

// NewInternalError は内部エラーの利用者向け表現を生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Try again later.",
	}
}
