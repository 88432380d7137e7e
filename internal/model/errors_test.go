package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := NewUnauthorizedError()
	want := "[UNAUTHORIZED] " + err.Message
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAPIError_UnwrapWithErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("sign in: %w", NewInvalidCredentialsError(""))

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find *APIError")
	}
	if apiErr.Code != ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeInvalidCredentials)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		code     string
		category string
	}{
		{"資格情報不一致", NewInvalidCredentialsError(""), ErrCodeInvalidCredentials, "auth"},
		{"未承認", NewUnauthorizedError(), ErrCodeUnauthorized, "auth"},
		{"パスワード不一致", NewPasswordMismatchError(), ErrCodePasswordMismatch, "validation"},
		{"パスワード長不足", NewPasswordTooShortError(), ErrCodePasswordTooShort, "validation"},
		{"外部認証エラー", NewExternalAuthError(""), ErrCodeExternalAuth, "auth"},
		{"プロフィール作成失敗", NewProfileInsertFailedError("id-1"), ErrCodeProfileInsertFailed, "system"},
		{"更新拒否", NewUpdateRejectedError(), ErrCodeUpdateRejected, "profile"},
		{"プロフィールなし", NewProfileNotFoundError(), ErrCodeProfileNotFound, "profile"},
		{"項目形式エラー", NewInvalidProfileFieldError("phone", "too long"), ErrCodeInvalidProfileField, "validation"},
		{"予約入力エラー", NewInvalidAppointmentRequestError("date required"), ErrCodeInvalidAppointmentRequest, "record"},
		{"リクエスト形式エラー", NewInvalidRequestError("bad json"), ErrCodeInvalidRequest, "validation"},
		{"認証が必要", NewAuthenticationRequiredError(), ErrCodeAuthenticationRequired, "auth"},
		{"CSRF", NewCSRFInvalidError(), ErrCodeCSRFInvalid, "auth"},
		{"レート制限", NewRateLimitedError(), ErrCodeRateLimited, "system"},
		{"内部エラー", NewInternalError(), ErrCodeInternal, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Category = %q, want %q", tt.err.Category, tt.category)
			}
			if tt.err.Message == "" || tt.err.Action == "" {
				t.Error("Message and Action should not be empty")
			}
		})
	}
}

func TestNewInvalidCredentialsError_KeepsProviderMessage(t *testing.T) {
	err := NewInvalidCredentialsError("Email not confirmed")
	if err.Message != "Email not confirmed" {
		t.Errorf("Message = %q, want %q", err.Message, "Email not confirmed")
	}
}

func TestNewExternalAuthError_KeepsProviderMessage(t *testing.T) {
	err := NewExternalAuthError("User already registered")
	if err.Message != "User already registered" {
		t.Errorf("Message = %q, want %q", err.Message, "User already registered")
	}
}

func TestNewPasswordTooShortError_MentionsMinimum(t *testing.T) {
	err := NewPasswordTooShortError()
	if !strings.Contains(err.Message, fmt.Sprint(MinPasswordLength)) {
		t.Errorf("Message = %q, should mention %d", err.Message, MinPasswordLength)
	}
}
