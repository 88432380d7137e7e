// Package auth はサインイン・サインアップ時のロール認可ゲートと、
// 外部認証サービス（アイデンティティプロバイダー）の実装を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/cloudhms/internal/model"
)

var (
	// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しない場合に返される。
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken は同一メールアドレスのアカウントが既に存在する場合に返される。
	ErrEmailTaken = errors.New("user already registered")
	// ErrInvalidToken はアクセストークンが無効または期限切れの場合に返される。
	ErrInvalidToken = errors.New("invalid or expired access token")
)

// ProviderError は外部認証サービスが返したエラーを表す。
// Messageは利用者にそのまま表示できる文言で、Errは分類用の番兵エラー。
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth provider (status %d): %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("auth provider (status %d): %s", e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// providerMessage はエラーチェーンにProviderErrorがあればそのメッセージを返す。
func providerMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return ""
}

// SignUpResult はプロバイダーのサインアップ結果。
// メール確認が無効な構成ではSessionが発行されることがある。
type SignUpResult struct {
	Identity model.Identity
	Session  *model.Session
}

// Provider は外部認証サービスのインターフェース。
// ローカル実装（PasswordProvider）とSupabase Auth実装（SupabaseProvider）がある。
type Provider interface {
	// SignInWithPassword はメールアドレスとパスワードでセッションを発行する。
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	// SignUp はアカウントを作成する。metadataはプロバイダー側のユーザーメタデータに保存される。
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)
	// GetUser はアクセストークンから認証主体を解決する。
	GetUser(ctx context.Context, accessToken string) (*model.Identity, error)
	// SignOut はアクセストークンのセッションを失効させる。
	SignOut(ctx context.Context, accessToken string) error
}
