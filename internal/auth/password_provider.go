package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/repository"
)

// PasswordProviderConfig はローカル認証プロバイダーの設定。
type PasswordProviderConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int
}

// PasswordProvider はcredentialsテーブルとセッションリポジトリによるローカル認証を提供する。
// 外部認証サービスを使わない構成（開発環境、閉域網）向け。
type PasswordProvider struct {
	credentials repository.CredentialRepository
	sessions    repository.SessionRepository
	config      PasswordProviderConfig
}

// NewPasswordProvider はPasswordProviderを生成する。
func NewPasswordProvider(
	credentials repository.CredentialRepository,
	sessions repository.SessionRepository,
	config PasswordProviderConfig,
) *PasswordProvider {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &PasswordProvider{
		credentials: credentials,
		sessions:    sessions,
		config:      config,
	}
}

func invalidCredentials() error {
	return &ProviderError{
		Status:  http.StatusBadRequest,
		Message: "Invalid login credentials",
		Err:     ErrInvalidCredentials,
	}
}

// SignInWithPassword は資格情報を検証し、新しいセッションを発行する。
// 未登録のメールアドレスと誤ったパスワードは区別しない。
func (p *PasswordProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	cred, err := p.credentials.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil {
		return nil, invalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	session, err := p.createSession(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// SignUp は資格情報を作成する。ローカル認証ではサインアップ時にセッションを発行しない。
func (p *PasswordProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ProviderError{
			Status:  http.StatusBadRequest,
			Message: "Unable to validate email address: invalid format",
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.config.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, &ProviderError{
				Status:  http.StatusBadRequest,
				Message: "Password cannot be longer than 72 characters",
			}
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	fullName, _ := metadata["full_name"].(string)
	cred := &model.Credential{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Metadata:     metadata,
		CreatedAt:    time.Now(),
	}

	if err := p.credentials.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, &ProviderError{
				Status:  http.StatusUnprocessableEntity,
				Message: "User already registered",
				Err:     ErrEmailTaken,
			}
		}
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	slog.Info("local credential created", slog.String("user_id", cred.ID))
	return &SignUpResult{
		Identity: model.Identity{ID: cred.ID, Email: cred.Email},
	}, nil
}

// GetUser はセッションIDから認証主体を解決する。
func (p *PasswordProvider) GetUser(ctx context.Context, accessToken string) (*model.Identity, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	session, err := p.sessions.FindByID(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrInvalidToken
	}

	cred, err := p.credentials.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil {
		return nil, ErrInvalidToken
	}

	return &model.Identity{ID: cred.ID, Email: cred.Email}, nil
}

// SignOut はセッションを削除する。存在しないセッションでもエラーにしない。
func (p *PasswordProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := p.sessions.DeleteByID(ctx, accessToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// createSession はセッションを作成し永続化する。
func (p *PasswordProvider) createSession(ctx context.Context, cred *model.Credential) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    cred.ID,
		Email:     cred.Email,
		ExpiresAt: now.Add(time.Duration(p.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := p.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// compile-time interface check
var _ Provider = (*PasswordProvider)(nil)
