package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/cloudhms/internal/model"
)

const defaultSupabaseTimeout = 10 * time.Second

// SupabaseConfig はSupabase Auth（GoTrue）プロバイダーの設定。
type SupabaseConfig struct {
	URL       string // プロジェクトURL（例: https://xyz.supabase.co）
	AnonKey   string
	JWTSecret string // 設定時はアクセストークンをローカルで検証する

	// テスト用にオーバーライド可能なクライアント
	HTTPClient *http.Client
}

// SupabaseProvider はSupabase AuthのREST APIによる認証を提供する。
type SupabaseProvider struct {
	config SupabaseConfig
	client *http.Client
}

// NewSupabaseProvider はSupabaseProviderを生成する。
func NewSupabaseProvider(config SupabaseConfig) *SupabaseProvider {
	config.URL = strings.TrimRight(config.URL, "/")
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultSupabaseTimeout}
	}
	return &SupabaseProvider{config: config, client: client}
}

// supabaseUser はGoTrueのユーザーオブジェクト。
type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// supabaseSession はGoTrueのトークンエンドポイントのレスポンス。
type supabaseSession struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *supabaseUser `json:"user"`
}

// supabaseSignUpResponse はサインアップのレスポンス。
// メール確認が必要な構成ではユーザーオブジェクトのみ、不要な構成ではセッションが返る。
type supabaseSignUpResponse struct {
	supabaseSession
	ID    string `json:"id"`
	Email string `json:"email"`
}

// supabaseError はGoTrueのエラーレスポンス。バージョンにより項目名が異なる。
type supabaseError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// supabaseClaims はSupabaseが発行するアクセストークンのクレーム。
type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SignInWithPassword はパスワードグラントでアクセストークンを取得する。
func (p *SupabaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp supabaseSession
	if err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return resp.toSession(), nil
}

// SignUp はアカウントを作成する。metadataはuser_metadataとして保存される。
func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}

	var resp supabaseSignUpResponse
	if err := p.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &resp); err != nil {
		return nil, err
	}

	result := &SignUpResult{}
	switch {
	case resp.User != nil:
		result.Identity = model.Identity{ID: resp.User.ID, Email: resp.User.Email}
	default:
		result.Identity = model.Identity{ID: resp.ID, Email: resp.Email}
	}
	if result.Identity.ID == "" {
		return nil, fmt.Errorf("empty user id in sign-up response")
	}
	if resp.AccessToken != "" {
		result.Session = resp.toSession()
	}
	return result, nil
}

// GetUser はアクセストークンから認証主体を解決する。
// JWTシークレットが設定されていればHS256署名をローカルで検証し、APIを呼び出さない。
func (p *SupabaseProvider) GetUser(ctx context.Context, accessToken string) (*model.Identity, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	if p.config.JWTSecret != "" {
		return p.verifyToken(accessToken)
	}

	var user supabaseUser
	if err := p.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user); err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && (pe.Status == http.StatusUnauthorized || pe.Status == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, pe.Message)
		}
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in user response")
	}
	return &model.Identity{ID: user.ID, Email: user.Email}, nil
}

// SignOut はアクセストークンのセッションを失効させる。
// 既に失効済み（401/403/404）の場合はエラーにしない。
func (p *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := p.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil
		}
	}
	return err
}

// verifyToken はアクセストークンの署名と有効期限を検証する。
func (p *SupabaseProvider) verifyToken(accessToken string) (*model.Identity, error) {
	claims := &supabaseClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.config.JWTSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &model.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// do はGoTrueのエンドポイントを呼び出し、成功時のレスポンスをoutにデコードする。
// 2xx以外はProviderErrorを返す。
func (p *SupabaseProvider) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.URL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", p.config.AnonKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeSupabaseError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse auth response: %w", err)
	}
	return nil
}

// decodeSupabaseError はエラーレスポンスをProviderErrorに変換する。
func decodeSupabaseError(status int, body []byte) *ProviderError {
	var e supabaseError
	_ = json.Unmarshal(body, &e)

	message := firstNonEmpty(e.Msg, e.ErrorDescription, e.Message, e.Error)
	if message == "" {
		message = http.StatusText(status)
	}

	pe := &ProviderError{Status: status, Message: message}
	switch {
	case e.Error == "invalid_grant", e.ErrorCode == "invalid_credentials":
		pe.Err = ErrInvalidCredentials
	case e.ErrorCode == "user_already_exists", e.ErrorCode == "email_exists":
		pe.Err = ErrEmailTaken
	}
	return pe
}

func (s *supabaseSession) toSession() *model.Session {
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.ExpiresIn) * time.Second)
	if s.ExpiresAt > 0 {
		expiresAt = time.Unix(s.ExpiresAt, 0)
	}
	sess := &model.Session{
		ID:           s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}
	if s.User != nil {
		sess.UserID = s.User.ID
		sess.Email = s.User.Email
	}
	return sess
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// compile-time interface check
var _ Provider = (*SupabaseProvider)(nil)
