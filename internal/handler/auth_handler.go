// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/cloudhms/internal/auth"
	"github.com/hitoshi/cloudhms/internal/middleware"
	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/session"
)

// AuthGate は認証ハンドラーが必要とする認証ゲートのインターフェース。
// auth.Gateが実装する。
type AuthGate interface {
	SignIn(ctx context.Context, email, password string) (*auth.SignInResult, error)
	SignUp(ctx context.Context, in auth.SignUpInput) (*auth.SignUpOutcome, error)
	SignOut(ctx context.Context) error
	CurrentIdentity(ctx context.Context) (*model.Identity, error)
}

// GateFactory はリクエストごとのセッションストアに束縛されたAuthGateを生成する。
type GateFactory func(store *session.Store) AuthGate

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインイン・サインアップ・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	gates  GateFactory
	config AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(gates GateFactory, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		gates:  gates,
		config: config,
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type signInResponse struct {
	User identityResponse `json:"user"`
	Role string           `json:"role"`
}

type signUpResponse struct {
	User           identityResponse `json:"user"`
	Status         string           `json:"status"`
	ProfileCreated bool             `json:"profile_created"`
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *identityResponse `json:"user,omitempty"`
}

// bind はリクエストのCookieからセッションストアを構成し、AuthGateを返す。
// ストアの変化はレスポンスのセッションCookieに反映される。
func (h *AuthHandler) bind(w http.ResponseWriter, r *http.Request) (AuthGate, func()) {
	store := session.NewStore()
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		store.Set(&model.Session{ID: cookie.Value})
	}

	unsubscribe := store.Subscribe(func(s *model.Session) {
		if s == nil {
			h.clearSessionCookie(w)
			return
		}
		h.setSessionCookie(w, s)
	})
	return h.gates(store), unsubscribe
}

// SignIn はメールアドレスとパスワードでサインインする。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		handleServiceError(w, model.NewInvalidRequestError("email and password are required"))
		return
	}

	gate, unsubscribe := h.bind(w, r)
	defer unsubscribe()

	result, err := gate.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{
		User: identityResponse{ID: result.Identity.ID, Email: result.Identity.Email},
		Role: string(result.Role),
	})
}

// SignUp は新規アカウントを登録する。アカウントは管理者の承認待ちとなり、セッションは発行しない。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		handleServiceError(w, model.NewInvalidRequestError("email is required"))
		return
	}

	gate, unsubscribe := h.bind(w, r)
	defer unsubscribe()

	outcome, err := gate.SignUp(r.Context(), auth.SignUpInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, signUpResponse{
		User:           identityResponse{ID: outcome.Identity.ID, Email: outcome.Identity.Email},
		Status:         string(outcome.Status),
		ProfileCreated: outcome.ProfileCreated,
	})
}

// SignOut はセッションを破棄する。セッションがなくても成功する。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	gate, unsubscribe := h.bind(w, r)
	defer unsubscribe()

	if err := gate.SignOut(r.Context()); err != nil {
		// 失効に失敗してもCookieはクリア済み
		slog.Error("failed to sign out", slog.String("error", err.Error()))
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session は現在のセッションの認証主体を返す。
// GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	gate, unsubscribe := h.bind(w, r)
	defer unsubscribe()

	identity, err := gate.CurrentIdentity(r.Context())
	if err != nil {
		slog.Info("stale session cookie", slog.String("error", err.Error()))
		h.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	if identity == nil {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          &identityResponse{ID: identity.ID, Email: identity.Email},
	})
}

func (h *AuthHandler) cookieConfig() middleware.SessionCookieConfig {
	return middleware.SessionCookieConfig{Domain: h.config.CookieDomain, Secure: h.config.CookieSecure}
}

// setSessionCookie はアクセストークンをHTTP Only Cookieに設定する。
// Cookieの有効期間はSESSION_MAX_AGEとセッション自体の有効期限の短い方に合わせる。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, s *model.Session) {
	middleware.SetSessionCookie(w, h.cookieConfig(), s.ID, cookieMaxAge(s, h.config.SessionMaxAge, time.Now()))
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	middleware.ClearSessionCookie(w, h.cookieConfig())
}

// cookieMaxAge はCookieのMax-Age秒を返す。ExpiresAtがゼロ値の場合はmaxAgeをそのまま使う。
func cookieMaxAge(s *model.Session, maxAge int, now time.Time) int {
	if s.ExpiresAt.IsZero() {
		return maxAge
	}
	remaining := int(s.ExpiresAt.Sub(now).Seconds())
	if remaining < 1 {
		return -1
	}
	if maxAge > 0 && maxAge < remaining {
		return maxAge
	}
	return remaining
}
