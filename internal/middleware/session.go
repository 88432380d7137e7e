// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cloudhms/internal/model"
)

// SessionCookieName はアクセストークンを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	identityContextKey = contextKey("identity")
	userIDSinkKey      = contextKey("user_id_sink")
)

// IdentityResolver はアクセストークンから認証主体を解決するインターフェース。
// auth.Providerの部分集合として定義する。
type IdentityResolver interface {
	GetUser(ctx context.Context, accessToken string) (*model.Identity, error)
}

// NewSessionMiddleware はCookieのアクセストークンを認証サービスで検証し、
// 認証主体をリクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない、またはトークンが無効な場合は401を返す。
func NewSessionMiddleware(resolver IdentityResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
				return
			}

			identity, err := resolver.GetUser(r.Context(), cookie.Value)
			if err != nil {
				slog.Info("session rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
				return
			}
			if identity == nil || identity.ID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
				return
			}

			reportUserID(r.Context(), identity.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// IdentityFromContext はセッションミドルウェアが注入した認証主体を返す。
func IdentityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil || identity.ID == "" {
		return nil, errors.New("identity not found in context")
	}
	return identity, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return "", errors.New("user ID not found in context")
	}
	return identity.ID, nil
}

// ContextWithIdentity はコンテキストに認証主体を注入する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// ContextWithUserID はコンテキストにユーザーIDのみを持つ認証主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithIdentity(ctx, &model.Identity{ID: userID})
}

// withUserIDSink は外側のミドルウェアが認証後のユーザーIDを受け取るための格納先を設定する。
func withUserIDSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, userIDSinkKey, sink)
}

// reportUserID は格納先が設定されていればユーザーIDを書き込む。
func reportUserID(ctx context.Context, userID string) {
	if sink, ok := ctx.Value(userIDSinkKey).(*string); ok {
		*sink = userID
	}
}
