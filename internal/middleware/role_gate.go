package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cloudhms/internal/model"
)

// ActivationChecker は認証主体のロールが有効化済みかどうかを判定する。
type ActivationChecker interface {
	IsActivated(ctx context.Context, identityID string) (bool, error)
}

// SessionCookieConfig はセッションCookieの属性設定。
type SessionCookieConfig struct {
	Domain string
	Secure bool
}

// SetSessionCookie はアクセストークンをHTTP Only Cookieに設定する。
func SetSessionCookie(w http.ResponseWriter, cfg SessionCookieConfig, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, cfg SessionCookieConfig) {
	SetSessionCookie(w, cfg, "", -1)
}

// NewRoleGateMiddleware はセッションミドルウェアの後段で、ロールが有効化済みの利用者のみを通す。
// サインイン後に承認待ちへ戻された利用者や、サインイン処理を経ずに発行されたトークンもここで拒否される。
// 拒否時はセッションCookieを削除して403を返す。ロールの読み取りに失敗した場合は500を返し、Cookieは残す。
func NewRoleGateMiddleware(checker ActivationChecker, cookie SessionCookieConfig) func(next http.Handler) http.Handler {
	if checker == nil {
		panic("middleware: nil ActivationChecker")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
				return
			}

			activated, err := checker.IsActivated(r.Context(), identity.ID)
			if err != nil {
				slog.Error("failed to check role activation",
					slog.String("user_id", identity.ID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if !activated {
				slog.Warn("access denied for inactive role",
					slog.String("user_id", identity.ID),
					slog.String("path", r.URL.Path),
				)
				ClearSessionCookie(w, cookie)
				WriteErrorResponse(w, http.StatusForbidden, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
