package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hitoshi/cloudhms/internal/metrics"
	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/role"
	"github.com/hitoshi/cloudhms/internal/session"
)

// SignUpStatus はサインアップ後のアカウント状態。
type SignUpStatus string

// StatusPendingApproval は管理者の承認待ちであることを示す。サインアップ結果は常にこの値。
const StatusPendingApproval SignUpStatus = "pending_approval"

// ProfileRoleResolver はサインイン判定に使うprofiles.roleの読み取りインターフェース。
type ProfileRoleResolver interface {
	ResolveProfileRole(ctx context.Context, identityID string) (role.Resolution, error)
}

// ProvisionalProfileCreator はサインアップ時の承認待ちプロフィール作成インターフェース。
type ProvisionalProfileCreator interface {
	CreateProvisional(ctx context.Context, identityID, fullName, email string) (*model.Profile, error)
}

// SignInResult はサインイン成功時の結果。
type SignInResult struct {
	Session  *model.Session
	Identity *model.Identity
	Role     model.Role
}

// SignUpInput はサインアップフォームの入力。
type SignUpInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
	Metadata        map[string]any
}

// SignUpOutcome はサインアップの結果。
// ProfileCreatedがfalseの場合、プロフィール作成に失敗しており管理者の対応が必要。
type SignUpOutcome struct {
	Identity       model.Identity
	Status         SignUpStatus
	ProfileCreated bool
}

// Service は認証ゲートが共有する依存を保持する。
// リクエストごとのセッションストアに対してGateを払い出す。
type Service struct {
	provider Provider
	resolver ProfileRoleResolver
	profiles ProvisionalProfileCreator
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。mcがnilの場合はメトリクスを記録しない。
func NewService(
	provider Provider,
	resolver ProfileRoleResolver,
	profiles ProvisionalProfileCreator,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{
		provider: provider,
		resolver: resolver,
		profiles: profiles,
		metrics:  mc,
	}
}

// Gate はstoreに束縛された認証ゲートを返す。
func (s *Service) Gate(store *session.Store) *Gate {
	return &Gate{Service: s, store: store}
}

// Gate は1つのクライアントコンテキストに対するサインイン・サインアップ・サインアウトを行う。
// サインインはprofiles.roleが有効化済みの場合にのみ成立する。
type Gate struct {
	*Service
	store *session.Store
}

// SignIn は資格情報を検証し、ロールが有効化済みであればセッションをストアに設定する。
// ロールが未承認・未設定・プロフィール欠落の場合は発行されたセッションを即座に失効させ、
// UNAUTHORIZEDを返す。
func (g *Gate) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	sess, err := g.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			g.metrics.RecordSignIn(metrics.OutcomeInvalidCredentials)
			slog.Info("sign-in failed: invalid credentials", slog.String("email", email))
			return nil, model.NewInvalidCredentialsError(providerMessage(err))
		}
		g.metrics.RecordSignIn(metrics.OutcomeExternalError)
		slog.Error("sign-in failed: auth provider error",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewExternalAuthError(providerMessage(err))
	}

	identity, err := g.provider.GetUser(ctx, sess.ID)
	if err != nil {
		return nil, g.reject(ctx, sess, slog.String("email", email),
			slog.String("reason", "identity lookup failed"),
			slog.String("error", err.Error()),
		)
	}

	res, err := g.resolver.ResolveProfileRole(ctx, identity.ID)
	if err != nil {
		return nil, g.reject(ctx, sess, slog.String("user_id", identity.ID),
			slog.String("reason", "profile read failed"),
			slog.String("error", err.Error()),
		)
	}
	if !res.Activated() {
		return nil, g.reject(ctx, sess, slog.String("user_id", identity.ID),
			slog.String("reason", rejectionReason(res)),
		)
	}

	if sess.UserID == "" {
		sess.UserID = identity.ID
	}
	if sess.Email == "" {
		sess.Email = identity.Email
	}
	g.store.Set(sess)
	g.metrics.RecordSignIn(metrics.OutcomeSuccess)
	slog.Info("user signed in",
		slog.String("user_id", identity.ID),
		slog.String("role", res.Role.String()),
	)

	return &SignInResult{Session: sess, Identity: identity, Role: res.Role}, nil
}

// reject は発行済みセッションを補償的に失効させ、ストアを空にしてUNAUTHORIZEDを返す。
// 失効に失敗してもストアは空にし、結果は変わらない。
func (g *Gate) reject(ctx context.Context, sess *model.Session, attrs ...any) error {
	slog.Warn("sign-in rejected by role policy", attrs...)

	// 呼び出し元のキャンセルに関わらず失効を試みる
	if err := g.provider.SignOut(context.WithoutCancel(ctx), sess.ID); err != nil {
		g.metrics.RecordCompensatingSignOut(false)
		slog.Error("compensating sign-out failed",
			slog.String("user_id", sess.UserID),
			slog.String("error", err.Error()),
		)
	} else {
		g.metrics.RecordCompensatingSignOut(true)
	}

	g.store.Clear()
	g.metrics.RecordSignIn(metrics.OutcomeUnauthorized)
	return model.NewUnauthorizedError()
}

func rejectionReason(res role.Resolution) string {
	switch {
	case !res.Found:
		return "profile missing"
	case res.Role.IsNone():
		return "role not set"
	case res.Role == model.RolePending:
		return "pending approval"
	default:
		return "role not activated"
	}
}

// SignUp はアカウントを作成し、承認待ちのプロフィールを1件作成する。
// ストアにセッションは設定しない。プロバイダーがセッションを発行した場合は即座に失効させる。
func (g *Gate) SignUp(ctx context.Context, in SignUpInput) (*SignUpOutcome, error) {
	if in.Password != in.ConfirmPassword {
		g.metrics.RecordSignUp(metrics.OutcomeValidationError)
		return nil, model.NewPasswordMismatchError()
	}
	if utf8.RuneCountInString(in.Password) < model.MinPasswordLength {
		g.metrics.RecordSignUp(metrics.OutcomeValidationError)
		return nil, model.NewPasswordTooShortError()
	}

	metadata := make(map[string]any, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metadata["full_name"] = in.FullName

	res, err := g.provider.SignUp(ctx, in.Email, in.Password, metadata)
	if err != nil {
		g.metrics.RecordSignUp(metrics.OutcomeExternalError)
		slog.Warn("sign-up failed: auth provider error",
			slog.String("email", in.Email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewExternalAuthError(providerMessage(err))
	}

	identity := res.Identity
	if identity.Email == "" {
		identity.Email = in.Email
	}

	profileCreated := true
	if _, err := g.profiles.CreateProvisional(ctx, identity.ID, in.FullName, identity.Email); err != nil {
		profileCreated = false
		apiErr := model.NewProfileInsertFailedError(identity.ID)
		g.metrics.RecordProfileInsertFailure()
		slog.Error("profile insert failed after sign-up",
			slog.String("user_id", identity.ID),
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
	}

	if res.Session != nil {
		if err := g.provider.SignOut(context.WithoutCancel(ctx), res.Session.ID); err != nil {
			slog.Error("failed to revoke session issued at sign-up",
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	g.metrics.RecordSignUp(metrics.OutcomePendingApproval)
	slog.Info("user signed up",
		slog.String("user_id", identity.ID),
		slog.Bool("profile_created", profileCreated),
	)

	return &SignUpOutcome{
		Identity:       identity,
		Status:         StatusPendingApproval,
		ProfileCreated: profileCreated,
	}, nil
}

// SignOut は現在のセッションを失効させ、ストアを空にする。
// セッションがない場合は何もせず成功する。失効に失敗してもストアは空になる。
func (g *Gate) SignOut(ctx context.Context) error {
	sess := g.store.Current()
	if sess == nil {
		g.store.Clear()
		return nil
	}

	err := g.provider.SignOut(ctx, sess.ID)
	g.store.Clear()
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	slog.Info("user signed out", slog.String("user_id", sess.UserID))
	return nil
}

// CurrentIdentity はストアのセッションから認証主体を解決する。セッションがなければnilを返す。
func (g *Gate) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	sess := g.store.Current()
	if sess == nil {
		return nil, nil
	}
	identity, err := g.provider.GetUser(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve current identity: %w", err)
	}
	return identity, nil
}
