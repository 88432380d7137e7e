package dashboard

import (
	"context"
	"log/slog"

	"github.com/hitoshi/cloudhms/internal/metrics"
	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/role"
)

// RoleReader はダッシュボードが使うロール読み取りインターフェース。
type RoleReader interface {
	ResolveAssignedRole(ctx context.Context, identityID string) (role.Resolution, error)
	CheckConsistency(ctx context.Context, identityID string) (role.Consistency, error)
}

// Dashboard は利用者に表示するダッシュボード。
type Dashboard struct {
	Layout
	Role model.Role `json:"role"`
}

// Service はuser_rolesに基づいてダッシュボードを組み立てる。
type Service struct {
	roles   RoleReader
	metrics metrics.MetricsCollector
}

// NewService はServiceを生成する。mcがnilの場合はメトリクスを記録しない。
func NewService(roles RoleReader, mc metrics.MetricsCollector) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{roles: roles, metrics: mc}
}

// ForIdentity は利用者のダッシュボードを返す。
// user_rolesの読み取りに失敗した場合や行がない場合は患者画面を返し、エラーにはしない。
func (s *Service) ForIdentity(ctx context.Context, identityID string) (*Dashboard, error) {
	res, err := s.roles.ResolveAssignedRole(ctx, identityID)
	if err != nil {
		slog.Error("failed to read assigned role, falling back to patient view",
			slog.String("user_id", identityID),
			slog.String("error", err.Error()),
		)
		res = role.Resolution{}
	}

	if _, err := s.roles.CheckConsistency(ctx, identityID); err != nil {
		slog.Warn("role consistency check failed",
			slog.String("user_id", identityID),
			slog.String("error", err.Error()),
		)
	}

	view := SelectView(res.Role)
	s.metrics.RecordViewSelected(string(view))

	return &Dashboard{Layout: LayoutFor(view), Role: res.Role}, nil
}
