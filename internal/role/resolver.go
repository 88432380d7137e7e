// Package role はprofilesとuser_rolesの2つの情報源からロールを解決する。
package role

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cloudhms/internal/metrics"
	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/repository"
)

// Resolution はロール読み取りの結果を表す。
// 行が存在しない場合はFoundがfalseになる。RoleがRoleNoneの場合はNULLを表す。
type Resolution struct {
	Found bool
	Role  model.Role
}

// Activated はサインインを許可できるロールかどうかを返す。
// 行が存在し、ロールがNULLでもpendingでもない場合のみtrue。
func (r Resolution) Activated() bool {
	return r.Found && !r.Role.IsNone() && r.Role != model.RolePending
}

// Consistency は2つのロール情報源の比較結果を表す。
type Consistency struct {
	Profile  Resolution
	Assigned Resolution
}

// Mismatch は両方の情報源に行があり、ロールが一致しない場合にtrueを返す。
func (c Consistency) Mismatch() bool {
	return c.Profile.Found && c.Assigned.Found && c.Profile.Role != c.Assigned.Role
}

// Resolver はロール情報源を読み取る。書き込みは行わない。
type Resolver struct {
	profiles    repository.ProfileRepository
	assignments repository.RoleAssignmentRepository
	metrics     metrics.MetricsCollector
}

// NewResolver は新しいResolverを生成する。mcがnilの場合はメトリクスを記録しない。
func NewResolver(
	profiles repository.ProfileRepository,
	assignments repository.RoleAssignmentRepository,
	mc metrics.MetricsCollector,
) *Resolver {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Resolver{profiles: profiles, assignments: assignments, metrics: mc}
}

// ResolveProfileRole はprofiles.roleを読み取る。サインイン判定に使用する。
func (r *Resolver) ResolveProfileRole(ctx context.Context, identityID string) (Resolution, error) {
	profile, err := r.profiles.FindByID(ctx, identityID)
	if err != nil {
		return Resolution{}, fmt.Errorf("read profile role: %w", err)
	}
	if profile == nil {
		return Resolution{}, nil
	}
	return Resolution{Found: true, Role: profile.Role}, nil
}

// IsActivated はprofiles.roleが有効化済みかどうかを返す。認証済みAPIの認可に使用する。
func (r *Resolver) IsActivated(ctx context.Context, identityID string) (bool, error) {
	res, err := r.ResolveProfileRole(ctx, identityID)
	if err != nil {
		return false, err
	}
	return res.Activated(), nil
}

// ResolveAssignedRole はuser_roles.roleを読み取る。ダッシュボード画面の選択に使用する。
func (r *Resolver) ResolveAssignedRole(ctx context.Context, identityID string) (Resolution, error) {
	assignment, err := r.assignments.FindByUserID(ctx, identityID)
	if err != nil {
		return Resolution{}, fmt.Errorf("read assigned role: %w", err)
	}
	if assignment == nil {
		return Resolution{}, nil
	}
	return Resolution{Found: true, Role: assignment.Role}, nil
}

// CheckConsistency は両方の情報源を読み取り、不一致をWARNログとメトリクスで報告する。
// 不一致の解消は行わない。
func (r *Resolver) CheckConsistency(ctx context.Context, identityID string) (Consistency, error) {
	profile, err := r.ResolveProfileRole(ctx, identityID)
	if err != nil {
		return Consistency{}, err
	}
	assigned, err := r.ResolveAssignedRole(ctx, identityID)
	if err != nil {
		return Consistency{}, err
	}

	c := Consistency{Profile: profile, Assigned: assigned}
	if c.Mismatch() {
		r.metrics.RecordRoleMismatch()
		slog.Warn("role sources disagree",
			slog.String("user_id", identityID),
			slog.String("profile_role", profile.Role.String()),
			slog.String("assigned_role", assigned.Role.String()),
		)
	}
	return c, nil
}
