package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cloudhms/internal/model"
)

// PostgresRoleAssignmentRepo はPostgreSQLを使用したuser_rolesリポジトリ。
type PostgresRoleAssignmentRepo struct {
	db *sql.DB
}

// NewPostgresRoleAssignmentRepo はPostgresRoleAssignmentRepoを生成する。
func NewPostgresRoleAssignmentRepo(db *sql.DB) *PostgresRoleAssignmentRepo {
	return &PostgresRoleAssignmentRepo{db: db}
}

// FindByUserID は指定ユーザーのロール割り当てを取得する。見つからない場合はnilを返す。
func (r *PostgresRoleAssignmentRepo) FindByUserID(ctx context.Context, userID string) (*model.RoleAssignment, error) {
	ra := &model.RoleAssignment{}
	var role sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, role, created_at FROM user_roles WHERE user_id = $1`,
		userID,
	).Scan(&ra.UserID, &role, &ra.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role assignment: %w", err)
	}

	ra.Role = model.Role(nullStringValue(role))
	return ra, nil
}

// compile-time interface check
var _ RoleAssignmentRepository = (*PostgresRoleAssignmentRepo)(nil)
