package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/cloudhms/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
// roleがNULLの行はmodel.RoleNoneとして返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p := &model.Profile{}
	var fullName, email, phone, address, dob, gender, role sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone, address,
		        COALESCE(to_char(date_of_birth, 'YYYY-MM-DD'), ''), gender, role,
		        created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &fullName, &email, &phone, &address, &dob, &gender, &role, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	p.FullName = nullStringValue(fullName)
	p.Email = nullStringValue(email)
	p.Phone = nullStringValue(phone)
	p.Address = nullStringValue(address)
	p.DateOfBirth = nullStringValue(dob)
	p.Gender = nullStringValue(gender)
	p.Role = model.Role(nullStringValue(role))

	return p, nil
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, email, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, nullString(p.FullName), nullString(p.Email), nullString(string(p.Role)), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// UpdateFields はpatchの非nilフィールドのみを更新する。
// WHERE id = $1 が本人確認の役割を持ち、対象行がなければfalseを返す。
func (r *PostgresProfileRepo) UpdateFields(ctx context.Context, id string, patch model.ProfilePatch) (bool, error) {
	query, args := buildProfileUpdate(id, patch)
	if query == "" {
		return true, nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// buildProfileUpdate は部分更新用のUPDATE文と引数を組み立てる。
// 更新対象がない場合は空文字を返す。
func buildProfileUpdate(id string, patch model.ProfilePatch) (string, []any) {
	var sets []string
	args := []any{id}

	add := func(column string, value *string, cast string) {
		if value == nil {
			return
		}
		args = append(args, nullString(*value))
		sets = append(sets, fmt.Sprintf("%s = $%d%s", column, len(args), cast))
	}

	add("full_name", patch.FullName, "")
	add("phone", patch.Phone, "")
	add("address", patch.Address, "")
	add("date_of_birth", patch.DateOfBirth, "::date")
	add("gender", patch.Gender, "")

	if len(sets) == 0 {
		return "", nil
	}

	query := "UPDATE profiles SET " + strings.Join(sets, ", ") + ", updated_at = now() WHERE id = $1"
	return query, args
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
