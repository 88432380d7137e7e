package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/cloudhms/internal/model"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pgUniqueViolation = "23505"

// PostgresCredentialRepo はPostgreSQLを使用した資格情報リポジトリ。
// ローカル認証プロバイダーの外部認証サービス相当部分として使われる。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// FindByEmail はメールアドレス（大文字小文字を区別しない）で資格情報を検索する。
func (r *PostgresCredentialRepo) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	return r.findOne(ctx,
		`SELECT id, email, password_hash, full_name, metadata, created_at
		 FROM credentials WHERE LOWER(email) = LOWER($1)`,
		email,
	)
}

// FindByID は指定IDの資格情報を取得する。
func (r *PostgresCredentialRepo) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	return r.findOne(ctx,
		`SELECT id, email, password_hash, full_name, metadata, created_at
		 FROM credentials WHERE id = $1`,
		id,
	)
}

func (r *PostgresCredentialRepo) findOne(ctx context.Context, query string, arg string) (*model.Credential, error) {
	c := &model.Credential{}
	var fullName sql.NullString
	var metadata []byte

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&c.ID, &c.Email, &c.PasswordHash, &fullName, &metadata, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	c.FullName = nullStringValue(fullName)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode credential metadata: %w", err)
		}
	}
	return c, nil
}

// Create は資格情報を作成する。メールアドレス重複時はErrDuplicateEmailを返す。
func (r *PostgresCredentialRepo) Create(ctx context.Context, c *model.Credential) error {
	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode credential metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, email, password_hash, full_name, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Email, c.PasswordHash, nullString(c.FullName), metadata, c.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
