package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/cloudhms/internal/model"
)

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// セッション本体は有効期限付きキー、ユーザーごとのセッション一覧はSetで保持する。
// キーとSetにはトークンのSHA-256ダイジェストのみを使い、トークン自体は保存しない。
type RedisSessionRepo struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client redis.Cmdable) *RedisSessionRepo {
	return &RedisSessionRepo{
		client: client,
		prefix: "cloudhms:",
	}
}

type redisSession struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *RedisSessionRepo) sessionKey(digest string) string {
	return r.prefix + "session:" + digest
}

func (r *RedisSessionRepo) userKey(userID string) string {
	return r.prefix + "user_sessions:" + userID
}

// Create はセッションを作成する。有効期限を過ぎたセッションは保存しない。
func (r *RedisSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if session.ID == "" || session.UserID == "" {
		return fmt.Errorf("session: missing id or user_id")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(redisSession{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	digest := hashSessionToken(session.ID)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(digest), data, ttl)
	pipe.SAdd(ctx, r.userKey(session.UserID), digest)
	pipe.Expire(ctx, r.userKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れ・未登録の場合はnilを返す。
func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	val, err := r.client.Get(ctx, r.sessionKey(hashSessionToken(id))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var rs redisSession
	if err := json.Unmarshal(val, &rs); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}

	return &model.Session{
		ID:        id,
		UserID:    rs.UserID,
		ExpiresAt: rs.ExpiresAt,
		CreatedAt: rs.CreatedAt,
	}, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *RedisSessionRepo) DeleteByID(ctx context.Context, id string) error {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	digest := hashSessionToken(id)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(digest))
	if s != nil {
		pipe.SRem(ctx, r.userKey(s.UserID), digest)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *RedisSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	digests, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(digests)+1)
	for _, digest := range digests {
		keys = append(keys, r.sessionKey(digest))
	}
	keys = append(keys, r.userKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)
