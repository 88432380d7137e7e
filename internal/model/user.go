// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は外部認証サービスが発行する認証主体を表す。
// IDは生存期間中不変で、profiles.id と一致する。
type Identity struct {
	ID    string
	Email string
}

// Session はクライアントの認証セッションを表す。
// IDはアクセストークン（ローカルプロバイダーではランダム値、SupabaseではJWT）。
type Session struct {
	ID           string
	UserID       string
	Email        string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired はセッションが期限切れかどうかを返す。
// ExpiresAtがゼロ値の場合は期限なしとして扱う。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Profile はアプリケーション側の利用者レコードを表す。
// Identityごとに1行で、サインアップ時にRolePendingで1回だけ作成される。
type Profile struct {
	ID          string
	FullName    string
	Email       string
	Phone       string
	Address     string
	DateOfBirth string // YYYY-MM-DD、未設定は空文字
	Gender      string
	Role        Role // RoleNoneはNULL
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfilePatch はプロフィールの部分更新を表す。
// nilのフィールドは更新しない。ロールとメールアドレスは含まない。
type ProfilePatch struct {
	FullName    *string
	Phone       *string
	Address     *string
	DateOfBirth *string
	Gender      *string
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p ProfilePatch) IsEmpty() bool {
	return p.FullName == nil && p.Phone == nil && p.Address == nil &&
		p.DateOfBirth == nil && p.Gender == nil
}

// RoleAssignment はuser_rolesテーブルの1行を表す。
// ダッシュボードの画面選択にのみ使用され、Profile.Roleとは独立している。
type RoleAssignment struct {
	UserID    string
	Role      Role
	CreatedAt time.Time
}

// Credential はローカル認証プロバイダーが保持する資格情報を表す。
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Metadata     map[string]any
	CreatedAt    time.Time
}
