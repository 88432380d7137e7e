package model

// Role は認可ロールを表す閉じた列挙型。
// profiles.role と user_roles.role の値はこの型に変換して扱う。
// ゼロ値 RoleNone はロール未設定（NULL）を表す。
type Role string

const (
	// RoleNone はロールが未設定（NULL）であることを示す。
	RoleNone Role = ""
	// RolePending はサインアップ直後の承認待ちロール。サインインは拒否される。
	RolePending Role = "pending"
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleAdmin   Role = "admin"
)

// knownRoles は列挙型に含まれるロールの一覧。RoleNoneは含まない。
var knownRoles = []Role{RolePending, RolePatient, RoleDoctor, RoleNurse, RoleAdmin}

// KnownRoles は既知ロールの一覧を返す。
func KnownRoles() []Role {
	out := make([]Role, len(knownRoles))
	copy(out, knownRoles)
	return out
}

// ParseRole は文字列をRoleに変換する。
// 既知のロールであればokにtrueを返す。未知の値もRoleとして保持して返す。
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Known()
}

// Known は列挙型に含まれるロールかどうかを返す。
func (r Role) Known() bool {
	for _, k := range knownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// IsNone はロールが未設定（NULL）かどうかを返す。
func (r Role) IsNone() bool {
	return r == RoleNone
}

// String はログ出力用の文字列表現を返す。
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}
