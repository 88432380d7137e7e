// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/cloudhms/internal/model"
)

// ErrDuplicateEmail は同一メールアドレスの資格情報が既に存在する場合に返される。
var ErrDuplicateEmail = errors.New("credential with this email already exists")

// ProfileRepository はprofilesテーブルの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error
	// UpdateFields はpatchの非nilフィールドのみを更新する。
	// 対象行が存在しない場合はfalseを返す。
	UpdateFields(ctx context.Context, id string, patch model.ProfilePatch) (bool, error)
}

// RoleAssignmentRepository はuser_rolesテーブルの読み取りインターフェース。
type RoleAssignmentRepository interface {
	// FindByUserID は指定ユーザーのロール割り当てを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.RoleAssignment, error)
}

// AppointmentRepository はappointmentsテーブルの永続化インターフェース。
type AppointmentRepository interface {
	// ListByPatientID は患者の予約を予約日の降順で返す。
	ListByPatientID(ctx context.Context, patientID string) ([]model.Appointment, error)
	// Create は予約を作成する。
	Create(ctx context.Context, appointment *model.Appointment) error
}

// MedicalRecordRepository はmedical_recordsテーブルの読み取りインターフェース。
type MedicalRecordRepository interface {
	// ListByPatientID は患者の診療記録を受診日の降順で返す。
	ListByPatientID(ctx context.Context, patientID string) ([]model.MedicalRecord, error)
	// ListLabResultsByPatientID はlab_testsが記録された診療記録を受診日の降順で返す。
	ListLabResultsByPatientID(ctx context.Context, patientID string) ([]model.MedicalRecord, error)
}

// CredentialRepository はローカル認証プロバイダーの資格情報インターフェース。
type CredentialRepository interface {
	// FindByEmail はメールアドレス（大文字小文字を区別しない）で資格情報を検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	// FindByID は指定IDの資格情報を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Credential, error)
	// Create は資格情報を作成する。メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, credential *model.Credential) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
