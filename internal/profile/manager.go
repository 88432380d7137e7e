// Package profile はprofilesテーブルのレコード管理を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/repository"
	"github.com/hitoshi/cloudhms/internal/security"
)

// dateLayout は生年月日の入力形式。
const dateLayout = "2006-01-02"

// Manager はプロフィールの作成・取得・部分更新を行う。
// ロールは作成時にpendingへ固定され、このパッケージから変更されることはない。
type Manager struct {
	repo      repository.ProfileRepository
	sanitizer security.TextSanitizer
}

// NewManager は新しいManagerを生成する。
func NewManager(repo repository.ProfileRepository, sanitizer security.TextSanitizer) *Manager {
	return &Manager{repo: repo, sanitizer: sanitizer}
}

// CreateProvisional はサインアップ直後の承認待ちプロフィールを作成する。
func (m *Manager) CreateProvisional(ctx context.Context, identityID, fullName, email string) (*model.Profile, error) {
	now := time.Now()
	p := &model.Profile{
		ID:        identityID,
		FullName:  m.sanitizer.Sanitize(fullName),
		Email:     email,
		Role:      model.RolePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create provisional profile: %w", err)
	}
	slog.Info("provisional profile created", slog.String("user_id", identityID))
	return p, nil
}

// Get は本人のプロフィールを返す。存在しない場合はPROFILE_NOT_FOUNDを返す。
func (m *Manager) Get(ctx context.Context, identityID string) (*model.Profile, error) {
	p, err := m.repo.FindByID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return p, nil
}

// Update はpatchの非nilフィールドのみを更新し、更新後のプロフィールを返す。
// 更新条件は id = identityID のみで、一致する行がなければUPDATE_REJECTEDを返す。
func (m *Manager) Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
	clean, err := m.normalize(patch)
	if err != nil {
		return nil, err
	}
	if clean.IsEmpty() {
		return m.Get(ctx, identityID)
	}

	updated, err := m.repo.UpdateFields(ctx, identityID, clean)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if !updated {
		slog.Warn("profile update matched no row", slog.String("user_id", identityID))
		return nil, model.NewUpdateRejectedError()
	}
	return m.Get(ctx, identityID)
}

// normalize は自由記述をサニタイズし、生年月日の形式を検証する。
func (m *Manager) normalize(patch model.ProfilePatch) (model.ProfilePatch, error) {
	var out model.ProfilePatch
	out.FullName = m.sanitizeField(patch.FullName)
	out.Phone = m.sanitizeField(patch.Phone)
	out.Address = m.sanitizeField(patch.Address)
	out.Gender = m.sanitizeField(patch.Gender)

	if patch.DateOfBirth != nil {
		dob, err := normalizeDate(*patch.DateOfBirth)
		if err != nil {
			return model.ProfilePatch{}, err
		}
		out.DateOfBirth = &dob
	}
	return out, nil
}

func (m *Manager) sanitizeField(v *string) *string {
	if v == nil {
		return nil
	}
	s := m.sanitizer.Sanitize(*v)
	return &s
}

// normalizeDate は空文字列かYYYY-MM-DD形式の日付のみを受け付ける。
func normalizeDate(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", model.NewInvalidProfileFieldError("date_of_birth", "expected YYYY-MM-DD")
	}
	if d.After(time.Now()) {
		return "", model.NewInvalidProfileFieldError("date_of_birth", "must not be in the future")
	}
	return d.Format(dateLayout), nil
}
