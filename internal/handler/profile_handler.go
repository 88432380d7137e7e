package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/cloudhms/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, identityID string) (*model.Profile, error)
	Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error)
}

// ProfileHandler は本人プロフィールの参照・更新のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type profileResponse struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	DateOfBirth string    `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	Role        *string   `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// updateProfileRequest はPATCH /api/profileのリクエストボディ。
// roleとemailは含まないため、指定された場合は未知のフィールドとして拒否される。
type updateProfileRequest struct {
	FullName    *string `json:"full_name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	DateOfBirth *string `json:"date_of_birth"`
	Gender      *string `json:"gender"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	resp := profileResponse{
		ID:          p.ID,
		FullName:    p.FullName,
		Email:       p.Email,
		Phone:       p.Phone,
		Address:     p.Address,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if !p.Role.IsNone() {
		role := string(p.Role)
		resp.Role = &role
	}
	return resp
}

// GetProfile は本人のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// UpdateProfile は本人のプロフィールを部分更新する。
// PATCH /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("only full_name, phone, address, date_of_birth and gender can be updated"))
		return
	}

	p, err := h.service.Update(r.Context(), userID, model.ProfilePatch{
		FullName:    req.FullName,
		Phone:       req.Phone,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}
