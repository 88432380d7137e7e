package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cloudhms/internal/auth"
	"github.com/hitoshi/cloudhms/internal/dashboard"
	"github.com/hitoshi/cloudhms/internal/middleware"
	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/record"
	"github.com/hitoshi/cloudhms/internal/session"
)

// --- モック定義 ---

// mockGate はAuthGateのモック実装。生成時に束縛されたストアを保持する。
type mockGate struct {
	store             *session.Store
	signInFn          func(store *session.Store, email, password string) (*auth.SignInResult, error)
	signUpFn          func(store *session.Store, in auth.SignUpInput) (*auth.SignUpOutcome, error)
	signOutFn         func(store *session.Store) error
	currentIdentityFn func(store *session.Store) (*model.Identity, error)
}

var _ AuthGate = (*mockGate)(nil)

func (m *mockGate) factory() GateFactory {
	return func(store *session.Store) AuthGate {
		m.store = store
		return m
	}
}

func (m *mockGate) SignIn(_ context.Context, email, password string) (*auth.SignInResult, error) {
	if m.signInFn != nil {
		return m.signInFn(m.store, email, password)
	}
	return nil, nil
}

func (m *mockGate) SignUp(_ context.Context, in auth.SignUpInput) (*auth.SignUpOutcome, error) {
	if m.signUpFn != nil {
		return m.signUpFn(m.store, in)
	}
	return nil, nil
}

func (m *mockGate) SignOut(_ context.Context) error {
	if m.signOutFn != nil {
		return m.signOutFn(m.store)
	}
	m.store.Clear()
	return nil
}

func (m *mockGate) CurrentIdentity(_ context.Context) (*model.Identity, error) {
	if m.currentIdentityFn != nil {
		return m.currentIdentityFn(m.store)
	}
	return nil, nil
}

// mockDashboardService はDashboardServiceInterfaceのモック実装。
type mockDashboardService struct {
	forIdentityFn func(ctx context.Context, identityID string) (*dashboard.Dashboard, error)
}

var _ DashboardServiceInterface = (*mockDashboardService)(nil)

func (m *mockDashboardService) ForIdentity(ctx context.Context, identityID string) (*dashboard.Dashboard, error) {
	if m.forIdentityFn != nil {
		return m.forIdentityFn(ctx, identityID)
	}
	return &dashboard.Dashboard{Layout: dashboard.LayoutFor(dashboard.PatientView)}, nil
}

// mockProfileService はProfileServiceInterfaceのモック実装。
type mockProfileService struct {
	getFn    func(ctx context.Context, identityID string) (*model.Profile, error)
	updateFn func(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error)
}

var _ ProfileServiceInterface = (*mockProfileService)(nil)

func (m *mockProfileService) Get(ctx context.Context, identityID string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, identityID)
	}
	return nil, model.NewProfileNotFoundError()
}

func (m *mockProfileService) Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, identityID, patch)
	}
	return nil, model.NewUpdateRejectedError()
}

// mockRecordService はRecordServiceInterfaceのモック実装。
type mockRecordService struct {
	listAppointmentsFn   func(ctx context.Context, patientID string) ([]model.Appointment, error)
	listMedicalRecordsFn func(ctx context.Context, patientID string) ([]model.MedicalRecord, error)
	listLabResultsFn     func(ctx context.Context, patientID string) ([]model.MedicalRecord, error)
	requestAppointmentFn func(ctx context.Context, patientID string, req record.AppointmentRequest) (*model.Appointment, error)
}

var _ RecordServiceInterface = (*mockRecordService)(nil)

func (m *mockRecordService) ListAppointments(ctx context.Context, patientID string) ([]model.Appointment, error) {
	if m.listAppointmentsFn != nil {
		return m.listAppointmentsFn(ctx, patientID)
	}
	return nil, nil
}

func (m *mockRecordService) ListMedicalRecords(ctx context.Context, patientID string) ([]model.MedicalRecord, error) {
	if m.listMedicalRecordsFn != nil {
		return m.listMedicalRecordsFn(ctx, patientID)
	}
	return nil, nil
}

func (m *mockRecordService) ListLabResults(ctx context.Context, patientID string) ([]model.MedicalRecord, error) {
	if m.listLabResultsFn != nil {
		return m.listLabResultsFn(ctx, patientID)
	}
	return nil, nil
}

func (m *mockRecordService) RequestAppointment(ctx context.Context, patientID string, req record.AppointmentRequest) (*model.Appointment, error) {
	if m.requestAppointmentFn != nil {
		return m.requestAppointmentFn(ctx, patientID, req)
	}
	return nil, nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var result middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
