package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/cloudhms/internal/metrics"
	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/role"
)

// --- モック定義 ---

type mockRoleReader struct {
	assignedFn    func(ctx context.Context, id string) (role.Resolution, error)
	consistencyFn func(ctx context.Context, id string) (role.Consistency, error)
	checked       int
}

func (m *mockRoleReader) ResolveAssignedRole(ctx context.Context, id string) (role.Resolution, error) {
	if m.assignedFn != nil {
		return m.assignedFn(ctx, id)
	}
	return role.Resolution{}, nil
}

func (m *mockRoleReader) CheckConsistency(ctx context.Context, id string) (role.Consistency, error) {
	m.checked++
	if m.consistencyFn != nil {
		return m.consistencyFn(ctx, id)
	}
	return role.Consistency{}, nil
}

type viewMetrics struct {
	metrics.Nop
	views []string
}

func (v *viewMetrics) RecordViewSelected(view string) { v.views = append(v.views, view) }

var _ RoleReader = (*mockRoleReader)(nil)
var _ RoleReader = (*role.Resolver)(nil)

func assigned(r model.Role) *mockRoleReader {
	return &mockRoleReader{
		assignedFn: func(_ context.Context, _ string) (role.Resolution, error) {
			return role.Resolution{Found: true, Role: r}, nil
		},
	}
}

// --- テスト ---

func TestForIdentity_UsesAssignedRole(t *testing.T) {
	tests := []struct {
		role model.Role
		want View
	}{
		{model.RoleAdmin, AdminView},
		{model.RoleDoctor, DoctorView},
		{model.RoleNurse, StaffView},
		{model.RolePatient, PatientView},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			mc := &viewMetrics{}
			reader := assigned(tt.role)
			svc := NewService(reader, mc)

			d, err := svc.ForIdentity(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.View != tt.want {
				t.Errorf("view = %q, want %q", d.View, tt.want)
			}
			if d.Role != tt.role {
				t.Errorf("role = %q, want %q", d.Role, tt.role)
			}
			if reader.checked != 1 {
				t.Errorf("consistency checks = %d, want 1", reader.checked)
			}
			if len(mc.views) != 1 || mc.views[0] != string(tt.want) {
				t.Errorf("view metrics = %v", mc.views)
			}
		})
	}
}

func TestForIdentity_MissingAssignmentFallsBackToPatient(t *testing.T) {
	svc := NewService(&mockRoleReader{}, nil)

	d, err := svc.ForIdentity(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.View != PatientView {
		t.Errorf("view = %q, want patient", d.View)
	}
	if d.Role != model.RoleNone {
		t.Errorf("role = %q, want none", d.Role)
	}
}

func TestForIdentity_ReadErrorFallsBackToPatient(t *testing.T) {
	svc := NewService(&mockRoleReader{
		assignedFn: func(_ context.Context, _ string) (role.Resolution, error) {
			return role.Resolution{}, errors.New("relation \"user_roles\" does not exist")
		},
		consistencyFn: func(_ context.Context, _ string) (role.Consistency, error) {
			return role.Consistency{}, errors.New("relation \"user_roles\" does not exist")
		},
	}, nil)

	d, err := svc.ForIdentity(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("read errors must not surface: %v", err)
	}
	if d.View != PatientView {
		t.Errorf("view = %q, want patient", d.View)
	}
	if len(d.QuickActions) == 0 {
		t.Error("fallback layout must carry quick actions")
	}
}
