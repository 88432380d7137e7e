// Package dashboard はロールに応じたダッシュボード画面の選択を提供する。
package dashboard

import "github.com/hitoshi/cloudhms/internal/model"

// View はダッシュボードの画面種別を表す。
type View string

const (
	AdminView   View = "admin"
	DoctorView  View = "doctor"
	StaffView   View = "staff"
	PatientView View = "patient"
)

// SelectView はロールから画面を選択する。
// 未承認・未設定・未知のロールは患者画面にフォールバックする。
func SelectView(r model.Role) View {
	switch r {
	case model.RoleAdmin:
		return AdminView
	case model.RoleDoctor:
		return DoctorView
	case model.RoleNurse:
		return StaffView
	case model.RolePatient, model.RolePending, model.RoleNone:
		return PatientView
	default:
		return PatientView
	}
}

// QuickAction はダッシュボード上のショートカット。
type QuickAction struct {
	Label string `json:"label"`
	Route string `json:"route"`
}

// Layout は画面ごとの表示内容。
type Layout struct {
	View         View          `json:"view"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	QuickActions []QuickAction `json:"quick_actions"`
}

var layouts = map[View]Layout{
	PatientView: {
		View:        PatientView,
		Title:       "Patient Dashboard",
		Description: "Manage your appointments, records and bills.",
		QuickActions: []QuickAction{
			{Label: "Book Appointment", Route: "/book-appointment"},
			{Label: "View Medical Records", Route: "/medical-records"},
			{Label: "Pay Bills", Route: "/billing"},
			{Label: "My Appointments", Route: "/appointments"},
			{Label: "Chemistry & Lab Results", Route: "/laboratory"},
		},
	},
	DoctorView: {
		View:        DoctorView,
		Title:       "Doctor Dashboard",
		Description: "Review today's schedule and your patients.",
		QuickActions: []QuickAction{
			{Label: "Today's Appointments", Route: "/appointments/today"},
			{Label: "My Patients", Route: "/patients"},
			{Label: "Add Medical Record", Route: "/medical-records/new"},
			{Label: "Schedule", Route: "/schedule"},
		},
	},
	StaffView: {
		View:        StaffView,
		Title:       "Staff Dashboard",
		Description: "Coordinate appointments, registrations and invoices.",
		QuickActions: []QuickAction{
			{Label: "Manage Appointments", Route: "/appointments"},
			{Label: "Patient Registration", Route: "/patients/new"},
			{Label: "Create Invoice", Route: "/billing/new"},
			{Label: "View Records", Route: "/medical-records"},
		},
	},
	AdminView: {
		View:        AdminView,
		Title:       "Admin Dashboard",
		Description: "Oversee doctors, patients, appointments and billing.",
		QuickActions: []QuickAction{
			{Label: "Add Doctor", Route: "/doctors/new"},
			{Label: "Manage Patients", Route: "/patients"},
			{Label: "All Appointments", Route: "/appointments"},
			{Label: "Billing", Route: "/billing"},
		},
	},
}

// LayoutFor は画面の表示内容を返す。返り値は呼び出し側で変更してよい。
func LayoutFor(v View) Layout {
	l, ok := layouts[v]
	if !ok {
		l = layouts[PatientView]
	}
	actions := make([]QuickAction, len(l.QuickActions))
	copy(actions, l.QuickActions)
	l.QuickActions = actions
	return l
}
