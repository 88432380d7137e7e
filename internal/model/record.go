package model

import "time"

// AppointmentStatusRequested は予約フォームから送信された直後の予約状態。
const AppointmentStatusRequested = "requested"

// Departments は予約を受け付ける診療科の一覧。
var Departments = []string{
	"Children's Department",
	"Maternity",
	"Dental",
	"Optical",
	"Therapy",
	"X-Rays",
	"Counselling",
	"Laboratory",
	"Surgery",
}

// IsDepartment は指定名が受付対象の診療科かどうかを返す。
func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}

// Appointment は患者の予約を表す。
type Appointment struct {
	ID              string
	PatientID       string
	Department      string
	AppointmentDate time.Time
	AppointmentTime string
	Status          string
	Reason          string
	Notes           string
	CreatedAt       time.Time
}

// MedicalRecord は診療記録を表す。このサービスからは読み取り専用。
type MedicalRecord struct {
	ID             string
	PatientID      string
	VisitDate      time.Time
	ChiefComplaint string
	Diagnosis      string
	Prescription   string
	LabTests       string
	Notes          string
	Vitals         []byte // JSON
	CreatedAt      time.Time
}
