// Package record は患者本人の予約・診療記録・検査結果の参照と、予約申込を提供する。
package record

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/repository"
	"github.com/hitoshi/cloudhms/internal/security"
)

const dateLayout = "2006-01-02"

// AppointmentRequest は予約フォームの入力。
type AppointmentRequest struct {
	Department string
	Date       string // YYYY-MM-DD
	Time       string // 任意（例: 10:30）
	Reason     string
}

// Service は患者記録の参照と予約申込を行う。
// すべての操作は呼び出し元の利用者IDに限定される。
type Service struct {
	appointments repository.AppointmentRepository
	records      repository.MedicalRecordRepository
	sanitizer    security.TextSanitizer
	now          func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	appointments repository.AppointmentRepository,
	records repository.MedicalRecordRepository,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		appointments: appointments,
		records:      records,
		sanitizer:    sanitizer,
		now:          time.Now,
	}
}

// ListAppointments は利用者の予約を予約日の新しい順に返す。
func (s *Service) ListAppointments(ctx context.Context, patientID string) ([]model.Appointment, error) {
	items, err := s.appointments.ListByPatientID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

// ListMedicalRecords は利用者の診療記録を受診日の新しい順に返す。
func (s *Service) ListMedicalRecords(ctx context.Context, patientID string) ([]model.MedicalRecord, error) {
	items, err := s.records.ListByPatientID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	return items, nil
}

// ListLabResults は検査項目が記録された診療記録を受診日の新しい順に返す。
func (s *Service) ListLabResults(ctx context.Context, patientID string) ([]model.MedicalRecord, error) {
	items, err := s.records.ListLabResultsByPatientID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list lab results: %w", err)
	}
	return items, nil
}

// RequestAppointment は予約申込を検証し、requested状態の予約を作成する。
// 枠の空き状況や重複は確認しない。
func (s *Service) RequestAppointment(ctx context.Context, patientID string, req AppointmentRequest) (*model.Appointment, error) {
	if !model.IsDepartment(req.Department) {
		return nil, model.NewInvalidAppointmentRequestError("Please select a department")
	}

	now := s.now()
	date, err := time.ParseInLocation(dateLayout, req.Date, now.Location())
	if err != nil {
		return nil, model.NewInvalidAppointmentRequestError("Please choose a valid date")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return nil, model.NewInvalidAppointmentRequestError("Appointment date cannot be in the past")
	}

	reason := s.sanitizer.Sanitize(req.Reason)
	if reason == "" {
		return nil, model.NewInvalidAppointmentRequestError("Please describe the reason for your visit")
	}

	a := &model.Appointment{
		ID:              uuid.New().String(),
		PatientID:       patientID,
		Department:      req.Department,
		AppointmentDate: date,
		AppointmentTime: s.sanitizer.Sanitize(req.Time),
		Status:          model.AppointmentStatusRequested,
		Reason:          reason,
		CreatedAt:       now,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	slog.Info("appointment requested",
		slog.String("user_id", patientID),
		slog.String("appointment_id", a.ID),
		slog.String("department", a.Department),
	)
	return a, nil
}
