package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cloudhms/internal/model"
)

// PostgresAppointmentRepo はPostgreSQLを使用した予約リポジトリ。
type PostgresAppointmentRepo struct {
	db *sql.DB
}

// NewPostgresAppointmentRepo はPostgresAppointmentRepoを生成する。
func NewPostgresAppointmentRepo(db *sql.DB) *PostgresAppointmentRepo {
	return &PostgresAppointmentRepo{db: db}
}

// ListByPatientID は患者の予約を予約日の降順で返す。
func (r *PostgresAppointmentRepo) ListByPatientID(ctx context.Context, patientID string) ([]model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, patient_id, department, appointment_date, appointment_time,
		        status, reason, notes, created_at
		 FROM appointments
		 WHERE patient_id = $1
		 ORDER BY appointment_date DESC, created_at DESC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	appointments := []model.Appointment{}
	for rows.Next() {
		var a model.Appointment
		var department, apptTime, reason, notes sql.NullString
		if err := rows.Scan(
			&a.ID, &a.PatientID, &department, &a.AppointmentDate, &apptTime,
			&a.Status, &reason, &notes, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		a.Department = nullStringValue(department)
		a.AppointmentTime = nullStringValue(apptTime)
		a.Reason = nullStringValue(reason)
		a.Notes = nullStringValue(notes)
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return appointments, nil
}

// Create は予約を作成する。
func (r *PostgresAppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO appointments (id, patient_id, department, appointment_date, appointment_time,
		                           status, reason, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.PatientID, nullString(a.Department), a.AppointmentDate, nullString(a.AppointmentTime),
		a.Status, nullString(a.Reason), nullString(a.Notes), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

// PostgresMedicalRecordRepo はPostgreSQLを使用した診療記録リポジトリ。
type PostgresMedicalRecordRepo struct {
	db *sql.DB
}

// NewPostgresMedicalRecordRepo はPostgresMedicalRecordRepoを生成する。
func NewPostgresMedicalRecordRepo(db *sql.DB) *PostgresMedicalRecordRepo {
	return &PostgresMedicalRecordRepo{db: db}
}

const medicalRecordColumns = `id, patient_id, visit_date, chief_complaint, diagnosis,
		        prescription, lab_tests, notes, vitals, created_at`

// ListByPatientID は患者の診療記録を受診日の降順で返す。
func (r *PostgresMedicalRecordRepo) ListByPatientID(ctx context.Context, patientID string) ([]model.MedicalRecord, error) {
	return r.list(ctx,
		`SELECT `+medicalRecordColumns+`
		 FROM medical_records
		 WHERE patient_id = $1
		 ORDER BY visit_date DESC`,
		patientID,
	)
}

// ListLabResultsByPatientID はlab_testsが記録された診療記録を受診日の降順で返す。
func (r *PostgresMedicalRecordRepo) ListLabResultsByPatientID(ctx context.Context, patientID string) ([]model.MedicalRecord, error) {
	return r.list(ctx,
		`SELECT `+medicalRecordColumns+`
		 FROM medical_records
		 WHERE patient_id = $1 AND lab_tests IS NOT NULL
		 ORDER BY visit_date DESC`,
		patientID,
	)
}

func (r *PostgresMedicalRecordRepo) list(ctx context.Context, query string, args ...any) ([]model.MedicalRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	defer rows.Close()

	records := []model.MedicalRecord{}
	for rows.Next() {
		var m model.MedicalRecord
		var complaint, diagnosis, prescription, labTests, notes sql.NullString
		var vitals []byte
		if err := rows.Scan(
			&m.ID, &m.PatientID, &m.VisitDate, &complaint, &diagnosis,
			&prescription, &labTests, &notes, &vitals, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan medical record: %w", err)
		}
		m.ChiefComplaint = nullStringValue(complaint)
		m.Diagnosis = nullStringValue(diagnosis)
		m.Prescription = nullStringValue(prescription)
		m.LabTests = nullStringValue(labTests)
		m.Notes = nullStringValue(notes)
		m.Vitals = vitals
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medical records: %w", err)
	}

	return records, nil
}

// compile-time interface check
var (
	_ AppointmentRepository   = (*PostgresAppointmentRepo)(nil)
	_ MedicalRecordRepository = (*PostgresMedicalRecordRepo)(nil)
)
