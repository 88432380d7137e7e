package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/cloudhms/internal/model"
	"github.com/hitoshi/cloudhms/internal/record"
)

// RecordServiceInterface は患者記録ハンドラーが必要とするサービスインターフェース。
type RecordServiceInterface interface {
	ListAppointments(ctx context.Context, patientID string) ([]model.Appointment, error)
	ListMedicalRecords(ctx context.Context, patientID string) ([]model.MedicalRecord, error)
	ListLabResults(ctx context.Context, patientID string) ([]model.MedicalRecord, error)
	RequestAppointment(ctx context.Context, patientID string, req record.AppointmentRequest) (*model.Appointment, error)
}

// RecordHandler は予約・診療記録・検査結果のHTTPハンドラー。
type RecordHandler struct {
	service RecordServiceInterface
}

// NewRecordHandler はRecordHandlerを生成する。
func NewRecordHandler(service RecordServiceInterface) *RecordHandler {
	return &RecordHandler{service: service}
}

type appointmentResponse struct {
	ID              string    `json:"id"`
	Department      string    `json:"department"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time,omitempty"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type medicalRecordResponse struct {
	ID             string          `json:"id"`
	VisitDate      string          `json:"visit_date"`
	ChiefComplaint string          `json:"chief_complaint,omitempty"`
	Diagnosis      string          `json:"diagnosis,omitempty"`
	Prescription   string          `json:"prescription,omitempty"`
	LabTests       string          `json:"lab_tests,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Vitals         json.RawMessage `json:"vitals,omitempty"`
}

type appointmentRequest struct {
	Department string `json:"department"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Reason     string `json:"reason"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		Department:      a.Department,
		AppointmentDate: a.AppointmentDate.Format(time.DateOnly),
		AppointmentTime: a.AppointmentTime,
		Status:          a.Status,
		Reason:          a.Reason,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
	}
}

func toMedicalRecordResponses(records []model.MedicalRecord) []medicalRecordResponse {
	resp := make([]medicalRecordResponse, 0, len(records))
	for _, rec := range records {
		item := medicalRecordResponse{
			ID:             rec.ID,
			VisitDate:      rec.VisitDate.Format(time.DateOnly),
			ChiefComplaint: rec.ChiefComplaint,
			Diagnosis:      rec.Diagnosis,
			Prescription:   rec.Prescription,
			LabTests:       rec.LabTests,
			Notes:          rec.Notes,
		}
		if len(rec.Vitals) > 0 {
			item.Vitals = json.RawMessage(rec.Vitals)
		}
		resp = append(resp, item)
	}
	return resp
}

// ListAppointments は本人の予約一覧を返す。
// GET /api/appointments
func (h *RecordHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListAppointments(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]appointmentResponse, 0, len(items))
	for _, a := range items {
		resp = append(resp, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequestAppointment は予約を申し込む。
// POST /api/appointments
func (h *RecordHandler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("malformed JSON body"))
		return
	}

	a, err := h.service.RequestAppointment(r.Context(), userID, record.AppointmentRequest{
		Department: req.Department,
		Date:       req.Date,
		Time:       req.Time,
		Reason:     req.Reason,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(*a))
}

// ListMedicalRecords は本人の診療記録を返す。
// GET /api/medical-records
func (h *RecordHandler) ListMedicalRecords(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListMedicalRecords(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMedicalRecordResponses(records))
}

// ListLabResults は本人の検査結果を返す。
// GET /api/laboratory
func (h *RecordHandler) ListLabResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListLabResults(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMedicalRecordResponses(records))
}
