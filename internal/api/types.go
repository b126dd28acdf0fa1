package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medibook/appointment-booking/internal/booking"
)

type BookAppointmentRequest struct {
	PatientID  string `json:"patient_id"`
	DoctorID   string `json:"doctor_id"`
	TimeSlotID string `json:"time_slot_id"`
}

type ConfirmRequest struct {
	Role string `json:"role"` // patient or doctor
}

type ArrivalRequest struct {
	Role        string `json:"role"`
	MinutesLate int    `json:"minutes_late"`
}

type TimeSlotResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	PatientID        uuid.UUID `json:"patient_id"`
	DoctorID         uuid.UUID `json:"doctor_id"`
	TimeSlotID       uuid.UUID `json:"time_slot_id"`
	Date             string    `json:"date"`
	StartTime        string    `json:"start_time"`
	EndTime          string    `json:"end_time"`
	Status           string    `json:"status"`
	PatientConfirmed bool      `json:"patient_confirmed"`
	DoctorConfirmed  bool      `json:"doctor_confirmed"`
	PaymentStatus    string    `json:"payment_status"`
	SpecialtyName    string    `json:"specialty_name"`
	DoctorName       string    `json:"doctor_name"`
	PatientName      string    `json:"patient_name"`
	CreatedAt        time.Time `json:"created_at"`
}

type ArrivalResponse struct {
	Decision string `json:"decision"`
	Message  string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		PatientID:        a.PatientID,
		DoctorID:         a.DoctorID,
		TimeSlotID:       a.TimeSlotID,
		Date:             a.Date,
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		Status:           string(a.Status),
		PatientConfirmed: a.PatientConfirmed,
		DoctorConfirmed:  a.DoctorConfirmed,
		PaymentStatus:    string(a.PaymentStatus),
		SpecialtyName:    a.SpecialtyName,
		DoctorName:       a.DoctorName,
		PatientName:      a.PatientName,
		CreatedAt:        a.CreatedAt,
	}
}

func toSlotResponses(slots []booking.TimeSlot) []TimeSlotResponse {
	out := make([]TimeSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, TimeSlotResponse{
			ID:        s.ID,
			DoctorID:  s.DoctorID,
			Date:      s.Date,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}
	return out
}
