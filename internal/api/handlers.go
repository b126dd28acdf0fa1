package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/appointment-booking/internal/booking"
	redisclient "github.com/medibook/appointment-booking/internal/redis"
)

func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required (YYYY-MM-DD)")
			return
		}

		slots, err := svc.ListAvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func bookAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		slotID, err := uuid.Parse(req.TimeSlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_slot_id", "time_slot_id must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), booking.Draft{
			PatientID:  patientID,
			DoctorID:   doctorID,
			TimeSlotID: slotID,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
			return
		}

		role := booking.Role(r.URL.Query().Get("role"))
		if !role.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_role", "role must be patient or doctor")
			return
		}

		appts, err := svc.ListAppointments(r.Context(), userID, role)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Confirm(r.Context(), id, booking.Role(req.Role))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func payAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Charge(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func refundAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := svc.Refund(r.Context(), id); err != nil {
			handleBookingError(w, err)
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func arrivalHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ArrivalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		result, err := svc.EvaluateArrival(r.Context(), id, booking.Role(req.Role), req.MinutesLate)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ArrivalResponse{
			Decision: string(result.Decision),
			Message:  result.Message,
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrMissingField):
		writeError(w, http.StatusBadRequest, "missing_field", err.Error())
	case errors.Is(err, booking.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "invalid_role", err.Error())
	case errors.Is(err, booking.ErrNegativeLateness):
		writeError(w, http.StatusBadRequest, "invalid_minutes_late", err.Error())
	case errors.Is(err, booking.ErrSlotDoctorMismatch):
		writeError(w, http.StatusConflict, "slot_doctor_mismatch", err.Error())
	case errors.Is(err, booking.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "appointment_cancelled", err.Error())
	case errors.Is(err, booking.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "payment_already_captured", err.Error())
	case errors.Is(err, booking.ErrPaymentNotCaptured):
		writeError(w, http.StatusConflict, "payment_not_captured", err.Error())
	case errors.Is(err, booking.ErrPaymentFailed):
		writeError(w, http.StatusBadGateway, "payment_failed", "the payment could not be processed, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
