package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/appointment-booking/internal/config"
	redisclient "github.com/medibook/appointment-booking/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventPaymentCaptured      = "PAYMENT_CAPTURED"
	EventPaymentRefunded      = "PAYMENT_REFUNDED"
	EventPenaltyApplied       = "PENALTY_APPLIED"
)

var (
	ErrSlotBeingBooked    = errors.New("slot is currently being booked, please retry")
	ErrMissingField       = errors.New("missing required booking field")
	ErrInvalidRole        = errors.New("role must be patient or doctor")
	ErrAlreadyCancelled   = errors.New("appointment is cancelled")
	ErrSlotDoctorMismatch = errors.New("slot does not belong to the requested doctor")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	gateway PaymentGateway
	cfg     config.Config
}

func NewService(repo Repository, locker redisclient.Locker, gateway PaymentGateway, cfg config.Config) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		gateway: gateway,
		cfg:     cfg,
	}
}

// ListAvailableSlots returns the doctor's unbooked slots for a date,
// ordered by start time.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]TimeSlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	slots, err := s.repo.ListAvailableSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// Book reserves the slot and creates a pending appointment for it.
// A per-slot distributed lock serializes concurrent bookers; inside the
// critical section the reservation itself is a compare-and-set, so even
// a lost lock cannot produce a double booking. If appointment creation
// fails after the slot was reserved, the reservation is rolled back.
func (s *Service) Book(ctx context.Context, draft Draft) (*Appointment, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, draft.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	doctor, err := s.repo.GetDoctorByID(ctx, draft.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	slot, err := s.repo.GetSlotByID(ctx, draft.TimeSlotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot.DoctorID != doctor.ID {
		return nil, ErrSlotDoctorMismatch
	}
	if slot.IsBooked {
		return nil, ErrSlotAlreadyBooked
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, slot.ID, func(lockCtx context.Context) error {
		if err := s.repo.ReserveSlot(lockCtx, slot.ID); err != nil {
			return fmt.Errorf("reserve slot: %w", err)
		}

		now := time.Now()
		appt := &Appointment{
			ID:            uuid.New(),
			PatientID:     patient.ID,
			DoctorID:      doctor.ID,
			TimeSlotID:    slot.ID,
			Date:          slot.Date,
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			Status:        StatusPending,
			PaymentStatus: PaymentPending,
			SpecialtyName: doctor.Specialty,
			DoctorName:    doctor.Name,
			PatientName:   patient.Name,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			if relErr := s.repo.ReleaseSlot(lockCtx, slot.ID); relErr != nil {
				log.Printf("failed to release slot %s after create error: %v", slot.ID, relErr)
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"slot_id":    slot.ID.String(),
			"patient_id": patient.ID.String(),
			"doctor_id":  doctor.ID.String(),
			"date":       slot.Date,
			"start_time": slot.StartTime,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Confirm records one participant's confirmation. Once both sides have
// confirmed, the appointment status flips to confirmed. Confirming the
// same role twice is a no-op.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, role Role) (*Appointment, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	alreadySet := (role == RolePatient && appt.PatientConfirmed) ||
		(role == RoleDoctor && appt.DoctorConfirmed)

	updated, err := s.repo.SetConfirmed(ctx, id, role)
	if err != nil {
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}

	if !alreadySet && updated.Status == StatusConfirmed {
		s.logEvent(ctx, updated.ID, EventAppointmentConfirmed, map[string]any{
			"patient_confirmed": updated.PatientConfirmed,
			"doctor_confirmed":  updated.DoctorConfirmed,
		})
	}

	return updated, nil
}

// GetAppointment retrieves one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListAppointments returns all appointments in which the user takes
// part with the given role, in insertion order.
func (s *Service) ListAppointments(ctx context.Context, userID uuid.UUID, role Role) ([]Appointment, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	appts, err := s.repo.ListAppointmentsByParticipant(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// CancelUnconfirmed cancels pending appointments that start within the
// confirmation cutoff window and still lack mutual confirmation. The
// slot is released so another patient can book it, and a captured
// payment is refunded. Intended to be called periodically by the
// cancel worker.
func (s *Service) CancelUnconfirmed(ctx context.Context, now time.Time) error {
	cutoff := now.Add(s.cfg.ConfirmCutoff).Format("2006-01-02 15:04")

	candidates, err := s.repo.FindUnconfirmedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find unconfirmed appointments: %w", err)
	}

	for _, appt := range candidates {
		if _, err := s.repo.UpdateStatus(ctx, appt.ID, StatusPending, StatusCancelled); err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				log.Printf("failed to cancel appointment %s: %v", appt.ID, err)
			}
			continue
		}

		if err := s.repo.ReleaseSlot(ctx, appt.TimeSlotID); err != nil {
			log.Printf("failed to release slot %s for cancelled appointment %s: %v",
				appt.TimeSlotID, appt.ID, err)
		}

		if appt.PaymentStatus == PaymentPaid {
			if err := s.Refund(ctx, appt.ID); err != nil {
				log.Printf("failed to refund cancelled appointment %s: %v", appt.ID, err)
			}
		}

		s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
			"reason": "unconfirmed_within_cutoff",
			"cutoff": cutoff,
		})
	}

	return nil
}

func validateDraft(d Draft) error {
	switch {
	case d.PatientID == uuid.Nil:
		return fmt.Errorf("%w: patient_id", ErrMissingField)
	case d.DoctorID == uuid.Nil:
		return fmt.Errorf("%w: doctor_id", ErrMissingField)
	case d.TimeSlotID == uuid.Nil:
		return fmt.Errorf("%w: time_slot_id", ErrMissingField)
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
