package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotAlreadyBooked is returned by ReserveSlot when the slot's
	// IsBooked flag is already set. Reservation is a strict
	// compare-and-set, so two bookings can never share a slot.
	ErrSlotAlreadyBooked = errors.New("slot is already booked")
)

// Repository contains all store interactions needed by the service.
// Write methods mutate one record atomically so that racing patient and
// doctor calls for the same appointment cannot lose updates.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]TimeSlot, error)
	CreateSlots(ctx context.Context, slots []TimeSlot) error

	// ReserveSlot flips IsBooked false -> true; ErrSlotAlreadyBooked if set.
	ReserveSlot(ctx context.Context, id uuid.UUID) error
	// ReleaseSlot flips IsBooked back to false (booking rollback, cancellation).
	ReleaseSlot(ctx context.Context, id uuid.UUID) error

	CreateAppointment(ctx context.Context, appt *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByParticipant(ctx context.Context, userID uuid.UUID, role Role) ([]Appointment, error)

	// SetConfirmed sets the role's confirmation flag and promotes status
	// to confirmed when both flags hold, in one atomic update.
	SetConfirmed(ctx context.Context, id uuid.UUID, role Role) (*Appointment, error)

	// UpdatePaymentStatus is a compare-and-set on PaymentStatus.
	// ErrAppointmentNotFound when the id is unknown or the current
	// status does not match from.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) (*Appointment, error)

	// UpdateStatus is a compare-and-set on Status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// FindUnconfirmedBefore returns pending appointments whose start time
	// falls before the cutoff. Used by the cancel worker.
	FindUnconfirmedBefore(ctx context.Context, cutoff string) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
