package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty string
	Location  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSlot is a bookable window for one doctor on one date. Slots are
// generated in bulk for a forward window and never deleted; IsBooked
// flips true exactly once when an appointment claims the slot.
type TimeSlot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM
	EndTime   string // HH:MM
	IsBooked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment carries the full lifecycle state: mutual confirmation,
// payment, and cancellation. Doctor, patient and specialty names are
// denormalized at booking time so display never needs a second lookup.
type Appointment struct {
	ID               uuid.UUID
	PatientID        uuid.UUID
	DoctorID         uuid.UUID
	TimeSlotID       uuid.UUID
	Date             string
	StartTime        string
	EndTime          string
	Status           AppointmentStatus
	PatientConfirmed bool
	DoctorConfirmed  bool
	PaymentStatus    PaymentStatus
	SpecialtyName    string
	DoctorName       string
	PatientName      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Draft is the caller-supplied input to Book.
type Draft struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	TimeSlotID uuid.UUID
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
