package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a process-local Repository used by tests and the
// simulator's dry-run mode. A single mutex covers every collection, so
// each method body is one atomic step; that is enough to keep racing
// patient/doctor confirmations from losing updates.
type MemoryRepository struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	slots        map[uuid.UUID]*TimeSlot
	appointments map[uuid.UUID]*Appointment
	order        []uuid.UUID // appointment insertion order
	events       []EventLog
	nextEventID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		slots:        make(map[uuid.UUID]*TimeSlot),
		appointments: make(map[uuid.UUID]*Appointment),
		nextEventID:  1,
	}
}

// AddPatient and AddDoctor register directory records. The directory
// itself is owned by the external identity provider; the repository
// only holds the ids and display names the booking path reads.

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := p
	r.patients[p.ID] = &cp
}

func (r *MemoryRepository) AddDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := d
	r.doctors[d.ID] = &cp
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *MemoryRepository) GetSlotByID(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListAvailableSlots(_ context.Context, doctorID uuid.UUID, date string) ([]TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []TimeSlot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Date == date && !s.IsBooked {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *MemoryRepository) CreateSlots(_ context.Context, slots []TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range slots {
		cp := slots[i]
		r.slots[cp.ID] = &cp
	}
	return nil
}

func (r *MemoryRepository) ReserveSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.IsBooked {
		return ErrSlotAlreadyBooked
	}
	s.IsBooked = true
	s.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ReleaseSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	s.IsBooked = false
	s.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *appt
	r.appointments[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	return nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) ListAppointmentsByParticipant(_ context.Context, userID uuid.UUID, role Role) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, id := range r.order {
		a := r.appointments[id]
		if (role == RolePatient && a.PatientID == userID) ||
			(role == RoleDoctor && a.DoctorID == userID) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) SetConfirmed(_ context.Context, id uuid.UUID, role Role) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	if role == RolePatient {
		a.PatientConfirmed = true
	} else {
		a.DoctorConfirmed = true
	}
	if a.PatientConfirmed && a.DoctorConfirmed && a.Status == StatusPending {
		a.Status = StatusConfirmed
	}
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) UpdatePaymentStatus(_ context.Context, id uuid.UUID, from, to PaymentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.PaymentStatus != from {
		return nil, ErrAppointmentNotFound
	}
	a.PaymentStatus = to
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) FindUnconfirmedBefore(_ context.Context, cutoff string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, id := range r.order {
		a := r.appointments[id]
		if a.Status != StatusPending {
			continue
		}
		if a.Date+" "+a.StartTime < cutoff {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = r.nextEventID
	r.nextEventID++
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
