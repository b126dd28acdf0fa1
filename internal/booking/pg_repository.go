package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var location *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&location,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Location = location
	return &d, nil
}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

const appointmentColumns = `id, patient_id, doctor_id, time_slot_id, date, start_time, end_time,
		status, patient_confirmed, doctor_confirmed, payment_status,
		specialty_name, doctor_name, patient_name, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.TimeSlotID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.PatientConfirmed,
		&a.DoctorConfirmed,
		&a.PaymentStatus,
		&a.SpecialtyName,
		&a.DoctorName,
		&a.PatientName,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, location, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, date, start_time, end_time, is_booked, created_at, updated_at
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, date, start_time, end_time, is_booked, created_at, updated_at
		FROM time_slots
		WHERE doctor_id = $1 AND date = $2 AND is_booked = false
		ORDER BY start_time ASC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateSlots(ctx context.Context, slots []TimeSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range slots {
		_, err := tx.Exec(ctx, `
			INSERT INTO time_slots (id, doctor_id, date, start_time, end_time, is_booked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, false, now(), now())
		`, s.ID, s.DoctorID, s.Date, s.StartTime, s.EndTime)
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ReserveSlot is a conditional update on is_booked. An existing but
// already booked slot yields ErrSlotAlreadyBooked; the check and the
// flip happen in one statement, so two bookers cannot both win.
func (r *PgRepository) ReserveSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_slots
		SET is_booked = true,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = false
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetSlotByID(ctx, id); err != nil {
			return err
		}
		return ErrSlotAlreadyBooked
	}
	return nil
}

func (r *PgRepository) ReleaseSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_slots
		SET is_booked = false,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, time_slot_id, date, start_time, end_time,
			status, patient_confirmed, doctor_confirmed, payment_status,
			specialty_name, doctor_name, patient_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.TimeSlotID, appt.Date, appt.StartTime, appt.EndTime,
		appt.Status, appt.PatientConfirmed, appt.DoctorConfirmed, appt.PaymentStatus,
		appt.SpecialtyName, appt.DoctorName, appt.PatientName)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByParticipant(ctx context.Context, userID uuid.UUID, role Role) ([]Appointment, error) {
	column := "patient_id"
	if role == RoleDoctor {
		column = "doctor_id"
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// SetConfirmed sets one confirmation flag and promotes the status in a
// single statement, so racing patient and doctor confirmations both
// land.
func (r *PgRepository) SetConfirmed(ctx context.Context, id uuid.UUID, role Role) (*Appointment, error) {
	flag, other := "patient_confirmed", "doctor_confirmed"
	if role == RoleDoctor {
		flag, other = other, flag
	}

	// The CASE reads the other flag's pre-update value, which is exactly
	// the mutual-confirmation condition once this flag is set.
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET `+flag+` = true,
		    status = CASE
		        WHEN status = 'pending' AND `+other+` THEN 'confirmed'
		        ELSE status
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET payment_status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND payment_status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) FindUnconfirmedBefore(ctx context.Context, cutoff string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending'
		  AND date || ' ' || start_time < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	var appID *uuid.UUID
	if ev.AppointmentID != nil {
		appID = ev.AppointmentID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, appID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
