package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// failingGateway rejects every call, simulating a processor outage.
type failingGateway struct{}

func (failingGateway) Capture(context.Context, uuid.UUID, int) error { return ErrPaymentFailed }
func (failingGateway) Refund(context.Context, uuid.UUID, int) error  { return ErrPaymentFailed }

func bookConfirmed(t *testing.T, f *fixture) *Appointment {
	t.Helper()
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.draft())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, appt.ID, RolePatient); err != nil {
		t.Fatalf("patient confirm: %v", err)
	}
	appt, err = f.svc.Confirm(ctx, appt.ID, RoleDoctor)
	if err != nil {
		t.Fatalf("doctor confirm: %v", err)
	}
	return appt
}

func TestCharge_CapturesPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookConfirmed(t, f)
	if appt.Status != StatusConfirmed {
		t.Fatalf("precondition: expected confirmed, got %s", appt.Status)
	}

	paid, err := f.svc.Charge(ctx, appt.ID)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if paid.PaymentStatus != PaymentPaid {
		t.Fatalf("expected payment status paid, got %s", paid.PaymentStatus)
	}
}

func TestCharge_UnknownAppointment(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Charge(context.Background(), uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestCharge_GatewayFailureLeavesStatusUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookConfirmed(t, f)

	f.svc.gateway = failingGateway{}
	if _, err := f.svc.Charge(ctx, appt.ID); !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}

	got, err := f.svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentStatus != PaymentPending {
		t.Fatalf("expected payment status unchanged on failure, got %s", got.PaymentStatus)
	}

	// Retry with a working gateway succeeds.
	f.svc.gateway = &SimulatedGateway{}
	paid, err := f.svc.Charge(ctx, appt.ID)
	if err != nil {
		t.Fatalf("retry charge: %v", err)
	}
	if paid.PaymentStatus != PaymentPaid {
		t.Fatalf("expected paid after retry, got %s", paid.PaymentStatus)
	}
}

func TestCharge_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookConfirmed(t, f)
	if _, err := f.svc.Charge(ctx, appt.ID); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if _, err := f.svc.Charge(ctx, appt.ID); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid on second charge, got %v", err)
	}
}

func TestRefund_RequiresCapturedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookConfirmed(t, f)

	if err := f.svc.Refund(ctx, appt.ID); !errors.Is(err, ErrPaymentNotCaptured) {
		t.Fatalf("expected ErrPaymentNotCaptured before charge, got %v", err)
	}

	if _, err := f.svc.Charge(ctx, appt.ID); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if err := f.svc.Refund(ctx, appt.ID); err != nil {
		t.Fatalf("refund: %v", err)
	}

	got, err := f.svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentStatus != PaymentRefunded {
		t.Fatalf("expected refunded, got %s", got.PaymentStatus)
	}

	// A second refund is a no-op.
	if err := f.svc.Refund(ctx, appt.ID); err != nil {
		t.Fatalf("second refund: %v", err)
	}
}

func TestRefund_UnknownAppointment(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.Refund(context.Background(), uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestRefund_GatewayFailureLeavesStatusUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookConfirmed(t, f)
	if _, err := f.svc.Charge(ctx, appt.ID); err != nil {
		t.Fatalf("charge: %v", err)
	}

	f.svc.gateway = failingGateway{}
	if err := f.svc.Refund(ctx, appt.ID); !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}

	got, err := f.svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentStatus != PaymentPaid {
		t.Fatalf("expected payment status unchanged on refund failure, got %s", got.PaymentStatus)
	}
}

func TestCharge_ConcurrentDistinctAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var appts []*Appointment
	for i := 0; i < 4; i++ {
		slot := TimeSlot{
			ID:        uuid.New(),
			DoctorID:  f.doctor.ID,
			Date:      f.slot.Date,
			StartTime: fmt.Sprintf("%02d:00", 8+i),
			EndTime:   fmt.Sprintf("%02d:00", 9+i),
		}
		if err := f.repo.CreateSlots(ctx, []TimeSlot{slot}); err != nil {
			t.Fatalf("create slot: %v", err)
		}
		d := f.draft()
		d.TimeSlotID = slot.ID
		appt, err := f.svc.Book(ctx, d)
		if err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
		appts = append(appts, appt)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(appts))
	for _, appt := range appts {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := f.svc.Charge(ctx, id); err != nil {
				errCh <- err
			}
		}(appt.ID)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("concurrent charge: %v", err)
	}

	for _, appt := range appts {
		got, err := f.svc.GetAppointment(ctx, appt.ID)
		if err != nil {
			t.Fatalf("get appointment: %v", err)
		}
		if got.PaymentStatus != PaymentPaid {
			t.Fatalf("expected paid, got %s", got.PaymentStatus)
		}
	}
}
