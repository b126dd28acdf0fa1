package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func bookPaid(t *testing.T, f *fixture) *Appointment {
	t.Helper()
	ctx := context.Background()

	appt := bookConfirmed(t, f)
	paid, err := f.svc.Charge(ctx, appt.ID)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	return paid
}

func TestEvaluateArrival_OnTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookPaid(t, f)

	for _, minutes := range []int{0, 1, 15} {
		for _, role := range []Role{RolePatient, RoleDoctor} {
			result, err := f.svc.EvaluateArrival(ctx, appt.ID, role, minutes)
			if err != nil {
				t.Fatalf("evaluate arrival (%s, %d): %v", role, minutes, err)
			}
			if result.Decision != DecisionOnTime {
				t.Fatalf("expected on_time for %d minutes, got %s", minutes, result.Decision)
			}
		}
	}

	got, err := f.svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentStatus != PaymentPaid {
		t.Fatalf("on-time arrival must not touch payment status, got %s", got.PaymentStatus)
	}
}

func TestEvaluateArrival_PatientLatePenalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookPaid(t, f)

	result, err := f.svc.EvaluateArrival(ctx, appt.ID, RolePatient, 20)
	if err != nil {
		t.Fatalf("evaluate arrival: %v", err)
	}
	if result.Decision != DecisionPenalty {
		t.Fatalf("expected penalty decision, got %s", result.Decision)
	}
	if !strings.Contains(result.Message, "$25") {
		t.Fatalf("expected penalty fee in message, got %q", result.Message)
	}

	// The penalty is a notification, not a payment mutation.
	got, err := f.svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentStatus != PaymentPaid {
		t.Fatalf("patient penalty must not mutate payment status, got %s", got.PaymentStatus)
	}

	var penaltyEvents int
	for _, ev := range f.repo.Events() {
		if ev.EventType == EventPenaltyApplied {
			penaltyEvents++
		}
	}
	if penaltyEvents != 1 {
		t.Fatalf("expected 1 penalty event, got %d", penaltyEvents)
	}
}

func TestEvaluateArrival_DoctorLateAutoRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookPaid(t, f)

	result, err := f.svc.EvaluateArrival(ctx, appt.ID, RoleDoctor, 20)
	if err != nil {
		t.Fatalf("evaluate arrival: %v", err)
	}
	if result.Decision != DecisionAutoRefund {
		t.Fatalf("expected auto_refund decision, got %s", result.Decision)
	}

	got, err := f.svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentStatus != PaymentRefunded {
		t.Fatalf("expected refunded after late doctor, got %s", got.PaymentStatus)
	}
}

func TestEvaluateArrival_RefundFailurePropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookPaid(t, f)

	f.svc.gateway = failingGateway{}
	if _, err := f.svc.EvaluateArrival(ctx, appt.ID, RoleDoctor, 20); !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected refund failure to propagate, got %v", err)
	}

	got, err := f.svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentStatus != PaymentPaid {
		t.Fatalf("expected payment status unchanged on failed refund, got %s", got.PaymentStatus)
	}
}

func TestEvaluateArrival_DoctorLateUnpaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := bookConfirmed(t, f)

	// Nothing captured yet, so the auto refund has nothing to return.
	if _, err := f.svc.EvaluateArrival(ctx, appt.ID, RoleDoctor, 20); !errors.Is(err, ErrPaymentNotCaptured) {
		t.Fatalf("expected ErrPaymentNotCaptured, got %v", err)
	}
}

func TestEvaluateArrival_NegativeMinutes(t *testing.T) {
	f := newFixture(t)

	appt := bookPaid(t, f)

	if _, err := f.svc.EvaluateArrival(context.Background(), appt.ID, RolePatient, -1); !errors.Is(err, ErrNegativeLateness) {
		t.Fatalf("expected ErrNegativeLateness, got %v", err)
	}
}

func TestEvaluateArrival_UnknownAppointment(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.EvaluateArrival(context.Background(), uuid.New(), RolePatient, 20); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}
