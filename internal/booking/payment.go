package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPaymentFailed means the gateway call did not succeed. The
	// appointment's payment status is untouched and the caller should
	// offer a retry.
	ErrPaymentFailed = errors.New("payment gateway call failed")

	// ErrPaymentNotCaptured guards refunds: only a paid appointment can
	// be refunded.
	ErrPaymentNotCaptured = errors.New("payment has not been captured")

	// ErrAlreadyPaid is returned when charging an appointment whose
	// payment was already captured or refunded.
	ErrAlreadyPaid = errors.New("payment already captured")
)

// PaymentGateway stands in for the external payment processor. Both
// calls block for the processor round trip and honor ctx cancellation.
type PaymentGateway interface {
	Capture(ctx context.Context, appointmentID uuid.UUID, amount int) error
	Refund(ctx context.Context, appointmentID uuid.UUID, amount int) error
}

// SimulatedGateway approximates a processor with fixed latency and an
// optional failure rate. FailureRate 0 always succeeds, 1 always fails.
type SimulatedGateway struct {
	Latency     time.Duration
	FailureRate float64
}

func (g *SimulatedGateway) Capture(ctx context.Context, appointmentID uuid.UUID, amount int) error {
	return g.roundTrip(ctx)
}

func (g *SimulatedGateway) Refund(ctx context.Context, appointmentID uuid.UUID, amount int) error {
	return g.roundTrip(ctx)
}

func (g *SimulatedGateway) roundTrip(ctx context.Context) error {
	select {
	case <-time.After(g.Latency):
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPaymentFailed, ctx.Err())
	}
	if g.FailureRate > 0 && rand.Float64() < g.FailureRate {
		return ErrPaymentFailed
	}
	return nil
}

// Charge captures the appointment fee. The gateway call runs under the
// configured payment timeout; on success the payment status moves
// pending -> paid with a compare-and-set, so a concurrent charge for
// the same appointment captures at most once.
func (s *Service) Charge(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if appt.PaymentStatus != PaymentPending {
		return nil, ErrAlreadyPaid
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	if err := s.gateway.Capture(gwCtx, id, s.cfg.AppointmentFee); err != nil {
		if errors.Is(err, ErrPaymentFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	updated, err := s.repo.UpdatePaymentStatus(ctx, id, PaymentPending, PaymentPaid)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.logEvent(ctx, id, EventPaymentCaptured, map[string]any{
		"amount": s.cfg.AppointmentFee,
	})

	return updated, nil
}

// Refund returns the appointment fee to the patient. Requires the
// payment to have been captured; on success the status moves
// paid -> refunded.
func (s *Service) Refund(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	if appt.PaymentStatus != PaymentPaid {
		if appt.PaymentStatus == PaymentRefunded {
			// Refund already issued; nothing left to do.
			return nil
		}
		return ErrPaymentNotCaptured
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	if err := s.gateway.Refund(gwCtx, id, s.cfg.AppointmentFee); err != nil {
		if errors.Is(err, ErrPaymentFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if _, err := s.repo.UpdatePaymentStatus(ctx, id, PaymentPaid, PaymentRefunded); err != nil {
		return fmt.Errorf("record refund: %w", err)
	}

	s.logEvent(ctx, id, EventPaymentRefunded, map[string]any{
		"amount": s.cfg.AppointmentFee,
	})

	return nil
}
