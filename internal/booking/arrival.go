package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNegativeLateness = errors.New("minutes late must be non-negative")

type ArrivalDecision string

const (
	DecisionOnTime     ArrivalDecision = "on_time"
	DecisionPenalty    ArrivalDecision = "penalty"
	DecisionAutoRefund ArrivalDecision = "auto_refund"
)

// ArrivalResult carries the policy decision plus the user-facing
// notification text for it.
type ArrivalResult struct {
	Decision ArrivalDecision
	Message  string
}

// EvaluateArrival applies the late-arrival policy to a recorded
// lateness measurement. A patient more than the threshold late incurs
// the fixed penalty fee; a doctor more than the threshold late triggers
// an automatic refund of the appointment fee. A refund failure is
// returned to the caller so the decision and its effect never diverge
// silently.
func (s *Service) EvaluateArrival(ctx context.Context, id uuid.UUID, role Role, minutesLate int) (*ArrivalResult, error) {
	if minutesLate < 0 {
		return nil, ErrNegativeLateness
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if _, err := s.repo.GetAppointmentByID(ctx, id); err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if minutesLate <= s.cfg.LateThresholdMinutes {
		return &ArrivalResult{
			Decision: DecisionOnTime,
			Message:  "Arrival recorded on time.",
		}, nil
	}

	if role == RolePatient {
		s.logEvent(ctx, id, EventPenaltyApplied, map[string]any{
			"minutes_late": minutesLate,
			"penalty_fee":  s.cfg.PenaltyFee,
		})
		return &ArrivalResult{
			Decision: DecisionPenalty,
			Message: fmt.Sprintf(
				"A $%d penalty fee has been charged because you arrived more than %d minutes late.",
				s.cfg.PenaltyFee, s.cfg.LateThresholdMinutes),
		}, nil
	}

	if err := s.Refund(ctx, id); err != nil {
		return nil, fmt.Errorf("auto refund: %w", err)
	}

	return &ArrivalResult{
		Decision: DecisionAutoRefund,
		Message: fmt.Sprintf(
			"The appointment fee has been refunded because the doctor arrived more than %d minutes late.",
			s.cfg.LateThresholdMinutes),
	}, nil
}
