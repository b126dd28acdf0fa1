package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clinic hours used when generating a slot window: hourly slots in the
// morning and afternoon blocks, matching the booking calendar.
var clinicHours = []struct{ from, to int }{
	{9, 12},
	{13, 17},
}

// GenerateSlotWindow builds hourly slots for one doctor covering days
// 1..days ahead of start. Generation is a setup operation; it is never
// part of the request path.
func GenerateSlotWindow(doctorID uuid.UUID, start time.Time, days int) []TimeSlot {
	var slots []TimeSlot
	now := time.Now()

	for d := 1; d <= days; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")

		for _, block := range clinicHours {
			for hour := block.from; hour < block.to; hour++ {
				slots = append(slots, TimeSlot{
					ID:        uuid.New(),
					DoctorID:  doctorID,
					Date:      date,
					StartTime: fmt.Sprintf("%02d:00", hour),
					EndTime:   fmt.Sprintf("%02d:00", hour+1),
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
		}
	}

	return slots
}

// SeedSlotWindow generates and stores a forward slot window for the
// doctor.
func (s *Service) SeedSlotWindow(ctx context.Context, doctorID uuid.UUID, start time.Time, days int) ([]TimeSlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	slots := GenerateSlotWindow(doctorID, start, days)
	if err := s.repo.CreateSlots(ctx, slots); err != nil {
		return nil, fmt.Errorf("create slots: %w", err)
	}
	return slots, nil
}
