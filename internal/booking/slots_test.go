package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateSlotWindow(t *testing.T) {
	doctorID := uuid.New()
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	slots := GenerateSlotWindow(doctorID, start, 7)

	// 3 morning + 4 afternoon slots per day, 7 days.
	if len(slots) != 49 {
		t.Fatalf("expected 49 slots, got %d", len(slots))
	}

	for _, s := range slots {
		if s.DoctorID != doctorID {
			t.Fatalf("slot for wrong doctor: %+v", s)
		}
		if s.IsBooked {
			t.Fatalf("generated slot must start unbooked: %+v", s)
		}
		if s.Date <= "2026-09-01" || s.Date > "2026-09-08" {
			t.Fatalf("slot date outside forward window: %s", s.Date)
		}
	}

	first := slots[0]
	if first.Date != "2026-09-02" || first.StartTime != "09:00" || first.EndTime != "10:00" {
		t.Fatalf("unexpected first slot: %+v", first)
	}
	lunch := slots[3]
	if lunch.StartTime != "13:00" {
		t.Fatalf("expected afternoon block to start at 13:00, got %s", lunch.StartTime)
	}
}

func TestSeedSlotWindow_UnknownDoctor(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.SeedSlotWindow(context.Background(), uuid.New(), time.Now(), 7); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestSeedSlotWindow_StoresSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slots, err := f.svc.SeedSlotWindow(ctx, f.doctor.ID, time.Now(), 2)
	if err != nil {
		t.Fatalf("seed slot window: %v", err)
	}
	if len(slots) != 14 {
		t.Fatalf("expected 14 slots for a 2-day window, got %d", len(slots))
	}

	available, err := f.svc.ListAvailableSlots(ctx, f.doctor.ID, slots[0].Date)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(available) != 7 {
		t.Fatalf("expected 7 available slots on the first day, got %d", len(available))
	}
}

func TestReserveSlot_CompareAndSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.repo.ReserveSlot(ctx, f.slot.ID); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if err := f.repo.ReserveSlot(ctx, f.slot.ID); !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Fatalf("expected ErrSlotAlreadyBooked on second reserve, got %v", err)
	}
	if err := f.repo.ReserveSlot(ctx, uuid.New()); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}

	if err := f.repo.ReleaseSlot(ctx, f.slot.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := f.repo.ReserveSlot(ctx, f.slot.ID); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
}
