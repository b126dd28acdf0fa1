package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/appointment-booking/internal/booking"
	"github.com/medibook/appointment-booking/internal/config"
	redisclient "github.com/medibook/appointment-booking/internal/redis"
)

type testServer struct {
	srv     *httptest.Server
	patient booking.Patient
	doctor  booking.Doctor
	slot    booking.TimeSlot
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := booking.NewMemoryRepository()

	patient := booking.Patient{ID: uuid.New(), Name: "Alex Thompson"}
	doctor := booking.Doctor{ID: uuid.New(), Name: "Dr. Jane Smith", Specialty: "Cardiology"}
	repo.AddPatient(patient)
	repo.AddDoctor(doctor)

	slot := booking.TimeSlot{
		ID:        uuid.New(),
		DoctorID:  doctor.ID,
		Date:      time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		StartTime: "10:00",
		EndTime:   "11:00",
	}
	if err := repo.CreateSlots(context.Background(), []booking.TimeSlot{slot}); err != nil {
		t.Fatalf("create slots: %v", err)
	}

	svc := booking.NewService(repo, redisclient.NoopLocker{}, &booking.SimulatedGateway{}, config.Defaults())

	// Health endpoints are not under test, so the pool and redis
	// client stay nil.
	router := NewRouter(RouterConfig{Service: svc, Env: "test", Version: "test"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, patient: patient, doctor: doctor, slot: slot}
}

func (ts *testServer) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(ts.srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func (ts *testServer) book(t *testing.T) AppointmentResponse {
	t.Helper()
	resp := ts.post(t, "/appointments", BookAppointmentRequest{
		PatientID:  ts.patient.ID.String(),
		DoctorID:   ts.doctor.ID.String(),
		TimeSlotID: ts.slot.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from booking, got %d", resp.StatusCode)
	}
	return decode[AppointmentResponse](t, resp)
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	// Slot is listed as available.
	resp := ts.get(t, fmt.Sprintf("/doctors/%s/slots?date=%s", ts.doctor.ID, ts.slot.Date))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 listing slots, got %d", resp.StatusCode)
	}
	slots := decode[[]TimeSlotResponse](t, resp)
	if len(slots) != 1 || slots[0].ID != ts.slot.ID {
		t.Fatalf("expected the seeded slot, got %+v", slots)
	}

	appt := ts.book(t)
	if appt.Status != "pending" || appt.PaymentStatus != "pending" {
		t.Fatalf("unexpected initial state: %+v", appt)
	}

	// Both parties confirm.
	for _, role := range []string{"patient", "doctor"} {
		resp := ts.post(t, "/appointments/"+appt.ID.String()+"/confirm", ConfirmRequest{Role: role})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 confirming as %s, got %d", role, resp.StatusCode)
		}
		appt = decode[AppointmentResponse](t, resp)
	}
	if appt.Status != "confirmed" {
		t.Fatalf("expected confirmed after both confirmations, got %s", appt.Status)
	}

	// Pay.
	resp = ts.post(t, "/appointments/"+appt.ID.String()+"/pay", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 paying, got %d", resp.StatusCode)
	}
	appt = decode[AppointmentResponse](t, resp)
	if appt.PaymentStatus != "paid" {
		t.Fatalf("expected paid, got %s", appt.PaymentStatus)
	}

	// Doctor shows up 20 minutes late: automatic refund.
	resp = ts.post(t, "/appointments/"+appt.ID.String()+"/arrival", ArrivalRequest{Role: "doctor", MinutesLate: 20})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 recording arrival, got %d", resp.StatusCode)
	}
	arrival := decode[ArrivalResponse](t, resp)
	if arrival.Decision != "auto_refund" {
		t.Fatalf("expected auto_refund decision, got %s", arrival.Decision)
	}

	resp = ts.get(t, "/appointments/"+appt.ID.String())
	appt = decode[AppointmentResponse](t, resp)
	if appt.PaymentStatus != "refunded" {
		t.Fatalf("expected refunded after late doctor, got %s", appt.PaymentStatus)
	}

	// The slot no longer shows as available.
	resp = ts.get(t, fmt.Sprintf("/doctors/%s/slots?date=%s", ts.doctor.ID, ts.slot.Date))
	slots = decode[[]TimeSlotResponse](t, resp)
	if len(slots) != 0 {
		t.Fatalf("expected no available slots, got %+v", slots)
	}
}

func TestBookingConflict(t *testing.T) {
	ts := newTestServer(t)

	ts.book(t)

	resp := ts.post(t, "/appointments", BookAppointmentRequest{
		PatientID:  ts.patient.ID.String(),
		DoctorID:   ts.doctor.ID.String(),
		TimeSlotID: ts.slot.ID.String(),
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on double booking, got %d", resp.StatusCode)
	}
	errResp := decode[ErrorResponse](t, resp)
	if errResp.Error != "slot_already_booked" {
		t.Fatalf("expected slot_already_booked, got %q", errResp.Error)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	appt := ts.book(t)

	cases := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown appointment confirm",
			method:     "POST",
			path:       "/appointments/" + uuid.NewString() + "/confirm",
			body:       ConfirmRequest{Role: "patient"},
			wantStatus: http.StatusNotFound,
			wantCode:   "appointment_not_found",
		},
		{
			name:       "unknown appointment pay",
			method:     "POST",
			path:       "/appointments/" + uuid.NewString() + "/pay",
			wantStatus: http.StatusNotFound,
			wantCode:   "appointment_not_found",
		},
		{
			name:       "unknown appointment refund",
			method:     "POST",
			path:       "/appointments/" + uuid.NewString() + "/refund",
			wantStatus: http.StatusNotFound,
			wantCode:   "appointment_not_found",
		},
		{
			name:       "unknown appointment arrival",
			method:     "POST",
			path:       "/appointments/" + uuid.NewString() + "/arrival",
			body:       ArrivalRequest{Role: "patient", MinutesLate: 20},
			wantStatus: http.StatusNotFound,
			wantCode:   "appointment_not_found",
		},
		{
			name:       "invalid role",
			method:     "POST",
			path:       "/appointments/" + appt.ID.String() + "/confirm",
			body:       ConfirmRequest{Role: "nurse"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_role",
		},
		{
			name:       "negative lateness",
			method:     "POST",
			path:       "/appointments/" + appt.ID.String() + "/arrival",
			body:       ArrivalRequest{Role: "patient", MinutesLate: -5},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_minutes_late",
		},
		{
			name:       "refund before payment",
			method:     "POST",
			path:       "/appointments/" + appt.ID.String() + "/refund",
			wantStatus: http.StatusConflict,
			wantCode:   "payment_not_captured",
		},
		{
			name:       "malformed id",
			method:     "GET",
			path:       "/appointments/not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_appointment_id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp *http.Response
			if tc.method == "GET" {
				resp = ts.get(t, tc.path)
			} else {
				resp = ts.post(t, tc.path, tc.body)
			}
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, resp.StatusCode)
			}
			errResp := decode[ErrorResponse](t, resp)
			if errResp.Error != tc.wantCode {
				t.Fatalf("expected error code %q, got %q", tc.wantCode, errResp.Error)
			}
		})
	}
}
