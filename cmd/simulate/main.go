package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/appointment-booking/internal/config"
	"github.com/medibook/appointment-booking/internal/db"
)

// The simulator drives the whole appointment lifecycle over HTTP:
// book a slot, confirm as patient and doctor, pay, then record an
// arrival. Lateness is randomized so the penalty and auto-refund
// branches both get exercised under load.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	PatientLimit int
	SlotLimit    int
	LateChance   float64 // probability an arrival is >15 minutes late
	PostgresDSN  string
}

type slotRef struct {
	SlotID   uuid.UUID
	DoctorID uuid.UUID
}

type DataPool struct {
	Patients []uuid.UUID
	Slots    []slotRef // open slots with their doctors
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking OperationMetrics
	Confirm OperationMetrics
	Payment OperationMetrics
	Arrival OperationMetrics
	Reads   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics

	slotCursor int64 // each booking attempt consumes the next slot
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d late_chance=%.2f",
		cfg.Duration, cfg.Workers, cfg.LateChance)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d open slots", len(dataPool.Patients), len(dataPool.Slots))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDurationEnv("SIM_DURATION", 30*time.Second),
		Workers:      getIntEnv("SIM_WORKERS", 10),
		PatientLimit: getIntEnv("SIM_PATIENT_LIMIT", 2000),
		SlotLimit:    getIntEnv("SIM_SLOT_LIMIT", 2400),
		LateChance:   getFloatEnv("SIM_LATE_CHANCE", 0.3),
		PostgresDSN:  baseCfg.PostgresDSN,
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.LateChance < 0 || cfg.LateChance > 1 {
		return fmt.Errorf("SIM_LATE_CHANCE must be in [0,1]")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	rows, err = pool.Query(ctx, `
		SELECT id, doctor_id FROM time_slots
		WHERE is_booked = false AND date >= to_char(now(), 'YYYY-MM-DD')
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slotID, doctorID uuid.UUID
		if err := rows.Scan(&slotID, &doctorID); err != nil {
			return nil, err
		}
		dataPool.Slots = append(dataPool.Slots, slotRef{SlotID: slotID, DoctorID: doctorID})
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dataPool.Slots) == 0 {
		return nil, fmt.Errorf("no open slots loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.runLifecycle(ctx, rng)
		}
	}
}

// runLifecycle claims the next open slot and walks one appointment all
// the way through: book, confirm both sides, pay, record arrival, then
// read it back.
func (s *Simulator) runLifecycle(ctx context.Context, rng *rand.Rand) {
	idx := atomic.AddInt64(&s.slotCursor, 1) - 1
	if int(idx) >= len(s.pool.Slots) {
		// Out of fresh slots; hammer reads instead.
		s.doRead(ctx, rng)
		return
	}

	slot := s.pool.Slots[idx]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	apptID, ok := s.doBooking(ctx, slot, patientID)
	if !ok {
		return
	}

	if !s.doConfirm(ctx, apptID, "patient") {
		return
	}
	if !s.doConfirm(ctx, apptID, "doctor") {
		return
	}
	if !s.doPayment(ctx, apptID) {
		return
	}

	role := "patient"
	if rng.Float64() < 0.5 {
		role = "doctor"
	}
	minutesLate := 0
	if rng.Float64() < s.config.LateChance {
		minutesLate = 16 + rng.Intn(45)
	}
	s.doArrival(ctx, apptID, role, minutesLate)

	s.doRead(ctx, rng)
}

func (s *Simulator) doBooking(ctx context.Context, slot slotRef, patientID uuid.UUID) (uuid.UUID, bool) {
	start := time.Now()

	reqBody := map[string]string{
		"patient_id":   patientID.String(),
		"doctor_id":    slot.DoctorID.String(),
		"time_slot_id": slot.SlotID.String(),
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	var apptID uuid.UUID

	if err == nil {
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				_ = json.Unmarshal(bodyBytes, &apptResp)
			}
			if apptResp.ID != uuid.Nil {
				apptID = apptResp.ID
				success = true
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
	return apptID, success
}

func (s *Simulator) doConfirm(ctx context.Context, apptID uuid.UUID, role string) bool {
	start := time.Now()

	body, _ := json.Marshal(map[string]string{"role": role})
	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/confirm", s.config.APIBaseURL, apptID.String()),
		bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Confirm.Record(latency, success, conflict)
	return success
}

func (s *Simulator) doPayment(ctx context.Context, apptID uuid.UUID) bool {
	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/pay", s.config.APIBaseURL, apptID.String()), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Payment.Record(latency, success, conflict)
	return success
}

func (s *Simulator) doArrival(ctx context.Context, apptID uuid.UUID, role string, minutesLate int) {
	start := time.Now()

	body, _ := json.Marshal(map[string]any{
		"role":         role,
		"minutes_late": minutesLate,
	})
	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/arrival", s.config.APIBaseURL, apptID.String()),
		bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Arrival.Record(latency, success, conflict)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointments?user_id=%s&role=patient", s.config.APIBaseURL, patientID.String()), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Reads.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Payment", &s.metrics.Payment)
	printOperationReport("Arrival", &s.metrics.Arrival)
	printOperationReport("List by Patient", &s.metrics.Reads)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
