package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ConfirmRatio float64
	ReadRatio    float64
	PatientLimit int
	SlotLimit    int
	PostgresDSN  string
	JWTSecret    string
	JWTIssuer    string
}

type slotRef struct {
	DoctorID uuid.UUID
	Range    timeslot.Range
}

type apptRef struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
}

type DataPool struct {
	Patients []uuid.UUID
	Slots    []slotRef

	resolver *identity.JWTResolver
	tokens   sync.Map // caller -> signed token

	mu           sync.RWMutex
	appointments []apptRef
}

func (dp *DataPool) AddAppointment(a apptRef) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, a)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (apptRef, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return apptRef{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

// Token returns a cached bearer token for the caller.
func (dp *DataPool) Token(c identity.Caller) string {
	if tok, ok := dp.tokens.Load(c); ok {
		return tok.(string)
	}
	tok, err := dp.resolver.Issue(c, time.Hour)
	if err != nil {
		return ""
	}
	dp.tokens.Store(c, tok)
	return tok
}

type OperationMetrics struct {
	Total       int64
	Success     int64
	Conflict    int64
	Unavailable int64
	Error       int64
	Latencies   []time.Duration
	mu          sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, success int) {
	atomic.AddInt64(&om.Total, 1)
	switch status {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case http.StatusUnprocessableEntity:
		atomic.AddInt64(&om.Unavailable, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
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
	lo = latencies[0]
	hi = latencies[len(latencies)-1]
	p50 = latencies[min(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]

	return avg, lo, hi, p50, p95
}

type Metrics struct {
	Booking        OperationMetrics
	Confirm        OperationMetrics
	ReadByID       OperationMetrics
	ListForPatient OperationMetrics
	DoctorSchedule OperationMetrics
}

var visitReasons = []string{
	"Annual checkup",
	"Follow-up visit",
	"Persistent headache",
	"Skin rash",
	"Back pain",
	"Prescription renewal",
	"Lab results review",
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	log     *zap.Logger
	metrics Metrics
}

func main() {
	zlog, err := logger.New(config.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		zlog.Fatal("invalid config", zap.Error(err))
	}

	zlog.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("confirm", cfg.ConfirmRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	// Load data from Postgres
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		zlog.Fatal("load data pool", zap.Error(err))
	}
	dataPool.resolver = identity.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)

	zlog.Info("data pool loaded", zap.Int("patients", len(dataPool.Patients)), zap.Int("slots", len(dataPool.Slots)))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		log:    zlog,
		client: &http.Client{
			Timeout: 10 * time.Second,
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

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio: getFloat("SIM_CONFIRM_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 4000),
		SlotLimit:    getInt("SIM_SLOT_LIMIT", 2400),
		PostgresDSN:  baseCfg.PostgresDSN,
		JWTSecret:    baseCfg.JWTSecret,
		JWTIssuer:    baseCfg.JWTIssuer,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
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
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}
	rows.Close()

	// Open slots from today on. A small pool makes workers collide on purpose.
	rows, err = pool.Query(ctx, `
		SELECT doctor_id, slot_date, start_time, end_time
		FROM availability_slots
		WHERE is_open AND slot_date >= current_date
		ORDER BY slot_date, start_time
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ref        slotRef
			date       pgtype.Date
			start, end pgtype.Time
		)
		if err := rows.Scan(&ref.DoctorID, &date, &start, &end); err != nil {
			return nil, err
		}
		ref.Range = timeslot.Range{Date: timeslot.DateFromPG(date), Start: timeslot.TimeFromPG(start), End: timeslot.TimeFromPG(end)}
		dataPool.Slots = append(dataPool.Slots, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dataPool.Slots) == 0 {
		return nil, fmt.Errorf("no slots loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			if r < s.config.BookingRatio {
				s.doBooking(ctx, rng)
			} else if r < s.config.BookingRatio+s.config.ConfirmRatio {
				s.doConfirm(ctx, rng)
			} else {
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doListForPatient(ctx, rng)
				case 2:
					s.doDoctorSchedule(ctx, rng)
				}
			}
		}
	}
}

// call sends one request as caller and returns the status code, or 0 when
// the request never got a response.
func (s *Simulator) call(ctx context.Context, method, path string, caller identity.Caller, body any, out any) (int, time.Duration) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return 0, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.pool.Token(caller))

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, latency
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	reason := gofakeit.RandomString(visitReasons)
	reqBody := map[string]any{
		"doctor_id":  slot.DoctorID.String(),
		"date":       slot.Range.Date.String(),
		"start_time": slot.Range.Start.String(),
		"end_time":   slot.Range.End.String(),
		"reason":     reason,
	}

	var created struct {
		ID uuid.UUID `json:"appointment_id"`
	}
	caller := identity.Caller{Role: identity.RolePatient, OwnerID: patientID}
	status, latency := s.call(ctx, http.MethodPost, "/appointments", caller, reqBody, &created)
	if status == http.StatusCreated && created.ID != uuid.Nil {
		s.pool.AddAppointment(apptRef{ID: created.ID, DoctorID: slot.DoctorID, PatientID: patientID})
	}

	s.metrics.Booking.Record(latency, status, http.StatusCreated)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	caller := identity.Caller{Role: identity.RoleDoctor, OwnerID: appt.DoctorID}
	status, latency := s.call(ctx, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", caller, nil, nil)
	s.metrics.Confirm.Record(latency, status, http.StatusOK)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	caller := identity.Caller{Role: identity.RolePatient, OwnerID: appt.PatientID}
	status, latency := s.call(ctx, http.MethodGet, "/appointments/"+appt.ID.String(), caller, nil, nil)
	s.metrics.ReadByID.Record(latency, status, http.StatusOK)
}

func (s *Simulator) doListForPatient(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	caller := identity.Caller{Role: identity.RolePatient, OwnerID: patientID}
	status, latency := s.call(ctx, http.MethodGet, "/appointments", caller, nil, nil)
	s.metrics.ListForPatient.Record(latency, status, http.StatusOK)
}

func (s *Simulator) doDoctorSchedule(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]

	caller := identity.Caller{Role: identity.RoleDoctor, OwnerID: slot.DoctorID}
	status, latency := s.call(ctx, http.MethodGet, "/appointments", caller, nil, nil)
	s.metrics.DoctorSchedule.Record(latency, status, http.StatusOK)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List for Patient", &s.metrics.ListForPatient)
	printOperationReport("Doctor Schedule", &s.metrics.DoctorSchedule)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	unavailable := atomic.LoadInt64(&om.Unavailable)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if unavailable > 0 {
		fmt.Printf("  Slot unavailable: %d (%.1f%%)\n", unavailable, float64(unavailable)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
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

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
