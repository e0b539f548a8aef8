package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hackgods/barbershop-scheduling/internal/api"
	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/config"
	"github.com/hackgods/barbershop-scheduling/internal/db"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
	Users      int
	Date       string
	ASAPRatio  float64
	ViewRatio  float64
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
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

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
	BookExact OperationMetrics
	BookASAP  OperationMetrics
	View      OperationMetrics
}

type Simulator struct {
	config  SimConfig
	barbers []api.BarberResponse
	client  *http.Client
	metrics Metrics
	logger  *slog.Logger
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}
	logger.Info("config", "duration", cfg.Duration, "workers", cfg.Workers, "users", cfg.Users, "date", cfg.Date)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	ctx := context.Background()
	if err := sim.loadBarbers(ctx); err != nil {
		logger.Error("load barbers", "err", err)
		os.Exit(1)
	}
	logger.Info("loaded barbers", "count", len(sim.barbers))

	sim.Run()
	sim.PrintReport()

	if err := sim.verifyNoOverlaps(ctx); err != nil {
		logger.Error("overlap check failed", "err", err)
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	sched, err := config.LoadScheduling(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load scheduling config", "err", err)
		os.Exit(1)
	}
	loc, _ := sched.Location()
	tomorrow, _ := timegrid.AddDays(timegrid.DateOf(time.Now().In(loc)), 1)

	cfg := SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:   getDuration("SIM_DURATION", 30*time.Second),
		Workers:    getInt("SIM_WORKERS", 10),
		Users:      getInt("SIM_USERS", 200),
		Date:       getEnv("SIM_DATE", tomorrow),
		ASAPRatio:  getFloat("SIM_ASAP_RATIO", 0.2),
		ViewRatio:  getFloat("SIM_VIEW_RATIO", 0.2),
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Users <= 0 {
		return fmt.Errorf("SIM_USERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.ASAPRatio+cfg.ViewRatio > 1 {
		return fmt.Errorf("SIM_ASAP_RATIO + SIM_VIEW_RATIO must be <= 1")
	}
	return nil
}

func (s *Simulator) loadBarbers(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/barbers", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("list barbers: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&s.barbers); err != nil {
		return fmt.Errorf("decode barbers: %w", err)
	}
	if len(s.barbers) == 0 {
		return fmt.Errorf("no barbers loaded")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation", "duration", s.config.Duration, "workers", s.config.Workers)

	var wg sync.WaitGroup
	for i := range s.config.Workers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		userID := "sim-user-" + strconv.Itoa(rng.IntN(s.config.Users))
		r := rng.Float64()
		switch {
		case r < s.config.ViewRatio:
			s.doView(ctx, userID)
		case r < s.config.ViewRatio+s.config.ASAPRatio:
			s.doBook(ctx, &s.metrics.BookASAP, api.CreateAppointmentRequest{UserID: userID})
		default:
			b := s.barbers[rng.IntN(len(s.barbers))]
			s.doBook(ctx, &s.metrics.BookExact, api.CreateAppointmentRequest{
				UserID: userID,
				Barber: b.Name,
				Date:   s.config.Date,
				Time:   randomGridTime(rng, b.WorkingHours),
			})
		}
	}
}

// randomGridTime picks a quarter-hour start inside the working window.
func randomGridTime(rng *rand.Rand, wh api.HoursResponse) string {
	start, err1 := timegrid.ParseTimeOfDay(wh.Start)
	end, err2 := timegrid.ParseTimeOfDay(wh.End)
	if err1 != nil || err2 != nil || end-start < booking.DefaultDurationMinutes {
		return "12:00"
	}
	steps := int(end-start-booking.DefaultDurationMinutes)/15 + 1
	return start.Add(15 * rng.IntN(steps)).String()
}

func (s *Simulator) doBook(ctx context.Context, om *OperationMetrics, body api.CreateAppointmentRequest) {
	b, _ := json.Marshal(body)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
		case http.StatusConflict, http.StatusUnprocessableEntity:
			conflict = true
		}
	}

	om.Record(latency, success, conflict)
}

func (s *Simulator) doView(ctx context.Context, userID string) {
	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/users/%s/appointments", s.config.APIBaseURL, userID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.View.Record(latency, success, false)
}

// verifyNoOverlaps reads every barber's calendar for the simulated date
// straight from Postgres and fails if two active appointments intersect.
func (s *Simulator) verifyNoOverlaps(ctx context.Context) error {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		s.logger.Warn("POSTGRES_DSN not set, skipping overlap check")
		return nil
	}

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := booking.NewPgRepository(pool)
	var overlaps int
	for _, b := range s.barbers {
		appts, err := repo.ListAppointmentsForBarberOnDate(ctx, b.ID, s.config.Date)
		if err != nil {
			return err
		}
		for i := range appts {
			for j := i + 1; j < len(appts); j++ {
				a, c := appts[i], appts[j]
				if a.IsActive() && c.IsActive() && timegrid.Overlaps(a.Time, a.Duration(), c.Time, c.Duration()) {
					overlaps++
					s.logger.Error("overlap", "barber", b.Name, "first", a.Time.String(), "second", c.Time.String())
				}
			}
		}
	}
	if overlaps > 0 {
		return fmt.Errorf("%d overlapping appointments on %s", overlaps, s.config.Date)
	}
	s.logger.Info("no overlapping appointments", "date", s.config.Date)
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Date: %s\n", s.config.Date)
	fmt.Println()

	printOperationReport("Book (barber, date, time)", &s.metrics.BookExact)
	printOperationReport("Book (asap)", &s.metrics.BookASAP)
	printOperationReport("View appointments", &s.metrics.View)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

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
