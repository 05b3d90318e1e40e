package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue-etc/internal/api"
	"github.com/hackgods/clinic-queue-etc/internal/logging"
	"github.com/hackgods/clinic-queue-etc/internal/queue"
)

// SimConfig drives a burst of concurrent recalculations of one session to
// check that racing runs converge on the same queue.
type SimConfig struct {
	APIBaseURL string
	Date       string
	Session    string
	Workers    int
	Requests   int
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

func (om *OperationMetrics) Percentile(p int) time.Duration {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	idx := len(latencies) * p / 100
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	return latencies[idx]
}

func main() {
	logger, err := logging.New("info", "console")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig()
	if _, err := queue.ParseDate(cfg.Date); err != nil {
		logger.Fatal("bad SIM_DATE", zap.Error(err))
	}
	if _, err := queue.ParseSession(cfg.Session); err != nil {
		logger.Fatal("bad SIM_SESSION", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := &http.Client{Timeout: 30 * time.Second}
	recalcURL := fmt.Sprintf("%s/recalc/sessions/%s/%s", cfg.APIBaseURL, cfg.Date, cfg.Session)
	queueURL := fmt.Sprintf("%s/sessions/%s/%s/queue", cfg.APIBaseURL, cfg.Date, cfg.Session)

	logger.Info("simulation starting",
		zap.String("url", recalcURL),
		zap.Int("workers", cfg.Workers),
		zap.Int("requests", cfg.Requests),
	)

	var om OperationMetrics
	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				status, err := post(ctx, client, recalcURL)
				om.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusConflict)
			}
		}()
	}
	for i := 0; i < cfg.Requests; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()

	logger.Info("recalc burst finished",
		zap.Int64("total", om.Total),
		zap.Int64("ok", om.Success),
		zap.Int64("conflict", om.Conflict),
		zap.Int64("error", om.Error),
		zap.Duration("p50", om.Percentile(50)),
		zap.Duration("p95", om.Percentile(95)),
	)

	// Two settled runs in a row must leave the same queue behind.
	first, err := settle(ctx, client, recalcURL, queueURL)
	if err != nil {
		logger.Fatal("settle", zap.Error(err))
	}
	second, err := settle(ctx, client, recalcURL, queueURL)
	if err != nil {
		logger.Fatal("settle", zap.Error(err))
	}

	if !sameQueue(first, second) {
		logger.Fatal("queue did not converge", zap.Int("entries", len(first)))
	}
	logger.Info("queue converged", zap.Int("entries", len(first)))
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL: strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Date:       getEnv("SIM_DATE", queue.FormatDate(time.Now())),
		Session:    getEnv("SIM_SESSION", string(queue.SessionMorning)),
		Workers:    getInt("SIM_WORKERS", 8),
		Requests:   getInt("SIM_REQUESTS", 200),
	}
}

func post(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(nil))
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// settle runs one uncontended recalculation and reads the queue back.
func settle(ctx context.Context, client *http.Client, recalcURL, queueURL string) ([]api.QueueEntryResponse, error) {
	status, err := post(ctx, client, recalcURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("recalc returned %d", status)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queueURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("queue read returned %d", resp.StatusCode)
	}

	var entries []api.QueueEntryResponse
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// sameQueue compares order, statuses and the spread between bounds. The
// absolute ETCs follow the wall clock once the session is live, so they are
// not compared directly.
func sameQueue(a, b []api.QueueEntryResponse) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Status != b[i].Status {
			return false
		}
		if spread(a[i]) != spread(b[i]) {
			return false
		}
	}
	return true
}

func spread(e api.QueueEntryResponse) time.Duration {
	if e.BestCaseETC == nil || e.WorstCaseETC == nil {
		return -1
	}
	return e.WorstCaseETC.Sub(*e.BestCaseETC)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
