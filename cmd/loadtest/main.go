// Command loadtest pushes synthetic packed-array uploads at a running
// ingestion service and reports throughput, latency percentiles and status
// codes.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:5001] [-concurrency 4] [-duration 30s] [-samples 200]
package main

import (
	"archive/zip"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/arrays"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Payload     []byte
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []float64
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]float64, 0, 10000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode == http.StatusOK {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, float64(duration))
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:5001", "base URL of the ingestion service")
	concurrency := flag.Int("concurrency", 4, "number of concurrent uploaders")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	samples := flag.Int("samples", 200, "samples per synthetic upload")
	side := flag.Int("side", 28, "height and width of each synthetic sample")
	flag.Parse()

	payload, err := syntheticNPZ(*samples, *side, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building payload: %v\n", err)
		os.Exit(1)
	}
	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Payload:     payload,
	}

	fmt.Println("=== Dataset Ingestion Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Payload:     %d samples of %dx%d, %d bytes\n", *samples, *side, *side, len(payload))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

// syntheticNPZ builds an unsplit x/y archive with labels cycling through
// classes.
func syntheticNPZ(n, side, classes int) ([]byte, error) {
	x := tensor.New(n, side, side)
	for i := range x.Data {
		x.Data[i] = float64(i % 256)
	}
	y := tensor.New(n)
	for i := range n {
		y.Data[i] = float64(i % classes)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, a := range map[string]*tensor.Array{dataset.X: x, dataset.Y: y} {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			return nil, err
		}
		if err := arrays.WriteNPY(w, a); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := range cfg.Concurrency {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Each worker overwrites its own dataset so the data root stays bounded.
			id := fmt.Sprintf("loadtest-%d", workerID)
			for ctx.Err() == nil {
				req, err := uploadRequest(ctx, cfg, id)
				if err != nil {
					stats.RecordRequest(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.RecordRequest(elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(elapsed, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func uploadRequest(ctx context.Context, cfg Config, id string) (*http.Request, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("dataset_name", id); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("dataset_file", id+".npz")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(cfg.Payload); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Uploads:   %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", failed)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Printf("Uploads/sec:     %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := slices.Clone(stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		mean, std := stat.MeanStdDev(latencies, nil)
		if len(latencies) < 2 {
			std = 0
		}
		q := func(p float64) time.Duration {
			return time.Duration(stat.Quantile(p, stat.Empirical, latencies, nil))
		}

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", time.Duration(latencies[0]))
		fmt.Printf("Avg:    %s\n", time.Duration(mean))
		fmt.Printf("P50:    %s\n", q(0.50))
		fmt.Printf("P90:    %s\n", q(0.90))
		fmt.Printf("P95:    %s\n", q(0.95))
		fmt.Printf("P99:    %s\n", q(0.99))
		fmt.Printf("Max:    %s\n", time.Duration(latencies[len(latencies)-1]))
		fmt.Printf("StdDev: %s\n", time.Duration(std))
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No uploads completed. Is the service running?")
		os.Exit(1)
	}
}
