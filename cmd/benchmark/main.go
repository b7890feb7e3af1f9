// Benchmark drives authenticated transfers against a running API seeded by
// cmd/seeder. Each worker logs in as a demo user and moves money from that
// user's account to random peers.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	accounts    int
	password    string
)

// Metrics
var (
	totalRequests uint64
	success200    uint64
	fail400       uint64 // insufficient funds
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&accounts, "accounts", 1000, "Number of seeded demo accounts")
	flag.StringVar(&password, "password", "benchpass123", "Demo user password")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	client := &http.Client{Timeout: 5 * time.Second}
	tokens := make([]string, concurrency)
	for i := 0; i < concurrency; i++ {
		// Worker i acts as demo user i+1, who owns account i+1.
		token, err := login(client, i+1)
		if err != nil {
			log.Fatalf("Login failed for worker %d: %v", i, err)
		}
		tokens[i] = token
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, i+1, tokens[i])
	}

	wg.Wait()
	printResults(time.Since(start))
}

func login(client *http.Client, userIndex int) (string, error) {
	payload := map[string]string{
		"username": fmt.Sprintf("demo%04d", userIndex),
		"password": password,
	}
	body, _ := json.Marshal(payload)

	resp, err := client.Post(targetURL+"/api/v1/users/login", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	// Response message is "Bearer <token>", usable as-is in the header.
	return out.Message, nil
}

func worker(wg *sync.WaitGroup, start time.Time, accountID int, bearer string) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		to := pickTarget(accountID)

		payload := map[string]interface{}{
			"from_account_id": accountID,
			"to_account_id":   to,
			"amount":          0.01,
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/accounts/transfer", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&success200, 1)
		case 400:
			atomic.AddUint64(&fail400, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickTarget(self int) int {
	if workload == "hotspot" && rand.Float32() < 0.90 {
		// Hotspot: 90% of traffic lands on accounts 1 & 2
		if self != 1 && rand.Float32() < 0.5 {
			return 1
		}
		if self != 2 {
			return 2
		}
		return 1
	}

	b := rand.Intn(accounts) + 1
	for b == self {
		b = rand.Intn(accounts) + 1
	}
	return b
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s200 := atomic.LoadUint64(&success200)
	f400 := atomic.LoadUint64(&fail400)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()

	results := map[string]interface{}{
		"workload":           workload,
		"duration_sec":       d.Seconds(),
		"total_requests":     total,
		"throughput_tps":     tps,
		"success":            s200,
		"insufficient_funds": f400,
		"errors":             fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
