package main

import (
	"bytes"
	"context"
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

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olekukonko/tablewriter"
	"github.com/wcharczuk/go-chart/v2"
)

var (
	targetURL   string
	dbURL       string
	apiKey      string
	concurrency int
	duration    time.Duration
	workload    string
)

var (
	totalRequests uint64
	success200    uint64 // idempotent replays
	success201    uint64 // created
	fail409       uint64 // idempotency conflicts
	fail429       uint64 // rate limited
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API base URL")
	flag.StringVar(&dbURL, "db", "", "Database URL to pull seeded account ids from")
	flag.StringVar(&apiKey, "api-key", "", "Bearer API key printed by cmd/seeder")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
}

func main() {
	flag.Parse()
	if dbURL == "" || apiKey == "" {
		log.Fatal("both -db and -api-key are required (run cmd/seeder first)")
	}

	accounts, err := loadAccountIDs(dbURL)
	if err != nil {
		log.Fatalf("loading seeded accounts: %v", err)
	}
	if len(accounts) < 2 {
		log.Fatal("need at least 2 seeded accounts; run cmd/seeder first")
	}

	color.Cyan("benchmark: %s workload, %d workers, %s, %d accounts", workload, concurrency, duration, len(accounts))

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, accounts)
	}
	wg.Wait()

	printResults(time.Since(start))
}

func loadAccountIDs(databaseURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, "SELECT id FROM accounts ORDER BY created_at LIMIT 2000")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func worker(wg *sync.WaitGroup, start time.Time, accounts []string) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		from, to := pickAccounts(accounts)
		key := "bench-" + uuid.NewString()

		payload := map[string]any{
			"type":                   "transfer",
			"source_account_id":      from,
			"destination_account_id": to,
			"amount":                 "1.0000",
			"currency":               "USD",
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest(http.MethodPost, targetURL+"/v1/transactions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Idempotency-Key", key)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case http.StatusCreated:
			atomic.AddUint64(&success201, 1)
		case http.StatusOK:
			atomic.AddUint64(&success200, 1)
		case http.StatusConflict:
			atomic.AddUint64(&fail409, 1)
		case http.StatusTooManyRequests:
			atomic.AddUint64(&fail429, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickAccounts(accounts []string) (string, string) {
	n := len(accounts)
	if workload == "hotspot" && rand.Float32() < 0.90 {
		if rand.Float32() < 0.5 {
			return accounts[0], accounts[1]
		}
		return accounts[1], accounts[0]
	}
	a := rand.Intn(n)
	b := rand.Intn(n)
	for a == b {
		b = rand.Intn(n)
	}
	return accounts[a], accounts[b]
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	s200 := atomic.LoadUint64(&success200)
	f409 := atomic.LoadUint64(&fail409)
	f429 := atomic.LoadUint64(&fail429)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	var abortRate float64
	if total > 0 {
		abortRate = float64(f409) / float64(total) * 100
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"metric", "value"})
	table.Append([]string{"workload", workload})
	table.Append([]string{"duration_sec", fmt.Sprintf("%.2f", d.Seconds())})
	table.Append([]string{"total_requests", fmt.Sprintf("%d", total)})
	table.Append([]string{"throughput_tps", fmt.Sprintf("%.2f", tps)})
	table.Append([]string{"created_201", fmt.Sprintf("%d", s201)})
	table.Append([]string{"replayed_200", fmt.Sprintf("%d", s200)})
	table.Append([]string{"conflict_409", fmt.Sprintf("%d", f409)})
	table.Append([]string{"rate_limited_429", fmt.Sprintf("%d", f429)})
	table.Append([]string{"errors", fmt.Sprintf("%d", fErr)})
	table.Render()

	if abortRate > 5 {
		color.Red("abort rate %.2f%% exceeds 5%%", abortRate)
	} else {
		color.Green("abort rate %.2f%%", abortRate)
	}

	results := map[string]any{
		"workload":        workload,
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_tps":  tps,
		"success_created": s201,
		"success_replay":  s200,
		"aborts_conflict": f409,
		"rate_limited":    f429,
		"abort_rate_pct":  abortRate,
		"errors":          fErr,
	}
	filename := fmt.Sprintf("results_%s.json", workload)
	if file, err := os.Create(filename); err == nil {
		json.NewEncoder(file).Encode(results)
		file.Close()
	}

	renderChart(workload, s201, s200, f409, f429, fErr)
}

func renderChart(workload string, created, replayed, conflict, limited, other uint64) {
	bars := []chart.Value{
		{Label: "created", Value: float64(created)},
		{Label: "replayed", Value: float64(replayed)},
		{Label: "conflict", Value: float64(conflict)},
		{Label: "rate_limited", Value: float64(limited)},
		{Label: "errors", Value: float64(other)},
	}

	barChart := chart.BarChart{
		Title:  fmt.Sprintf("%s workload - request outcomes", workload),
		Width:  800,
		Height: 400,
		Bars:   bars,
	}

	outputFile := fmt.Sprintf("outcomes_%s.png", workload)
	f, err := os.Create(outputFile)
	if err != nil {
		color.Yellow("could not create chart file: %v", err)
		return
	}
	defer f.Close()

	if err := barChart.Render(chart.PNG, f); err != nil {
		color.Yellow("could not render chart: %v", err)
		return
	}
	fmt.Printf("outcome chart saved to: %s\n", outputFile)
}
