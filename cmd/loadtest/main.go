// Command loadtest drives synthetic traffic against a running feedrank
// instance and reports latency percentiles and cache behavior.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	baseURL    = flag.String("url", "http://localhost:8080", "base URL of the service")
	requests   = flag.Int("requests", 1000, "total number of requests")
	concurrent = flag.Int("concurrent", 10, "number of concurrent workers")
	syncEvery  = flag.Int("sync-every", 0, "fire a POST /api/sync every N requests (0 disables)")
)

var (
	keywords    = []string{"go", "docker", "redis", "search", "caching", "testing", "api", "microservices"}
	types       = []string{"", "video", "article"}
	sortOptions = []string{"score", "date"}
	perPages    = []int{10, 20, 50}
)

type apiResponse struct {
	Success bool `json:"success"`
}

type stats struct {
	mu        sync.Mutex
	latencies []time.Duration
	success   atomic.Int64
	failure   atomic.Int64
}

func (s *stats) record(d time.Duration, ok bool) {
	if ok {
		s.success.Add(1)
	} else {
		s.failure.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func main() {
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}
	if !healthy(client, *baseURL) {
		fmt.Fprintf(os.Stderr, "service at %s is not healthy\n", *baseURL)
		os.Exit(1)
	}

	fmt.Printf("feedrank load test: %d requests, %d workers against %s\n",
		*requests, *concurrent, *baseURL)

	var st stats
	var issued atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < *concurrent; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				n := issued.Add(1)
				if n > int64(*requests) {
					return
				}
				if *syncEvery > 0 && n%int64(*syncEvery) == 0 {
					st.record(timedPost(client, *baseURL+"/api/sync"))
					continue
				}
				st.record(timedGet(client, searchURL(rng)))
			}
		}(int64(w) + 1)
	}
	wg.Wait()

	elapsed := time.Since(start)
	report(&st, elapsed)
}

func searchURL(rng *rand.Rand) string {
	params := url.Values{}
	params.Set("keyword", keywords[rng.Intn(len(keywords))])
	if t := types[rng.Intn(len(types))]; t != "" {
		params.Set("type", t)
	}
	params.Set("sortBy", sortOptions[rng.Intn(len(sortOptions))])
	params.Set("page", fmt.Sprint(1+rng.Intn(3)))
	params.Set("perPage", fmt.Sprint(perPages[rng.Intn(len(perPages))]))
	return *baseURL + "/api/search?" + params.Encode()
}

func timedGet(client *http.Client, u string) (time.Duration, bool) {
	start := time.Now()
	resp, err := client.Get(u)
	if err != nil {
		return time.Since(start), false
	}
	defer func() { _ = resp.Body.Close() }()

	var body apiResponse
	ok := json.NewDecoder(resp.Body).Decode(&body) == nil && body.Success
	return time.Since(start), resp.StatusCode == http.StatusOK && ok
}

func timedPost(client *http.Client, u string) (time.Duration, bool) {
	start := time.Now()
	resp, err := client.Post(u, "application/json", nil)
	if err != nil {
		return time.Since(start), false
	}
	defer func() { _ = resp.Body.Close() }()
	return time.Since(start), resp.StatusCode == http.StatusOK
}

func healthy(client *http.Client, base string) bool {
	resp, err := client.Get(base + "/health")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func report(st *stats, elapsed time.Duration) {
	st.mu.Lock()
	lats := st.latencies
	st.mu.Unlock()
	sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })

	total := st.success.Load() + st.failure.Load()
	fmt.Printf("\ndone in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("requests: %d  ok: %d  failed: %d  rps: %.1f\n",
		total, st.success.Load(), st.failure.Load(), float64(total)/elapsed.Seconds())
	if len(lats) == 0 {
		return
	}
	fmt.Printf("latency p50: %s  p95: %s  p99: %s  max: %s\n",
		percentile(lats, 50), percentile(lats, 95), percentile(lats, 99), lats[len(lats)-1])
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
