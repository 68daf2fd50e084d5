// Command loadtest drives a running retrieval engine with concurrent queries
// across its search routes and reports throughput and latency per route.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var defaultQueries = []string{
	"python programming",
	"machine learning",
	"information retrieval",
	"world war history",
	"climate change effects",
	"java virtual machine",
	"ancient rome",
	"quantum computing",
	"football world cup",
	"renaissance painting",
	"how to bake bread",
	"solar system planets",
	"the of and",
}

var routes = map[string]string{
	"search": "/api/v1/search",
	"body":   "/api/v1/search/body",
	"title":  "/api/v1/search/title",
	"anchor": "/api/v1/search/anchor",
}

type routeStats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (s *routeStats) record(d time.Duration, code int, err error) {
	s.requests.Add(1)
	if err != nil || code < 200 || code >= 300 {
		s.errors.Add(1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.latencies = append(s.latencies, d)
		s.codes[code]++
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the retrieval engine")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	modes := flag.String("modes", "search,body,title,anchor", "comma-separated routes to exercise")
	queryFile := flag.String("queries", "", "file with one query per line (defaults to a built-in set)")
	limit := flag.Int("limit", 10, "limit sent to single-field routes")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		var err error
		if queries, err = readQueries(*queryFile); err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
	}
	var selected []string
	for _, m := range strings.Split(*modes, ",") {
		m = strings.TrimSpace(m)
		if _, ok := routes[m]; !ok {
			fmt.Fprintf(os.Stderr, "unknown mode %q\n", m)
			os.Exit(2)
		}
		selected = append(selected, m)
	}

	fmt.Println("=== Retrieval Engine Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Routes:      %s\n", strings.Join(selected, ", "))
	fmt.Printf("Queries:     %d unique\n\n", len(queries))

	stats := run(*baseURL, *concurrency, *duration, *limit, selected, queries)
	if !report(stats, selected, *duration) {
		fmt.Println("\nWARNING: no requests completed. Is the engine running?")
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s has no queries", path)
	}
	return out, sc.Err()
}

func run(base string, concurrency int, d time.Duration, limit int, modes, queries []string) map[string]*routeStats {
	stats := make(map[string]*routeStats, len(modes))
	for _, m := range modes {
		stats[m] = &routeStats{codes: make(map[int]int64)}
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; ctx.Err() == nil; i++ {
				mode := modes[i%len(modes)]
				q := queries[(i/len(modes))%len(queries)]
				target := fmt.Sprintf("%s%s?q=%s", base, routes[mode], url.QueryEscape(q))
				if mode != "search" {
					target += fmt.Sprintf("&limit=%d", limit)
				}
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats[mode].record(0, 0, err)
					continue
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats[mode].record(elapsed, 0, err)
					}
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats[mode].record(elapsed, resp.StatusCode, nil)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func report(stats map[string]*routeStats, modes []string, d time.Duration) bool {
	var total int64
	for _, mode := range modes {
		s := stats[mode]
		n := s.requests.Load()
		total += n
		fmt.Printf("=== %s ===\n", routes[mode])
		fmt.Printf("Requests: %d  Errors: %d  Req/s: %.1f\n", n, s.errors.Load(), float64(n)/d.Seconds())

		s.mu.Lock()
		lat := append([]time.Duration(nil), s.latencies...)
		codes := make([]int, 0, len(s.codes))
		for c := range s.codes {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Printf("  status %d: %d\n", c, s.codes[c])
		}
		s.mu.Unlock()

		if len(lat) == 0 {
			fmt.Println()
			continue
		}
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		var sum time.Duration
		for _, l := range lat {
			sum += l
		}
		fmt.Printf("  min %s  avg %s  p50 %s  p90 %s  p99 %s  max %s\n\n",
			lat[0], sum/time.Duration(len(lat)),
			percentile(lat, 50), percentile(lat, 90), percentile(lat, 99),
			lat[len(lat)-1])
	}
	return total > 0
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
