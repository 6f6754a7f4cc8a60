// Command apollo-loadtest drives many coordinators against an in-process
// development credential API and reports per-phase latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	apolloAuth "github.com/MrEthical07/apolloAuth"
	"github.com/MrEthical07/apolloAuth/exchange"
	"github.com/MrEthical07/apolloAuth/internal/devapi"
	"github.com/MrEthical07/apolloAuth/password"
	"github.com/MrEthical07/apolloAuth/reqcache"
	"github.com/MrEthical07/apolloAuth/tokenslot"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "Loadtest123"

type phaseFunc func(ctx context.Context, coord *apolloAuth.Coordinator, idx int) error

func main() {
	var (
		sessions    = flag.Int("sessions", 200, "number of signed-in coordinators")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "apollo:load", "slot and cache key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	api, err := devapi.New(devapi.Config{
		Secret: []byte("loadtest-secret-loadtest-secret-0"),
		Password: password.Config{
			Memory:      8 * 1024,
			Time:        1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Logger: quiet,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "devapi init failed: %v\n", err)
		os.Exit(1)
	}
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	exch, err := exchange.New(exchange.Config{BaseURL: srv.URL + "/api", Logger: quiet})
	if err != nil {
		fmt.Fprintf(os.Stderr, "exchange init failed: %v\n", err)
		os.Exit(1)
	}

	coords := make([]*apolloAuth.Coordinator, *sessions)
	fmt.Printf("signing in %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range coords {
		email := fmt.Sprintf("load-%d@example.com", i)
		if _, err := api.CreateUser(fmt.Sprintf("load-%d", i), email, loadPassword); err != nil {
			fmt.Fprintf(os.Stderr, "create user failed: %v\n", err)
			os.Exit(1)
		}
		coord, err := apolloAuth.New().
			WithExchange(exch).
			WithTokenSlot(tokenslot.NewRedis(client, fmt.Sprintf("%s:token:%d", *prefix, i), 0)).
			WithRequestCache(reqcache.NewRedis(client, fmt.Sprintf("%s:cache:%d", *prefix, i), 0)).
			WithLogger(quiet).
			WithLatencyHistograms(true).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
		coord.Bootstrap(ctx)
		if _, err := coord.Login(ctx, apolloAuth.Credentials{Email: email, Password: loadPassword}); err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		coords[i] = coord
	}
	fmt.Printf("signed in in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cachedStats := runPhase(ctx, coords, *ops, *concurrency, 7919, func(ctx context.Context, coord *apolloAuth.Coordinator, _ int) error {
		_, err := coord.CurrentUser(ctx)
		return err
	})
	fetchStats := runPhase(ctx, coords, *ops, *concurrency, 6151, func(ctx context.Context, coord *apolloAuth.Coordinator, _ int) error {
		_, err := coord.FetchCurrentUser(ctx, true)
		return err
	})

	fmt.Println("---- results ----")
	printStats("current_user", cachedStats)
	printStats("fetch", fetchStats)

	var shared, discarded uint64
	for _, coord := range coords {
		snap := coord.MetricsSnapshot()
		shared += snap.Counters[apolloAuth.MetricRehydrateShared]
		discarded += snap.Counters[apolloAuth.MetricRehydrateDiscarded]
		coord.Logout(ctx)
		coord.Close()
	}
	fmt.Printf("fetches shared=%d discarded=%d\n", shared, discarded)
}

func runPhase(ctx context.Context, coords []*apolloAuth.Coordinator, ops, concurrency int, seed int64, op phaseFunc) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(coords))
				t0 := time.Now()
				err := op(ctx, coords[idx], idx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
