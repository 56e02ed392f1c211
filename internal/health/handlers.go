package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Checker probes the dependencies the API cannot serve without.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Probes implements Checker over the shared connection pools.
type Probes struct {
	Pool  *pgxpool.Pool
	Redis redis.UniversalClient
}

func (p Probes) PingDB(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Pool.Ping(ctx)
}

func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

type checkResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Live answers 200 as long as the process can serve HTTP. It must not
// touch dependencies: a broken database should fail readiness, not get
// the pod restarted.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes Postgres and Redis with short per-check timeouts and
// reports each check's outcome and latency. Any failing check turns the
// response into a 503.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	checks := map[string]checkResult{
		"db":    h.run(r.Context(), h.Checker.PingDB, h.DBTimeout, 500*time.Millisecond),
		"redis": h.run(r.Context(), h.Checker.PingRedis, h.RedisTimeout, 300*time.Millisecond),
	}

	overall := http.StatusOK
	for _, c := range checks {
		if c.Status != "ok" {
			overall = http.StatusServiceUnavailable
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(overall)
	_ = json.NewEncoder(w).Encode(checks)
}

func (h Handler) run(ctx context.Context, probe func(context.Context, time.Duration) error, timeout, fallback time.Duration) checkResult {
	if timeout <= 0 {
		timeout = fallback
	}
	start := time.Now()
	err := probe(ctx, timeout)
	res := checkResult{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = "down"
		res.Error = err.Error()
	}
	return res
}
