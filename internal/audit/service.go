package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedant-labs/backend-bazaar/internal/obs"
)

// Entry is one recorded administrative action.
type Entry struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Route      string          `json:"route,omitempty"`
	Status     int             `json:"status"`
	IP         string          `json:"ip,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Store defines the persistence required for auditing.
type Store interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Service persists audit entries for administrative flows.
type Service struct {
	Store   Store
	Enabled bool
}

// Record persists an audit entry when auditing is enabled.
func (s Service) Record(ctx context.Context, actorID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	if status == 0 {
		status = http.StatusOK
	}
	_, err := s.Store.Insert(ctx, Entry{
		ID:        uuid.NewString(),
		ActorID:   strings.TrimSpace(actorID),
		Action:    strings.ToUpper(req.Method) + " " + route,
		Method:    req.Method,
		Path:      req.URL.Path,
		Route:     route,
		Status:    status,
		IP:        clientIP(req),
		RequestID: strings.TrimSpace(req.Header.Get("X-Request-ID")),
		Metadata:  metadata,
	})
	return err
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

// PGStore persists audit entries to Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

const auditColumns = `id, actor_id, action, method, path, route, status, ip, request_id, metadata, occurred_at`

func (s *PGStore) Insert(ctx context.Context, e Entry) (Entry, error) {
	if s == nil || s.Pool == nil {
		return Entry{}, errors.New("audit: pool not configured")
	}
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO audit_logs (id, actor_id, action, method, path, route, status, ip, request_id, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+auditColumns,
		e.ID, e.ActorID, e.Action, e.Method, e.Path, e.Route, e.Status, e.IP, e.RequestID, nullableJSON(e.Metadata))
	return scanEntry(row)
}

func (s *PGStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("audit: pool not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs ORDER BY occurred_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e        Entry
		metadata []byte
	)
	err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.Method, &e.Path, &e.Route, &e.Status,
		&e.IP, &e.RequestID, &metadata, &e.OccurredAt)
	if err != nil {
		return Entry{}, err
	}
	e.Metadata = metadata
	return e, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
