package storage

import (
	"context"
	"time"
)

// Outcome classifies a verification attempt
type Outcome string

const (
	OutcomeValid     Outcome = "valid"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeMalformed Outcome = "malformed"
	OutcomeExpired   Outcome = "expired"
	OutcomeReplayed  Outcome = "replayed"
	OutcomeBlocked   Outcome = "blocked"
	// OutcomeError marks a payload that could not be judged because a
	// backend failed
	OutcomeError Outcome = "error"
)

// Attempt represents a single initData verification attempt
type Attempt struct {
	ID         string    `json:"id"`
	Outcome    Outcome   `json:"outcome"`
	UserID     int64     `json:"user_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	AuthDate   int64     `json:"auth_date,omitempty"` // Unix seconds as signed by the platform
	Hash       string    `json:"hash,omitempty"`      // Signature carried by the payload
	Error      string    `json:"error,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryOptions contains options for querying attempts
type QueryOptions struct {
	Outcomes []Outcome // Outcomes to filter by
	UserID   int64     // User to filter by
	Since    time.Time // Start time for attempts
	Until    time.Time // End time for attempts
	Limit    int       // Maximum number of attempts to return
	Offset   int       // Offset for pagination
}

// Storage defines the interface for attempt storage
type Storage interface {
	StoreAttempt(ctx context.Context, attempt *Attempt) error
	GetAttempt(ctx context.Context, id string) (*Attempt, error)
	ListAttempts(ctx context.Context, opts QueryOptions) ([]*Attempt, int, error)
	CountAttempts(ctx context.Context, opts QueryOptions) (int, error)
	GetStats(ctx context.Context, since time.Time) (map[string]int64, error)
	CreateSchema(ctx context.Context) error
	Close() error
}
