// Package authhandler serves POST /auth: it verifies the initData a
// mini-app forwards, applies the optional freshness, replay and source
// checks, and records every attempt.
package authhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"initguard/internal/initdata"
	"initguard/internal/replay"
	"initguard/internal/security"
	"initguard/internal/storage"
)

// maxBodyBytes bounds the request body; real initData is a few KiB.
const maxBodyBytes = 64 << 10

// authScheme prefixes initData passed in the Authorization header
const authScheme = "tma"

var (
	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "initguard_verifications_total",
			Help: "Total number of initData verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	replayRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "initguard_replay_rejections_total",
			Help: "Total number of payloads rejected because their hash was already used",
		},
	)

	blockedIPs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "initguard_blocked_ips_total",
			Help: "Total number of requests blocked by the source allowlist",
		},
	)
)

// Error codes returned in the JSON error body
const (
	CodeMethodNotAllowed = "method_not_allowed"
	CodeBlocked          = "blocked"
	CodeMissingInitData  = "missing_init_data"
	CodeMalformed        = "malformed_payload"
	CodeEncoding         = "encoding_error"
	CodeInvalidSignature = "invalid_signature"
	CodeExpired          = "expired"
	CodeInvalidUser      = "invalid_user"
	CodeReplayed         = "replayed"
	CodeInternal         = "internal_error"
)

type Handler struct {
	botToken         string
	logger           *slog.Logger
	store            storage.Storage
	metricsCollector *storage.DBMetricsCollector
	maxAge           time.Duration
	replay           replay.Guard
	replayTTL        time.Duration
	allowlist        *security.IPAllowlist
	validateIP       bool
	now              func() time.Time
}

type Options struct {
	BotToken string
	Logger   *slog.Logger
	// Store receives one Attempt per request. Nil disables auditing.
	Store            storage.Storage
	MetricsCollector *storage.DBMetricsCollector
	// MaxAge rejects payloads whose auth_date is older. Zero disables it.
	MaxAge time.Duration
	// Replay rejects a hash seen within ReplayTTL. Nil or a zero TTL
	// disables it.
	Replay    replay.Guard
	ReplayTTL time.Duration
	Allowlist *security.IPAllowlist
	// ValidateIP turns allowlist misses into rejections instead of warnings
	ValidateIP bool
	Now        func() time.Time
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Handler{
		botToken:         opts.BotToken,
		logger:           logger,
		store:            opts.Store,
		metricsCollector: opts.MetricsCollector,
		maxAge:           opts.MaxAge,
		replay:           opts.Replay,
		replayTTL:        opts.ReplayTTL,
		allowlist:        opts.Allowlist,
		validateIP:       opts.ValidateIP,
		now:              now,
	}
}

// Response is the body of a successful verification
type Response struct {
	Valid    bool           `json:"valid"`
	User     *initdata.User `json:"user"`
	AuthDate int64          `json:"auth_date,omitempty"`
	QueryID  string         `json:"query_id,omitempty"`
}

// ErrorResponse is the body of every rejected request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ServeHTTP handles incoming verification requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Error("validation error", "error", fmt.Sprintf("invalid method: %s", r.Method))
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, fmt.Sprintf("invalid method: %s", r.Method))
		return
	}

	attempt := &storage.Attempt{RemoteAddr: r.RemoteAddr}

	if ip := security.ClientIP(r.RemoteAddr); h.allowlist != nil && !h.allowlist.Allows(ip) {
		if h.validateIP {
			h.logger.Error("request from address outside allowlist", "ip", ip)
			blockedIPs.Inc()
			attempt.Outcome = storage.OutcomeBlocked
			attempt.Error = "address not allowed"
			h.record(r, attempt)
			h.writeError(w, http.StatusForbidden, CodeBlocked, fmt.Sprintf("request from address not allowed: %s", ip))
			return
		}
		h.logger.Warn("request from address outside allowlist", "ip", ip)
	}

	raw, err := readInitData(w, r)
	if err != nil {
		h.logger.Error("error reading init data", "error", err)
		attempt.Outcome = storage.OutcomeMalformed
		attempt.Error = err.Error()
		h.record(r, attempt)
		h.writeError(w, http.StatusBadRequest, CodeMissingInitData, err.Error())
		return
	}

	res, err := initdata.Verify(h.botToken, raw)
	if err != nil {
		h.logger.Error("init data verification error", "error", err)
		code := CodeMalformed
		if errors.Is(err, initdata.ErrEncoding) {
			code = CodeEncoding
		}
		attempt.Outcome = storage.OutcomeMalformed
		attempt.Error = err.Error()
		h.record(r, attempt)
		h.writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	attempt.Hash = res.Received
	fillIdentity(attempt, res.Payload)

	h.logger.Debug("comparing signatures",
		"received", res.Received,
		"computed", res.Computed)

	if !res.Valid {
		h.logger.Error("invalid init data signature", "user_id", attempt.UserID)
		attempt.Outcome = storage.OutcomeInvalid
		attempt.Error = "signature mismatch"
		h.record(r, attempt)
		h.writeError(w, http.StatusUnauthorized, CodeInvalidSignature, "invalid signature")
		return
	}

	if err := initdata.CheckAuthDate(res.Payload, h.maxAge, h.now()); err != nil {
		attempt.Error = err.Error()
		if errors.Is(err, initdata.ErrExpired) {
			h.logger.Warn("expired init data", "user_id", attempt.UserID, "error", err)
			attempt.Outcome = storage.OutcomeExpired
			h.record(r, attempt)
			h.writeError(w, http.StatusUnauthorized, CodeExpired, err.Error())
			return
		}
		h.logger.Error("unusable auth_date", "error", err)
		attempt.Outcome = storage.OutcomeMalformed
		h.record(r, attempt)
		h.writeError(w, http.StatusBadRequest, CodeMalformed, err.Error())
		return
	}

	user, err := res.Payload.User()
	if err != nil && !errors.Is(err, initdata.ErrNoUser) {
		h.logger.Error("invalid user field", "error", err)
		attempt.Outcome = storage.OutcomeMalformed
		attempt.Error = err.Error()
		h.record(r, attempt)
		h.writeError(w, http.StatusBadRequest, CodeInvalidUser, err.Error())
		return
	}

	if h.replay != nil && h.replayTTL > 0 {
		seen, err := h.replay.Seen(r.Context(), res.Received, h.replayTTL)
		if err != nil {
			h.logger.Error("replay guard error", "error", err)
			attempt.Outcome = storage.OutcomeError
			attempt.Error = fmt.Sprintf("replay guard: %v", err)
			h.record(r, attempt)
			h.writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
			return
		}
		if seen {
			h.logger.Warn("replayed init data", "user_id", attempt.UserID)
			replayRejections.Inc()
			attempt.Outcome = storage.OutcomeReplayed
			attempt.Error = "hash already used"
			h.record(r, attempt)
			h.writeError(w, http.StatusUnauthorized, CodeReplayed, "init data already used")
			return
		}
	}

	attempt.Outcome = storage.OutcomeValid
	h.record(r, attempt)

	resp := Response{Valid: true, User: user, AuthDate: attempt.AuthDate}
	resp.QueryID, _ = res.Payload.Get("query_id")
	h.writeJSON(w, http.StatusOK, resp)
}

// readInitData takes the payload from an "Authorization: tma <initData>"
// header, a JSON body {"initData": "..."}, or the raw body in that order.
func readInitData(w http.ResponseWriter, r *http.Request) (string, error) {
	if scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, authScheme) {
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading request body: %w", err)
	}
	defer r.Body.Close()

	raw := strings.TrimSpace(string(body))
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var req struct {
			InitData string `json:"initData"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("decoding request body: %w", err)
		}
		raw = strings.TrimSpace(req.InitData)
	}

	if raw == "" {
		return "", errors.New("missing init data")
	}
	return raw, nil
}

// fillIdentity copies what the payload claims about the user into the
// attempt. For rejected payloads these are unverified claims.
func fillIdentity(attempt *storage.Attempt, p *initdata.Payload) {
	if authDate, err := p.AuthDate(); err == nil {
		attempt.AuthDate = authDate.Unix()
	}
	if user, err := p.User(); err == nil {
		attempt.UserID = user.ID
		attempt.Username = user.Username
	}
}

func (h *Handler) record(r *http.Request, attempt *storage.Attempt) {
	verificationsTotal.WithLabelValues(string(attempt.Outcome)).Inc()

	if h.store == nil {
		return
	}
	attempt.CreatedAt = h.now().UTC()
	if err := h.store.StoreAttempt(r.Context(), attempt); err != nil {
		h.logger.Error("error storing attempt", "error", err)
		// Continue even if storage fails
		return
	}
	h.metricsCollector.EnqueueGatherMetrics()
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("error encoding response", "error", err)
	}
}
