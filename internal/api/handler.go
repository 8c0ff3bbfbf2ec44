package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"initguard/internal/storage"
)

// Handler handles API requests
type Handler struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(store storage.Storage, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes mounts the API endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Get("/attempts", h.ListAttempts)
	r.Get("/attempts/{id}", h.GetAttempt)
	r.Get("/stats", h.GetStats)
}

// ListAttempts handles GET /api/attempts
func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	opts := storage.QueryOptions{
		Limit:  50, // Default limit
		Offset: 0,  // Default offset
	}

	// Outcomes may be repeated or comma-separated
	for _, o := range query["outcome"] {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				opts.Outcomes = append(opts.Outcomes, storage.Outcome(part))
			}
		}
	}

	if userID := query.Get("user_id"); userID != "" {
		id, err := strconv.ParseInt(userID, 10, 64)
		if err != nil {
			http.Error(w, "Invalid user_id parameter", http.StatusBadRequest)
			return
		}
		opts.UserID = id
	}

	// Parse since/until
	if since := query.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			http.Error(w, "Invalid since parameter", http.StatusBadRequest)
			return
		}
		opts.Since = t
	}

	if until := query.Get("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			http.Error(w, "Invalid until parameter", http.StatusBadRequest)
			return
		}
		opts.Until = t
	}

	// Parse limit/offset
	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}

	if offset := query.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			http.Error(w, "Invalid offset parameter", http.StatusBadRequest)
			return
		}
		opts.Offset = n
	}

	attempts, total, err := h.store.ListAttempts(r.Context(), opts)
	if err != nil {
		h.logger.Error("Error listing attempts", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []*storage.Attempt{}
	}

	h.writeJSON(w, map[string]any{
		"attempts": attempts,
		"total":    total,
	})
}

// GetAttempt handles GET /api/attempts/{id}
func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing attempt ID", http.StatusBadRequest)
		return
	}

	attempt, err := h.store.GetAttempt(r.Context(), id)
	if storage.IsNotFoundError(err) {
		http.Error(w, "Attempt not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Error getting attempt", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, attempt)
}

// GetStats handles GET /api/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Get stats for last 24 hours by default
	since := time.Now().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "Invalid since parameter", http.StatusBadRequest)
			return
		}
		since = t
	}

	stats, err := h.store.GetStats(r.Context(), since)
	if err != nil {
		h.logger.Error("Error getting stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, stats)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Error encoding response", "error", err)
	}
}
