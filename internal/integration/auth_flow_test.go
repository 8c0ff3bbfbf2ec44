package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"initguard/internal/authhandler"
	"initguard/internal/replay"
	"initguard/internal/storage"
)

func TestAuthFlow(t *testing.T) {
	handler, _ := newService(t, authhandler.Options{
		MaxAge:    time.Hour,
		Replay:    replay.NewMemoryGuard(),
		ReplayTTL: time.Hour,
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	now := time.Now()
	valid := signed(`{"id":279058397,"first_name":"Vladislav","username":"vdkfrost"}`, now)

	t.Run("Valid init data", func(t *testing.T) {
		resp := postInitData(t, server.Client(), server.URL, valid)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body authhandler.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Valid)
		require.NotNil(t, body.User)
		assert.Equal(t, int64(279058397), body.User.ID)
	})

	t.Run("Replay", func(t *testing.T) {
		resp := postInitData(t, server.Client(), server.URL, valid)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Tampered user", func(t *testing.T) {
		tampered := strings.Replace(signed(`{"id":1,"first_name":"A"}`, now), "%22id%22%3A1", "%22id%22%3A2", 1)
		resp := postInitData(t, server.Client(), server.URL, tampered)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Stale init data", func(t *testing.T) {
		resp := postInitData(t, server.Client(), server.URL, signed(`{"id":3,"first_name":"C"}`, now.Add(-2*time.Hour)))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Malformed", func(t *testing.T) {
		resp := postInitData(t, server.Client(), server.URL, "auth_date=1&user")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Invalid method", func(t *testing.T) {
		resp, err := server.Client().Get(server.URL + "/auth")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("Audit log", func(t *testing.T) {
		resp, err := server.Client().Get(server.URL + "/api/stats")
		require.NoError(t, err)
		defer resp.Body.Close()

		var stats map[string]int64
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
		assert.Equal(t, map[string]int64{
			"valid":     1,
			"replayed":  1,
			"invalid":   1,
			"expired":   1,
			"malformed": 1,
		}, stats)

		resp, err = server.Client().Get(server.URL + "/api/attempts?user_id=279058397")
		require.NoError(t, err)
		defer resp.Body.Close()

		var list struct {
			Attempts []*storage.Attempt `json:"attempts"`
			Total    int                `json:"total"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		assert.Equal(t, 2, list.Total)
		for _, attempt := range list.Attempts {
			assert.Equal(t, "vdkfrost", attempt.Username)
		}
	})
}

func TestMetricsCollector(t *testing.T) {
	_, store := newService(t, authhandler.Options{})
	collector := storage.NewDBMetricsCollector(store, discardLogger())

	require.NoError(t, store.StoreAttempt(context.Background(), &storage.Attempt{Outcome: storage.OutcomeValid}))
	require.NoError(t, collector.GatherMetrics(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- collector.Run(ctx, 10*time.Millisecond) }()

	collector.EnqueueGatherMetrics()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}
