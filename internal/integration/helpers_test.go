package integration

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"initguard/internal/api"
	"initguard/internal/authhandler"
	"initguard/internal/initdata"
	"initguard/internal/metrics"
	"initguard/internal/storage"
	"initguard/internal/testutil"
)

const testToken = "123456:ABC-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newService wires the verification handler and audit API over one store
func newService(t testing.TB, opts authhandler.Options) (http.Handler, storage.Storage) {
	t.Helper()

	store := testutil.SetupTestDB(t)
	logger := discardLogger()

	opts.BotToken = testToken
	opts.Logger = logger
	opts.Store = store

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Handle("/auth", authhandler.NewHandler(opts))
	r.Route("/api", api.NewHandler(store, logger).Routes)

	return r, store
}

func signed(userJSON string, authDate time.Time) string {
	return initdata.Sign(testToken, []initdata.Field{
		{Name: "query_id", Value: "AAHdF6IQAAAAAN0XohDhrOrc"},
		{Name: "user", Value: userJSON},
		{Name: "auth_date", Value: strconv.FormatInt(authDate.Unix(), 10)},
	})
}

func postInitData(t testing.TB, client *http.Client, url, initData string) *http.Response {
	t.Helper()
	resp, err := client.Post(url+"/auth", "application/x-www-form-urlencoded", strings.NewReader(initData))
	require.NoError(t, err)
	return resp
}
