package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"initguard/internal/authhandler"
	"initguard/internal/initdata"
)

// simCase is one request the simulator sends
type simCase struct {
	Name     string
	InitData string
}

type simResult struct {
	Name   string
	Status int
	Code   string
}

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Send sample valid and rejected payloads to a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}

			botToken := botTokenFrom(v.GetString("bot-token"))
			if botToken == "" {
				return errMissingBotToken
			}

			targetURL := v.GetString("url")
			a.logger.Info("Starting init data simulation", "url", targetURL)

			client := &http.Client{Timeout: 10 * time.Second}
			cases := simulationCases(botToken, time.Now())
			if _, err := runSimulation(cmd.Context(), client, targetURL, cases, v.GetDuration("delay"), a.logger); err != nil {
				return err
			}

			a.logger.Info("Simulation complete")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("url", "http://localhost:8080/auth", "Verification endpoint")
	flags.String("bot-token", "", "Bot token the service verifies with")
	flags.Duration("delay", 500*time.Millisecond, "Delay between requests")

	return cmd
}

// simulationCases covers each outcome the service distinguishes. The valid
// payload is sent twice so an enabled replay guard rejects the second copy.
func simulationCases(botToken string, now time.Time) []simCase {
	user := func(id int64, name string) string {
		b, _ := json.Marshal(initdata.User{ID: id, FirstName: name, Username: strings.ToLower(name), LanguageCode: "en"})
		return string(b)
	}
	sign := func(authDate time.Time, u string) string {
		return initdata.Sign(botToken, []initdata.Field{
			{Name: "query_id", Value: uuid.NewString()},
			{Name: "user", Value: u},
			{Name: "auth_date", Value: strconv.FormatInt(authDate.Unix(), 10)},
		})
	}

	valid := sign(now, user(1001, "Alice"))
	tampered := strings.Replace(sign(now, user(1002, "Bob")), "%22bob%22", "%22eve%22", 1)

	return []simCase{
		{Name: "valid", InitData: valid},
		{Name: "replayed", InitData: valid},
		{Name: "tampered", InitData: tampered},
		{Name: "wrong bot", InitData: initdata.Sign(botToken+"x", []initdata.Field{{Name: "auth_date", Value: strconv.FormatInt(now.Unix(), 10)}})},
		{Name: "expired", InitData: sign(now.Add(-48*time.Hour), user(1004, "Carol"))},
		{Name: "missing hash", InitData: "auth_date=" + strconv.FormatInt(now.Unix(), 10)},
		{Name: "bad escape", InitData: "auth_date=%zz&hash=00"},
	}
}

func runSimulation(ctx context.Context, client *http.Client, targetURL string, cases []simCase, delay time.Duration, logger *slog.Logger) ([]simResult, error) {
	results := make([]simResult, 0, len(cases))
	for i, c := range cases {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(delay):
			}
		}

		logger.Info("Sending payload", "case", c.Name)

		body, err := json.Marshal(map[string]string{"initData": c.InitData})
		if err != nil {
			return results, fmt.Errorf("marshaling request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, strings.NewReader(string(body)))
		if err != nil {
			return results, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			logger.Error("Error sending payload", "case", c.Name, "error", err)
			continue
		}

		result := simResult{Name: c.Name, Status: resp.StatusCode}
		if resp.StatusCode != http.StatusOK {
			var errResp authhandler.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
				result.Code = errResp.Code
			}
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		logger.Info("Response", "case", c.Name, "status", resp.StatusCode, "code", result.Code, "duration", time.Since(start))
		results = append(results, result)
	}
	return results, nil
}
