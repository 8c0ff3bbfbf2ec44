package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"initguard/internal/config"
	"initguard/internal/initdata"
	"initguard/internal/report"
)

var errInvalidSignature = errors.New("init data signature is invalid")

// errMissingBotToken names every place a bot token can come from
var errMissingBotToken = fmt.Errorf("bot token is required (set --bot-token, INITGUARD_BOT_TOKEN or %s)", config.BotTokenEnv)

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a single initData payload and print a diagnostic report",
		Long: `Verify recomputes the signature of an initData payload and prints the
decoded fields, the check string, both signatures and the verdict. The
payload is read from --init-data, or from stdin when the flag is empty or "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}

			botToken := botTokenFrom(v.GetString("bot-token"))
			if botToken == "" {
				return errMissingBotToken
			}

			raw := v.GetString("init-data")
			if raw == "" || raw == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading init data from stdin: %w", err)
				}
				raw = string(data)
			}
			raw = strings.TrimSpace(raw)

			out := cmd.OutOrStdout()
			res, err := initdata.Verify(botToken, raw)
			if err != nil {
				if werr := report.WriteError(out, err); werr != nil {
					return werr
				}
				return err
			}

			if err := report.Write(out, res); err != nil {
				return err
			}
			a.logger.Debug("verified init data", "valid", res.Valid, "fields", len(res.Payload.Fields()))

			if !res.Valid {
				return errInvalidSignature
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("bot-token", "", "Bot token the payload was signed for")
	flags.String("init-data", "", `Raw initData query string ("-" reads stdin)`)

	return cmd
}

// botTokenFrom falls back to TELEGRAM_BOT_TOKEN when no token was given
func botTokenFrom(token string) string {
	return (&config.Config{BotToken: token}).GetBotToken()
}
