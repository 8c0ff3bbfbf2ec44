package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"initguard/internal/config"
)

// envPrefix namespaces environment overrides, e.g. INITGUARD_DB
const envPrefix = "initguard"

// app carries state shared by the subcommands of one invocation
type app struct {
	logger *slog.Logger
	// cfg is the configuration resolved by the serve command
	cfg config.Config
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initguard",
		Short: "initguard - Telegram mini-app initData verifier",
		Long: `initguard verifies the initData payload a Telegram mini-app receives from
its host. It can check a single payload from the command line, sign test
payloads, or run an HTTP service that verifies payloads and keeps an audit
log of every attempt.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}

			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(v.GetString("log-level"), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (optional)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newVerifyCmd(a),
		newSignCmd(a),
		newServeCmd(a),
		newAttemptsCmd(a),
		newSimulateCmd(a),
	)

	return cmd
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// newViper binds the command's flags and INITGUARD_* environment variables
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
