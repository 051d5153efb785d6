package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"feedplanner/internal/infra"
)

// env carries the dependencies commands reach for. Tests swap openSQL.
type env struct {
	out     io.Writer
	logger  zerolog.Logger
	openSQL func(ctx context.Context) (infra.SQLExecutor, func(), error)
}

func defaultEnv() *env {
	return &env{
		out:    os.Stdout,
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Str("cmd", "feedctl").Logger(),
		openSQL: func(ctx context.Context) (infra.SQLExecutor, func(), error) {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return nil, nil, err
			}
			pool, err := infra.NewDBPool(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", "feedctl").Logger()
			return infra.NewSQLRunner(pool, logger), pool.Close, nil
		},
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Operate the feed planner: rotation state, templates, credits and provider keys.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(e.out)
	root.AddCommand(
		newRotationCmd(e),
		newTemplatesCmd(e),
		newCreditsCmd(e),
		newProviderKeyCmd(e),
	)
	return root
}

// withSQL opens the database for the duration of fn.
func (e *env) withSQL(ctx context.Context, fn func(sql infra.SQLExecutor) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	sql, closeFn, err := e.openSQL(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(sql)
}
