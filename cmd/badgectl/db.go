package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/cobra"

	"badgeworks/internal/badge/ledger"
	"badgeworks/internal/platform/config"
	"badgeworks/internal/platform/database"
	"badgeworks/internal/platform/logger"
	"badgeworks/internal/platform/secrets"
)

type dbFlags struct {
	url              string
	name             string
	secretID         string
	fallbackSecretID string
	region           string
	attempts         int
	delay            time.Duration
}

func dbCmd() *cobra.Command {
	f := &dbFlags{}
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Ledger database maintenance",
	}

	cmd.PersistentFlags().StringVar(&f.url, "database-url", "", "Postgres URL (skips secret lookup)")
	cmd.PersistentFlags().StringVar(&f.name, "db-name", config.DefaultDBName, "Database name used with secret credentials")
	cmd.PersistentFlags().StringVar(&f.secretID, "secret-id", "", "Primary Secrets Manager secret id")
	cmd.PersistentFlags().StringVar(&f.fallbackSecretID, "fallback-secret-id", "", "Fallback Secrets Manager secret id")
	cmd.PersistentFlags().StringVar(&f.region, "region", "", "AWS region for Secrets Manager")
	cmd.PersistentFlags().IntVar(&f.attempts, "attempts", config.DefaultConnectAttempts, "Connection attempts")
	cmd.PersistentFlags().DurationVar(&f.delay, "delay", config.DefaultConnectDelay, "Delay between connection attempts")

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the ledger database is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := f.open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			var version string
			if err := pool.DB().QueryRowContext(cmd.Context(), "SELECT version()").Scan(&version); err != nil {
				return fmt.Errorf("query server version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected: %s\n", version)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Create the badges table and indexes if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := f.open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := ledger.NewPostgres(pool).EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	})

	return cmd
}

func (f *dbFlags) open(ctx context.Context) (*database.Pool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.New("info", "text")

	dsn, err := f.dsn(ctx, log)
	if err != nil {
		return nil, err
	}
	cfg := database.DefaultConfig()
	cfg.URL = dsn
	cfg.Retry = database.RetryPolicy{MaxAttempts: f.attempts, Delay: f.delay}
	return database.New(ctx, cfg, log)
}

func (f *dbFlags) dsn(ctx context.Context, log *slog.Logger) (string, error) {
	if f.url != "" {
		return f.url, nil
	}

	var sources []secrets.Source
	if f.secretID != "" || f.fallbackSecretID != "" {
		var opts []func(*awsconfig.LoadOptions) error
		if f.region != "" {
			opts = append(opts, awsconfig.WithRegion(f.region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return "", fmt.Errorf("load aws configuration: %w", err)
		}
		sm := secretsmanager.NewFromConfig(awsCfg)
		for _, secretID := range []string{f.secretID, f.fallbackSecretID} {
			if secretID != "" {
				sources = append(sources, secrets.NewSecretsManager(sm, secretID))
			}
		}
	}
	sources = append(sources, secrets.Env{})

	creds, err := secrets.NewChain(log, sources...).Credentials(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve database credentials: %w", err)
	}
	return creds.DSN(f.name), nil
}
