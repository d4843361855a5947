// Package secrets resolves database credentials from AWS Secrets Manager or
// the environment, trying each configured source in order.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrIncomplete means a secret was read but lacks a required field.
var ErrIncomplete = errors.New("secrets: missing required database credentials")

// ErrNoSources means the chain was empty.
var ErrNoSources = errors.New("secrets: no credential source configured")

// DBCredentials are the connection parameters stored in a database secret.
type DBCredentials struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Host     string      `json:"host"`
	Port     json.Number `json:"port"`
}

// Check reports ErrIncomplete unless every field is set.
func (c DBCredentials) Check() error {
	if c.Username == "" || c.Password == "" || c.Host == "" || c.Port == "" {
		return ErrIncomplete
	}
	return nil
}

// DSN builds a postgres URL for database.
func (c DBCredentials) DSN(database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port.String()),
		Path:   "/" + database,
	}
	return u.String()
}

// Source yields database credentials.
type Source interface {
	Name() string
	Credentials(ctx context.Context) (DBCredentials, error)
}

type smAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager reads a JSON secret with username, password, host and port.
type SecretsManager struct {
	client   smAPI
	secretID string
}

// NewSecretsManager returns a source for secretID.
func NewSecretsManager(client smAPI, secretID string) *SecretsManager {
	return &SecretsManager{client: client, secretID: secretID}
}

func (s *SecretsManager) Name() string { return "secretsmanager:" + s.secretID }

func (s *SecretsManager) Credentials(ctx context.Context) (DBCredentials, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return DBCredentials{}, fmt.Errorf("get secret %s: %w", s.secretID, err)
	}
	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return DBCredentials{}, fmt.Errorf("secret %s: empty secret string", s.secretID)
	}
	var creds DBCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return DBCredentials{}, fmt.Errorf("secret %s: decode: %w", s.secretID, err)
	}
	if err := creds.Check(); err != nil {
		return DBCredentials{}, fmt.Errorf("secret %s: %w", s.secretID, err)
	}
	return creds, nil
}

// Env reads DB_USER, DB_PASSWORD, DB_HOST and DB_PORT.
type Env struct{}

func (Env) Name() string { return "env" }

func (Env) Credentials(context.Context) (DBCredentials, error) {
	creds := DBCredentials{
		Username: os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Host:     os.Getenv("DB_HOST"),
		Port:     json.Number(os.Getenv("DB_PORT")),
	}
	if err := creds.Check(); err != nil {
		return DBCredentials{}, fmt.Errorf("env: %w", err)
	}
	return creds, nil
}

// Chain tries each source in order; the first success wins.
type Chain struct {
	sources []Source
	logger  *slog.Logger
}

// NewChain builds a chain over sources, skipping nil entries.
func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Credentials returns the first complete credentials. When all sources fail
// the individual errors are joined.
func (c *Chain) Credentials(ctx context.Context) (DBCredentials, error) {
	if len(c.sources) == 0 {
		return DBCredentials{}, ErrNoSources
	}
	var errs []error
	for _, s := range c.sources {
		creds, err := s.Credentials(ctx)
		if err == nil {
			c.logger.InfoContext(ctx, "database credentials resolved", "source", s.Name())
			return creds, nil
		}
		c.logger.WarnContext(ctx, "credential source failed, trying next",
			"source", s.Name(),
			"error", err,
		)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return DBCredentials{}, errors.Join(errs...)
}
