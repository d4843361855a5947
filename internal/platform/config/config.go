package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the matching variable is unset.
const (
	DefaultAddr            = ":8080"
	DefaultEnvironment     = "development"
	DefaultCatalogPath     = "assets/catalog.yaml"
	DefaultTemplatePath    = "assets/template.png"
	DefaultSubjectIDMin    = 100
	DefaultSubjectIDMax    = 151
	DefaultDBName          = "badge_db"
	DefaultConnectAttempts = 5
	DefaultConnectDelay    = 2 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultLinkedInAPIURL  = "https://api.linkedin.com/v2/shares"
	DefaultLinkedInRetries = 2
)

// Config is the full runtime configuration of the badge server.
type Config struct {
	Server    Server
	Badges    Badges
	Database  Database
	Artifacts Artifacts
	LinkedIn  LinkedIn
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	RequestTimeout time.Duration
}

// Badges locates the catalog and template and bounds the subject id range.
type Badges struct {
	CatalogPath  string
	TemplatePath string
	SubjectIDMin int64
	SubjectIDMax int64
}

// Database configures the ledger connection. An empty SecretID and no
// DATABASE_URL select the in-memory ledger.
type Database struct {
	URL              string
	Name             string
	SecretID         string
	FallbackSecretID string
	ConnectAttempts  int
	ConnectDelay     time.Duration
	Region           string
}

// Configured reports whether a Postgres ledger was requested.
func (d Database) Configured() bool {
	return d.URL != "" || d.SecretID != "" || d.FallbackSecretID != ""
}

// Artifacts configures the object store. An empty Bucket selects the
// in-memory store.
type Artifacts struct {
	Bucket     string
	PublicHost string
	Region     string
}

// LinkedIn configures badge sharing. Sharing is on unless explicitly disabled.
type LinkedIn struct {
	Enabled      bool
	APIURL       string
	BadgeBaseURL string
	Retries      int
}

// Log selects the log level and handler format ("json" or "text").
type Log struct {
	Level  string
	Format string
}

// FromEnv builds a Config from environment variables so main stays lean.
// Malformed numeric or duration values are reported together.
func FromEnv() (Config, error) {
	e := &envReader{}
	region := os.Getenv("AWS_REGION")

	cfg := Config{
		Server: Server{
			Addr:           e.str("BADGE_ADDR", DefaultAddr),
			Environment:    e.str("BADGE_ENV", DefaultEnvironment),
			RequestTimeout: e.duration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		},
		Badges: Badges{
			CatalogPath:  e.str("CATALOG_PATH", DefaultCatalogPath),
			TemplatePath: e.str("TEMPLATE_PATH", DefaultTemplatePath),
			SubjectIDMin: int64(e.integer("SUBJECT_ID_MIN", DefaultSubjectIDMin)),
			SubjectIDMax: int64(e.integer("SUBJECT_ID_MAX", DefaultSubjectIDMax)),
		},
		Database: Database{
			URL:              os.Getenv("DATABASE_URL"),
			Name:             e.str("DB_NAME", DefaultDBName),
			SecretID:         os.Getenv("DB_SECRET_ID"),
			FallbackSecretID: os.Getenv("DB_FALLBACK_SECRET_ID"),
			ConnectAttempts:  e.integer("DB_CONNECT_ATTEMPTS", DefaultConnectAttempts),
			ConnectDelay:     e.duration("DB_CONNECT_DELAY", DefaultConnectDelay),
			Region:           region,
		},
		Artifacts: Artifacts{
			Bucket:     os.Getenv("ARTIFACT_BUCKET"),
			PublicHost: os.Getenv("ARTIFACT_PUBLIC_HOST"),
			Region:     region,
		},
		LinkedIn: LinkedIn{
			Enabled:      os.Getenv("LINKEDIN_DISABLED") != "true",
			APIURL:       e.str("LINKEDIN_API_URL", DefaultLinkedInAPIURL),
			BadgeBaseURL: os.Getenv("LINKEDIN_BADGE_BASE_URL"),
			Retries:      e.integer("LINKEDIN_RETRIES", DefaultLinkedInRetries),
		},
		Log: Log{
			Level:  e.str("LOG_LEVEL", "info"),
			Format: e.str("LOG_FORMAT", "json"),
		},
	}
	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Badges.SubjectIDMin > c.Badges.SubjectIDMax {
		errs = append(errs, fmt.Errorf("SUBJECT_ID_MIN (%d) exceeds SUBJECT_ID_MAX (%d)", c.Badges.SubjectIDMin, c.Badges.SubjectIDMax))
	}
	if c.Database.ConnectAttempts < 1 {
		errs = append(errs, errors.New("DB_CONNECT_ATTEMPTS must be at least 1"))
	}
	if c.Database.ConnectDelay < 0 {
		errs = append(errs, errors.New("DB_CONNECT_DELAY must not be negative"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.LinkedIn.Retries < 0 {
		errs = append(errs, errors.New("LINKEDIN_RETRIES must not be negative"))
	}
	if c.Artifacts.Bucket != "" && c.Artifacts.Region == "" {
		errs = append(errs, errors.New("AWS_REGION is required when ARTIFACT_BUCKET is set"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in the production environment.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return d
}
