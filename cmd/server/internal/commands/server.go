package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/authn"
	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"connectrpc.com/otelconnect"
	"github.com/nluhub/nluhub/internal/access"
	"github.com/nluhub/nluhub/internal/auth"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/config"
	httpx "github.com/nluhub/nluhub/internal/http"
	"github.com/nluhub/nluhub/internal/logger"
	"github.com/nluhub/nluhub/internal/notify"
	"github.com/nluhub/nluhub/internal/server"
	"github.com/nluhub/nluhub/internal/store"
	memorystore "github.com/nluhub/nluhub/internal/store/memory"
	postgresstore "github.com/nluhub/nluhub/internal/store/postgres"
	"github.com/nluhub/nluhub/internal/telemetry"
	"github.com/nluhub/nluhub/internal/trainer"
	"github.com/nluhub/nluhub/internal/training"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8443" env:"NLUHUB_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"NLUHUB_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"NLUHUB_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"NLUHUB_CORS_ORIGINS"`
	TrustProxy  bool     `help:"use X-Forwarded-For and X-Real-IP for client addresses" default:"false" env:"NLUHUB_TRUST_PROXY"`

	// Authentication
	JWTPublicKey string `help:"path to the PEM-encoded ES256 public key used to verify tokens" default:"" env:"NLUHUB_JWT_PUBLIC_KEY"`
	NoAuth       bool   `help:"trust the X-Principal-ID header instead of verifying tokens (development only)" default:"false" env:"NLUHUB_NO_AUTH"`

	// Policy configuration
	PolicyFile string `help:"path to a YAML or JSON policy file" default:"" env:"NLUHUB_POLICY_FILE"`

	// Operational modes
	Tracing     bool    `help:"enable tracing" default:"false" env:"NLUHUB_TRACING"`
	SampleRatio float64 `help:"trace sample ratio" default:"1.0" env:"NLUHUB_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"NLUHUB_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Trainer       TrainerFlags       `embed:"" prefix:"trainer-"`
	SMTP          SMTPFlags          `embed:"" prefix:"smtp-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`
	ConnectTries    uint          `help:"attempts to reach the database at startup" default:"5"`

	// Store Configuration
	QueryTimeout int32 `help:"query timeout in seconds, -1 to rely on request deadlines" default:"10"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"NLUHUB_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

// TrainerFlags configures the remote trainer. Training is only recorded
// locally when URL is empty.
type TrainerFlags struct {
	URL      string        `help:"base URL of the trainer" default:"" env:"NLUHUB_TRAINER_URL"`
	Timeout  time.Duration `help:"per-attempt trainer request timeout" default:"30s" env:"NLUHUB_TRAINER_TIMEOUT"`
	MaxTries uint          `help:"attempts per trainer request" default:"3" env:"NLUHUB_TRAINER_MAX_TRIES"`
}

// SMTPFlags configures notification mail. Notifications are logged when Host
// is empty.
type SMTPFlags struct {
	Host     string `help:"SMTP server host" default:"" env:"NLUHUB_SMTP_HOST"`
	Port     int    `help:"SMTP server port" default:"587" env:"NLUHUB_SMTP_PORT"`
	Username string `help:"SMTP username" default:"" env:"NLUHUB_SMTP_USERNAME"`
	Password string `help:"SMTP password" default:"" env:"NLUHUB_SMTP_PASSWORD"`
	From     string `help:"sender address" default:"" env:"NLUHUB_SMTP_FROM"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	policy, err := config.Load(c.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	ceiling, err := policy.Ceiling()
	if err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	// Setup telemetry if enabled
	interceptors := []connect.Interceptor{logger.NewConnectRequests(log)}
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "nluhub-server", globals.Version, c.SampleRatio)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			return fmt.Errorf("failed to create OTEL interceptor: %w", err)
		}
		interceptors = append(interceptors, otelInterceptor)
	}

	var stores *store.Stores
	switch c.StoreType {
	case "postgres":
		db, err := c.openPostgres(ctx)
		if err != nil {
			return err
		}
		if err := db.Start(); err != nil {
			return err
		}
		defer func() {
			if err := db.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop postgres store")
			}
		}()
		stores = db.Stores()
		log.Info().Msg("Using PostgreSQL stores")

	default:
		stores = memorystore.NewStores()
		log.Info().Msg("Using in-memory stores")
	}

	var sender notify.Sender = notify.LogSender{}
	if c.SMTP.Host != "" {
		smtpCfg := notify.SMTPConfig{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.SMTP.From,
		}
		if err := smtpCfg.Validate(); err != nil {
			return fmt.Errorf("failed to validate smtp flags: %w", err)
		}
		sender = notify.NewSMTPSender(smtpCfg, stores.Principals)
		log.Info().Str("host", c.SMTP.Host).Msg("Sending notifications over SMTP")
	}
	dispatcher := notify.NewDispatcher(sender)
	defer dispatcher.Wait()

	resolver := authz.NewResolver(stores, authz.WithPromotionCeiling(ceiling))
	workflow := access.NewWorkflow(stores, resolver, dispatcher)
	manager := training.NewManager(stores, resolver,
		training.WithPolicy(policy.Readiness),
		training.WithStrictReadiness(policy.StrictReadiness),
	)

	srv := server.NewServer(stores, resolver, workflow, manager)
	if c.Trainer.URL != "" {
		trainerClient, err := trainer.NewClient(trainer.Config{
			BaseURL:  c.Trainer.URL,
			Timeout:  c.Trainer.Timeout,
			MaxTries: c.Trainer.MaxTries,
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to create trainer client: %w", err)
		}
		srv.WithTrainer(trainerClient)
		log.Info().Str("url", c.Trainer.URL).Msg("Trainer configured")
	}

	authFunc, err := c.authFunc(log)
	if err != nil {
		return err
	}

	handler := withCORS(c.CORSOrigins, httpx.ClientIPMiddleware(c.TrustProxy)(srv.Handler(authFunc, interceptors...)))

	httpServer := configureHTTPServer(c.Listen, handler)
	errCh := make(chan error, 1)
	go func() {
		if c.Cert == "" && c.Key == "" {
			log.Warn().Str("addr", c.Listen).Msg("No TLS certificate configured, serving plaintext HTTP/2 (h2c)")
			httpServer.Handler = h2c.NewHandler(handler, &http2.Server{})
			errCh <- httpServer.ListenAndServe()
			return
		}
		if err := c.validateTLS(); err != nil {
			errCh <- err
			return
		}
		log.Info().Str("addr", c.Listen).Bool("auth", !c.NoAuth).Msg("Starting HTTPS server")
		errCh <- httpServer.ListenAndServeTLS(c.Cert, c.Key)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (c *ServerCmd) authFunc(log zerolog.Logger) (authn.AuthFunc, error) {
	if c.NoAuth {
		log.Warn().Msg("Authentication is disabled (--no-auth). This should only be used in development!")
		return auth.NoAuthFunc, nil
	}
	if c.JWTPublicKey == "" {
		return nil, errors.New("a token public key is required (--jwt-public-key or NLUHUB_JWT_PUBLIC_KEY), or pass --no-auth")
	}
	publicKeyPEM, err := os.ReadFile(c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read token public key: %w", err)
	}
	return auth.NewJWTAuthFunc(string(publicKeyPEM))
}

func (c *ServerCmd) validateTLS() error {
	if c.Cert == "" || c.Key == "" {
		return errors.New("TLS certificate and key are required together (--cert and --key)")
	}
	if _, err := os.Stat(c.Cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}
	return nil
}

// openPostgres connects to PostgreSQL and applies migrations when enabled.
func (c *ServerCmd) openPostgres(ctx context.Context) (*postgresstore.DB, error) {
	if err := c.PostgresStore.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	poolCfg := &postgresstore.PoolConfig{
		ConnString:      c.PostgresStore.ConnString,
		MaxConns:        c.PostgresStore.MaxConns,
		MinConns:        c.PostgresStore.MinConns,
		MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
		MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		ConnectTries:    c.PostgresStore.ConnectTries,
	}
	storeCfg := &postgresstore.StoreConfig{
		AutoMigrate:         c.PostgresStore.AutoMigrate,
		QueryTimeoutSeconds: c.PostgresStore.QueryTimeout,
	}

	return postgresstore.Open(ctx, poolCfg, storeCfg)
}

// withCORS adds CORS support to a Connect HTTP handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: connectcors.AllowedMethods(),
		AllowedHeaders: append(connectcors.AllowedHeaders(), "Authorization", auth.PrincipalHeader),
		ExposedHeaders: connectcors.ExposedHeaders(),
	})
	return middleware.Handler(h)
}
