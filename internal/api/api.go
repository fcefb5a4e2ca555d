// Package api provides HTTP handlers and the main API server logic for Philview.
//
// It exposes chat sessions driven by the assistant, the stateless chat classifier endpoint,
// the appointment payload endpoint and the directory reads the assistant relies on. The API
// integrates the assistant, appointments, store, genai and notify modules.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/philview/philview/internal/appointments"
	"github.com/philview/philview/internal/assistant"
	"github.com/philview/philview/internal/genai"
	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/notify"
	"github.com/philview/philview/internal/scheduler"
	"github.com/philview/philview/internal/store"
)

// Constants for API server configuration
const (
	// DefaultServerAddress is the default address for the API server
	DefaultServerAddress = ":8080"
	// DefaultRateLimit is the default sustained requests per second per client IP
	DefaultRateLimit = 5.0
	// DefaultRateBurst is the default burst size per client IP
	DefaultRateBurst = 20
	// DefaultSweepInterval is how often idle chat sessions are expired
	DefaultSweepInterval = time.Minute
	// DefaultOutboxPollInterval is how often queued notices are delivered
	DefaultOutboxPollInterval = 5 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second
	// MaxRequestBodyBytes limits JSON request bodies
	MaxRequestBodyBytes = 1 << 20
	// DefaultReminderSchedule queues the day's appointment reminders at 08:00
	DefaultReminderSchedule = "0 8 * * *"
	// DefaultOutboxRecoverySchedule requeues notices stuck in sending
	DefaultOutboxRecoverySchedule = "*/5 * * * *"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr              string
	JWTSecret         string
	RateLimit         float64
	RateBurst         int
	ClassifierTimeout time.Duration
	SessionIdleTTL    time.Duration
	ServerApply       bool
	RedisAddr         string
	RedisPassword     string
	NotifyRecipient   string
	ReminderSchedule  string
	Seed              bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithJWTSecret enables HS256 bearer tokens. When set, X-User-* headers are ignored.
func WithJWTSecret(secret string) Option {
	return func(o *Opts) { o.JWTSecret = secret }
}

// WithRateLimit sets the per-IP request rate. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Opts) {
		o.RateLimit = rps
		o.RateBurst = burst
	}
}

// WithClassifierTimeout bounds each model call.
func WithClassifierTimeout(d time.Duration) Option {
	return func(o *Opts) { o.ClassifierTimeout = d }
}

// WithSessionIdleTTL sets how long an idle chat session is kept.
func WithSessionIdleTTL(d time.Duration) Option {
	return func(o *Opts) { o.SessionIdleTTL = d }
}

// WithServerApply makes chat sessions apply appointment payloads on the server as they are dispatched.
func WithServerApply(enabled bool) Option {
	return func(o *Opts) { o.ServerApply = enabled }
}

// WithRedis uses a Redis SETNX ledger for payload nonces instead of the store.
func WithRedis(addr, password string) Option {
	return func(o *Opts) {
		o.RedisAddr = addr
		o.RedisPassword = password
	}
}

// WithNotifyRecipient sends appointment notices to this number.
func WithNotifyRecipient(to string) Option {
	return func(o *Opts) { o.NotifyRecipient = to }
}

// WithReminderSchedule sets the cron expression for daily appointment reminders. Empty disables them.
func WithReminderSchedule(expr string) Option {
	return func(o *Opts) { o.ReminderSchedule = expr }
}

// WithSeed loads the demo property catalog at startup.
func WithSeed(seed bool) Option {
	return func(o *Opts) { o.Seed = seed }
}

func defaultOpts() Opts {
	return Opts{
		Addr:              DefaultServerAddress,
		RateLimit:         DefaultRateLimit,
		RateBurst:         DefaultRateBurst,
		ClassifierTimeout: assistant.DefaultClassifierTimeout,
		SessionIdleTTL:    assistant.DefaultSessionIdleTTL,
		ServerApply:       true,
		ReminderSchedule:  DefaultReminderSchedule,
	}
}

// Server holds all dependencies for the API handlers.
type Server struct {
	st         store.Store
	classifier *assistant.Classifier
	sessions   *assistant.Manager
	applier    *appointments.Applier
	auth       *Authenticator
	limiter    *RateLimiter
	addr       string
}

// NewServer wires the handlers. The classifier decides whether a model is used.
func NewServer(st store.Store, classifier *assistant.Classifier, applier *appointments.Applier, opts ...Option) *Server {
	cfg := defaultOpts()
	for _, opt := range opts {
		opt(&cfg)
	}

	managerOpts := []assistant.ManagerOption{
		assistant.WithSessionCatalog(st),
		assistant.WithIdleTTL(cfg.SessionIdleTTL),
	}
	if cfg.ServerApply {
		managerOpts = append(managerOpts, assistant.WithNavigatorFactory(func(u *models.User) assistant.Navigator {
			return appointments.NewNavigator(applier, u)
		}))
	}

	s := &Server{
		st:         st,
		classifier: classifier,
		sessions:   assistant.NewManager(classifier, managerOpts...),
		applier:    applier,
		auth:       NewAuthenticator(cfg.JWTSecret),
		addr:       cfg.Addr,
	}
	if cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return s
}

// Handler returns the routed handler wrapped in the rate limiting and auth middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/sessions", s.createSessionHandler)
	mux.HandleFunc("/sessions/", s.sessionHandler)
	mux.HandleFunc("/appointments", s.listAppointmentsHandler)
	mux.HandleFunc("/appointments/apply", s.applyAppointmentHandler)
	mux.HandleFunc("/properties", s.listPropertiesHandler)
	mux.HandleFunc("/inquiries", s.inquiriesHandler)
	mux.HandleFunc("/inquiries/", s.inquiryResponseHandler)

	var h http.Handler = mux
	h = s.auth.Middleware(h)
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return h
}

// Run builds every dependency from the given options and serves until SIGINT or SIGTERM.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, notifyOpts []notify.Option, apiOpts []Option) error {
	cfg := defaultOpts()
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if cfg.Seed {
		if err := store.Seed(ctx, st); err != nil {
			return err
		}
	}

	classifierOpts := []assistant.ClassifierOption{assistant.WithTimeout(cfg.ClassifierTimeout)}
	gaClient, err := genai.NewClient(genaiOpts...)
	switch {
	case errors.Is(err, genai.ErrMissingAPIKey):
		slog.Info("API.Run: no OpenAI API key, chat uses keyword routing only")
	case err != nil:
		return fmt.Errorf("failed to create GenAI client: %w", err)
	default:
		classifierOpts = append(classifierOpts, assistant.WithModel(gaClient))
	}
	classifier := assistant.NewClassifier(classifierOpts...)

	var ledger store.NonceLedger = st
	if cfg.RedisAddr != "" {
		rdb, err := appointments.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			return err
		}
		defer rdb.Close()
		ledger = appointments.NewRedisLedger(rdb)
		slog.Info("API.Run: using Redis nonce ledger", "addr", cfg.RedisAddr)
	}
	applierOpts := []appointments.Option{appointments.WithLedger(ledger)}
	jobs := scheduler.New()

	var sender *store.OutboxSender
	if cfg.NotifyRecipient != "" {
		tw, err := notify.NewClient(notifyOpts...)
		if err != nil {
			slog.Warn("API.Run: appointment notices disabled", "error", err)
		} else {
			applierOpts = append(applierOpts, appointments.WithNotifications(st, cfg.NotifyRecipient))
			sender = store.NewOutboxSender(st, notify.OutboxSendFunc(tw), DefaultOutboxPollInterval)
			if err := sender.RecoverStaleMessages(ctx); err != nil {
				slog.Error("API.Run: failed to recover stale outbox messages", "error", err)
			}
			if err := jobs.AddJob("outbox-recovery", DefaultOutboxRecoverySchedule, func() {
				if err := sender.RecoverStaleMessages(ctx); err != nil {
					slog.Error("API.Run: outbox recovery failed", "error", err)
				}
			}); err != nil {
				return err
			}
			go sender.Run(ctx)
		}
	}

	applier := appointments.NewApplier(st, applierOpts...)
	if sender != nil && cfg.ReminderSchedule != "" {
		if err := jobs.AddJob("appointment-reminders", cfg.ReminderSchedule, func() {
			if _, err := applier.SendReminders(ctx); err != nil {
				slog.Error("API.Run: appointment reminders failed", "error", err)
			}
		}); err != nil {
			return err
		}
	}
	go jobs.Run(ctx)

	server := NewServer(st, classifier, applier, apiOpts...)
	go server.sessions.Run(ctx, DefaultSweepInterval)
	if server.limiter != nil {
		go server.limiter.Run(ctx, time.Minute)
	}

	httpServer := &http.Server{
		Addr:              server.addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Philview API running", "addr", server.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		slog.Info("API.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
