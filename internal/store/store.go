// Package store provides storage backends for Philview.
//
// It holds the directory records the appointment consumer works on (properties, appointments,
// inquiries), the ledger of applied dispatch nonces and the notification outbox. Backends are
// in-memory, SQLite and PostgreSQL.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/philview/philview/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Directory is the set of directory records read and written by the assistant and the
// appointment consumer.
type Directory interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	SaveProperty(ctx context.Context, p models.Property) error

	// CreateAppointment stores a new appointment, assigning an id and timestamps.
	CreateAppointment(ctx context.Context, a models.Appointment) (models.Appointment, error)
	// ListAppointments returns the appointments of userID, oldest first. An empty userID lists all.
	ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) error

	// CreateInquiry stores a new inquiry, assigning an id and timestamps.
	CreateInquiry(ctx context.Context, inq models.Inquiry) (models.Inquiry, error)
	// ListInquiries returns inquiries sent from clientEmail, newest first. An empty email lists all.
	ListInquiries(ctx context.Context, clientEmail string) ([]models.Inquiry, error)
	RespondToInquiry(ctx context.Context, id, response string, status models.InquiryStatus) error
}

// Store is a complete storage backend.
type Store interface {
	Directory
	NonceLedger
	OutboxRepo
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN    string
	Driver string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN selects the SQLite backend with a database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = "sqlite3"
	}
}

// WithPostgresDSN selects the PostgreSQL backend.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = "postgres"
	}
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// Open builds the backend selected by opts; without a DSN it returns an in-memory store.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Info("store.Open: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	case cfg.Driver == "postgres":
		return NewPostgresStore(opts...)
	default:
		return NewSQLiteStore(opts...)
	}
}
