// Package store provides storage backends for Philview.
//
// This file implements a PostgreSQL-backed directory store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/philview/philview/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ListProperties(ctx context.Context) ([]models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore ListProperties query failed", "error", err)
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	props, err := collect(rows, scanProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}
	return props, nil
}

func (s *PostgresStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) SaveProperty(ctx context.Context, p models.Property) error {
	features, err := encodeFeatures(p.Features)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (`+propertyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, location = EXCLUDED.location, lat = EXCLUDED.lat,
		   lng = EXCLUDED.lng, price = EXCLUDED.price, type = EXCLUDED.type, status = EXCLUDED.status,
		   description = EXCLUDED.description, image = EXCLUDED.image, features = EXCLUDED.features`,
		p.ID, p.Name, p.Location, p.Coordinates.Lat, p.Coordinates.Lng, p.Price, p.Type, p.Status, p.Description, p.Image, features)
	if err != nil {
		slog.Error("PostgresStore SaveProperty failed", "error", err, "propertyID", p.ID)
		return fmt.Errorf("failed to save property %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) CreateAppointment(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	prepareAppointment(&a, time.Now())
	if err := a.Validate(); err != nil {
		return a, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (`+appointmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.UserID, a.ClientName, a.ClientEmail, a.PropertyID, a.PropertyName, a.Date, a.Time, a.Status, a.Type,
		nilIfEmpty(a.Notes), nilIfEmpty(a.Contact), nilIfEmpty(a.ResponseNote), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateAppointment failed", "error", err, "userID", a.UserID)
		return a, fmt.Errorf("failed to insert appointment: %w", err)
	}
	slog.Debug("PostgresStore CreateAppointment succeeded", "appointmentID", a.ID, "userID", a.UserID)
	return a, nil
}

func (s *PostgresStore) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	var rows *sql.Rows
	var err error
	if userID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY created_at ASC, id ASC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, userID)
	}
	if err != nil {
		slog.Error("PostgresStore ListAppointments query failed", "error", err)
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	apts, err := collect(rows, scanAppointment)
	if err != nil {
		return nil, fmt.Errorf("failed to read appointments: %w", err)
	}
	return apts, nil
}

func (s *PostgresStore) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if !models.IsValidAppointmentStatus(status) {
		return models.ErrInvalidAptStatus
	}
	result, err := s.db.ExecContext(ctx, `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment %s: %w", id, err)
	}
	return expectOneRow(result)
}

func (s *PostgresStore) CreateInquiry(ctx context.Context, inq models.Inquiry) (models.Inquiry, error) {
	prepareInquiry(&inq, time.Now())
	if err := inq.Validate(); err != nil {
		return inq, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inquiries (`+inquiryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inq.ID, nilIfEmpty(inq.UserID), inq.ClientName, inq.ClientEmail, inq.PropertyID, inq.PropertyName,
		inq.Message, inq.Date, inq.Status, nilIfEmpty(inq.Response), inq.CreatedAt, inq.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateInquiry failed", "error", err, "clientEmail", inq.ClientEmail)
		return inq, fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return inq, nil
}

func (s *PostgresStore) ListInquiries(ctx context.Context, clientEmail string) ([]models.Inquiry, error) {
	var rows *sql.Rows
	var err error
	if clientEmail == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+inquiryColumns+` FROM inquiries ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE client_email = $1 ORDER BY created_at DESC, id DESC`, clientEmail)
	}
	if err != nil {
		slog.Error("PostgresStore ListInquiries query failed", "error", err)
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	inqs, err := collect(rows, scanInquiry)
	if err != nil {
		return nil, fmt.Errorf("failed to read inquiries: %w", err)
	}
	return inqs, nil
}

func (s *PostgresStore) RespondToInquiry(ctx context.Context, id, response string, status models.InquiryStatus) error {
	if status == "" {
		status = models.InquiryStatusResolved
	}
	if !models.IsValidInquiryStatus(status) {
		return models.ErrInvalidInqStatus
	}
	result, err := s.db.ExecContext(ctx, `UPDATE inquiries SET response = $1, status = $2, updated_at = $3 WHERE id = $4`,
		response, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update inquiry %s: %w", id, err)
	}
	return expectOneRow(result)
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	} else {
		slog.Debug("Postgres database connection closed successfully")
	}
	return err
}
