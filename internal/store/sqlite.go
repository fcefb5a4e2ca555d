// Package store provides storage backends for Philview.
//
// This file implements an SQLite-backed directory store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/philview/philview/internal/models"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// A single connection serializes writers and keeps nonce claims atomic.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "dir", dir)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ListProperties(ctx context.Context) ([]models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore ListProperties query failed", "error", err)
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	props, err := collect(rows, scanProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}
	slog.Debug("SQLiteStore ListProperties succeeded", "count", len(props))
	return props, nil
}

func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProperty(ctx context.Context, p models.Property) error {
	features, err := encodeFeatures(p.Features)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO properties (`+propertyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Location, p.Coordinates.Lat, p.Coordinates.Lng, p.Price, p.Type, p.Status, p.Description, p.Image, features)
	if err != nil {
		slog.Error("SQLiteStore SaveProperty failed", "error", err, "propertyID", p.ID)
		return fmt.Errorf("failed to save property %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) CreateAppointment(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	prepareAppointment(&a, time.Now())
	if err := a.Validate(); err != nil {
		return a, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (`+appointmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ClientName, a.ClientEmail, a.PropertyID, a.PropertyName, a.Date, a.Time, a.Status, a.Type,
		nilIfEmpty(a.Notes), nilIfEmpty(a.Contact), nilIfEmpty(a.ResponseNote), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateAppointment failed", "error", err, "userID", a.UserID)
		return a, fmt.Errorf("failed to insert appointment: %w", err)
	}
	slog.Debug("SQLiteStore CreateAppointment succeeded", "appointmentID", a.ID, "userID", a.UserID)
	return a, nil
}

func (s *SQLiteStore) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	var rows *sql.Rows
	var err error
	if userID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY created_at ASC, id ASC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	}
	if err != nil {
		slog.Error("SQLiteStore ListAppointments query failed", "error", err)
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	apts, err := collect(rows, scanAppointment)
	if err != nil {
		return nil, fmt.Errorf("failed to read appointments: %w", err)
	}
	return apts, nil
}

func (s *SQLiteStore) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if !models.IsValidAppointmentStatus(status) {
		return models.ErrInvalidAptStatus
	}
	result, err := s.db.ExecContext(ctx, `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment %s: %w", id, err)
	}
	return expectOneRow(result)
}

func (s *SQLiteStore) CreateInquiry(ctx context.Context, inq models.Inquiry) (models.Inquiry, error) {
	prepareInquiry(&inq, time.Now())
	if err := inq.Validate(); err != nil {
		return inq, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inquiries (`+inquiryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inq.ID, nilIfEmpty(inq.UserID), inq.ClientName, inq.ClientEmail, inq.PropertyID, inq.PropertyName,
		inq.Message, inq.Date, inq.Status, nilIfEmpty(inq.Response), inq.CreatedAt, inq.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateInquiry failed", "error", err, "clientEmail", inq.ClientEmail)
		return inq, fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return inq, nil
}

func (s *SQLiteStore) ListInquiries(ctx context.Context, clientEmail string) ([]models.Inquiry, error) {
	var rows *sql.Rows
	var err error
	if clientEmail == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+inquiryColumns+` FROM inquiries ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE client_email = ? ORDER BY created_at DESC, id DESC`, clientEmail)
	}
	if err != nil {
		slog.Error("SQLiteStore ListInquiries query failed", "error", err)
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	inqs, err := collect(rows, scanInquiry)
	if err != nil {
		return nil, fmt.Errorf("failed to read inquiries: %w", err)
	}
	return inqs, nil
}

func (s *SQLiteStore) RespondToInquiry(ctx context.Context, id, response string, status models.InquiryStatus) error {
	if status == "" {
		status = models.InquiryStatusResolved
	}
	if !models.IsValidInquiryStatus(status) {
		return models.ErrInvalidInqStatus
	}
	result, err := s.db.ExecContext(ctx, `UPDATE inquiries SET response = ?, status = ?, updated_at = ? WHERE id = ?`,
		response, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update inquiry %s: %w", id, err)
	}
	return expectOneRow(result)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}

// prepareAppointment fills the id, defaults and timestamps of a new appointment.
func prepareAppointment(a *models.Appointment, now time.Time) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.AppointmentStatusPending
	}
	if a.Type == "" {
		a.Type = models.AppointmentTypeViewing
	}
	if a.Time == "" {
		a.Time = models.DefaultAppointmentTime
	}
	if a.Date == "" {
		a.Date = now.Format(models.DateLayout)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
}

// prepareInquiry fills the id, defaults and timestamps of a new inquiry.
func prepareInquiry(i *models.Inquiry, now time.Time) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = models.InquiryStatusNew
	}
	if i.Date == "" {
		i.Date = now.Format(models.DateLayout)
	}
	i.CreatedAt = now
	i.UpdatedAt = now
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected check failed: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
