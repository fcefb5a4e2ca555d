package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/philview/philview/internal/models"
)

// Column lists shared by the SQL backends. Scanners below read them in this order.
const (
	outboxColumns      = `id, recipient, kind, body, status, attempts, next_attempt_at, dedupe_key, locked_at, last_error, created_at, updated_at`
	propertyColumns    = `id, name, location, lat, lng, price, type, status, description, image, features`
	appointmentColumns = `id, user_id, client_name, client_email, property_id, property_name, date, time, status, type, notes, contact, response_note, created_at, updated_at`
	inquiryColumns     = `id, user_id, client_name, client_email, property_id, property_name, message, date, status, response, created_at, updated_at`
)

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func scanOutboxMessage(row rowScanner) (OutboxMessage, error) {
	var m OutboxMessage
	var dedupeKey, lastError sql.NullString
	var nextAttemptAt, lockedAt sql.NullTime
	err := row.Scan(
		&m.ID, &m.Recipient, &m.Kind, &m.Body, &m.Status, &m.Attempts,
		&nextAttemptAt, &dedupeKey, &lockedAt, &lastError, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, fmt.Errorf("scan outbox message failed: %w", err)
	}
	m.DedupeKey = dedupeKey.String
	m.LastError = lastError.String
	if nextAttemptAt.Valid {
		m.NextAttemptAt = &nextAttemptAt.Time
	}
	if lockedAt.Valid {
		m.LockedAt = &lockedAt.Time
	}
	return m, nil
}

func encodeFeatures(features []string) (string, error) {
	if len(features) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("failed to encode features: %w", err)
	}
	return string(b), nil
}

func scanProperty(row rowScanner) (models.Property, error) {
	var p models.Property
	var featuresJSON string
	err := row.Scan(&p.ID, &p.Name, &p.Location, &p.Coordinates.Lat, &p.Coordinates.Lng, &p.Price,
		&p.Type, &p.Status, &p.Description, &p.Image, &featuresJSON)
	if err != nil {
		return p, err
	}
	if featuresJSON != "" {
		if err := json.Unmarshal([]byte(featuresJSON), &p.Features); err != nil {
			return p, fmt.Errorf("failed to decode features of property %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func scanAppointment(row rowScanner) (models.Appointment, error) {
	var a models.Appointment
	var notes, contact, responseNote sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.ClientName, &a.ClientEmail, &a.PropertyID, &a.PropertyName,
		&a.Date, &a.Time, &a.Status, &a.Type, &notes, &contact, &responseNote, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Notes = notes.String
	a.Contact = contact.String
	a.ResponseNote = responseNote.String
	return a, nil
}

func scanInquiry(row rowScanner) (models.Inquiry, error) {
	var i models.Inquiry
	var userID, response sql.NullString
	err := row.Scan(&i.ID, &userID, &i.ClientName, &i.ClientEmail, &i.PropertyID, &i.PropertyName,
		&i.Message, &i.Date, &i.Status, &response, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return i, err
	}
	i.UserID = userID.String
	i.Response = response.String
	return i, nil
}

// collect scans every row with scan.
func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
