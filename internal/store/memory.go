package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/util"
)

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps everything in process memory. Used when no DSN is configured and in tests.
type InMemoryStore struct {
	mu           sync.Mutex
	properties   map[string]models.Property
	appointments []models.Appointment
	inquiries    []models.Inquiry
	nonces       map[string]time.Time
	outbox       []OutboxMessage
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		properties: make(map[string]models.Property),
		nonces:     make(map[string]time.Time),
	}
}

func (s *InMemoryStore) ListProperties(ctx context.Context) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Property, 0, len(s.properties))
	for _, p := range s.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) SaveProperty(ctx context.Context, p models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
	return nil
}

func (s *InMemoryStore) CreateAppointment(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	prepareAppointment(&a, time.Now())
	if err := a.Validate(); err != nil {
		return a, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = append(s.appointments, a)
	return a, nil
}

func (s *InMemoryStore) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appointment
	for _, a := range s.appointments {
		if userID == "" || a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if !models.IsValidAppointmentStatus(status) {
		return models.ErrInvalidAptStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID == id {
			s.appointments[i].Status = status
			s.appointments[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) CreateInquiry(ctx context.Context, inq models.Inquiry) (models.Inquiry, error) {
	prepareInquiry(&inq, time.Now())
	if err := inq.Validate(); err != nil {
		return inq, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inquiries = append(s.inquiries, inq)
	return inq, nil
}

func (s *InMemoryStore) ListInquiries(ctx context.Context, clientEmail string) ([]models.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Inquiry
	for i := len(s.inquiries) - 1; i >= 0; i-- {
		if clientEmail == "" || s.inquiries[i].ClientEmail == clientEmail {
			out = append(out, s.inquiries[i])
		}
	}
	return out, nil
}

func (s *InMemoryStore) RespondToInquiry(ctx context.Context, id, response string, status models.InquiryStatus) error {
	if status == "" {
		status = models.InquiryStatusResolved
	}
	if !models.IsValidInquiryStatus(status) {
		return models.ErrInvalidInqStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.inquiries {
		if s.inquiries[i].ID == id {
			s.inquiries[i].Response = response
			s.inquiries[i].Status = status
			s.inquiries[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func nonceKey(consumer, nonce string) string { return consumer + "\x00" + nonce }

func (s *InMemoryStore) ClaimNonce(ctx context.Context, consumer, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nonceKey(consumer, nonce)
	if _, seen := s.nonces[key]; seen {
		return false, nil
	}
	s.nonces[key] = time.Now()
	return true, nil
}

func (s *InMemoryStore) ReleaseNonce(ctx context.Context, consumer, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nonces, nonceKey(consumer, nonce))
	return nil
}

func (s *InMemoryStore) EnqueueOutboxMessage(ctx context.Context, recipient, kind, body, dedupeKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dedupeKey != "" {
		for _, m := range s.outbox {
			if m.DedupeKey == dedupeKey && m.Status != OutboxStatusCanceled {
				return m.ID, nil
			}
		}
	}
	now := time.Now()
	m := OutboxMessage{
		ID:        util.GenerateOutboxID(),
		Recipient: recipient,
		Kind:      kind,
		Body:      body,
		Status:    OutboxStatusQueued,
		DedupeKey: dedupeKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.outbox = append(s.outbox, m)
	return m.ID, nil
}

func (s *InMemoryStore) ClaimDueOutboxMessages(ctx context.Context, now time.Time, limit int) ([]OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboxMessage
	for i := range s.outbox {
		if len(out) >= limit {
			break
		}
		m := &s.outbox[i]
		if m.Status != OutboxStatusQueued || (m.NextAttemptAt != nil && m.NextAttemptAt.After(now)) {
			continue
		}
		locked := now
		m.Status = OutboxStatusSending
		m.LockedAt = &locked
		m.UpdatedAt = now
		out = append(out, *m)
	}
	return out, nil
}

func (s *InMemoryStore) MarkOutboxMessageSent(ctx context.Context, id string) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		m.Status = OutboxStatusSent
	})
}

func (s *InMemoryStore) FailOutboxMessage(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		next := nextAttemptAt
		m.Status = OutboxStatusQueued
		m.Attempts++
		m.LastError = errMsg
		m.NextAttemptAt = &next
		m.LockedAt = nil
	})
}

// AbandonOutboxMessage marks a message as permanently failed.
func (s *InMemoryStore) AbandonOutboxMessage(ctx context.Context, id string, errMsg string) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		m.Status = OutboxStatusFailed
		m.Attempts++
		m.LastError = errMsg
		m.LockedAt = nil
	})
}

func (s *InMemoryStore) RequeueStaleSendingMessages(ctx context.Context, staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.outbox {
		m := &s.outbox[i]
		if m.Status == OutboxStatusSending && m.LockedAt != nil && m.LockedAt.Before(staleBefore) {
			m.Status = OutboxStatusQueued
			m.LockedAt = nil
			m.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

// OutboxMessages returns a copy of every outbox message, oldest first.
func (s *InMemoryStore) OutboxMessages() []OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutboxMessage(nil), s.outbox...)
}

func (s *InMemoryStore) updateOutbox(id string, fn func(*OutboxMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			fn(&s.outbox[i])
			s.outbox[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }
