package notify

import (
	"context"
	"errors"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/philview/philview/internal/store"
)

type fakeMessageAPI struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessageAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &twilioApi.ApiV2010Message{}, nil
}

func TestClient_SendMessage_WhatsApp(t *testing.T) {
	api := &fakeMessageAPI{}
	c := &Client{api: api, from: "whatsapp:+15550000000"}

	if err := c.SendMessage(context.Background(), "+639170000000", "Booked"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(api.params) != 1 {
		t.Fatalf("Expected 1 API call, got %d", len(api.params))
	}
	p := api.params[0]
	if *p.To != "whatsapp:+639170000000" {
		t.Errorf("Expected whatsapp recipient, got %q", *p.To)
	}
	if *p.From != "whatsapp:+15550000000" || *p.Body != "Booked" {
		t.Errorf("Unexpected params: from=%q body=%q", *p.From, *p.Body)
	}
}

func TestClient_SendMessage_SMS(t *testing.T) {
	api := &fakeMessageAPI{}
	c := &Client{api: api, from: "+15550000000"}

	c.SendMessage(context.Background(), "+639170000000", "Booked")
	if *api.params[0].To != "+639170000000" {
		t.Errorf("Expected plain number for SMS, got %q", *api.params[0].To)
	}
}

func TestClient_SendMessage_Error(t *testing.T) {
	c := &Client{api: &fakeMessageAPI{err: errors.New("rate limited")}, from: "+15550000000"}
	if err := c.SendMessage(context.Background(), "+1", "x"); err == nil {
		t.Error("Expected error from API")
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("Expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("Expected error without from number")
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromNumber("+15550000000"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.from != "+15550000000" {
		t.Errorf("Expected from number kept, got %q", c.from)
	}
}

func TestNewClient_EnvFallback(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_FROM_NUMBER", "whatsapp:+15550000000")

	c, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.from != "whatsapp:+15550000000" {
		t.Errorf("Expected from number from env, got %q", c.from)
	}
}

func TestOutboxSendFunc_DeliversThroughOutbox(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	mock := NewMockClient()

	s.EnqueueOutboxMessage(ctx, "+639170000000", store.OutboxKindAppointmentBooked, "New viewing request", "")
	sender := store.NewOutboxSender(s, OutboxSendFunc(mock), 0)
	sender.Poll(ctx)

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(sent))
	}
	if sent[0].To != "+639170000000" || sent[0].Body != "New viewing request" {
		t.Errorf("Unexpected message: %+v", sent[0])
	}
	if got := s.OutboxMessages()[0].Status; got != store.OutboxStatusSent {
		t.Errorf("Expected message marked sent, got %q", got)
	}
}

func TestMockClient_Error(t *testing.T) {
	mock := NewMockClient()
	mock.Err = errors.New("down")
	if err := mock.SendMessage(context.Background(), "+1", "x"); err == nil {
		t.Error("Expected configured error")
	}
	if len(mock.Sent()) != 0 {
		t.Error("Expected no recorded messages on error")
	}
}
