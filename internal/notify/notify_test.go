package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// fakeChannel records sends for a single channel name.
type fakeChannel struct {
	channel string
	sent    []sentNotification
	err     error
}

type sentNotification struct {
	to      Subscriber
	level   Level
	message string
}

func (c *fakeChannel) Supports(name string) bool { return name == c.channel }

func (c *fakeChannel) Send(
	_ context.Context, to Subscriber, level Level, message string, _ map[string]string,
) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentNotification{to: to, level: level, message: message})
	return nil
}

type fakeSubscriberStore struct {
	subs []Subscriber
	err  error
}

func (s *fakeSubscriberStore) ActiveSubscribers(_ context.Context) ([]Subscriber, error) {
	return s.subs, s.err
}

func subscriber(email string, channels, levels []string) Subscriber {
	return Subscriber{
		Name:     email,
		Email:    email,
		Phone:    "+15550100",
		Channels: channels,
		Levels:   levels,
		Active:   true,
	}
}

func TestSubscriberWants(t *testing.T) {
	s := subscriber("a@example.com", []string{"email"}, []string{"error", "warning"})

	if !s.Wants(LevelError, "email") {
		t.Error("should want error over email")
	}
	if s.Wants(LevelInfo, "email") {
		t.Error("should not want info")
	}
	if s.Wants(LevelError, "sms") {
		t.Error("should not want sms")
	}

	s.Active = false
	if s.Wants(LevelError, "email") {
		t.Error("inactive subscriber should want nothing")
	}
}

func TestManager_FansOutByPreference(t *testing.T) {
	email := &fakeChannel{channel: "email"}
	sms := &fakeChannel{channel: "sms"}
	store := &fakeSubscriberStore{subs: []Subscriber{
		subscriber("mail-only@example.com", []string{"email"}, []string{"success"}),
		subscriber("both@example.com", []string{"email", "sms"}, []string{"success"}),
		subscriber("errors-only@example.com", []string{"email"}, []string{"error"}),
	}}

	m := NewManager(zap.NewNop(), store, []Channel{email, sms})
	m.Success(context.Background(), "sync done", nil)

	if len(email.sent) != 2 {
		t.Errorf("email deliveries = %d, want 2", len(email.sent))
	}
	if len(sms.sent) != 1 {
		t.Errorf("sms deliveries = %d, want 1", len(sms.sent))
	}
	if len(sms.sent) == 1 && sms.sent[0].to.Email != "both@example.com" {
		t.Errorf("sms recipient = %s, want both@example.com", sms.sent[0].to.Email)
	}
}

func TestManager_DeliveryFailureIsIsolated(t *testing.T) {
	broken := &fakeChannel{channel: "email", err: errors.New("smtp refused")}
	sms := &fakeChannel{channel: "sms"}
	store := &fakeSubscriberStore{subs: []Subscriber{
		subscriber("x@example.com", []string{"email", "sms"}, []string{"error"}),
	}}

	m := NewManager(zap.NewNop(), store, []Channel{broken, sms})
	// Must not panic or propagate; the sms delivery still happens.
	m.Error(context.Background(), "sync failed", map[string]string{"content_id": "42"})

	if len(sms.sent) != 1 {
		t.Errorf("sms deliveries = %d, want 1 despite email failure", len(sms.sent))
	}
}

func TestManager_StoreFailureIsLogOnly(t *testing.T) {
	email := &fakeChannel{channel: "email"}
	store := &fakeSubscriberStore{err: errors.New("db locked")}

	m := NewManager(zap.NewNop(), store, []Channel{email})
	m.Info(context.Background(), "starting", nil)

	if len(email.sent) != 0 {
		t.Errorf("deliveries = %d, want 0 when store fails", len(email.sent))
	}
}

func TestManager_NilStoreIsLogOnly(t *testing.T) {
	m := NewManager(zap.NewNop(), nil, nil)
	// Log-only mode must not panic at any level.
	m.Info(context.Background(), "i", nil)
	m.Success(context.Background(), "s", nil)
	m.Warning(context.Background(), "w", nil)
	m.Error(context.Background(), "e", nil)
}

func TestEmailChannel_BuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	c := NewEmailChannel("mail.example.com:587", "", "", "noreply@example.com")
	c.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	sub := subscriber("dev@example.com", []string{"email"}, []string{"error"})
	err := c.Send(context.Background(), sub, LevelError, "sync aborted",
		map[string]string{"content_id": "42", "attempt": "3"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAddr != "mail.example.com:587" || gotFrom != "noreply@example.com" {
		t.Errorf("addr/from = %s/%s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "dev@example.com" {
		t.Errorf("to = %v", gotTo)
	}

	body := string(gotMsg)
	if !strings.Contains(body, "Subject: feedrank - Error Alert") {
		t.Errorf("missing error subject in:\n%s", body)
	}
	if !strings.Contains(body, "sync aborted") {
		t.Errorf("missing message in:\n%s", body)
	}
	// Detail fields come out sorted by key.
	if strings.Index(body, "attempt: 3") > strings.Index(body, "content_id: 42") {
		t.Errorf("fields not sorted in:\n%s", body)
	}
}

func TestEmailChannel_SendFailure(t *testing.T) {
	c := NewEmailChannel("mail.example.com:587", "", "", "noreply@example.com")
	c.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection reset")
	}

	sub := subscriber("dev@example.com", []string{"email"}, []string{"error"})
	if err := c.Send(context.Background(), sub, LevelError, "x", nil); err == nil {
		t.Fatal("expected error from failing transport")
	}
}

func TestEmailChannel_Supports(t *testing.T) {
	c := NewEmailChannel("mail:25", "", "", "noreply@example.com")
	if !c.Supports("email") || c.Supports("sms") {
		t.Error("email channel supports wrong names")
	}
}

func TestSMSChannel(t *testing.T) {
	c := NewSMSChannel(zap.NewNop())
	if !c.Supports("sms") || c.Supports("email") {
		t.Error("sms channel supports wrong names")
	}

	sub := subscriber("dev@example.com", []string{"sms"}, []string{"error"})
	if err := c.Send(context.Background(), sub, LevelError, "short", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Missing phone number is skipped, not an error.
	sub.Phone = ""
	if err := c.Send(context.Background(), sub, LevelError, "short", nil); err != nil {
		t.Fatalf("Send without phone: %v", err)
	}
}

func TestFormatSMS(t *testing.T) {
	got := formatSMS(LevelError, "disk full")
	if got != "[ERROR] disk full" {
		t.Errorf("formatSMS = %q", got)
	}

	long := strings.Repeat("x", 300)
	truncated := formatSMS(LevelInfo, long)
	if len(truncated) != smsMaxLen {
		t.Errorf("truncated length = %d, want %d", len(truncated), smsMaxLen)
	}
	if !strings.HasSuffix(truncated, "...") {
		t.Errorf("truncated message missing ellipsis: %q", truncated)
	}
}
