package notify

import (
	"context"
	"testing"
)

func TestNewTwilioNotifierRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewTwilioNotifier(); err == nil {
		t.Error("expected error without credentials, got nil")
	}
	if _, err := NewTwilioNotifier(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Error("expected error without from number, got nil")
	}
}

func TestNewTwilioNotifierWithOptions(t *testing.T) {
	n, err := NewTwilioNotifier(
		WithAccountSID("AC123"),
		WithAuthToken("token"),
		WithFromNumber("+15550100"),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n.fromNumber != "+15550100" {
		t.Errorf("unexpected from number: %s", n.fromNumber)
	}
}

func TestMockNotifierRecordsMessages(t *testing.T) {
	mock := NewMockNotifier()
	if err := mock.SendSMS(context.Background(), "+15550100", "hello"); err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].To != "+15550100" {
		t.Errorf("unexpected sent messages: %+v", mock.SentMessages)
	}
}

func TestNoopNotifierNeverFails(t *testing.T) {
	if err := (NoopNotifier{}).SendSMS(context.Background(), "+15550100", "hello"); err != nil {
		t.Errorf("noop notifier should not error: %v", err)
	}
}
