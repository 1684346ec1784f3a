package mail

import (
	"testing"

	"fanforge-server/internal/observability"
)

func TestNewResendClientRequiresSender(t *testing.T) {
	if _, err := NewResendClient("re_key", "", observability.NewLogger()); err == nil {
		t.Error("expected error for missing sender address")
	}
}

func TestNewResendClientFormatsFromAddress(t *testing.T) {
	client, err := NewResendClient("re_key", "no-reply@fanforge.app", observability.NewLogger())
	if err != nil {
		t.Fatalf("NewResendClient returned error: %v", err)
	}
	if client.from != "FanForge <no-reply@fanforge.app>" {
		t.Errorf("unexpected from address %q", client.from)
	}
}
