package whatsapp_test

import (
	"context"
	"testing"

	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

func TestCreateID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain number", "628123456789", "628123456789@s.whatsapp.net"},
		{"user jid passthrough", "628123456789@s.whatsapp.net", "628123456789@s.whatsapp.net"},
		{"group jid passthrough", "12345-678@g.us", "12345-678@g.us"},
		{"bare group id", "12345-678", "12345-678@g.us"},
		{"foreign server treated as group", "12345-678@broadcast", "12345-678@g.us"},
		{"brazilian legacy area code drops ninth digit", "5521998765432", "552198765432@s.whatsapp.net"},
		{"brazilian modern area code keeps ninth digit", "5531998765432", "5531998765432@s.whatsapp.net"},
		{"brazilian area code boundary", "5530998765432", "553098765432@s.whatsapp.net"},
		{"non brazilian thirteen digits untouched", "4921998765432", "4921998765432@s.whatsapp.net"},
		{"short number untouched", "62812345", "62812345@s.whatsapp.net"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := whatsapp.CreateID(tt.in); got != tt.want {
				t.Errorf("CreateID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsRegisteredGroupSkipsLookup(t *testing.T) {
	client := newFakeClient()

	reg, err := whatsapp.IsRegistered(context.Background(), client, "12345-678@g.us")
	if err != nil {
		t.Fatalf("IsRegistered: %v", err)
	}
	if !reg.Exists {
		t.Error("group ID reported as not registered")
	}
	if reg.JID != "12345-678@g.us" {
		t.Errorf("JID = %q, want %q", reg.JID, "12345-678@g.us")
	}
}

func TestIsRegisteredNormalizesNumber(t *testing.T) {
	client := newFakeClient()
	client.registered["552198765432"] = true

	// The legacy-area-code form resolves to the same account.
	reg, err := whatsapp.IsRegistered(context.Background(), client, "5521998765432")
	if err != nil {
		t.Fatalf("IsRegistered: %v", err)
	}
	if !reg.Exists {
		t.Error("normalized brazilian number reported as not registered")
	}
}
