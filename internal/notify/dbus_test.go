//go:build linux

package notify

import (
	"os"
	"testing"
)

func TestNew_ReplacesNotification(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}

	n := New()
	first, err := n.Notify(Notification{Summary: "Now playing", Body: "one.mp3", Timeout: 1000})
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if first == 0 {
		t.Skip("notification daemon not running")
	}

	second, err := n.Notify(Notification{Summary: "Now playing", Body: "two.mp3", Timeout: 1000, ReplacesID: first})
	if err != nil {
		t.Fatalf("second Notify() error: %v", err)
	}
	if second != first {
		t.Errorf("replacing notification got id=%d, want %d", second, first)
	}
	if err := n.Close(second); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
