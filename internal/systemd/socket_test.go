package systemd

import (
	"net"
	"testing"
)

func TestGetListenersWithoutActivation(t *testing.T) {
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")

	listeners, err := GetListeners()
	if err != nil {
		t.Fatalf("GetListeners failed: %v", err)
	}
	if listeners.Activated {
		t.Error("expected no socket activation")
	}
	if listeners.API != nil || listeners.Metrics != nil {
		t.Error("expected nil listeners")
	}
}

func TestNotifyWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	if err := NotifyReady(); err != nil {
		t.Errorf("NotifyReady failed: %v", err)
	}
	if err := NotifyStopping(); err != nil {
		t.Errorf("NotifyStopping failed: %v", err)
	}
}

func TestFirstListener(t *testing.T) {
	if ln := first(nil, SocketAPI); ln != nil {
		t.Errorf("expected nil from empty map, got %v", ln)
	}
	if ln := first(map[string][]net.Listener{SocketAPI: {}}, SocketAPI); ln != nil {
		t.Errorf("expected nil from empty slice, got %v", ln)
	}
}
