// Package systemd integrates with socket activation and sd_notify.
package systemd

import (
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Socket names, matching FileDescriptorName= in meetingstt.socket.
const (
	SocketAPI     = "api"
	SocketMetrics = "metrics"
)

// Listeners holds the sockets passed in by systemd, if any.
type Listeners struct {
	API       net.Listener
	Metrics   net.Listener
	Activated bool
}

// GetListeners collects socket-activated listeners by name. Outside of
// socket activation it returns empty Listeners and no error.
func GetListeners() (*Listeners, error) {
	// Inherited fds are consumed exactly once here
	named, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get systemd listeners: %w", err)
	}

	return &Listeners{
		API:       first(named, SocketAPI),
		Metrics:   first(named, SocketMetrics),
		Activated: len(named) > 0,
	}, nil
}

func first(named map[string][]net.Listener, name string) net.Listener {
	if lns := named[name]; len(lns) > 0 {
		return lns[0]
	}
	return nil
}

// NotifyReady tells systemd the API is accepting requests
func NotifyReady() error {
	return notify(daemon.SdNotifyReady)
}

// NotifyStopping tells systemd shutdown has begun
func NotifyStopping() error {
	return notify(daemon.SdNotifyStopping)
}

func notify(state string) error {
	if _, err := daemon.SdNotify(false, state); err != nil {
		return fmt.Errorf("failed to send sd_notify %q: %w", state, err)
	}
	return nil
}
