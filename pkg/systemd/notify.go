// Package systemd reports service state to the service manager. Outside
// systemd every call is a no-op.
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify state strings.
type Notifier struct {
	notify func(state string) (bool, error)
}

func New() *Notifier {
	return &Notifier{notify: func(state string) (bool, error) {
		return daemon.SdNotify(false, state)
	}}
}

// Ready reports startup finished. sent is false when NOTIFY_SOCKET is unset.
func (n *Notifier) Ready() (sent bool, err error) { return n.send(daemon.SdNotifyReady) }

func (n *Notifier) Stopping() (bool, error) { return n.send(daemon.SdNotifyStopping) }

func (n *Notifier) Reloading() (bool, error) { return n.send(daemon.SdNotifyReloading) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) (bool, error) { return n.send("STATUS=" + msg) }

func (n *Notifier) send(state string) (bool, error) {
	if n == nil || n.notify == nil {
		return false, nil
	}
	return n.notify(state)
}
