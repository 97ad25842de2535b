package consumer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	logx "focusdesk/pkg/logx"
)

var errNoSettingsCommand = errors.New("no settings command configured")

// SettingsOpener launches the platform's notification-access settings.
type SettingsOpener struct {
	log     logx.Logger
	command []string
	timeout time.Duration
}

// NewSettingsOpener returns an opener for argv. A zero timeout leaves the
// child unbounded.
func NewSettingsOpener(log logx.Logger, argv []string, timeout time.Duration) *SettingsOpener {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &SettingsOpener{log: log, command: append([]string(nil), argv...), timeout: timeout}
}

// Open starts the command and returns once it is running. The child is
// reaped in the background and killed if it outlives the timeout.
func (o *SettingsOpener) Open(context.Context) (bool, error) {
	if len(o.command) == 0 || o.command[0] == "" {
		return false, errNoSettingsCommand
	}

	// The child must outlive the request, so it gets its own context.
	runCtx, cancel := context.Background(), context.CancelFunc(func() {})
	if o.timeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), o.timeout)
	}

	cmd := exec.CommandContext(runCtx, o.command[0], o.command[1:]...)
	if err := cmd.Start(); err != nil {
		cancel()
		return false, fmt.Errorf("start %s: %w", o.command[0], err)
	}
	o.log.Info("settings command started", logx.Strings("argv", o.command), logx.Int("pid", cmd.Process.Pid))

	go func() {
		defer cancel()
		if err := cmd.Wait(); err != nil {
			o.log.Warn("settings command exited", logx.Strings("argv", o.command), logx.Err(err))
		}
	}()
	return true, nil
}
