// Package notify posts desktop notifications over the session bus.
// Notifications are advisory: every failure is logged and swallowed so
// a missing notification daemon never breaks a capture.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = "org.freedesktop.Notifications.Notify"

	appName   = "SnapMaster"
	timeoutMS = 4000
)

// Notifier posts desktop notifications
type Notifier struct {
	conn *dbus.Conn
	log  *zerolog.Logger
}

// New connects to the session bus. A nil Notifier is returned together
// with the error; both Notify methods tolerate the nil receiver, so
// callers can wire the result without checking.
func New() (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Notifier{
		conn: conn,
		log:  logger.WithComponent("notify"),
	}, nil
}

// Saved announces a successful capture. info names the captured
// window when one was involved and may be nil.
func (n *Notifier) Saved(captureType, path string, info *window.Info) {
	summary := "Screenshot saved"
	if info != nil && info.Name != "" {
		summary = fmt.Sprintf("Screenshot saved: %s", info.Name)
	}
	n.post(summary, path, "camera-photo")
}

// Failed announces a capture failure
func (n *Notifier) Failed(captureType string, err error) {
	n.post(fmt.Sprintf("Screenshot failed (%s)", captureType), err.Error(), "dialog-error")
}

func (n *Notifier) post(summary, body, icon string) {
	if n == nil || n.conn == nil {
		return
	}

	obj := n.conn.Object(busName, objectPath)
	call := obj.Call(method, 0,
		appName,
		uint32(0),
		icon,
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		int32(timeoutMS),
	)
	if call.Err != nil {
		n.log.Debug().Err(call.Err).Msg("Notification not delivered")
	}
}

// Close releases the bus connection
func (n *Notifier) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
