package ui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// For a list of possible icons, see: https://specifications.freedesktop.org/icon-naming-spec/icon-naming-spec-latest.html
const (
	IconDialogError = "dialog-error"
	IconDialogInfo  = "dialog-information"
	IconDialogWarn  = "dialog-warning"

	UrgencyLow      = "low"
	UrgencyNormal   = "normal"
	UrgencyCritical = "critical"

	notifySendTimeout = 2 * time.Second
)

var notificationsEnabled = false

func SetNotificationsEnabled(enabled bool) {
	notificationsEnabled = enabled
}

func NotifyInfo(title, text string) {
	NotifySend(UrgencyLow, title, text, IconDialogInfo)
}

func NotifyWarn(title, text string) {
	NotifySend(UrgencyNormal, title, text, IconDialogWarn)
}

func NotifyError(title, text string) {
	NotifySend(UrgencyCritical, title, text, IconDialogError)
}

func ErrorAndNotify(title, format string, a ...interface{}) {
	Error(format, a...)
	NotifyError(title, fmt.Sprintf(format, a...))
}

func NotifySend(urgency, title, text, icon string) {
	if !notificationsEnabled {
		return
	}

	_, hasX := os.LookupEnv("DISPLAY")
	_, hasWayland := os.LookupEnv("WAYLAND_DISPLAY")
	if !hasX && !hasWayland {
		Debug("Cannot send notification, no display session found")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifySendTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "notify-send",
		"-a", "psu2go",
		"-u", urgency,
		"-i", icon,
		title, text,
	)
	err := cmd.Run()
	if err != nil {
		Warning("Error sending notification: %v", err)
	}
}
