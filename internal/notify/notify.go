// Package notify is the user-facing notification collaborator of the
// messaging core: severity-graded notices plus message alerts for inbound
// chat messages received while the chat screen is not visible.
package notify

import "log"

// Notifier publishes user-facing notifications.
type Notifier interface {
	ShowSuccess(summary, detail string)
	ShowInfo(summary, detail string)
	ShowWarn(summary, detail string)
	ShowError(summary, detail string)
	// ShowMessage raises an inbound chat message alert: summary is the
	// sender's display name, detail the message content.
	ShowMessage(summary, detail string)
}

// LogNotifier writes notifications to the process log. It is the fallback
// when no out-of-band channel is configured.
type LogNotifier struct{}

func (LogNotifier) ShowSuccess(summary, detail string) { log.Printf("[success] %s: %s", summary, detail) }
func (LogNotifier) ShowInfo(summary, detail string)    { log.Printf("[info] %s: %s", summary, detail) }
func (LogNotifier) ShowWarn(summary, detail string)    { log.Printf("[warn] %s: %s", summary, detail) }
func (LogNotifier) ShowError(summary, detail string)   { log.Printf("[error] %s: %s", summary, detail) }
func (LogNotifier) ShowMessage(summary, detail string) { log.Printf("[message] %s: %s", summary, detail) }
