package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"appointment-monitor/config"
	"appointment-monitor/models"
	"appointment-monitor/utils"
)

// Sink delivers a text message to a destination.
type Sink interface {
	Send(ctx context.Context, destination, message string) error
}

const mailtoPrefix = "mailto:"

// Router picks the sink by destination: "mailto:" addresses go out by
// e-mail, everything else is posted to ntfy.
type Router struct {
	ntfy   Sink
	email  Sink
	logger *utils.Logger
}

// New builds a Router from the configuration. E-mail delivery is only
// available when SMTP_ADDR is set.
func New(cfg *config.Config, logger *utils.Logger) *Router {
	r := &Router{
		ntfy:   NewNtfySink(30 * time.Second),
		logger: logger,
	}
	if cfg.SMTPAddr != "" {
		r.email = NewEmailSink(SMTPSettings{
			Addr:     cfg.SMTPAddr,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	return r
}

// NewRouter wires explicit sinks; email may be nil.
func NewRouter(ntfy, email Sink, logger *utils.Logger) *Router {
	return &Router{ntfy: ntfy, email: email, logger: logger}
}

// Send dispatches message to the sink matching destination.
func (r *Router) Send(ctx context.Context, destination, message string) error {
	if addr, ok := strings.CutPrefix(destination, mailtoPrefix); ok {
		if r.email == nil {
			return errors.New("notify: mailto destination but SMTP is not configured")
		}
		return r.email.Send(ctx, addr, message)
	}
	return r.ntfy.Send(ctx, destination, message)
}

// LoadFooter returns the contents of the footer file appended to every
// message. A missing or unreadable file yields an empty footer.
func LoadFooter(path string, logger *utils.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("[notify] Could not read footer file %s: %v", path, err)
		}
		return ""
	}
	return string(data)
}

// FormatMessage renders the notification text for ev.
func FormatMessage(ev models.NotificationEvent, footer string) string {
	var msg string
	if ev.HasTimeOfDay {
		msg = fmt.Sprintf("New appointment at %s: %s", ev.LocationName, ev.Display)
	} else {
		msg = fmt.Sprintf("New earliest date at %s: %s", ev.LocationName, ev.Display)
	}
	return msg + "\n" + footer
}
