package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const smsMaxLen = 160

// SMSChannel formats notifications as short messages. Delivery is currently
// simulated through the log; the gateway client slots in behind send.
// TODO: wire a real SMS gateway once one is provisioned.
type SMSChannel struct {
	logger *zap.Logger
}

// NewSMSChannel creates an SMS channel.
func NewSMSChannel(logger *zap.Logger) *SMSChannel {
	return &SMSChannel{logger: logger}
}

// Supports reports whether this channel handles the given channel name.
func (c *SMSChannel) Supports(name string) bool { return name == "sms" }

// Send formats and (for now) logs one SMS notification. Subscribers without
// a phone number are skipped.
func (c *SMSChannel) Send(
	_ context.Context, to Subscriber, level Level, message string, _ map[string]string,
) error {
	if to.Phone == "" {
		c.logger.Warn("Cannot send SMS: subscriber has no phone number",
			zap.String("subscriber", to.Email))
		return nil
	}

	c.logger.Info("SMS notification (simulated)",
		zap.String("phone", to.Phone),
		zap.String("level", string(level)),
		zap.String("message", formatSMS(level, message)),
	)
	return nil
}

func formatSMS(level Level, message string) string {
	prefix := ""
	switch level {
	case LevelError:
		prefix = "[ERROR] "
	case LevelWarning:
		prefix = "[WARNING] "
	case LevelSuccess:
		prefix = "[SUCCESS] "
	case LevelInfo:
		prefix = "[INFO] "
	}

	full := strings.TrimSpace(prefix + message)
	if len(full) > smsMaxLen {
		return full[:smsMaxLen-3] + "..."
	}
	return full
}
