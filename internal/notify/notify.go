// Package notify delivers operational notifications (sync outcomes mostly)
// to subscribed users over their chosen channels. Delivery failures are
// logged and never propagate: a broken mail server must not fail a sync.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Level classifies a notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Subscriber is a notification recipient with channel and level preferences.
type Subscriber struct {
	Name     string
	Email    string
	Phone    string
	Channels []string // channel names: "email", "sms"
	Levels   []string // levels the subscriber wants
	Active   bool
}

// Wants reports whether the subscriber opted into level over channel.
func (s Subscriber) Wants(level Level, channel string) bool {
	if !s.Active {
		return false
	}
	return contains(s.Channels, channel) && contains(s.Levels, string(level))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Channel delivers a notification over one transport.
type Channel interface {
	Send(ctx context.Context, to Subscriber, level Level, message string, fields map[string]string) error
	Supports(name string) bool
}

// SubscriberStore lists active recipients.
type SubscriberStore interface {
	ActiveSubscribers(ctx context.Context) ([]Subscriber, error)
}

// Notifier is the surface the pipeline reports through.
type Notifier interface {
	Info(ctx context.Context, message string, fields map[string]string)
	Success(ctx context.Context, message string, fields map[string]string)
	Warning(ctx context.Context, message string, fields map[string]string)
	Error(ctx context.Context, message string, fields map[string]string)
}

// Manager logs each notification and fans it out to every active subscriber
// whose preferences match, over every channel that supports the subscriber's
// channel names. The channel list is registered explicitly at startup.
type Manager struct {
	logger   *zap.Logger
	store    SubscriberStore
	channels []Channel
}

var _ Notifier = (*Manager)(nil)

// NewManager creates a notification manager. store may be nil, in which case
// notifications are log-only.
func NewManager(logger *zap.Logger, store SubscriberStore, channels []Channel) *Manager {
	return &Manager{logger: logger, store: store, channels: channels}
}

// Info sends an informational notification.
func (m *Manager) Info(ctx context.Context, message string, fields map[string]string) {
	m.notify(ctx, LevelInfo, message, fields)
}

// Success sends a success notification.
func (m *Manager) Success(ctx context.Context, message string, fields map[string]string) {
	m.notify(ctx, LevelSuccess, message, fields)
}

// Warning sends a warning notification.
func (m *Manager) Warning(ctx context.Context, message string, fields map[string]string) {
	m.notify(ctx, LevelWarning, message, fields)
}

// Error sends an error notification.
func (m *Manager) Error(ctx context.Context, message string, fields map[string]string) {
	m.notify(ctx, LevelError, message, fields)
}

func (m *Manager) notify(ctx context.Context, level Level, message string, fields map[string]string) {
	logFields := []zap.Field{zap.String("level", string(level))}
	for k, v := range fields {
		logFields = append(logFields, zap.String(k, v))
	}
	switch level {
	case LevelError:
		m.logger.Error(message, logFields...)
	case LevelWarning:
		m.logger.Warn(message, logFields...)
	default:
		m.logger.Info(message, logFields...)
	}

	if m.store == nil || len(m.channels) == 0 {
		return
	}

	subs, err := m.store.ActiveSubscribers(ctx)
	if err != nil {
		m.logger.Error("Failed to load notification subscribers", zap.Error(err))
		return
	}

	for _, sub := range subs {
		m.sendToSubscriber(ctx, sub, level, message, fields)
	}
}

func (m *Manager) sendToSubscriber(
	ctx context.Context, sub Subscriber, level Level, message string, fields map[string]string,
) {
	for _, name := range sub.Channels {
		if !sub.Wants(level, name) {
			continue
		}
		for _, ch := range m.channels {
			if !ch.Supports(name) {
				continue
			}
			if err := ch.Send(ctx, sub, level, message, fields); err != nil {
				m.logger.Error("Notification delivery failed",
					zap.String("channel", name),
					zap.String("recipient", sub.Email),
					zap.Error(err),
				)
			}
		}
	}
}
