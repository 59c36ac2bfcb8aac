package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Notification is one delivered message.
type Notification struct {
	Message string
	Time    time.Time
}

// LogNotifier delivers notifications to the structured log. It is the
// default sink for headless deployments where no desktop or chat channel is
// wired up.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// Show logs the notification at info level.
func (n *LogNotifier) Show(ctx context.Context, message string) error {
	n.logger.Info("notification", "message", message)
	return nil
}

// ChannelNotifier delivers notifications to a channel for another component
// (a UI bridge, a webhook forwarder) to drain. Delivery never blocks: when
// the buffer is full the oldest notification is dropped, since a stale
// reminder is worth less than a fresh one.
type ChannelNotifier struct {
	mu      sync.Mutex
	ch      chan Notification
	dropped int
	logger  *slog.Logger
}

// NewChannelNotifier creates a channel notifier with the given buffer size.
func NewChannelNotifier(buffer int, logger *slog.Logger) (*ChannelNotifier, error) {
	if buffer <= 0 {
		return nil, fmt.Errorf("notification buffer must be positive, got %d", buffer)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelNotifier{
		ch:     make(chan Notification, buffer),
		logger: logger.With("component", "notify"),
	}, nil
}

// Show enqueues the notification, evicting the oldest entry when full.
func (n *ChannelNotifier) Show(ctx context.Context, message string) error {
	notification := Notification{Message: message, Time: time.Now()}

	n.mu.Lock()
	defer n.mu.Unlock()

	for {
		select {
		case n.ch <- notification:
			return nil
		default:
		}

		select {
		case <-n.ch:
			n.dropped++
			n.logger.Warn("notification buffer full, dropping oldest", "dropped_total", n.dropped)
		default:
		}
	}
}

// Notifications returns the delivery channel.
func (n *ChannelNotifier) Notifications() <-chan Notification {
	return n.ch
}

// Dropped returns how many notifications were evicted unread.
func (n *ChannelNotifier) Dropped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}
