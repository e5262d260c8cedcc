package cart

import "go.uber.org/zap"

// Notification is a transient, fire-and-forget message for the UI layer
// ("Added to cart"). Delivery is best-effort and never part of an
// operation's result contract.
type Notification struct {
	Message string
}

// Notifier receives cart notifications
type Notifier interface {
	Notify(n Notification)
}

// NopNotifier discards notifications
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}

// LogNotifier writes notifications to the application log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by the given logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(notification Notification) {
	n.logger.Info("Cart notification", zap.String("message", notification.Message))
}
