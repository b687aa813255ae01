package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier records messages to the application log instead of delivering
// them anywhere. Used when no delivery transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a notifier backed by the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the message and always succeeds.
func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info("notification",
		zap.Strings("recipients", msg.Recipients),
		zap.String("subject", msg.Subject),
		zap.Any("fields", msg.Fields),
	)
	return nil
}
