package notify

import "go.uber.org/zap"

// LogNotifier writes every outcome to the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifySuccess(message string) {
	n.logger.Info(message)
}

func (n *LogNotifier) NotifyFailure(err error, context string) {
	n.logger.Warn("admin action failed", zap.String("context", context), zap.Error(err))
}

type Notifier interface {
	NotifySuccess(message string)
	NotifyFailure(err error, context string)
}

// Multi forwards every notification to each of its notifiers.
type Multi []Notifier

func (m Multi) NotifySuccess(message string) {
	for _, n := range m {
		n.NotifySuccess(message)
	}
}

func (m Multi) NotifyFailure(err error, context string) {
	for _, n := range m {
		n.NotifyFailure(err, context)
	}
}
