package service

// Notifier receives the single user-visible outcome of an admin action.
// Implementations must not block.
type Notifier interface {
	NotifySuccess(message string)
	NotifyFailure(err error, context string)
}

type nopNotifier struct{}

func (nopNotifier) NotifySuccess(string)        {}
func (nopNotifier) NotifyFailure(error, string) {}
