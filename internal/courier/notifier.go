package courier

// Notifier is a side-effect sink for operational failure alerts. The service
// invokes it best-effort: a notification failure is logged, never surfaced
// as a transfer error.
//
// An empty recipients slice means "use the sink's configured recipients";
// the service always passes nil.
type Notifier interface {
	Notify(recipients []string, subject, body string) error
}

// NopNotifier discards all notifications. Used when no alert sink is
// configured, and in tests.
type NopNotifier struct{}

func (NopNotifier) Notify([]string, string, string) error { return nil }
