package notify

import "context"

// Message is the structured payload handed to a Notifier. Delivery transports
// decide how to render it; the core never inspects delivery results beyond
// logging.
type Message struct {
	Recipients []string
	Subject    string
	Fields     map[string]string
}

// Notifier delivers a message out-of-band. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
