package core

import "context"

// EventPublisher receives a ChangeEvent after each persisted mutation.
// Failures are logged by the caller and never undo the mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// MutationObserver records the outcome of every mutation attempt.
type MutationObserver interface {
	ObserveMutation(ledger string, op Operation, err error)
}
