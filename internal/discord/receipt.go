package discord

import "context"

// Receipt carries the eventual delivered/failed outcome of one queued
// message. It is resolved exactly once by the dispatcher.
type Receipt struct {
	done      chan struct{}
	delivered bool
}

func newReceipt() *Receipt {
	return &Receipt{done: make(chan struct{})}
}

// resolve must be called exactly once. The write to delivered is published
// to readers by the channel close.
func (r *Receipt) resolve(delivered bool) {
	r.delivered = delivered
	close(r.done)
}

// Done is closed once the message has been delivered or terminally failed.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the outcome is known or ctx is done. The boolean is only
// meaningful when the returned error is nil.
func (r *Receipt) Wait(ctx context.Context) (bool, error) {
	select {
	case <-r.done:
		return r.delivered, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Resolved reports the outcome without blocking. The second boolean is false
// while the message is still pending.
func (r *Receipt) Resolved() (delivered, ok bool) {
	select {
	case <-r.done:
		return r.delivered, true
	default:
		return false, false
	}
}
