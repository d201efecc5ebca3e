package discord

import "sync"

type entry struct {
	text    string
	receipt *Receipt
}

// messageQueue is an unbounded FIFO of pending messages. Producers append,
// the dispatcher removes from the front; entries are never reordered and
// every popped entry is resolved by the caller.
type messageQueue struct {
	mu      sync.Mutex
	entries []entry
}

func (q *messageQueue) push(e entry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
}

func (q *messageQueue) pop() (entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return entry{}, false
	}
	e := q.entries[0]
	q.entries[0] = entry{}
	q.entries = q.entries[1:]
	if len(q.entries) == 0 {
		q.entries = nil
	}
	return e, true
}

func (q *messageQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
