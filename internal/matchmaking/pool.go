package matchmaking

// WaitingQueue is the FIFO of addressed, unpaired identities.
// It stores bare identities; callers re-resolve them through the Registry
// when they come off the queue, since a player may have left in between.
type WaitingQueue struct {
	ids []string
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{}
}

// Enqueue appends id to the back of the queue.
func (q *WaitingQueue) Enqueue(id string) {
	q.ids = append(q.ids, id)
}

// DequeueTwo pops the two oldest identities, oldest first.
// It returns ok=false and leaves the queue untouched if fewer than two wait.
func (q *WaitingQueue) DequeueTwo() (a, b string, ok bool) {
	if len(q.ids) < 2 {
		return "", "", false
	}
	a, b = q.ids[0], q.ids[1]
	q.ids[0], q.ids[1] = "", ""
	q.ids = q.ids[2:]
	return a, b, true
}

// Purge removes every occurrence of id and returns how many were removed.
func (q *WaitingQueue) Purge(id string) int {
	kept := q.ids[:0]
	removed := 0
	for _, queued := range q.ids {
		if queued == id {
			removed++
			continue
		}
		kept = append(kept, queued)
	}
	for i := len(kept); i < len(q.ids); i++ {
		q.ids[i] = ""
	}
	q.ids = kept
	return removed
}

// Contains reports whether id is waiting.
func (q *WaitingQueue) Contains(id string) bool {
	for _, queued := range q.ids {
		if queued == id {
			return true
		}
	}
	return false
}

// Len returns the number of waiting identities.
func (q *WaitingQueue) Len() int {
	return len(q.ids)
}
