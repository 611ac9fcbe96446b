package orchestrator

// queueEntry is one pending job in the admission queue.
type queueEntry struct {
	id       string
	priority int
}

// admissionQueue is the ordered sequence of pending job IDs, sorted by
// descending priority with FIFO tie-break. It is not safe for concurrent
// use; the Manager serializes access under its lock.
type admissionQueue struct {
	entries []queueEntry
}

// enqueue inserts the job immediately before the first entry whose priority
// is strictly lower than the new job's priority, or appends at the end.
// Equal-priority jobs therefore keep insertion (FIFO) order, while strictly
// higher-priority jobs overtake everything queued below them.
//
// The scan is O(n) per insertion; queue depth stays small (tens) under the
// bounded concurrency ceiling.
func (q *admissionQueue) enqueue(id string, priority int) {
	for i, entry := range q.entries {
		if entry.priority < priority {
			q.entries = append(q.entries, queueEntry{})
			copy(q.entries[i+1:], q.entries[i:])
			q.entries[i] = queueEntry{id: id, priority: priority}
			return
		}
	}
	q.entries = append(q.entries, queueEntry{id: id, priority: priority})
}

// dequeue removes and returns the highest-priority pending job ID.
func (q *admissionQueue) dequeue() (string, bool) {
	if len(q.entries) == 0 {
		return "", false
	}
	id := q.entries[0].id
	q.entries = q.entries[1:]
	return id, true
}

// remove deletes a specific job from the queue (used by cancellation).
func (q *admissionQueue) remove(id string) bool {
	for i, entry := range q.entries {
		if entry.id == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// depth returns the number of pending jobs in the queue.
func (q *admissionQueue) depth() int {
	return len(q.entries)
}

// ids returns the queued job IDs in admission order.
func (q *admissionQueue) ids() []string {
	ids := make([]string, len(q.entries))
	for i, entry := range q.entries {
		ids[i] = entry.id
	}
	return ids
}
