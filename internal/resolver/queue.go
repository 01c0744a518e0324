package resolver

import "github.com/roach88/bindgen/internal/ir"

// workItem is a pending name, with its declaration when the lookup already
// happened during seeding.
type workItem struct {
	name     string
	referrer string          // declaration that referenced name; empty for roots
	decl     *ir.Declaration // nil until looked up
}

// workQueue is the FIFO frontier of the traversal.
//
// It is not safe for concurrent use; resolution is single-threaded. The
// queue also remembers every name ever enqueued so a name is queued at
// most once per resolution.
type workQueue struct {
	items  []workItem
	queued map[string]bool
}

func newWorkQueue() *workQueue {
	return &workQueue{
		items:  make([]workItem, 0, 64),
		queued: make(map[string]bool),
	}
}

// Enqueue adds an item unless its name was queued before.
// Returns false for duplicates.
func (q *workQueue) Enqueue(item workItem) bool {
	if q.queued[item.name] {
		return false
	}
	q.queued[item.name] = true
	q.items = append(q.items, item)
	return true
}

// Dequeue removes and returns the front item.
func (q *workQueue) Dequeue() (workItem, bool) {
	if len(q.items) == 0 {
		return workItem{}, false
	}

	item := q.items[0]

	// Nil out the slot so the backing array does not retain the declaration.
	q.items[0] = workItem{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return item, true
}

// Queued reports whether name was ever enqueued.
func (q *workQueue) Queued(name string) bool {
	return q.queued[name]
}

// Len returns the number of pending items.
func (q *workQueue) Len() int {
	return len(q.items)
}
