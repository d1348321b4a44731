package assets

import (
	"container/heap"
	"sync"
	"time"
)

// queueEntry snapshots the priority an asset was enqueued with, so a
// later priority change cannot reorder entries already in flight.
type queueEntry struct {
	asset    *Asset
	priority int
}

// entryBefore is the total order on load queue entries: higher
// priority first, and creation order (oldest first) within the same
// priority. Creation IDs are unique, so distinct assets never compare
// equal.
func entryBefore(x, y queueEntry) bool {
	if x.priority != y.priority {
		return x.priority > y.priority
	}
	return x.asset.creationID < y.asset.creationID
}

type entryHeap []queueEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return entryBefore(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(queueEntry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// loadQueue is the priority queue feeding the loader goroutine. It has
// a single consumer; push may be called from any goroutine.
type loadQueue struct {
	mu      sync.Mutex
	entries entryHeap
	signal  chan struct{}
}

func newLoadQueue() *loadQueue {
	return &loadQueue{signal: make(chan struct{}, 1)}
}

func (q *loadQueue) push(a *Asset, priority int) {
	q.mu.Lock()
	heap.Push(&q.entries, queueEntry{asset: a, priority: priority})
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop returns the highest-ranked entry, waiting up to timeout for one
// to arrive. It returns nil on timeout so the caller can re-check its
// stop flag.
func (q *loadQueue) pop(timeout time.Duration) *Asset {
	if a := q.tryPop(); a != nil {
		return a
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.signal:
		return q.tryPop()
	case <-timer.C:
		return nil
	}
}

func (q *loadQueue) tryPop() *Asset {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	entry := heap.Pop(&q.entries).(queueEntry)
	if len(q.entries) > 0 {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return entry.asset
}

func (q *loadQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *loadQueue) drain() {
	q.mu.Lock()
	q.entries = nil
	q.mu.Unlock()
}

// resultQueue collects assets the loader has finished with until the
// next poll takes them. It is unbounded so the loader never blocks on
// a slow poller.
type resultQueue struct {
	mu    sync.Mutex
	items []*Asset
}

func (q *resultQueue) put(a *Asset) {
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()
}

func (q *resultQueue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

func (q *resultQueue) takeAll() []*Asset {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}
