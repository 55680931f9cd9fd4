// Package frontier implements the breadth-first pending-work queue.
//
// The frontier is a strict FIFO queue of (URL, depth) entries with an
// attached visited set. FIFO ordering together with pushing children
// at depth+1 realizes breadth-first traversal: all depth-d entries
// drain before any depth-(d+1) entry is popped. Push performs an
// atomic check-and-insert against the visited set so a URL enters the
// frontier at most once, even when discovered concurrently from
// multiple pages.
package frontier

import (
	"sort"
	"sync"

	"github.com/redoracle/webdoc/internal/model"
)

// Frontier is the breadth-first queue plus the visited set.
// All methods are safe for concurrent use.
type Frontier struct {
	mu       sync.Mutex
	queue    []model.FrontierEntry
	visited  map[string]struct{}
	maxDepth int
}

// New creates an empty frontier bounded by maxDepth.
func New(maxDepth int) *Frontier {
	return &Frontier{
		queue:    make([]model.FrontierEntry, 0),
		visited:  make(map[string]struct{}),
		maxDepth: maxDepth,
	}
}

// Seed enqueues the start entry at depth 0 and records it visited.
// It is called exactly once, before the crawl loop starts.
func (f *Frontier) Seed(entry model.FrontierEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry.Depth = 0
	f.visited[entry.URL] = struct{}{}
	f.queue = append(f.queue, entry)
}

// Push appends entry to the tail and marks its URL visited.
//
// The push is a no-op when the entry exceeds the depth limit or its
// URL was already enqueued or fetched; the check and the insert happen
// under one lock so concurrent discovery cannot double-enqueue.
// It reports whether the entry was accepted.
func (f *Frontier) Push(entry model.FrontierEntry) bool {
	if entry.Depth > f.maxDepth {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, seen := f.visited[entry.URL]; seen {
		return false
	}
	f.visited[entry.URL] = struct{}{}
	f.queue = append(f.queue, entry)
	return true
}

// Pop removes and returns the head entry. ok is false when the
// frontier is empty.
func (f *Frontier) Pop() (entry model.FrontierEntry, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return model.FrontierEntry{}, false
	}
	entry = f.queue[0]
	f.queue = f.queue[1:]
	return entry, true
}

// PopN removes and returns up to n head entries in FIFO order.
func (f *Frontier) PopN(n int) []model.FrontierEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n > len(f.queue) {
		n = len(f.queue)
	}
	if n <= 0 {
		return nil
	}
	popped := make([]model.FrontierEntry, n)
	copy(popped, f.queue[:n])
	f.queue = f.queue[n:]
	return popped
}

// Requeue puts entries back at the head of the queue, preserving their
// relative order. Used when a pause interrupts a wave of in-flight
// fetches: popped-but-unprocessed entries return to the frontier so
// the checkpoint never loses them. The entries are already visited, so
// Push would drop them.
func (f *Frontier) Requeue(entries []model.FrontierEntry) {
	if len(entries) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	restored := make([]model.FrontierEntry, 0, len(entries)+len(f.queue))
	restored = append(restored, entries...)
	restored = append(restored, f.queue...)
	f.queue = restored
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Snapshot returns a copy of the pending queue in FIFO order and the
// visited set sorted lexicographically, for checkpointing.
func (f *Frontier) Snapshot() ([]model.FrontierEntry, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	queue := make([]model.FrontierEntry, len(f.queue))
	copy(queue, f.queue)

	visited := make([]string, 0, len(f.visited))
	for u := range f.visited {
		visited = append(visited, u)
	}
	sort.Strings(visited)

	return queue, visited
}

// Restore replaces the frontier contents from a saved snapshot.
func (f *Frontier) Restore(queue []model.FrontierEntry, visited []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queue = make([]model.FrontierEntry, len(queue))
	copy(f.queue, queue)

	f.visited = make(map[string]struct{}, len(visited))
	for _, u := range visited {
		f.visited[u] = struct{}{}
	}
}
