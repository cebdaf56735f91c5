package forest

import "container/heap"

// queueEntry is one live node in the splittability queue.
type queueEntry struct {
	nodeIndex int
	score     float64
	heapIndex int
}

// splittabilityQueue ranks live nodes by splittability score, highest first.
// There is exactly one entry per live node, including leaves whose score is
// still zero; entries whose score drops below the split threshold stay in the
// queue so later arrivals can raise them again. Ties fall back to node index
// so ordering is deterministic.
type splittabilityQueue struct {
	entries []*queueEntry
	byNode  map[int]*queueEntry
}

func newSplittabilityQueue() *splittabilityQueue {
	return &splittabilityQueue{byNode: map[int]*queueEntry{}}
}

func (q *splittabilityQueue) empty() bool {
	return len(q.entries) == 0
}

// insert adds an entry for the given node. Inserting a node that is already
// present updates its score instead.
func (q *splittabilityQueue) insert(nodeIndex int, score float64) {
	if _, ok := q.byNode[nodeIndex]; ok {
		q.updateKey(nodeIndex, score)
		return
	}
	entry := &queueEntry{nodeIndex: nodeIndex, score: score}
	q.byNode[nodeIndex] = entry
	heap.Push((*entryHeap)(q), entry)
}

// updateKey changes the score of the given node's entry and restores the heap
// ordering. Unknown nodes are ignored.
func (q *splittabilityQueue) updateKey(nodeIndex int, score float64) {
	entry, ok := q.byNode[nodeIndex]
	if !ok {
		return
	}
	entry.score = score
	heap.Fix((*entryHeap)(q), entry.heapIndex)
}

// top returns the highest-priority entry without removing it.
func (q *splittabilityQueue) top() (nodeIndex int, score float64, ok bool) {
	if len(q.entries) == 0 {
		return 0, 0, false
	}
	return q.entries[0].nodeIndex, q.entries[0].score, true
}

// pop removes and returns the highest-priority entry.
func (q *splittabilityQueue) pop() (nodeIndex int, score float64, ok bool) {
	if len(q.entries) == 0 {
		return 0, 0, false
	}
	entry := heap.Pop((*entryHeap)(q)).(*queueEntry)
	delete(q.byNode, entry.nodeIndex)
	return entry.nodeIndex, entry.score, true
}

// entryHeap adapts splittabilityQueue to container/heap as a max-heap.
type entryHeap splittabilityQueue

func (h *entryHeap) Len() int { return len(h.entries) }

func (h *entryHeap) Less(i, j int) bool {
	if h.entries[i].score != h.entries[j].score {
		return h.entries[i].score > h.entries[j].score
	}
	return h.entries[i].nodeIndex < h.entries[j].nodeIndex
}

func (h *entryHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].heapIndex = i
	h.entries[j].heapIndex = j
}

func (h *entryHeap) Push(x any) {
	entry := x.(*queueEntry)
	entry.heapIndex = len(h.entries)
	h.entries = append(h.entries, entry)
}

func (h *entryHeap) Pop() any {
	old := h.entries
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	h.entries = old[:n-1]
	return entry
}
