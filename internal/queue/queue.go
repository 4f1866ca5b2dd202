// Package queue provides the bounded heaps used for top-k selection.
package queue

import "sort"

// Item is one scored candidate.
type Item struct {
	ID    int     // Position of the vector inside its index.
	Score float32 // Similarity or distance, depending on the metric.
}

// PriorityQueue is a value-based binary heap of Items.
type PriorityQueue struct {
	isMaxHeap bool
	items     []Item
}

// NewMin initializes a new priority queue with minimum priority.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{items: make([]Item, 0, capacity)}
}

// NewMax initializes a new priority queue with maximum priority.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// TopItem returns the top element of the heap.
func (pq *PriorityQueue) TopItem() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PopItem removes and returns the top element while maintaining the heap invariant.
func (pq *PriorityQueue) PopItem() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// Reset clears the priority queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

func (pq *PriorityQueue) less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Score == b.Score {
		// Ties: the larger ID sits on top so that it is evicted first.
		return a.ID > b.ID
	}
	if pq.isMaxHeap {
		return a.Score > b.Score
	}
	return a.Score < b.Score
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}

// TopK keeps the k best items seen so far.
//
// With higherIsBetter the worst retained item is the smallest score, so a
// min-heap is used; otherwise a max-heap holds the largest distance on top.
type TopK struct {
	k              int
	higherIsBetter bool
	pq             *PriorityQueue
}

// NewTopK creates a collector retaining at most k items.
func NewTopK(k int, higherIsBetter bool) *TopK {
	t := &TopK{k: k, higherIsBetter: higherIsBetter}
	if higherIsBetter {
		t.pq = NewMin(k + 1)
	} else {
		t.pq = NewMax(k + 1)
	}
	return t
}

// Offer considers a candidate.
func (t *TopK) Offer(id int, score float32) {
	if t.k <= 0 {
		return
	}
	if t.pq.Len() < t.k {
		t.pq.PushItem(Item{ID: id, Score: score})
		return
	}
	worst, _ := t.pq.TopItem()
	if t.better(Item{ID: id, Score: score}, worst) {
		t.pq.PopItem()
		t.pq.PushItem(Item{ID: id, Score: score})
	}
}

// Len returns the number of retained items.
func (t *TopK) Len() int { return t.pq.Len() }

// Sorted drains the collector and returns items best-first.
// Equal scores are ordered by ascending ID.
func (t *TopK) Sorted() []Item {
	out := make([]Item, 0, t.pq.Len())
	for {
		it, ok := t.pq.PopItem()
		if !ok {
			break
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return t.better(out[i], out[j]) })
	return out
}

func (t *TopK) better(a, b Item) bool {
	if a.Score == b.Score {
		return a.ID < b.ID
	}
	if t.higherIsBetter {
		return a.Score > b.Score
	}
	return a.Score < b.Score
}
