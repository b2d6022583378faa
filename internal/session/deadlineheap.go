package session

import "container/heap"

// deadlineItem is one entry in a session's deadline heap: a pending
// request's sequence id prioritized by when it expires.
type deadlineItem struct {
	seqID    uint64
	deadline int64 // UnixNano
	index    int   // maintained by container/heap
}

// deadlineHeap is a min-heap over pending requests ordered by deadline,
// with O(1) key lookup by sequence id. It drives the single per-session
// timer described in the session design: instead of one timer goroutine
// per in-flight request, the session peeks the heap's minimum and arms one
// timer for it, re-arming as entries are added, fired, or cancelled.
type deadlineHeap struct {
	items   []*deadlineItem
	bySeqID map[uint64]*deadlineItem
}

func newDeadlineHeap() *deadlineHeap {
	return &deadlineHeap{
		items:   make([]*deadlineItem, 0),
		bySeqID: make(map[uint64]*deadlineItem),
	}
}

func (h *deadlineHeap) Len() int { return len(h.items) }

func (h *deadlineHeap) Less(i, j int) bool {
	return h.items[i].deadline < h.items[j].deadline
}

func (h *deadlineHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *deadlineHeap) Push(x interface{}) {
	it := x.(*deadlineItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.bySeqID[it.seqID] = it
}

func (h *deadlineHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	h.items = old[:n-1]
	delete(h.bySeqID, it.seqID)
	return it
}

// Add inserts a new pending request's deadline into the heap.
func (h *deadlineHeap) Add(seqID uint64, deadline int64) {
	heap.Push(h, &deadlineItem{seqID: seqID, deadline: deadline})
}

// Remove drops seqID from the heap, e.g. once its completion has fired for
// another reason (a response arrived before the timer did).
func (h *deadlineHeap) Remove(seqID uint64) {
	it, ok := h.bySeqID[seqID]
	if !ok {
		return
	}
	heap.Remove(h, it.index)
}

// PeekDeadline returns the earliest deadline in the heap, if any.
func (h *deadlineHeap) PeekDeadline() (int64, bool) {
	if len(h.items) == 0 {
		return 0, false
	}
	return h.items[0].deadline, true
}

// PopExpired removes and returns every sequence id whose deadline is at or
// before now.
func (h *deadlineHeap) PopExpired(now int64) []uint64 {
	var expired []uint64
	for len(h.items) > 0 && h.items[0].deadline <= now {
		it := heap.Pop(h).(*deadlineItem)
		expired = append(expired, it.seqID)
	}
	return expired
}
