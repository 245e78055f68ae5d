/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package scheduler implements the per-connection outbound message
// scheduler: a priority heap ordered by (-priority, creation_time),
// content-id coalescing, and in-order chain sequence stamping.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	libmsg "github.com/sabouaram/msgnet/message"
)

type heapEntry struct {
	msg   *libmsg.Message
	index int

	// urgent marks a requeued retransmission: it sorts ahead of every
	// regular entry regardless of priority, so a timed-out reliable
	// message goes back out at the head of the queue.
	urgent bool
}

type priorityHeap []*heapEntry

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].urgent != h[j].urgent {
		return h[i].urgent
	}
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].msg.CreationTime.Before(h[j].msg.CreationTime)
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x interface{}) {
	e := x.(*heapEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue is the outbound scheduler for one connection.
type Queue struct {
	mu sync.Mutex

	h priorityHeap

	// byContent maps a non-zero content id to the entry currently
	// representing it in the heap, for in-place coalescing.
	byContent map[uint32]*heapEntry

	// nextReliable is the next reliable_message_number to stamp.
	nextReliable uint32

	// nextChainSeq is the next ordering index per in-order chain,
	// keyed by content id (the chain identifier).
	nextChainSeq map[uint32]uint64
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{
		byContent:    make(map[uint32]*heapEntry),
		nextChainSeq: make(map[uint32]uint64),
	}
}

// Push enqueues msg. If msg.ContentID is non-zero and a message with
// the same content id is already queued and not yet selected, the
// existing entry is replaced in place: payload, priority and creation
// time are refreshed, and the old message is returned as the one that
// was coalesced away (nil if nothing was replaced).
func (q *Queue) Push(msg *libmsg.Message) (coalesced *libmsg.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// In-order messages are exempt from coalescing: their content id
	// names the ordering chain, and replacing one in place would
	// swallow a chain sequence the receiver is entitled to.
	if msg.ContentID != 0 && !msg.InOrder {
		if e, ok := q.byContent[msg.ContentID]; ok {
			coalesced = e.msg
			e.msg = msg
			heap.Fix(&q.h, e.index)
			q.byContent[msg.ContentID] = e
			return coalesced
		}
	}

	e := &heapEntry{msg: msg}
	heap.Push(&q.h, e)

	if msg.ContentID != 0 && !msg.InOrder {
		q.byContent[msg.ContentID] = e
	}

	return nil
}

// Pop removes and returns the highest-priority, oldest-creation
// message, stamping its ReliableNumber (if Reliable) and ChainSequence
// (if InOrder and ContentID != 0). Returns nil if the queue is empty.
//
// Stale messages (SendDeadline already passed) are dropped rather than
// returned; dropped is the slice of messages dropped this way before a
// live message was found or the queue emptied.
func (q *Queue) Pop(now time.Time) (msg *libmsg.Message, dropped []*libmsg.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.h.Len() > 0 {
		e := heap.Pop(&q.h).(*heapEntry)

		if e.msg.ContentID != 0 {
			if cur, ok := q.byContent[e.msg.ContentID]; ok && cur == e {
				delete(q.byContent, e.msg.ContentID)
			}
		}

		if e.msg.IsStale(now) {
			dropped = append(dropped, e.msg)
			continue
		}

		// Requeued messages keep the numbers they were first stamped
		// with, so retransmission cannot break exactly-once delivery
		// or chain ordering.
		if e.msg.Reliable && e.msg.ReliableNumber == 0 {
			q.nextReliable++
			e.msg.ReliableNumber = q.nextReliable
		}

		if e.msg.InOrder && e.msg.ContentID != 0 && e.msg.ChainSequence == 0 {
			q.nextChainSeq[e.msg.ContentID]++
			e.msg.ChainSequence = q.nextChainSeq[e.msg.ContentID]
		}

		return e.msg, dropped
	}

	return nil, dropped
}

// Requeue puts msg back at the head of the queue for retransmission,
// without re-stamping its ReliableNumber or ChainSequence. Requeued
// messages are deliberately kept out of the coalescing map: their
// stamped numbers are already on the wire contract, so a newer payload
// must not replace them in place.
func (q *Queue) Requeue(msg *libmsg.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.h, &heapEntry{msg: msg, urgent: true})
}

// NextReliable allocates the next reliable_message_number without
// going through a queued message, used when the engine splits an
// oversized message into fragments that each need their own number.
func (q *Queue) NextReliable() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextReliable++
	return q.nextReliable
}

// Drain empties the queue and returns every message still waiting,
// unstamped, so a closing connection can report them as undelivered.
func (q *Queue) Drain() []*libmsg.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*libmsg.Message, 0, q.h.Len())
	for _, e := range q.h {
		out = append(out, e.msg)
	}

	q.h = q.h[:0]
	q.byContent = make(map[uint32]*heapEntry)

	return out
}

// Len returns the number of messages currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.h.Len()
}
