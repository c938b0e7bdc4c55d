package model

import "github.com/corosync/go-msgsvc/pkg/msg/name"

// Waiter is a parked MessageGet: no pending message was available at
// request time, so it waits on this queue's waiter list until a Send
// enqueues a message (delivered to the oldest waiter), a MessageCancel
// from the same client interrupts it, or the client disconnects.
// MessageGet carries no timeout: the apply engine never sets or checks
// Deadline and never uses Notify, so a parked Get has no time limit.
type Waiter struct {
	ClientID NodeClientID
	Deadline int64 // absolute nanoseconds since epoch, 0 = no timeout
	Notify   chan WaitResult
}

// WaitResult is delivered to a parked Waiter's Notify channel.
type WaitResult struct {
	Entry     *MessageEntry
	TimedOut  bool
	Cancelled bool
}

// NodeClientID identifies a client connection cluster-wide: the node
// that owns the IPC connection plus the connection handle itself. It is
// how the queue store tracks waiters across the single apply-engine
// instance running on each node (every node parks and serves the same
// MessageGet during apply, but only node N, which holds the connection,
// delivers the reply; per spec §4.6).
type NodeClientID struct {
	NodeID NodeID
	Conn   ConnID
}

// Queue is the cluster-wide replicated entity described in spec §3.
// Every node's Queue for a given name is byte-identical after each
// applied record (invariant 4), so Queue must contain no node-local
// state; the Waiters list is maintained by apply on every node like the
// rest of the Queue.
type Queue struct {
	Name          name.Name
	CreationFlags CreationFlags
	SizeLimits    [NumPriorities]uint64
	RetentionTime int64
	RefCount      uint32
	CloseTime     int64 // set when RefCount reaches zero; 0 while open (saMsg.h closeTime)

	Messages [NumPriorities][]MessageEntry

	// Waiters holds parked MessageGet requests, oldest first. The apply
	// engine reads it: a Send hands pending messages to these waiters
	// before they stay queued, and MessageCancel / ClientDisconnect
	// remove the matching client's waiters.
	Waiters []Waiter
}

// NewQueue builds a freshly created Queue from creation attributes.
func NewQueue(n name.Name, attrs CreationAttrs) *Queue {
	return &Queue{
		Name:          n,
		CreationFlags: attrs.Flags,
		SizeLimits:    attrs.SizeLimits,
		RetentionTime: attrs.RetentionTime,
		RefCount:      0,
	}
}

// Used reports the current byte usage for a priority level.
func (q *Queue) Used(p Priority) uint64 {
	var total uint64
	for _, e := range q.Messages[p] {
		total += uint64(e.Message.Size())
	}
	return total
}

// NumMessages reports the pending message count for a priority level.
func (q *Queue) NumMessages(p Priority) int {
	return len(q.Messages[p])
}

// Enqueue appends entry to the priority FIFO, honoring the advisory
// per-priority byte quota (spec §4.7 step 2); returns false if the
// quota would be exceeded.
func (q *Queue) Enqueue(entry MessageEntry, enforceQuota bool) bool {
	p := Clamp(entry.Message.Priority)
	entry.Message.Priority = p
	if enforceQuota {
		limit := q.SizeLimits[p]
		if limit > 0 && q.Used(p)+uint64(entry.Message.Size()) > limit {
			return false
		}
	}
	q.Messages[p] = append(q.Messages[p], entry)
	return true
}

// Dequeue removes and returns the oldest entry across priorities,
// lowest numeric priority first (invariant 3, Priority property in
// spec §8).
func (q *Queue) Dequeue() (MessageEntry, bool) {
	for p := 0; p < NumPriorities; p++ {
		if len(q.Messages[p]) > 0 {
			entry := q.Messages[p][0]
			q.Messages[p] = q.Messages[p][1:]
			return entry, true
		}
	}
	return MessageEntry{}, false
}

// AbsorbMessage appends entry to its priority FIFO without quota
// enforcement, skipping it if an entry with the same non-empty
// SenderID is already pending on the queue. Used only by C9's join-time
// message transfer (SPEC_FULL.md §11/§4.8), which is multicast to the
// whole membership and so must tolerate being replayed to nodes that
// already hold the entry. Returns whether the entry was appended.
func (q *Queue) AbsorbMessage(entry MessageEntry) bool {
	if entry.SenderID != "" {
		for p := 0; p < NumPriorities; p++ {
			for _, e := range q.Messages[p] {
				if e.SenderID == entry.SenderID {
					return false
				}
			}
		}
	}
	p := Clamp(entry.Message.Priority)
	entry.Message.Priority = p
	q.Messages[p] = append(q.Messages[p], entry)
	return true
}

// Truncate discards every pending message, used by QueueOpen with the
// Empty flag (SPEC_FULL.md §11).
func (q *Queue) Truncate() {
	for p := 0; p < NumPriorities; p++ {
		q.Messages[p] = nil
	}
}

// PriorityStatus is the per-priority usage triple QueueStatusGet
// returns (spec §4.2, saMsg.h SaMsgQueueUsageT).
type PriorityStatus struct {
	QueueSize        uint64
	QueueUsed        uint64
	NumberOfMessages uint32
}

// Status assembles the full QueueStatusGet response payload.
func (q *Queue) Status() (flags CreationFlags, retention int64, closeTime int64, usage [NumPriorities]PriorityStatus) {
	for p := 0; p < NumPriorities; p++ {
		usage[p] = PriorityStatus{
			QueueSize:        q.SizeLimits[p],
			QueueUsed:        q.Used(Priority(p)),
			NumberOfMessages: uint32(q.NumMessages(Priority(p))),
		}
	}
	return q.CreationFlags, q.RetentionTime, q.CloseTime, usage
}
