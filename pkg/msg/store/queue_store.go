// Package store implements C3 (queue store) and C4 (group store): the
// global name -> entity maps mutated only by the exec apply engine
// (spec §4.2/§4.3). Queue and QueueGroup identity lives in a handle.Table
// arena (C2); the name index maps a Name to that arena Handle, so
// QueueUnlink can remove the name without disturbing entities still
// referenced by live OpenHandles (spec invariant: existing opens stay
// live until closed).
package store

import (
	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/handle"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// QueueStore is the process-wide singleton mapping name -> Queue,
// mutated only on the apply loop (spec §5 concurrency model: no locks
// required since there is exactly one mutator).
type QueueStore struct {
	queues *handle.Table[*model.Queue]
	byName map[name.Name]handle.Handle
}

// NewQueueStore returns an empty store.
func NewQueueStore() *QueueStore {
	return &QueueStore{
		queues: handle.New[*model.Queue](),
		byName: make(map[name.Name]handle.Handle),
	}
}

// Ref returns the arena handle for a currently-linked queue name.
func (s *QueueStore) Ref(n name.Name) (handle.Handle, bool) {
	h, ok := s.byName[n]
	return h, ok
}

// Lookup returns the Queue for a currently-linked name.
func (s *QueueStore) Lookup(n name.Name) (*model.Queue, bool) {
	h, ok := s.byName[n]
	if !ok {
		return nil, false
	}
	return s.queues.Peek(h)
}

// LookupByRef returns the Queue for an arena handle, whether or not the
// name is still linked (used by OpenHandle/GroupEntry references that
// survive a QueueUnlink).
func (s *QueueStore) LookupByRef(h handle.Handle) (*model.Queue, bool) {
	return s.queues.Peek(h)
}

// Open implements spec §4.2: create-if-missing-and-requested, then bump
// the domain refcount. Returns the arena handle identifying the queue
// (stable across the queue's lifetime, including through Unlink) and
// whether this call created the queue.
func (s *QueueStore) Open(n name.Name, attrs model.CreationAttrs, flags model.OpenFlags) (handle.Handle, *model.Queue, bool, error) {
	h, ok := s.byName[n]
	if !ok {
		if !flags.Has(model.Create) {
			return 0, nil, false, errs.New(errs.NotExist, "queue does not exist: "+n.String())
		}
		q := model.NewQueue(n, attrs)
		h = s.queues.Create(q)
		s.byName[n] = h
		q.RefCount++
		return h, q, true, nil
	}

	q, live := s.queues.Peek(h)
	if !live {
		// Name index pointed at a swept slot; treat as absent.
		delete(s.byName, n)
		return s.Open(n, attrs, flags)
	}
	if flags.Has(model.Empty) {
		q.Truncate()
	}
	q.CloseTime = 0
	q.RefCount++
	return h, q, false, nil
}

// Close implements spec §4.2: decrement refcount; when it reaches zero
// the queue becomes eligible for retention-timed collection (the caller
// is responsible for scheduling that sweep; see membership package's
// retention timer).
func (s *QueueStore) Close(h handle.Handle, now int64) error {
	q, ok := s.queues.Peek(h)
	if !ok {
		return errs.New(errs.BadHandle, "queue handle not active")
	}
	if q.RefCount > 0 {
		q.RefCount--
	}
	if q.RefCount == 0 {
		q.CloseTime = now
	}
	return nil
}

// Unlink removes n from the name index so no new opens succeed;
// existing opens (reached via arena handle) stay live until closed
// (spec §4.2, testable property "Idempotent close of destroyed queue").
func (s *QueueStore) Unlink(n name.Name) error {
	h, ok := s.byName[n]
	if !ok {
		return errs.New(errs.NotExist, "queue does not exist: "+n.String())
	}
	delete(s.byName, n)
	q, live := s.queues.Peek(h)
	if live && q.RefCount == 0 {
		s.queues.Destroy(h)
	}
	return nil
}

// Sweep deletes the queue at h if it is still unreferenced, used by the
// retention-timer (spec §4.2's retention policy). No-op if the queue was
// reopened (refcount > 0) since Open clears CloseTime.
func (s *QueueStore) Sweep(h handle.Handle) {
	q, ok := s.queues.Peek(h)
	if !ok || q.RefCount != 0 {
		return
	}
	s.queues.Destroy(h)
}

// Names returns every currently-linked queue name, in no particular
// order; used by status/debug listings and by C9's join-time state
// transfer.
func (s *QueueStore) Names() []name.Name {
	out := make([]name.Name, 0, len(s.byName))
	for n := range s.byName {
		out = append(out, n)
	}
	return out
}

// Absorb materializes a queue carried by a StateTransferQueue record
// (C9 join-time sync). Unlike Open, it is idempotent: a node that
// already has n linked ignores the call, since the record was
// multicast to every member and must not re-run Open's create-and-bump
// semantics on nodes that were already synced.
func (s *QueueStore) Absorb(n name.Name, attrs model.CreationAttrs, refCount uint32) {
	if _, ok := s.byName[n]; ok {
		return
	}
	q := model.NewQueue(n, attrs)
	q.RefCount = refCount
	h := s.queues.Create(q)
	s.byName[n] = h
}
