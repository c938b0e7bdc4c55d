package store

import (
	"testing"

	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

func TestQueueStore_OpenCreatesOnce(t *testing.T) {
	s := NewQueueStore()
	q1 := name.Of("Q1")

	h, queue, created, err := s.Open(q1, model.CreationAttrs{}, model.Create)
	if err != nil || !created || queue.RefCount != 1 {
		t.Fatalf("first open: h=%d created=%v refcount=%d err=%v", h, created, queue.RefCount, err)
	}

	h2, queue2, created2, err := s.Open(q1, model.CreationAttrs{}, model.Create)
	if err != nil || created2 {
		t.Fatalf("second open should not create: created=%v err=%v", created2, err)
	}
	if h2 != h {
		t.Fatalf("second open returned a different handle: %d != %d", h2, h)
	}
	if queue2.RefCount != 2 {
		t.Fatalf("refcount after second open = %d, want 2", queue2.RefCount)
	}
}

func TestQueueStore_OpenWithoutCreateOnMissingName(t *testing.T) {
	s := NewQueueStore()
	_, _, _, err := s.Open(name.Of("ghost"), model.CreationAttrs{}, model.OpenFlags(0))
	if errs.CodeOf(err) != errs.NotExist {
		t.Fatalf("got %v, want NOT_EXIST", err)
	}
}

func TestQueueStore_UnlinkThenOpenWithoutCreateIsNotExist(t *testing.T) {
	s := NewQueueStore()
	q1 := name.Of("Q1")
	s.Open(q1, model.CreationAttrs{}, model.Create)

	if err := s.Unlink(q1); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	_, _, _, err := s.Open(q1, model.CreationAttrs{}, model.OpenFlags(0))
	if errs.CodeOf(err) != errs.NotExist {
		t.Fatalf("got %v, want NOT_EXIST", err)
	}
}

// Idempotent close of destroyed queue (spec §8): existing opens keep
// working through the handle even after the name has been unlinked.
func TestQueueStore_ExistingOpenSurvivesUnlink(t *testing.T) {
	s := NewQueueStore()
	q1 := name.Of("Q1")
	h, queue, _, _ := s.Open(q1, model.CreationAttrs{}, model.Create)

	if err := s.Unlink(q1); err != nil {
		t.Fatalf("unlink: %v", err)
	}

	stillLive, ok := s.LookupByRef(h)
	if !ok || stillLive != queue {
		t.Fatalf("queue handle no longer live after unlink with outstanding refcount")
	}

	if err := s.Close(h, 1000); err != nil {
		t.Fatalf("close: %v", err)
	}
	if queue.RefCount != 0 {
		t.Fatalf("refcount after close = %d, want 0", queue.RefCount)
	}
	if queue.CloseTime != 1000 {
		t.Fatalf("CloseTime = %d, want 1000", queue.CloseTime)
	}
}

func TestQueueStore_CloseBadHandle(t *testing.T) {
	s := NewQueueStore()
	if err := s.Close(999, 0); errs.CodeOf(err) != errs.BadHandle {
		t.Fatalf("got %v, want BAD_HANDLE", err)
	}
}

func TestQueueStore_SweepRemovesOnlyStillUnreferenced(t *testing.T) {
	s := NewQueueStore()
	q1 := name.Of("Q1")
	h, _, _, _ := s.Open(q1, model.CreationAttrs{}, model.Create)
	s.Close(h, 1)
	s.Unlink(q1)

	s.Sweep(h)
	if _, ok := s.LookupByRef(h); ok {
		t.Fatalf("queue still present after sweep")
	}
}

func TestQueueStore_SweepSkipsReopenedQueue(t *testing.T) {
	s := NewQueueStore()
	q1 := name.Of("Q1")
	h, _, _, _ := s.Open(q1, model.CreationAttrs{}, model.Create)
	s.Close(h, 1)

	// Reopen before the sweep fires: refcount is back above zero.
	s.Open(q1, model.CreationAttrs{}, model.Create)

	s.Sweep(h)
	if _, ok := s.LookupByRef(h); !ok {
		t.Fatalf("queue swept despite being reopened")
	}
}

func TestQueueStore_AbsorbIsIdempotent(t *testing.T) {
	s := NewQueueStore()
	q1 := name.Of("Q1")
	attrs := model.CreationAttrs{RetentionTime: 5}

	s.Absorb(q1, attrs, 3)
	q, ok := s.Lookup(q1)
	if !ok || q.RefCount != 3 || q.RetentionTime != 5 {
		t.Fatalf("first absorb did not materialize queue: %+v ok=%v", q, ok)
	}

	s.Absorb(q1, model.CreationAttrs{RetentionTime: 999}, 99)
	q2, _ := s.Lookup(q1)
	if q2.RefCount != 3 || q2.RetentionTime != 5 {
		t.Fatalf("second absorb mutated an already-synced queue: %+v", q2)
	}
}
