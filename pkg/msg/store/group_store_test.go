package store

import (
	"testing"

	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

func TestGroupStore_CreateInsertRemoveDelete(t *testing.T) {
	groups := NewGroupStore()
	queues := NewQueueStore()

	ga := name.Of("GA")
	qa := name.Of("Q_A")
	queues.Open(qa, model.CreationAttrs{}, model.Create)

	if err := groups.Create(ga, model.RoundRobin); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := groups.Create(ga, model.RoundRobin); errs.CodeOf(err) != errs.Exist {
		t.Fatalf("second create: got %v, want EXIST", err)
	}

	if err := groups.Insert(ga, qa, queues); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := groups.Insert(ga, qa, queues); errs.CodeOf(err) != errs.Exist {
		t.Fatalf("second insert: got %v, want EXIST", err)
	}

	g, _ := groups.Lookup(ga)
	if idx := g.IndexOfMember(qa); idx < 0 || g.Members[idx].ChangeTag != model.Added {
		t.Fatalf("member not tagged Added after insert: %+v", g.Members)
	}

	if err := groups.Remove(ga, qa); err != nil {
		t.Fatalf("remove: %v", err)
	}
	g, _ = groups.Lookup(ga)
	if idx := g.IndexOfMember(qa); idx < 0 || g.Members[idx].ChangeTag != model.Removed {
		t.Fatalf("member not tagged Removed after remove: %+v", g.Members)
	}

	groups.FinishRemoval(ga)
	g, _ = groups.Lookup(ga)
	if len(g.Members) != 0 {
		t.Fatalf("members not unlinked after FinishRemoval: %+v", g.Members)
	}

	if err := groups.Delete(ga); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := groups.Lookup(ga); ok {
		t.Fatalf("group still present after delete")
	}
}

func TestGroupStore_DeleteForceDropsRemovedMembers(t *testing.T) {
	groups := NewGroupStore()
	queues := NewQueueStore()
	ga := name.Of("GA")
	qa := name.Of("Q_A")
	queues.Open(qa, model.CreationAttrs{}, model.Create)
	groups.Create(ga, model.Broadcast)
	groups.Insert(ga, qa, queues)
	groups.Remove(ga, qa)

	// Members tagged Removed but not yet finished should still let
	// Delete succeed (spec's documented leeway).
	if err := groups.Delete(ga); err != nil {
		t.Fatalf("delete with only Removed-tagged members: %v", err)
	}
}

func TestGroupStore_DeleteNonEmptyFails(t *testing.T) {
	groups := NewGroupStore()
	queues := NewQueueStore()
	ga := name.Of("GA")
	qa := name.Of("Q_A")
	queues.Open(qa, model.CreationAttrs{}, model.Create)
	groups.Create(ga, model.Broadcast)
	groups.Insert(ga, qa, queues)

	if err := groups.Delete(ga); errs.CodeOf(err) != errs.InvalidParam {
		t.Fatalf("got %v, want INVALID_PARAM", err)
	}
}

func TestGroupStore_RemoveQueueEverywhere(t *testing.T) {
	groups := NewGroupStore()
	queues := NewQueueStore()
	qa := name.Of("Q_A")
	queues.Open(qa, model.CreationAttrs{}, model.Create)

	groups.Create(name.Of("G1"), model.Broadcast)
	groups.Create(name.Of("G2"), model.Broadcast)
	groups.Insert(name.Of("G1"), qa, queues)
	groups.Insert(name.Of("G2"), qa, queues)

	touched := groups.RemoveQueueEverywhere(qa)
	if len(touched) != 2 {
		t.Fatalf("touched = %v, want both groups", touched)
	}
	for _, gn := range touched {
		g, _ := groups.Lookup(gn)
		idx := g.IndexOfMember(qa)
		if idx < 0 || g.Members[idx].ChangeTag != model.Removed {
			t.Fatalf("group %v member not tagged Removed", gn)
		}
	}
}

func TestGroupStore_AbsorbIsIdempotent(t *testing.T) {
	groups := NewGroupStore()
	ga := name.Of("GA")
	members := []name.Name{name.Of("Q_A"), name.Of("Q_B")}

	groups.Absorb(ga, model.RoundRobin, members)
	g, ok := groups.Lookup(ga)
	if !ok || len(g.Members) != 2 {
		t.Fatalf("first absorb did not materialize group: %+v ok=%v", g, ok)
	}

	groups.Absorb(ga, model.Broadcast, nil)
	g2, _ := groups.Lookup(ga)
	if g2.Policy != model.RoundRobin || len(g2.Members) != 2 {
		t.Fatalf("second absorb mutated an already-synced group: %+v", g2)
	}
}
