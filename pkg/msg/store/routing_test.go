package store

import (
	"testing"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

func setupRoundRobinGroup(t *testing.T) (*GroupStore, *QueueStore, name.Name) {
	t.Helper()
	groups := NewGroupStore()
	queues := NewQueueStore()
	ga := name.Of("GA")
	groups.Create(ga, model.RoundRobin)
	for _, n := range []string{"Q_A", "Q_B", "Q_C"} {
		queues.Open(name.Of(n), model.CreationAttrs{}, model.Create)
		groups.Insert(ga, name.Of(n), queues)
	}
	return groups, queues, ga
}

// Scenario 3 (spec §8): six sends to a ROUND_ROBIN group of three
// members land message i on member i%3.
func TestSelectTargets_RoundRobinCyclesThroughMembers(t *testing.T) {
	groups, queues, ga := setupRoundRobinGroup(t)
	g, _ := groups.Lookup(ga)
	opens := NewOpenHandleStore()

	want := []string{"Q_A", "Q_B", "Q_C", "Q_A", "Q_B", "Q_C"}
	for i, w := range want {
		targets := SelectTargets(g, model.NodeID(1), opens, queues)
		if len(targets) != 1 || targets[0].String() != w {
			t.Fatalf("send %d: got %v, want [%s]", i, targets, w)
		}
	}
}

func TestSelectTargets_Broadcast(t *testing.T) {
	groups, queues, _ := setupRoundRobinGroup(t)
	ga := name.Of("GA")
	groups.Create(name.Of("GB"), model.Broadcast)
	for _, n := range []string{"Q_A", "Q_B"} {
		groups.Insert(name.Of("GB"), name.Of(n), queues)
	}
	g, _ := groups.Lookup(name.Of("GB"))
	opens := NewOpenHandleStore()

	targets := SelectTargets(g, model.NodeID(1), opens, queues)
	if len(targets) != 2 {
		t.Fatalf("broadcast targets = %v, want 2 members", targets)
	}
	_ = ga
}

func TestSelectTargets_RoundRobinSkipsRemovedMembers(t *testing.T) {
	groups, queues, ga := setupRoundRobinGroup(t)
	groups.Remove(ga, name.Of("Q_B"))
	g, _ := groups.Lookup(ga)
	opens := NewOpenHandleStore()

	for i := 0; i < 4; i++ {
		targets := SelectTargets(g, model.NodeID(1), opens, queues)
		if len(targets) != 1 {
			t.Fatalf("expected exactly one target, got %v", targets)
		}
		if targets[0].String() == "Q_B" {
			t.Fatalf("round robin selected a Removed-tagged member")
		}
	}
}

func TestSelectTargets_LocalBestQueuePicksLeastUsed(t *testing.T) {
	groups, queues, ga := setupRoundRobinGroup(t)
	g, _ := groups.Lookup(ga)
	g.Policy = model.LocalBestQueue

	opens := NewOpenHandleStore()
	node := model.NodeID(1)
	for _, n := range []string{"Q_A", "Q_B", "Q_C"} {
		opens.Create(model.OpenHandle{
			Client:    model.NodeClientID{NodeID: node, Conn: 1},
			QueueName: name.Of(n),
		})
	}

	qb, _ := queues.Lookup(name.Of("Q_B"))
	qb.Enqueue(model.MessageEntry{Message: model.Message{Data: []byte("xxxxxxxxxx")}}, false)

	targets := SelectTargets(g, node, opens, queues)
	if len(targets) != 1 || targets[0].String() == "Q_B" {
		t.Fatalf("expected the least-used queue, got %v", targets)
	}
}

func TestSelectTargets_LocalRoundRobinExcludesNonLocalMembers(t *testing.T) {
	groups, queues, ga := setupRoundRobinGroup(t)
	g, _ := groups.Lookup(ga)
	g.Policy = model.LocalRoundRobin

	opens := NewOpenHandleStore()
	node := model.NodeID(1)
	opens.Create(model.OpenHandle{
		Client:    model.NodeClientID{NodeID: node, Conn: 1},
		QueueName: name.Of("Q_A"),
	})

	for i := 0; i < 3; i++ {
		targets := SelectTargets(g, node, opens, queues)
		if len(targets) != 1 || targets[0].String() != "Q_A" {
			t.Fatalf("expected only the locally-open member Q_A, got %v", targets)
		}
	}
}
