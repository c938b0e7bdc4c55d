package tracking

import (
	"testing"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

func newGroup() *model.QueueGroup {
	return &model.QueueGroup{
		Name: name.Of("GA"),
		Members: []model.GroupEntry{
			{Queue: name.Of("Q_A"), ChangeTag: model.NoChange},
			{Queue: name.Of("Q_B"), ChangeTag: model.Added},
		},
	}
}

func TestCurrentSnapshot_ReturnsAllMembersUnconditionally(t *testing.T) {
	g := newGroup()
	snap := CurrentSnapshot(g)
	if len(snap) != 2 {
		t.Fatalf("snapshot = %v, want 2 members", snap)
	}
}

func TestSubscribe_InstallsThenReplaces(t *testing.T) {
	g := newGroup()
	client := model.NodeClientID{NodeID: 1, Conn: 1}

	Subscribe(g, client, model.Changes, 42)
	if len(g.Subscriptions) != 1 || g.Subscriptions[0].Context != 42 {
		t.Fatalf("subscribe did not install: %+v", g.Subscriptions)
	}

	Subscribe(g, client, model.ChangesOnly, 7)
	if len(g.Subscriptions) != 1 || g.Subscriptions[0].Flags != model.ChangesOnly || g.Subscriptions[0].Context != 7 {
		t.Fatalf("second subscribe did not replace in place: %+v", g.Subscriptions)
	}
}

func TestUnsubscribe_ReportsFalseOnMissing(t *testing.T) {
	g := newGroup()
	client := model.NodeClientID{NodeID: 1, Conn: 1}
	if Unsubscribe(g, client) {
		t.Fatalf("unsubscribe succeeded with no subscription present")
	}
	Subscribe(g, client, model.Changes, 0)
	if !Unsubscribe(g, client) {
		t.Fatalf("unsubscribe failed to remove an existing subscription")
	}
	if len(g.Subscriptions) != 0 {
		t.Fatalf("subscription not removed: %+v", g.Subscriptions)
	}
}

func TestAssemble_ChangesGetsFullListEveryTime(t *testing.T) {
	g := newGroup()
	client := model.NodeClientID{NodeID: 1, Conn: 1}
	Subscribe(g, client, model.Changes, 1)

	notes := Assemble(g)
	if len(notes) != 1 || len(notes[0].Members) != 2 {
		t.Fatalf("CHANGES notification = %+v, want full member list", notes)
	}
}

func TestAssemble_ChangesOnlySkippedWhenNothingChanged(t *testing.T) {
	g := &model.QueueGroup{
		Name: name.Of("GA"),
		Members: []model.GroupEntry{
			{Queue: name.Of("Q_A"), ChangeTag: model.NoChange},
		},
	}
	client := model.NodeClientID{NodeID: 1, Conn: 1}
	Subscribe(g, client, model.ChangesOnly, 1)

	if notes := Assemble(g); len(notes) != 0 {
		t.Fatalf("CHANGES_ONLY fired with no changed members: %+v", notes)
	}
}

func TestAssemble_ChangesOnlyReturnsOnlyChangedMembers(t *testing.T) {
	g := newGroup() // Q_A NoChange, Q_B Added
	client := model.NodeClientID{NodeID: 1, Conn: 1}
	Subscribe(g, client, model.ChangesOnly, 1)

	notes := Assemble(g)
	if len(notes) != 1 || len(notes[0].Members) != 1 || notes[0].Members[0].Queue.String() != "Q_B" {
		t.Fatalf("CHANGES_ONLY = %+v, want only Q_B", notes)
	}
}

func TestAssemble_MultipleSubscribersEachGetTheirOwnBuffer(t *testing.T) {
	g := newGroup()
	c1 := model.NodeClientID{NodeID: 1, Conn: 1}
	c2 := model.NodeClientID{NodeID: 2, Conn: 1}
	Subscribe(g, c1, model.Changes, 10)
	Subscribe(g, c2, model.ChangesOnly, 20)

	notes := Assemble(g)
	if len(notes) != 2 {
		t.Fatalf("notes = %+v, want one per subscriber", notes)
	}
}
