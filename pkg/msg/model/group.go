package model

import "github.com/corosync/go-msgsvc/pkg/msg/name"

// GroupEntry is a single member of a QueueGroup (spec §3).
type GroupEntry struct {
	Queue     name.Name
	ChangeTag ChangeTag
}

// QueueGroup is the cluster-wide replicated entity from spec §3.
// RoundRobinCursor is part of the replicated state: every node applies
// the same sequence of sends in the same order, so the cursor advances
// identically everywhere (spec §4.3).
type QueueGroup struct {
	Name             name.Name
	Policy           GroupPolicy
	Members          []GroupEntry
	RoundRobinCursor int

	// Subscriptions holds streaming (CHANGES / CHANGES_ONLY) tracking
	// subscriptions. CURRENT is answered synchronously and never
	// stored here (spec §4.3/§4.4).
	Subscriptions []TrackingSubscription
}

// TrackingSubscription is the per-client persistent record of interest
// in a group's membership events (spec §3).
type TrackingSubscription struct {
	Client  NodeClientID
	Flags   TrackFlags
	Context uint64
}

// IndexOfMember returns the index of the member entry for q, or -1.
func (g *QueueGroup) IndexOfMember(q name.Name) int {
	for i, m := range g.Members {
		if m.Queue.Equal(q) {
			return i
		}
	}
	return -1
}

// ResetChangeTags implements invariant 5: a change_tag is reset to
// NoChange at the end of each membership mutation's apply step, after
// tracking notifications have been generated for that step.
func (g *QueueGroup) ResetChangeTags() {
	for i := range g.Members {
		g.Members[i].ChangeTag = NoChange
	}
}

// ActiveMembers returns the members not tagged Removed, in order,
// used by the ROUND_ROBIN/BROADCAST routing policies (spec §4.3).
func (g *QueueGroup) ActiveMembers() []GroupEntry {
	out := make([]GroupEntry, 0, len(g.Members))
	for _, m := range g.Members {
		if m.ChangeTag != Removed {
			out = append(out, m)
		}
	}
	return out
}

// OpenHandle is the per-client, per-queue or per-group record created
// on QueueOpen/QueueOpenAsync apply and removed on explicit close or
// client disconnect (spec §3).
type OpenHandle struct {
	Client           NodeClientID
	QueueName        name.Name
	LibHandle        uint64
	AsyncInvocation  *uint64
	CreationOpenFlag OpenFlags
}
