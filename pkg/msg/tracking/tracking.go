// Package tracking implements C5: assembling a QueueGroupTrack
// notification buffer for every subscription affected by a membership
// mutation (spec §4.4).
package tracking

import "github.com/corosync/go-msgsvc/pkg/msg/model"

// Notification is one CHANGES/CHANGES_ONLY buffer addressed to a single
// client, ready to hand to the response dispatcher (C8).
type Notification struct {
	Client  model.NodeClientID
	Context uint64
	Members []model.GroupEntry
}

// CurrentSnapshot builds the one-shot CURRENT buffer: every current
// member, unconditionally (spec §4.3's track contract).
func CurrentSnapshot(g *model.QueueGroup) []model.GroupEntry {
	out := make([]model.GroupEntry, len(g.Members))
	copy(out, g.Members)
	return out
}

// Assemble implements spec §4.4 steps 1-4: for every subscription on g,
// build the buffer its flags call for (full member list with tags for
// CHANGES, changed-only entries for CHANGES_ONLY), skipping
// subscriptions whose flags include neither (a CURRENT-only subscribe
// never reaches here since CURRENT is answered synchronously and never
// stored).
//
// Step 5 (resetting change tags) is the caller's responsibility, run
// after Assemble so every subscription sees the same apply-step tags.
func Assemble(g *model.QueueGroup) []Notification {
	changeCount := 0
	for _, m := range g.Members {
		if m.ChangeTag != model.NoChange {
			changeCount++
		}
	}

	var out []Notification
	for _, sub := range g.Subscriptions {
		switch {
		case sub.Flags.Has(model.Changes):
			members := make([]model.GroupEntry, len(g.Members))
			copy(members, g.Members)
			out = append(out, Notification{Client: sub.Client, Context: sub.Context, Members: members})

		case sub.Flags.Has(model.ChangesOnly):
			if changeCount == 0 {
				continue
			}
			members := make([]model.GroupEntry, 0, changeCount)
			for _, m := range g.Members {
				if m.ChangeTag != model.NoChange {
					members = append(members, m)
				}
			}
			out = append(out, Notification{Client: sub.Client, Context: sub.Context, Members: members})
		}
	}
	return out
}

// Subscribe installs or replaces a streaming subscription for client on
// g (spec §4.3: at most one streaming flag active at a time). Passing
// flags with only Current set is a caller error; CURRENT is handled
// without touching Subscriptions.
func Subscribe(g *model.QueueGroup, client model.NodeClientID, flags model.TrackFlags, context uint64) {
	for i, sub := range g.Subscriptions {
		if sub.Client == client {
			g.Subscriptions[i].Flags = flags
			g.Subscriptions[i].Context = context
			return
		}
	}
	g.Subscriptions = append(g.Subscriptions, model.TrackingSubscription{
		Client:  client,
		Flags:   flags,
		Context: context,
	})
}

// Unsubscribe removes client's streaming subscription from g. Reports
// false (spec §4.3 TrackStop: ERR_NOT_EXIST) if none existed.
func Unsubscribe(g *model.QueueGroup, client model.NodeClientID) bool {
	for i, sub := range g.Subscriptions {
		if sub.Client == client {
			g.Subscriptions = append(g.Subscriptions[:i], g.Subscriptions[i+1:]...)
			return true
		}
	}
	return false
}
