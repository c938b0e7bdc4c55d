package store

import (
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// SelectTargets implements the group routing policy from spec §4.3 for
// a MessageSend addressed to group g, originating from originNode.
// ROUND_ROBIN and BROADCAST are deterministic given identical apply
// order on every node (invariant 4); LOCAL_ROUND_ROBIN/LOCAL_BEST_QUEUE
// are restricted to members with a live open handle from originNode.
// Open handles are recorded during apply on every node with their
// origin node id kept, so every node computes these from the same
// handle set too.
func SelectTargets(g *model.QueueGroup, originNode model.NodeID, opens *OpenHandleStore, queues *QueueStore) []name.Name {
	switch g.Policy {
	case model.Broadcast:
		active := g.ActiveMembers()
		out := make([]name.Name, 0, len(active))
		for _, m := range active {
			out = append(out, m.Queue)
		}
		return out

	case model.RoundRobin:
		active := g.ActiveMembers()
		if len(active) == 0 {
			return nil
		}
		if g.RoundRobinCursor >= len(active) {
			g.RoundRobinCursor = 0
		}
		picked := active[g.RoundRobinCursor]
		g.RoundRobinCursor = (g.RoundRobinCursor + 1) % len(active)
		return []name.Name{picked.Queue}

	case model.LocalRoundRobin:
		local := localActiveMembers(g, originNode, opens)
		if len(local) == 0 {
			return nil
		}
		if g.RoundRobinCursor >= len(local) {
			g.RoundRobinCursor = 0
		}
		picked := local[g.RoundRobinCursor]
		g.RoundRobinCursor = (g.RoundRobinCursor + 1) % len(local)
		return []name.Name{picked}

	case model.LocalBestQueue:
		local := localActiveMembers(g, originNode, opens)
		if len(local) == 0 {
			return nil
		}
		return []name.Name{BestOf(local, queues)}

	default:
		return nil
	}
}

// localActiveMembers returns active member queue names that have at
// least one live open handle on originNode, in member order. It does
// not sort by usage; LocalBestQueue picks the least-used one through
// BestOf.
func localActiveMembers(g *model.QueueGroup, originNode model.NodeID, opens *OpenHandleStore) []name.Name {
	active := g.ActiveMembers()
	var local []name.Name
	for _, m := range active {
		if len(opens.OnQueueForNode(m.Queue, originNode)) > 0 {
			local = append(local, m.Queue)
		}
	}
	return local
}

// BestOf picks the member with the lowest total queue_used among
// candidates, ties broken by candidates' order (spec §4.3
// LOCAL_BEST_QUEUE). Usage lookup requires the queue store since usage
// lives on the Queue entity, not the group.
func BestOf(candidates []name.Name, queues *QueueStore) name.Name {
	if len(candidates) == 0 {
		return name.Name{}
	}
	best := candidates[0]
	bestUsage := totalUsed(best, queues)
	for _, c := range candidates[1:] {
		u := totalUsed(c, queues)
		if u < bestUsage {
			best = c
			bestUsage = u
		}
	}
	return best
}

func totalUsed(n name.Name, queues *QueueStore) uint64 {
	q, ok := queues.Lookup(n)
	if !ok {
		return ^uint64(0)
	}
	var total uint64
	for p := 0; p < model.NumPriorities; p++ {
		total += q.Used(model.Priority(p))
	}
	return total
}
