// Package membership implements C9: the membership/sync adapter (spec
// §4.8). It is the only component driven by the transport's
// configuration-change channel rather than its delivery channel, and
// the only component that broadcasts records no client ever asked for
// (the join-time state-transfer snapshot).
//
// go-mcast never retrieved a msg_confchg_fn equivalent in the pack, so
// the shape below follows corosync's own callback signature (type,
// members, left, joined, ring_id), the same one transport.ConfigurationChange
// mirrors, and broadcasts through the same transport.Transport the
// router (C6) uses (SPEC_FULL.md §11).
package membership

import (
	"github.com/corosync/go-msgsvc/pkg/msg/config"
	"github.com/corosync/go-msgsvc/pkg/msg/metrics"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
	"github.com/corosync/go-msgsvc/pkg/msg/store"
	"github.com/corosync/go-msgsvc/pkg/msg/transport"
	"github.com/corosync/go-msgsvc/pkg/msg/wire"
)

// State is this node's position in the sync protocol's two-state
// machine (spec §4.8: "STEADY -> SYNCING -> STEADY").
type State int

const (
	Steady State = iota
	Syncing
)

func (s State) String() string {
	if s == Syncing {
		return "syncing"
	}
	return "steady"
}

// Adapter is C9. One instance runs per node, fed configuration changes
// by the broker's poll loop and wired into the apply engine (C7) as its
// exec.SyncSink so the sync-done marker it broadcasts comes back to it
// through the ordinary replicated-apply path rather than a side
// channel (spec §4.8's "receivers apply them through the same C7
// path").
type Adapter struct {
	cfg       config.Configuration
	queues    *store.QueueStore
	groups    *store.GroupStore
	transport transport.Transport
	log       msglog.Logger
	metrics   *metrics.Metrics

	state State
}

// New builds a membership adapter for one node.
func New(cfg config.Configuration, queues *store.QueueStore, groups *store.GroupStore, t transport.Transport, log msglog.Logger) *Adapter {
	return &Adapter{
		cfg:       cfg,
		queues:    queues,
		groups:    groups,
		transport: t,
		log:       log,
		state:     Steady,
	}
}

// SetMetrics attaches the Prometheus instrumentation bundle (optional).
func (a *Adapter) SetMetrics(m *metrics.Metrics) { a.metrics = m }

// State reports this node's current sync-protocol state.
func (a *Adapter) State() State { return a.state }

// OnConfigurationChange implements the msg_confchg_fn-shaped callback
// driven by transport.Transport.ConfigurationChanges() (spec §4.8).
func (a *Adapter) OnConfigurationChange(cc transport.ConfigurationChange) {
	if cc.Type != transport.Regular {
		return
	}

	a.enterSyncing()

	if len(cc.Joined) == 0 {
		// No new member to catch up; nothing elects a state provider
		// and no sync-done marker is broadcast for this ring, so the
		// node returns to STEADY at once instead of waiting for one.
		a.leaveSyncing()
		return
	}

	if !elected(a.cfg.NodeID, cc.Members) {
		return
	}

	a.log.Debugf("membership: elected state provider for ring %d, transferring %d joiners", cc.RingID, len(cc.Joined))
	a.transferState(cc.RingID)
}

// SyncDone implements exec.SyncSink: the sync-done marker broadcast by
// the elected provider has been applied locally, so this node's own
// sync-protocol state returns to STEADY (spec §4.8).
func (a *Adapter) SyncDone(ringID uint64) {
	a.leaveSyncing()
	a.log.Debugf("membership: sync done for ring %d", ringID)
}

func (a *Adapter) enterSyncing() {
	a.state = Syncing
	if a.metrics != nil {
		a.metrics.SyncInFlight.Set(1)
	}
}

func (a *Adapter) leaveSyncing() {
	a.state = Steady
	if a.metrics != nil {
		a.metrics.SyncInFlight.Set(0)
	}
}

// elected reports whether self is the lowest node id in members, the
// rule spec §4.8 uses to pick the single state provider for a ring
// (every node runs the same computation over the same delivered
// membership view, so exactly one reaches true).
func elected(self model.NodeID, members []model.NodeID) bool {
	lowest := self
	for i, m := range members {
		if i == 0 || m < lowest {
			lowest = m
		}
	}
	return lowest == self
}

// transferState broadcasts every Queue, every QueueGroup, then every
// pending Message, then a SyncDone marker (spec §4.8's literal
// ordering: "create records, followed by each pending message, then a
// sync-done marker"). Every record is idempotent on the receiving end
// (store.QueueStore.Absorb / store.GroupStore.Absorb / the
// StateTransferMessage SenderID rule), so replaying them to nodes that
// were already synced — totem multicasts to the whole membership, not
// only the joiner — never double-applies anything.
func (a *Adapter) transferState(ringID transport.RingID) {
	for _, n := range a.queues.Names() {
		q, ok := a.queues.Lookup(n)
		if !ok {
			continue
		}
		a.broadcast(&wire.StateTransferQueue{
			QueueName: n,
			CreationAttrs: model.CreationAttrs{
				Flags:         q.CreationFlags,
				SizeLimits:    q.SizeLimits,
				RetentionTime: q.RetentionTime,
			},
			RefCount: q.RefCount,
		})
	}

	for _, n := range a.groups.Names() {
		g, ok := a.groups.Lookup(n)
		if !ok {
			continue
		}
		members := make([]name.Name, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, m.Queue)
		}
		a.broadcast(&wire.StateTransferGroup{
			GroupName: n,
			Policy:    g.Policy,
			Members:   members,
		})
	}

	for _, n := range a.queues.Names() {
		q, ok := a.queues.Lookup(n)
		if !ok {
			continue
		}
		for p := 0; p < model.NumPriorities; p++ {
			for _, entry := range q.Messages[p] {
				a.broadcast(stateTransferMessageOf(n, entry))
			}
		}
	}

	a.broadcast(&wire.SyncDone{RingID: uint64(ringID)})
}

func stateTransferMessageOf(queueName name.Name, entry model.MessageEntry) *wire.StateTransferMessage {
	var senderName name.Name
	if entry.Message.SenderName != nil {
		senderName = *entry.Message.SenderName
	}
	return &wire.StateTransferMessage{
		QueueName:   queueName,
		SenderID:    entry.SenderID,
		SenderName:  senderName,
		Type:        entry.Message.Type,
		Version:     entry.Message.Version,
		Priority:    entry.Message.Priority,
		EnqueueTime: entry.EnqueueTime,
		ReplyTo:     entry.ReplyTo,
		Payload:     entry.Message.Data,
	}
}

// Sweep implements spec §4.2's retention policy: "refcount==0, the
// queue is retained for retention_time nanos; a timer at its expiry
// removes it." It is local, non-replicated housekeeping, not an
// apply-engine operation broadcast through the transport — every
// node's queue_store.Close already stamped an identical CloseTime
// during ordinary apply (spec's determinism invariant), so each node
// independently reaches the same removal decision at (very nearly) the
// same wall-clock moment without needing agreement on exactly when.
// The broker's poll loop calls this on its own local timer tick (spec
// §5: "a single poll loop plus a work-queue for deferred work, e.g.
// retention-expiry sweeps").
func (a *Adapter) Sweep(now int64) {
	for _, n := range a.queues.Names() {
		q, ok := a.queues.Lookup(n)
		if !ok || q.RefCount != 0 || q.CloseTime == 0 {
			continue
		}
		if now-q.CloseTime < q.RetentionTime {
			continue
		}
		h, ok := a.queues.Ref(n)
		if !ok {
			continue
		}
		a.queues.Sweep(h)
	}
}

// broadcast stamps rec with this node's identity as an internal,
// no-client-connection source (NoConn; unlike the Router's disconnect
// broadcast, which carries the dropped conn) and hands it to the transport. Apply on every node
// (including this one) happens through the ordinary Deliveries path.
func (a *Adapter) broadcast(rec wire.Record) {
	rec.SetSource(model.MessageSource{NodeID: a.cfg.NodeID, Conn: model.NoConn})
	if err := a.transport.Broadcast(transport.Agreed, wire.Encode(rec)); err != nil {
		a.log.Errorf("membership: broadcasting %s: %v", rec.Op(), err)
	}
}
