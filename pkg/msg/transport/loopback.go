package transport

import (
	"sync"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
)

// loopbackHub fans every Broadcast out to all member Loopback
// transports in the order it was received, giving the exact agreed
// total-order guarantee spec §1 asks of the real transport, without a
// network. This is the harness go-mcast's test.UnityCluster relies on
// implicitly by running every peer in one process; here it is made
// explicit so both the test suite and a single-node deployment can
// depend on the same Transport interface the clustered deployment uses.
type loopbackHub struct {
	mu      sync.Mutex
	members map[model.NodeID]*Loopback
}

func newLoopbackHub() *loopbackHub {
	return &loopbackHub{members: make(map[model.NodeID]*Loopback)}
}

func (h *loopbackHub) register(t *Loopback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[t.node] = t
}

func (h *loopbackHub) unregister(t *Loopback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members, t.node)
}

func (h *loopbackHub) broadcast(data []byte) {
	h.mu.Lock()
	targets := make([]*Loopback, 0, len(h.members))
	for _, t := range h.members {
		targets = append(targets, t)
	}
	h.mu.Unlock()

	for _, t := range targets {
		t.deliver(data)
	}
}

// LoopbackCluster groups Loopback transports that broadcast to each
// other in-process, for tests and single-node deployments.
type LoopbackCluster struct {
	hub *loopbackHub
}

// NewLoopbackCluster returns an empty cluster; call NewMember for each
// node that should join it.
func NewLoopbackCluster() *LoopbackCluster {
	return &LoopbackCluster{hub: newLoopbackHub()}
}

// NewMember joins a new node to the cluster and returns its Transport.
func (c *LoopbackCluster) NewMember(node model.NodeID) *Loopback {
	t := &Loopback{
		node:       node,
		hub:        c.hub,
		deliveries: make(chan []byte, 256),
		confChange: make(chan ConfigurationChange, 8),
		closed:     make(chan struct{}),
	}
	c.hub.register(t)
	c.announceJoin(node)
	return t
}

func (c *LoopbackCluster) announceJoin(joined model.NodeID) {
	c.hub.mu.Lock()
	members := make([]model.NodeID, 0, len(c.hub.members))
	for n := range c.hub.members {
		members = append(members, n)
	}
	targets := make([]*Loopback, 0, len(c.hub.members))
	for _, t := range c.hub.members {
		targets = append(targets, t)
	}
	c.hub.mu.Unlock()

	event := ConfigurationChange{
		Type:    Regular,
		Members: members,
		Joined:  []model.NodeID{joined},
		RingID:  RingID(len(members)),
	}
	for _, t := range targets {
		select {
		case t.confChange <- event:
		default:
		}
	}
}

// Loopback is an in-process Transport implementation: Broadcast fans
// out synchronously to every member registered on the same
// LoopbackCluster, in call order, giving total order for free.
type Loopback struct {
	node       model.NodeID
	hub        *loopbackHub
	deliveries chan []byte
	confChange chan ConfigurationChange
	closed     chan struct{}
	closeOnce  sync.Once
}

var _ Transport = (*Loopback)(nil)

// LocalNode implements Transport.
func (l *Loopback) LocalNode() model.NodeID { return l.node }

// Broadcast implements Transport.
func (l *Loopback) Broadcast(_ DeliveryMode, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	l.hub.broadcast(cp)
	return nil
}

// Deliveries implements Transport.
func (l *Loopback) Deliveries() <-chan []byte { return l.deliveries }

// ConfigurationChanges implements Transport.
func (l *Loopback) ConfigurationChanges() <-chan ConfigurationChange { return l.confChange }

// Close implements Transport.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() {
		l.hub.unregister(l)
		close(l.closed)
	})
	return nil
}

func (l *Loopback) deliver(data []byte) {
	select {
	case <-l.closed:
		return
	case l.deliveries <- data:
	}
}
