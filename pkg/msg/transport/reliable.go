package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/jabolina/relt/pkg/relt"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
)

// ReliableTransport wraps the teacher's own github.com/jabolina/relt —
// a reliable, totally-ordered group multicast library — giving the
// exec apply engine the agreed-delivery guarantee spec §1 assumes,
// the same way core.ReliableTransport wraps it for go-mcast's own
// replicated log.
//
// Membership change notifications are relt's own concern in the
// original library; relt does not expose a raw configuration-change
// callback, so ReliableTransport instead derives Joined/Left from the
// static cluster roster supplied at construction and emits a single
// Regular change at startup (SPEC_FULL.md §10 — DESIGN.md records this
// as the one teacher-shaped gap a real corosync deployment would close
// with totem's own confchg callback).
type ReliableTransport struct {
	log  msglog.Logger
	node model.NodeID
	relt *relt.Relt

	deliveries chan []byte
	confChange chan ConfigurationChange

	ctx    context.Context
	cancel context.CancelFunc
}

var _ Transport = (*ReliableTransport)(nil)

// NewReliableTransport starts a relt instance named after this node and
// exchanging on the given group address, and begins polling it for
// deliveries. members is the static cluster roster used to synthesize
// the initial ConfigurationChange.
func NewReliableTransport(node model.NodeID, name, group string, members []model.NodeID, log msglog.Logger) (*ReliableTransport, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = name
	conf.Exchange = relt.GroupAddress(group)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, fmt.Errorf("transport: starting relt: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &ReliableTransport{
		log:        log,
		node:       node,
		relt:       r,
		deliveries: make(chan []byte, 256),
		confChange: make(chan ConfigurationChange, 8),
		ctx:        ctx,
		cancel:     cancel,
	}

	go t.poll()
	t.announce(members)
	return t, nil
}

func (t *ReliableTransport) announce(members []model.NodeID) {
	select {
	case t.confChange <- ConfigurationChange{Type: Regular, Members: members, Joined: members}:
	default:
		t.log.Warn("configuration change channel full, dropping initial announcement")
	}
}

// LocalNode implements Transport.
func (t *ReliableTransport) LocalNode() model.NodeID { return t.node }

// Broadcast implements Transport. relt itself only offers a single
// reliable delivery mode, which is the Agreed mode spec §1 requires;
// mode is accepted for interface symmetry with Loopback and ignored.
func (t *ReliableTransport) Broadcast(_ DeliveryMode, data []byte) error {
	send := relt.Send{Data: data}
	if err := t.relt.Broadcast(t.ctx, send); err != nil {
		return fmt.Errorf("transport: broadcast: %w", err)
	}
	return nil
}

// Deliveries implements Transport.
func (t *ReliableTransport) Deliveries() <-chan []byte { return t.deliveries }

// ConfigurationChanges implements Transport.
func (t *ReliableTransport) ConfigurationChanges() <-chan ConfigurationChange { return t.confChange }

// Close implements Transport.
func (t *ReliableTransport) Close() error {
	t.cancel()
	return t.relt.Close()
}

func (t *ReliableTransport) poll() {
	listener, err := t.relt.Consume()
	if err != nil {
		t.log.Errorf("transport: starting consume: %v", err)
		return
	}
	for {
		select {
		case <-t.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			t.consume(recv)
		}
	}
}

func (t *ReliableTransport) consume(recv relt.Recv) {
	if recv.Error != nil {
		t.log.Errorf("transport: delivery error: %v", recv.Error)
		return
	}
	if len(recv.Data) == 0 {
		t.log.Warn("transport: empty delivery")
		return
	}

	timeout, cancel := context.WithTimeout(t.ctx, 250*time.Millisecond)
	defer cancel()
	select {
	case <-timeout.Done():
		t.log.Warnf("transport: consumer stalled, dropping %d byte delivery", len(recv.Data))
	case t.deliveries <- recv.Data:
	}
}
