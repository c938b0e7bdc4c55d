// Package broker wires C1-C9 into one running node (spec §1's overall
// architecture): an IPC server, a request router, a transport, the
// apply engine, the response dispatcher, and the membership/sync
// adapter. Every store mutation happens on one poll loop; the router and
// the IPC server run on their own goroutines and only decode, broadcast
// or write frames.
//
// go-mcast's own entry point (cmd/ in the teacher) wires a *core.Peer*
// together roughly this way: construct the collaborators, start their
// background goroutines, then select over their channels in one loop.
// Broker follows the same shape, generalized to the five collaborators
// this spec's architecture names instead of go-mcast's own group/peer
// pair.
package broker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corosync/go-msgsvc/pkg/msg/config"
	"github.com/corosync/go-msgsvc/pkg/msg/dispatch"
	"github.com/corosync/go-msgsvc/pkg/msg/exec"
	"github.com/corosync/go-msgsvc/pkg/msg/ipc"
	"github.com/corosync/go-msgsvc/pkg/msg/membership"
	"github.com/corosync/go-msgsvc/pkg/msg/metrics"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
	"github.com/corosync/go-msgsvc/pkg/msg/router"
	"github.com/corosync/go-msgsvc/pkg/msg/store"
	"github.com/corosync/go-msgsvc/pkg/msg/transport"
	"github.com/corosync/go-msgsvc/pkg/msg/wire"
)

// sweepInterval is how often the poll loop checks for retention-expired
// queues (spec §4.2's "a timer at its expiry removes it"). It is a
// housekeeping cadence, not a protocol constant, so it is not
// configurable through Configuration.
const sweepInterval = time.Second

// Node owns one broker process's collaborators and its poll loop.
type Node struct {
	cfg config.Configuration
	log msglog.Logger

	ipc        *ipc.Server
	transport  transport.Transport
	router     *router.Router
	engine     *exec.Engine
	dispatcher *dispatch.Dispatcher
	membership *membership.Adapter
	metrics    *metrics.Metrics

	queues *store.QueueStore
	groups *store.GroupStore
	opens  *store.OpenHandleStore

	stop chan struct{}
	done chan struct{}
}

// ServiceInit builds every collaborator for cfg, starts the IPC
// listener, and begins the poll loop in a background goroutine. Callers
// that want a fully in-process node (tests, single-node runs) should
// pass a transport.Loopback; a real cluster deployment passes a
// transport.ReliableTransport.
func ServiceInit(cfg config.Configuration, t transport.Transport, log msglog.Logger, reg prometheus.Registerer) (*Node, error) {
	srv, err := ipc.Listen(cfg.SocketPath, log)
	if err != nil {
		return nil, err
	}

	queues := store.NewQueueStore()
	groups := store.NewGroupStore()
	opens := store.NewOpenHandleStore()

	m := metrics.New(reg)

	disp := dispatch.New(srv, log)
	disp.SetMetrics(m)

	eng := exec.New(cfg.NodeID, queues, groups, opens, disp, log)
	eng.SetMetrics(m)

	mem := membership.New(cfg, queues, groups, t, log)
	mem.SetMetrics(m)
	eng.SetSyncSink(mem)

	r := router.New(cfg.NodeID, cfg, t, srv.Frames(), srv.Disconnects(), srv, log, clock)

	n := &Node{
		cfg:        cfg,
		log:        log,
		ipc:        srv,
		transport:  t,
		router:     r,
		engine:     eng,
		dispatcher: disp,
		membership: mem,
		metrics:    m,
		queues:     queues,
		groups:     groups,
		opens:      opens,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	go n.run()
	go r.Run(n.stop)
	return n, nil
}

// clock is router.Clock's concrete implementation: nanoseconds since
// epoch, the only place this package reads the wall clock (spec §9's
// determinism note confines it to C6).
func clock() int64 { return time.Now().UnixNano() }

// run is the poll loop (spec §5): it drains the transport's delivery
// and configuration-change channels into C7 and C9, and ticks the
// retention sweep.
func (n *Node) run() {
	defer close(n.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case data, ok := <-n.transport.Deliveries():
			if !ok {
				return
			}
			n.deliver(data)
		case cc, ok := <-n.transport.ConfigurationChanges():
			if !ok {
				return
			}
			n.membership.OnConfigurationChange(cc)
		case <-ticker.C:
			n.membership.Sweep(clock())
		}
	}
}

func (n *Node) deliver(data []byte) {
	rec, _, err := wire.Decode(data)
	if err != nil {
		n.log.Warnf("broker: decoding delivery: %v", err)
		return
	}
	n.engine.Apply(rec)
}

// ServiceExit stops the poll loop and router, closes the IPC listener
// and the transport, and waits for the poll loop to return.
func (n *Node) ServiceExit() error {
	close(n.stop)
	<-n.done
	if err := n.ipc.Close(); err != nil {
		return err
	}
	return n.transport.Close()
}
