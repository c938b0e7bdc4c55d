// Package msgtest provides an in-process multi-node test harness,
// modeled on go-mcast's test.UnityCluster (test/testing.go in the
// pack): CreateUnity/CreateCluster there stand up one or several
// replicas sharing an in-memory transport and hand back something a
// test can Write/Read against. Harness does the same for this
// package's broker.Node, sharing one transport.LoopbackCluster so every
// node's apply engine sees the identical delivery order a real totem
// ring would give it, without a network or relt.
package msgtest

import (
	"fmt"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corosync/go-msgsvc/pkg/msg/broker"
	"github.com/corosync/go-msgsvc/pkg/msg/config"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
	"github.com/corosync/go-msgsvc/pkg/msg/transport"
)

// Cluster is a set of broker.Node instances sharing one
// transport.LoopbackCluster.
type Cluster struct {
	t     *testing.T
	nodes []*broker.Node
	paths []string
}

// NewCluster starts n nodes, node IDs 1..n, each listening on its own
// Unix domain socket under t.TempDir(). The cluster and every node are
// torn down automatically via t.Cleanup.
func NewCluster(t *testing.T, n int) *Cluster {
	t.Helper()

	members := make([]model.NodeID, n)
	for i := range members {
		members[i] = model.NodeID(i + 1)
	}

	lc := transport.NewLoopbackCluster()
	dir := t.TempDir()

	c := &Cluster{t: t}
	for _, id := range members {
		cfg := config.Default(id)
		cfg.Members = members
		cfg.SocketPath = fmt.Sprintf("%s/node-%d.sock", dir, id)

		node, err := broker.ServiceInit(cfg, lc.NewMember(id), msglog.NewDefaultLogger(), prometheus.NewRegistry())
		if err != nil {
			t.Fatalf("msgtest: starting node %d: %v", id, err)
		}
		c.nodes = append(c.nodes, node)
		c.paths = append(c.paths, cfg.SocketPath)
	}

	t.Cleanup(c.Close)
	return c
}

// Dial opens a new client connection to node index i (0-based).
func (c *Cluster) Dial(i int) net.Conn {
	c.t.Helper()
	conn, err := net.Dial("unix", c.paths[i])
	if err != nil {
		c.t.Fatalf("msgtest: dialing node %d: %v", i, err)
	}
	return conn
}

// Len reports how many nodes the cluster has.
func (c *Cluster) Len() int { return len(c.nodes) }

// Close shuts every node down. Safe to call multiple times; registered
// automatically with t.Cleanup by NewCluster.
func (c *Cluster) Close() {
	for _, n := range c.nodes {
		_ = n.ServiceExit()
	}
	c.nodes = nil
}
