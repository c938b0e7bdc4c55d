// Package config defines the broker's static startup configuration
// (SPEC_FULL.md §9): node identity, cluster membership roster,
// per-priority default queue size limits, default retention, and the
// local IPC socket path. go-mcast references a
// BaseConfiguration/ClusterConfiguration pair from protocol.go without
// retrieving it in the pack; this package follows the same
// node-id-plus-roster shape but is built explicitly for the broker,
// constructed in code or from environment variables rather than a
// parsed file (dynamic config-file parsing is out of scope, spec §1).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
)

// DefaultSocketPath is used when MSG_SOCKET_PATH is unset.
const DefaultSocketPath = "/var/run/msgsvc.sock"

// DefaultRetention is used when a QueueOpen's CreationAttrs carries no
// explicit retention (spec §3's "SHOULD" retention policy).
const DefaultRetention = int64(30_000_000_000) // 30s in nanoseconds

// Configuration is everything ServiceInit (pkg/msg/broker) needs to
// stand up one node of the cluster.
type Configuration struct {
	// NodeID is this process's identity in the transport's membership
	// view (spec §3's MessageSource.node_id).
	NodeID model.NodeID

	// Members is the static cluster roster. A real totem deployment
	// would discover this dynamically; the relt-backed transport
	// synthesizes its initial ConfigurationChange from it (see
	// pkg/msg/transport.ReliableTransport, DESIGN.md).
	Members []model.NodeID

	// SocketPath is the local IPC Unix domain socket applications
	// connect to (spec §1's IpcServer collaborator).
	SocketPath string

	// ReltName and ReltGroup select the relt instance name and
	// exchange group address for the clustered transport.
	ReltName  string
	ReltGroup string

	// DefaultSizeLimits seeds CreationAttrs.SizeLimits for a QueueOpen
	// that doesn't specify its own (0 meaning unlimited, spec §3's
	// "advisory per-priority byte quotas").
	DefaultSizeLimits [model.NumPriorities]uint64

	// DefaultRetention seeds CreationAttrs.RetentionTime the same way.
	DefaultRetention int64

	// Debug turns on debug-level logging at startup (msglog.Logger's
	// ToggleDebug).
	Debug bool
}

// Default returns a single-node configuration suitable for the
// in-process Loopback transport (tests, local harness runs).
func Default(node model.NodeID) Configuration {
	return Configuration{
		NodeID:           node,
		Members:          []model.NodeID{node},
		SocketPath:       DefaultSocketPath,
		ReltName:         fmt.Sprintf("msgsvc-%d", node),
		ReltGroup:        "239.0.0.1:5000",
		DefaultRetention: DefaultRetention,
	}
}

// FromEnvironment builds a Configuration from MSG_* environment
// variables, falling back to Default's values for anything unset.
// Recognized variables:
//
//	MSG_NODE_ID        (required) this node's numeric id
//	MSG_MEMBERS        comma-separated list of member node ids
//	MSG_SOCKET_PATH    local IPC socket path
//	MSG_RELT_NAME      relt instance name
//	MSG_RELT_GROUP     relt exchange group address
//	MSG_RETENTION_NS   default retention in nanoseconds
//	MSG_DEBUG          "1"/"true" to enable debug logging
func FromEnvironment() (Configuration, error) {
	nodeStr := os.Getenv("MSG_NODE_ID")
	if nodeStr == "" {
		return Configuration{}, fmt.Errorf("config: MSG_NODE_ID is required")
	}
	nodeID, err := strconv.ParseUint(nodeStr, 10, 32)
	if err != nil {
		return Configuration{}, fmt.Errorf("config: parsing MSG_NODE_ID: %w", err)
	}

	cfg := Default(model.NodeID(nodeID))

	if members := os.Getenv("MSG_MEMBERS"); members != "" {
		parsed, err := parseMembers(members)
		if err != nil {
			return Configuration{}, err
		}
		cfg.Members = parsed
	}
	if v := os.Getenv("MSG_SOCKET_PATH"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("MSG_RELT_NAME"); v != "" {
		cfg.ReltName = v
	}
	if v := os.Getenv("MSG_RELT_GROUP"); v != "" {
		cfg.ReltGroup = v
	}
	if v := os.Getenv("MSG_RETENTION_NS"); v != "" {
		ns, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Configuration{}, fmt.Errorf("config: parsing MSG_RETENTION_NS: %w", err)
		}
		cfg.DefaultRetention = ns
	}
	if v := os.Getenv("MSG_DEBUG"); v != "" {
		cfg.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	return cfg, nil
}

func parseMembers(raw string) ([]model.NodeID, error) {
	parts := strings.Split(raw, ",")
	out := make([]model.NodeID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("config: parsing MSG_MEMBERS entry %q: %w", p, err)
		}
		out = append(out, model.NodeID(id))
	}
	return out, nil
}

// LowestMember returns the lowest node id in the roster, the node
// spec §4.8 elects to drive join-time state transfer.
func (c Configuration) LowestMember() model.NodeID {
	lowest := c.NodeID
	for i, m := range c.Members {
		if i == 0 || m < lowest {
			lowest = m
		}
	}
	return lowest
}
