// Package transport defines the Transport capability spec §1 treats as
// an external collaborator ("assumed to provide (a) totally-ordered,
// atomic multicast with agreed/safe delivery modes, (b) membership
// change notifications with a ring-id, (c) a per-node identifier"), and
// provides two implementations: Loopback (in-process, for single-node
// deployments and tests) and ReliableTransport (wraps the teacher's own
// github.com/jabolina/relt, for real clustered deployment).
package transport

import (
	"github.com/corosync/go-msgsvc/pkg/msg/model"
)

// DeliveryMode selects the ordering/reliability guarantee requested for
// a broadcast (spec §1's "agreed/safe delivery modes").
type DeliveryMode int

const (
	// Agreed delivery: total order, every node sees the same sequence
	// (spec glossary). The router and the membership adapter only ever
	// broadcast in this mode.
	Agreed DeliveryMode = iota
)

// ConfigurationType distinguishes a regular membership change from
// other configuration-change causes, mirroring msg.c's
// msg_confchg_fn signature (SPEC_FULL.md §11).
type ConfigurationType int

const (
	Regular ConfigurationType = iota
	Transitional
)

// RingID is the transport's monotonically advancing membership epoch
// identifier, used to discard stale records delivered across a
// membership change (spec glossary).
type RingID uint64

// ConfigurationChange is delivered to C9 on every membership event
// (spec §4.8).
type ConfigurationChange struct {
	Type    ConfigurationType
	Members []model.NodeID
	Left    []model.NodeID
	Joined  []model.NodeID
	RingID  RingID
}

// Transport is the capability the request router (C6) and exec apply
// engine (C7) depend on. It is specified here only as an interface;
// both the wire format carried over it (pkg/msg/wire) and the apply
// semantics driven by its delivery callback (pkg/msg/exec) are in
// scope, the transport's own total-order algorithm is not (spec §1).
type Transport interface {
	// LocalNode returns this process's node identifier.
	LocalNode() model.NodeID

	// Broadcast reliably delivers data to every member, including the
	// local node, in the same total order everywhere (spec §4.5/§5).
	Broadcast(mode DeliveryMode, data []byte) error

	// Deliveries returns the channel of totem-delivered payloads, in
	// delivery order, to be fed into the exec apply engine.
	Deliveries() <-chan []byte

	// ConfigurationChanges returns the channel of membership events,
	// to be fed into C9 (spec §4.8).
	ConfigurationChanges() <-chan ConfigurationChange

	// Close shuts the transport down.
	Close() error
}
