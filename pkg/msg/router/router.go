// Package router implements C6: decode a local IPC frame, stamp it with
// this node's identity and connection, and hand it to the transport for
// agreed-mode broadcast. Router never touches C3/C4/C5 state directly
// (spec §4.5 — "never mutates state directly"); it is also responsible
// for announcing a dropped client connection so every node's apply
// engine can clean up the handles it leaked (spec §1 failure model).
package router

import (
	"github.com/google/uuid"

	"github.com/corosync/go-msgsvc/pkg/msg/config"
	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/ipc"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
	"github.com/corosync/go-msgsvc/pkg/msg/transport"
	"github.com/corosync/go-msgsvc/pkg/msg/wire"
)

// FrameWriter is the subset of ipc.Server the router needs to answer a
// request immediately, without a broadcast round trip — used only for
// decode failures and backpressure (spec §4.5's ERR_TRY_AGAIN case).
type FrameWriter interface {
	Write(conn model.ConnID, frame []byte) error
}

// Clock returns nanoseconds since epoch, used once per broadcast record
// to stamp the Timestamp field the apply engine later reads instead of
// its own wall clock (see pkg/msg/exec's determinism note).
type Clock func() int64

// Router is C6.
type Router struct {
	localNode   model.NodeID
	defaults    config.Configuration
	transport   transport.Transport
	frames      <-chan ipc.Frame
	disconnects <-chan model.ConnID
	writer      FrameWriter
	log         msglog.Logger
	clock       Clock
}

// New builds a Router bound to one node's transport and IPC server.
// defaults seeds a QueueOpen's CreationAttrs when the client left
// SizeLimits/RetentionTime unset (spec §3's per-priority quotas and
// §4.2's retention policy, both "SHOULD" left to the implementer); the
// router is the natural place to apply it once, the same way it stamps
// Timestamp, rather than leaving every node to re-derive an identical
// default independently.
func New(localNode model.NodeID, defaults config.Configuration, t transport.Transport, frames <-chan ipc.Frame, disconnects <-chan model.ConnID, writer FrameWriter, log msglog.Logger, clock Clock) *Router {
	return &Router{
		localNode:   localNode,
		defaults:    defaults,
		transport:   t,
		frames:      frames,
		disconnects: disconnects,
		writer:      writer,
		log:         log,
		clock:       clock,
	}
}

// Run processes frames and disconnect notices until stop is closed.
func (r *Router) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case f, ok := <-r.frames:
			if !ok {
				return
			}
			r.handleFrame(f)
		case id, ok := <-r.disconnects:
			if !ok {
				return
			}
			r.handleDisconnect(id)
		}
	}
}

func (r *Router) handleFrame(f ipc.Frame) {
	requestID := uuid.NewString()

	rec, _, err := wire.Decode(f.Data)
	if err != nil {
		r.log.WithField("request_id", requestID).Warnf("router: decoding frame from conn %d: %v", f.Conn, err)
		r.respond(model.MessageSource{NodeID: r.localNode, Conn: f.Conn}, errs.CodeOf(err))
		return
	}

	source := model.MessageSource{NodeID: r.localNode, Conn: f.Conn}
	rec.SetSource(source)
	stampTimestamp(rec, r.clock())
	r.applyDefaults(rec)

	r.log.WithField("request_id", requestID).Debugf("router: broadcasting %s from conn %d", rec.Op(), f.Conn)

	if err := r.transport.Broadcast(transport.Agreed, wire.Encode(rec)); err != nil {
		r.log.WithField("request_id", requestID).Warnf("router: broadcast failed, answering try-again: %v", err)
		r.respond(source, errs.TryAgain)
	}
}

func (r *Router) handleDisconnect(id model.ConnID) {
	rec := &wire.ClientDisconnect{
		Client:    model.NodeClientID{NodeID: r.localNode, Conn: id},
		Timestamp: r.clock(),
	}
	rec.SetSource(model.MessageSource{NodeID: r.localNode, Conn: id})
	if err := r.transport.Broadcast(transport.Agreed, wire.Encode(rec)); err != nil {
		r.log.Errorf("router: broadcasting disconnect cleanup for conn %d: %v", id, err)
	}
}

func (r *Router) respond(source model.MessageSource, code errs.ErrorCode) {
	frame := wire.EncodeResponse(0, uint32(code), nil)
	if err := r.writer.Write(source.Conn, frame); err != nil {
		r.log.Warnf("router: writing response to conn %d: %v", source.Conn, err)
	}
}

// stampTimestamp fills in the Timestamp field the apply engine reads
// for CloseTime/EnqueueTime/timeout comparisons, for the ops that carry
// one. Ops with no replicated time-derived state (group/tracking ops,
// plain Get/Cancel) need none.
func stampTimestamp(rec wire.Record, now int64) {
	switch r := rec.(type) {
	case *wire.QueueOpen:
		r.Timestamp = now
	case *wire.QueueClose:
		r.Timestamp = now
	case *wire.MessageSend:
		r.Timestamp = now
	case *wire.MessageSendReceive:
		r.Timestamp = now
	case *wire.MessageReply:
		r.Timestamp = now
	}
}

// applyDefaults fills in a QueueOpen's CreationAttrs from the router's
// configured defaults wherever the client left a field unset, so every
// node applies the identical, already-resolved attrs instead of each
// independently guessing a default (spec §3: SizeLimits and
// RetentionTime are "SHOULD" fields the source never seeds).
func (r *Router) applyDefaults(rec wire.Record) {
	open, ok := rec.(*wire.QueueOpen)
	if !ok {
		return
	}
	if open.CreationAttrs.RetentionTime == 0 {
		open.CreationAttrs.RetentionTime = r.defaults.DefaultRetention
	}
	zero := true
	for _, s := range open.CreationAttrs.SizeLimits {
		if s != 0 {
			zero = false
			break
		}
	}
	if zero {
		open.CreationAttrs.SizeLimits = r.defaults.DefaultSizeLimits
	}
}
