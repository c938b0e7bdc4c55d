// Package dispatch implements C8: the response dispatcher. It turns
// every outcome the apply engine (C7) produces into a framed message
// on the originating client's IPC connection — or, per spec §4.6's
// respond_local rule, silently drops it when the record was applied on
// behalf of a different node (source.conn cleared to NoConn).
package dispatch

import (
	"bytes"
	"encoding/binary"

	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/metrics"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
	"github.com/corosync/go-msgsvc/pkg/msg/wire"
)

// Kind distinguishes the four shapes a dispatched frame can take, so
// the client library knows how to parse what arrives on its single IPC
// connection, which carries both responses to blocking calls and
// callback frames.
type Kind uint32

const (
	KindResponse Kind = iota
	KindAsyncComplete
	KindMessageAvailable
	KindTracking
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindAsyncComplete:
		return "async_complete"
	case KindMessageAvailable:
		return "message_available"
	case KindTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// FrameWriter is the subset of ipc.Server the dispatcher needs.
type FrameWriter interface {
	Write(conn model.ConnID, frame []byte) error
}

// Dispatcher is C8, and also the exec.ResponseSink implementation the
// apply engine is driven by.
type Dispatcher struct {
	writer  FrameWriter
	log     msglog.Logger
	metrics *metrics.Metrics
}

// New builds a Dispatcher writing frames through writer.
func New(writer FrameWriter, log msglog.Logger) *Dispatcher {
	return &Dispatcher{writer: writer, log: log}
}

// SetMetrics attaches the Prometheus instrumentation bundle (optional).
func (d *Dispatcher) SetMetrics(m *metrics.Metrics) { d.metrics = m }

func (d *Dispatcher) count(kind Kind) {
	if d.metrics == nil {
		return
	}
	d.metrics.DispatchTotal.WithLabelValues(kind.String()).Inc()
}

// Respond implements exec.ResponseSink: a synchronous call's outcome.
func (d *Dispatcher) Respond(source model.MessageSource, code errs.ErrorCode, payload []byte) {
	if source.Conn == model.NoConn {
		return
	}
	d.count(KindResponse)
	d.write(source.Conn, wire.EncodeResponse(uint32(KindResponse), uint32(code), payload))
}

// AsyncComplete implements exec.ResponseSink: an asynchronous call's
// outcome, carrying the invocation the client correlates it against.
func (d *Dispatcher) AsyncComplete(source model.MessageSource, invocation uint64, code errs.ErrorCode, payload []byte) {
	if source.Conn == model.NoConn {
		return
	}
	var body bytes.Buffer
	var inv [8]byte
	binary.LittleEndian.PutUint64(inv[:], invocation)
	body.Write(inv[:])
	body.Write(payload)
	d.count(KindAsyncComplete)
	d.write(source.Conn, wire.EncodeResponse(uint32(KindAsyncComplete), uint32(code), body.Bytes()))
}

// MessageAvailable implements exec.ResponseSink: a "message pending"
// callback notification for a RECEIVE_CALLBACK open handle.
func (d *Dispatcher) MessageAvailable(client model.NodeClientID, queue name.Name) {
	if client.Conn == model.NoConn {
		return
	}
	d.count(KindMessageAvailable)
	d.write(client.Conn, wire.EncodeResponse(uint32(KindMessageAvailable), 0, queue.Bytes()))
}

// Tracking implements exec.ResponseSink: a CHANGES/CHANGES_ONLY
// notification buffer for a streaming subscription.
func (d *Dispatcher) Tracking(client model.NodeClientID, group name.Name, reply wire.TrackingReply) {
	if client.Conn == model.NoConn {
		return
	}
	var body bytes.Buffer
	var groupLen [4]byte
	groupBytes := group.Bytes()
	binary.LittleEndian.PutUint32(groupLen[:], uint32(len(groupBytes)))
	body.Write(groupLen[:])
	body.Write(groupBytes)
	body.Write(reply.Encode())
	d.count(KindTracking)
	if d.metrics != nil {
		d.metrics.TrackingSent.Inc()
	}
	d.write(client.Conn, wire.EncodeResponse(uint32(KindTracking), 0, body.Bytes()))
}

func (d *Dispatcher) write(conn model.ConnID, frame []byte) {
	if err := d.writer.Write(conn, frame); err != nil {
		d.log.Warnf("dispatch: writing to conn %d: %v", conn, err)
	}
}
