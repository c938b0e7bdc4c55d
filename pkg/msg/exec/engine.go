// Package exec implements C7, the apply engine: every node runs the
// same sequence of Apply calls, in the order the transport delivered
// them, and produces byte-identical state (spec invariant 4). Apply
// never blocks and never branches on anything but the record and the
// current store state, so two nodes handed the same delivery sequence
// reach the same result.
package exec

import (
	"fmt"

	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/metrics"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
	"github.com/corosync/go-msgsvc/pkg/msg/store"
	"github.com/corosync/go-msgsvc/pkg/msg/tracking"
	"github.com/corosync/go-msgsvc/pkg/msg/wire"
)

// SyncSink receives the sync-protocol signal carried by a SyncDone
// record (spec §4.8): the membership adapter (C9) implements it to
// drive its own SYNCING -> STEADY transition once every node has
// absorbed the elected provider's state transfer.
type SyncSink interface {
	SyncDone(ringID uint64)
}

// ResponseSink is everything the apply engine needs from C8 to deliver
// an outcome: every node calls these methods on every apply, and it is
// the sink's job (not the engine's) to turn a cleared/zero conn into a
// no-op (spec §4.6 "respond_local... if source.conn is None, return
// without error").
type ResponseSink interface {
	// Respond delivers a synchronous call's outcome.
	Respond(source model.MessageSource, code errs.ErrorCode, payload []byte)

	// AsyncComplete delivers an asynchronous call's outcome, carrying
	// the invocation the client correlates it against.
	AsyncComplete(source model.MessageSource, invocation uint64, code errs.ErrorCode, payload []byte)

	// MessageAvailable notifies a RECEIVE_CALLBACK open handle that a
	// message landed on its queue (spec §4.2 open_flags).
	MessageAvailable(client model.NodeClientID, queue name.Name)

	// Tracking delivers one CHANGES/CHANGES_ONLY notification buffer.
	Tracking(client model.NodeClientID, group name.Name, reply wire.TrackingReply)
}

// Engine is C7. It owns no transport or IPC concerns; Apply is the only
// entry point, fed by whatever drives the transport's delivery channel
// (pkg/msg/broker). Apply reads no wall clock: every timestamp a
// mutation needs (CloseTime, EnqueueTime) is stamped once by the
// request router before broadcast and carried on the record itself, so
// every node derives the identical value from identical bytes (spec
// §9's determinism note — "never on wall-clock time").
type Engine struct {
	localNode model.NodeID
	queues    *store.QueueStore
	groups    *store.GroupStore
	opens     *store.OpenHandleStore
	sink      ResponseSink
	sync      SyncSink
	metrics   *metrics.Metrics
	log       msglog.Logger
}

// New builds an Engine bound to localNode's identity; localNode decides
// which delivered records' responses are actually live on this process
// (spec §4.5 step "If source.node_id == self.node_id").
func New(localNode model.NodeID, queues *store.QueueStore, groups *store.GroupStore, opens *store.OpenHandleStore, sink ResponseSink, log msglog.Logger) *Engine {
	return &Engine{localNode: localNode, queues: queues, groups: groups, opens: opens, sink: sink, log: log}
}

// SetSyncSink attaches the membership adapter (C9) that should be told
// about delivered SyncDone markers. Optional: a nil sync sink simply
// means SyncDone records are absorbed as a no-op, which is harmless for
// single-node deployments and unit tests that never join a cluster.
func (e *Engine) SetSyncSink(s SyncSink) { e.sync = s }

// SetMetrics attaches the Prometheus instrumentation bundle (optional;
// a nil bundle means Apply records nothing, which keeps unit tests free
// of registry wiring).
func (e *Engine) SetMetrics(m *metrics.Metrics) { e.metrics = m }

// Apply applies one delivered record. Every node, including the
// originator, calls Apply for every record in identical delivery
// order (spec §4.5).
func (e *Engine) Apply(rec wire.Record) {
	if rec.GetSource().NodeID != e.localNode {
		rec.ClearRemoteSource()
	}

	if e.metrics != nil {
		e.metrics.ExecApplied.WithLabelValues(rec.Op().String()).Inc()
	}

	switch r := rec.(type) {
	case *wire.QueueOpen:
		e.applyQueueOpen(r)
	case *wire.QueueClose:
		e.applyQueueClose(r)
	case *wire.QueueStatusGet:
		e.applyQueueStatusGet(r)
	case *wire.QueueUnlink:
		e.applyQueueUnlink(r)
	case *wire.QueueGroupCreate:
		e.applyQueueGroupCreate(r)
	case *wire.QueueGroupInsert:
		e.applyQueueGroupInsert(r)
	case *wire.QueueGroupRemove:
		e.applyQueueGroupRemove(r)
	case *wire.QueueGroupDelete:
		e.applyQueueGroupDelete(r)
	case *wire.QueueGroupTrack:
		e.applyQueueGroupTrack(r)
	case *wire.QueueGroupTrackStop:
		e.applyQueueGroupTrackStop(r)
	case *wire.MessageSend:
		e.applyMessageSend(r)
	case *wire.MessageGet:
		e.applyMessageGet(r)
	case *wire.MessageCancel:
		e.applyMessageCancel(r)
	case *wire.MessageSendReceive:
		e.applyMessageSendReceive(r)
	case *wire.MessageReply:
		e.applyMessageReply(r)
	case *wire.ClientDisconnect:
		e.applyClientDisconnect(r)
	case *wire.StateTransferQueue:
		e.applyStateTransferQueue(r)
	case *wire.StateTransferGroup:
		e.applyStateTransferGroup(r)
	case *wire.StateTransferMessage:
		e.applyStateTransferMessage(r)
	case *wire.SyncDone:
		e.applySyncDone(r)
	default:
		e.log.Warnf("exec: %v (%T)", errs.ErrUnknownOp, rec)
	}
}

// applyStateTransferQueue and applyStateTransferGroup absorb C9's
// join-time snapshot records. Both are internal traffic with no
// originating client connection (source.Conn is always NoConn), so
// neither ever calls into the sink.
func (e *Engine) applyStateTransferQueue(r *wire.StateTransferQueue) {
	e.queues.Absorb(r.QueueName, r.CreationAttrs, r.RefCount)
}

func (e *Engine) applyStateTransferGroup(r *wire.StateTransferGroup) {
	e.groups.Absorb(r.GroupName, r.Policy, r.Members)
}

// applyStateTransferMessage absorbs one pending message carried by C9's
// join-time sync (spec §4.8's "followed by each pending message").
// Absorb is idempotent by SenderID so replaying the record to nodes
// that were already synced (the record is multicast to everyone, not
// only the joiner) never duplicates the entry.
func (e *Engine) applyStateTransferMessage(r *wire.StateTransferMessage) {
	q, ok := e.queues.Lookup(r.QueueName)
	if !ok {
		return
	}
	senderName := r.SenderName
	entry := model.MessageEntry{
		EnqueueTime: r.EnqueueTime,
		SenderID:    r.SenderID,
		ReplyTo:     r.ReplyTo,
		Message: model.Message{
			Type:       r.Type,
			Version:    r.Version,
			SenderName: &senderName,
			Priority:   r.Priority,
			Data:       r.Payload,
		},
	}
	if q.AbsorbMessage(entry) {
		e.serveWaiters(q)
	}
}

// applySyncDone tells the membership adapter, if attached, that this
// ring's state transfer has finished (spec §4.8's SYNCING -> STEADY
// transition). There is no client response: the record carries no
// source connection.
func (e *Engine) applySyncDone(r *wire.SyncDone) {
	if e.sync != nil {
		e.sync.SyncDone(r.RingID)
	}
}

func clientOf(s model.MessageSource) model.NodeClientID {
	return model.NodeClientID{NodeID: s.NodeID, Conn: s.Conn}
}

// deterministicSenderID derives a cluster-unique message identifier
// from fields already carried on the broadcast record, so every node
// computes the identical value (spec §9's determinism note rules out
// minting it randomly inside apply).
func deterministicSenderID(origin model.NodeID, invocation uint64, timestamp int64) model.SenderID {
	return model.SenderID(fmt.Sprintf("%d-%d-%d", origin, invocation, timestamp))
}

func (e *Engine) respondErr(source model.MessageSource, err error) {
	e.sink.Respond(source, errs.CodeOf(err), nil)
}

// timedOut implements spec §5's absolute-deadline rule: "the apply
// engine stamps the response with... ERR_TIMEOUT if current time
// exceeds the timeout at apply time." Both timestamp and deadline are
// ordinary replicated fields stamped once by the router, so every node
// reaches the identical verdict (SPEC_FULL.md §9's determinism note).
// A zero deadline means "no timeout requested."
func timedOut(deadline uint64, now int64) bool {
	return deadline != 0 && now >= 0 && uint64(now) > deadline
}

// dispatchTracking assembles and delivers every notification g's
// current change tags trigger, then finishes any pending member
// removal and resets the tags (spec §4.4 steps 3-5).
func (e *Engine) dispatchTracking(groupName name.Name, g *model.QueueGroup) {
	for _, n := range tracking.Assemble(g) {
		e.sink.Tracking(n.Client, groupName, wire.TrackingReply{Members: n.Members})
	}
	e.groups.FinishRemoval(groupName)
	g.ResetChangeTags()
}

func (e *Engine) applyQueueOpen(r *wire.QueueOpen) {
	if timedOut(r.Timeout, r.Timestamp) {
		if r.AsyncCall {
			e.sink.AsyncComplete(r.GetSource(), r.Invocation, errs.Timeout, nil)
		} else {
			e.sink.Respond(r.GetSource(), errs.Timeout, nil)
		}
		return
	}

	h, _, _, err := e.queues.Open(r.QueueName, r.CreationAttrs, r.OpenFlags)
	if err != nil {
		if r.AsyncCall {
			e.sink.AsyncComplete(r.GetSource(), r.Invocation, errs.CodeOf(err), nil)
		} else {
			e.respondErr(r.GetSource(), err)
		}
		return
	}
	_ = h

	oh := model.OpenHandle{
		Client:           clientOf(r.GetSource()),
		QueueName:        r.QueueName,
		LibHandle:        r.QueueHandle,
		CreationOpenFlag: r.OpenFlags,
	}
	if r.AsyncCall {
		inv := r.Invocation
		oh.AsyncInvocation = &inv
	}
	openHandle := e.opens.Create(oh)
	reply := wire.QueueOpenReply{QueueHandle: uint64(openHandle)}

	if r.AsyncCall {
		e.sink.AsyncComplete(r.GetSource(), r.Invocation, errs.OK, reply.Encode())
	} else {
		e.sink.Respond(r.GetSource(), errs.OK, reply.Encode())
	}
}

func (e *Engine) applyQueueClose(r *wire.QueueClose) {
	h, ok := e.opens.FindByClient(r.QueueName, clientOf(r.GetSource()))
	if !ok {
		e.respondErr(r.GetSource(), errs.New(errs.BadHandle, "no open handle on "+r.QueueName.String()))
		return
	}
	oh, err := e.opens.Close(h)
	if err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}
	qh, _ := e.queues.Ref(oh.QueueName)
	if err := e.queues.Close(qh, r.Timestamp); err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

func (e *Engine) applyQueueStatusGet(r *wire.QueueStatusGet) {
	q, ok := e.queues.Lookup(r.QueueName)
	if !ok {
		e.respondErr(r.GetSource(), errs.New(errs.NotExist, "queue does not exist: "+r.QueueName.String()))
		return
	}
	flags, retention, closeTime, usage := q.Status()
	reply := wire.QueueStatusReply{Flags: flags, Retention: retention, CloseTime: closeTime, Usage: usage}
	e.sink.Respond(r.GetSource(), errs.OK, reply.Encode())
}

func (e *Engine) applyQueueUnlink(r *wire.QueueUnlink) {
	if err := e.queues.Unlink(r.QueueName); err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}
	for _, g := range e.groups.RemoveQueueEverywhere(r.QueueName) {
		if group, ok := e.groups.Lookup(g); ok {
			e.dispatchTracking(g, group)
		}
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

func (e *Engine) applyQueueGroupCreate(r *wire.QueueGroupCreate) {
	if err := e.groups.Create(r.GroupName, r.Policy); err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

func (e *Engine) applyQueueGroupInsert(r *wire.QueueGroupInsert) {
	if err := e.groups.Insert(r.GroupName, r.QueueName, e.queues); err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}
	if g, ok := e.groups.Lookup(r.GroupName); ok {
		e.dispatchTracking(r.GroupName, g)
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

func (e *Engine) applyQueueGroupRemove(r *wire.QueueGroupRemove) {
	if err := e.groups.Remove(r.GroupName, r.QueueName); err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}
	if g, ok := e.groups.Lookup(r.GroupName); ok {
		e.dispatchTracking(r.GroupName, g)
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

func (e *Engine) applyQueueGroupDelete(r *wire.QueueGroupDelete) {
	if err := e.groups.Delete(r.GroupName); err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

func (e *Engine) applyQueueGroupTrack(r *wire.QueueGroupTrack) {
	g, ok := e.groups.Lookup(r.GroupName)
	if !ok {
		e.respondErr(r.GetSource(), errs.New(errs.NotExist, "group does not exist: "+r.GroupName.String()))
		return
	}
	client := clientOf(r.GetSource())
	if r.TrackFlags.Has(model.Changes) || r.TrackFlags.Has(model.ChangesOnly) {
		tracking.Subscribe(g, client, r.TrackFlags, 0)
	}
	if r.TrackFlags.Has(model.Current) {
		reply := wire.TrackingReply{Members: tracking.CurrentSnapshot(g)}
		if r.BufferFlag {
			e.sink.Respond(r.GetSource(), errs.OK, reply.Encode())
			return
		}
		e.sink.Respond(r.GetSource(), errs.OK, nil)
		e.sink.Tracking(client, r.GroupName, reply)
		return
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

func (e *Engine) applyQueueGroupTrackStop(r *wire.QueueGroupTrackStop) {
	g, ok := e.groups.Lookup(r.GroupName)
	if !ok {
		e.respondErr(r.GetSource(), errs.New(errs.NotExist, "group does not exist: "+r.GroupName.String()))
		return
	}
	if !tracking.Unsubscribe(g, clientOf(r.GetSource())) {
		e.respondErr(r.GetSource(), errs.New(errs.NotExist, "no active subscription"))
		return
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

// serveWaiters drains q's pending messages into its oldest waiters
// first, only falling through to the ordinary FIFO once no waiter is
// left to serve (spec §4.7's "deliver to the oldest waiter").
func (e *Engine) serveWaiters(q *model.Queue) {
	for len(q.Waiters) > 0 {
		entry, ok := q.Dequeue()
		if !ok {
			return
		}
		w := q.Waiters[0]
		q.Waiters = q.Waiters[1:]
		source := model.MessageSource{NodeID: w.ClientID.NodeID, Conn: w.ClientID.Conn}
		e.sink.Respond(source, errs.OK, messageGetReply(entry).Encode())
	}
}

func messageGetReply(entry model.MessageEntry) wire.MessageGetReply {
	senderName := name.Name{}
	if entry.Message.SenderName != nil {
		senderName = *entry.Message.SenderName
	}
	return wire.MessageGetReply{
		SenderID:    entry.SenderID,
		SenderName:  senderName,
		Type:        entry.Message.Type,
		Version:     entry.Message.Version,
		Priority:    entry.Message.Priority,
		EnqueueTime: entry.EnqueueTime,
		Payload:     entry.Message.Data,
	}
}

// notifyAvailable tells every RECEIVE_CALLBACK open handle on queue n
// that a message is pending, so a polling client knows to call
// MessageGet explicitly (spec §4.2 ReceiveCallback flag).
func (e *Engine) notifyAvailable(n name.Name) {
	for _, h := range e.opens.OnQueue(n) {
		oh, ok := e.opens.Get(h)
		if ok && oh.CreationOpenFlag.Has(model.ReceiveCallback) {
			e.sink.MessageAvailable(oh.Client, n)
		}
	}
}

// resolveTargets implements spec §4.3: destination is looked up as a
// group name first (consulting its routing policy), falling back to a
// direct queue name.
func (e *Engine) resolveTargets(destination name.Name, originNode model.NodeID) ([]name.Name, error) {
	if g, ok := e.groups.Lookup(destination); ok {
		targets := store.SelectTargets(g, originNode, e.opens, e.queues)
		if len(targets) == 0 {
			return nil, errs.New(errs.TryAgain, "no eligible group member for "+destination.String())
		}
		return targets, nil
	}
	if _, ok := e.queues.Lookup(destination); ok {
		return []name.Name{destination}, nil
	}
	return nil, errs.New(errs.NotExist, "destination does not exist: "+destination.String())
}

func (e *Engine) enqueueOn(target name.Name, entry model.MessageEntry) error {
	q, ok := e.queues.Lookup(target)
	if !ok {
		return errs.New(errs.NotExist, "destination does not exist: "+target.String())
	}
	if !q.Enqueue(entry, true) {
		return errs.New(errs.QueueFull, "queue full: "+target.String())
	}
	e.serveWaiters(q)
	if q.NumMessages(entry.Message.Priority) > 0 {
		e.notifyAvailable(target)
	}
	return nil
}

func (e *Engine) applyMessageSend(r *wire.MessageSend) {
	if timedOut(r.Timeout, r.Timestamp) {
		if r.AsyncCall {
			e.sink.AsyncComplete(r.GetSource(), r.Invocation, errs.Timeout, nil)
		} else {
			e.sink.Respond(r.GetSource(), errs.Timeout, nil)
		}
		return
	}

	targets, err := e.resolveTargets(r.Destination, r.GetSource().NodeID)
	if err != nil {
		if r.AsyncCall {
			e.sink.AsyncComplete(r.GetSource(), r.Invocation, errs.CodeOf(err), nil)
		} else {
			e.respondErr(r.GetSource(), err)
		}
		return
	}

	senderName := r.SenderName
	entry := model.MessageEntry{
		EnqueueTime: r.Timestamp,
		SenderID:    deterministicSenderID(r.GetSource().NodeID, r.Invocation, r.Timestamp),
		Message: model.Message{
			Type:       r.Type,
			Version:    r.Version,
			SenderName: &senderName,
			Priority:   r.Priority,
			Data:       r.Payload,
		},
	}

	// spec §4.7 step 3: the send overall succeeds if any delivery
	// succeeded. Per-target failures on a multi-member broadcast (e.g. one
	// full queue among several) are logged, not surfaced, unless every
	// target failed.
	var applyErr error
	succeeded := 0
	for _, target := range targets {
		if err := e.enqueueOn(target, entry); err != nil {
			applyErr = err
			e.log.Warnf("exec: message send to %s failed: %v", target, err)
			continue
		}
		succeeded++
	}
	if succeeded > 0 {
		applyErr = nil
	}

	if r.AsyncCall {
		e.sink.AsyncComplete(r.GetSource(), r.Invocation, errs.CodeOf(applyErr), nil)
	} else {
		e.sink.Respond(r.GetSource(), errs.CodeOf(applyErr), nil)
	}
}

func (e *Engine) applyMessageGet(r *wire.MessageGet) {
	q, ok := e.queues.Lookup(r.QueueName)
	if !ok {
		e.respondErr(r.GetSource(), errs.New(errs.NotExist, "queue does not exist: "+r.QueueName.String()))
		return
	}
	if entry, ok := q.Dequeue(); ok {
		e.sink.Respond(r.GetSource(), errs.OK, messageGetReply(entry).Encode())
		return
	}
	q.Waiters = append(q.Waiters, model.Waiter{ClientID: clientOf(r.GetSource())})
}

func (e *Engine) applyMessageCancel(r *wire.MessageCancel) {
	q, ok := e.queues.Lookup(r.QueueName)
	if !ok {
		e.respondErr(r.GetSource(), errs.New(errs.NotExist, "queue does not exist: "+r.QueueName.String()))
		return
	}
	client := clientOf(r.GetSource())
	kept := q.Waiters[:0]
	cancelled := false
	for _, w := range q.Waiters {
		if w.ClientID == client {
			cancelled = true
			source := model.MessageSource{NodeID: w.ClientID.NodeID, Conn: w.ClientID.Conn}
			e.sink.Respond(source, errs.Interrupt, nil)
			continue
		}
		kept = append(kept, w)
	}
	q.Waiters = kept
	if !cancelled {
		e.respondErr(r.GetSource(), errs.New(errs.NotExist, "no pending get on "+r.QueueName.String()))
		return
	}
	e.sink.Respond(r.GetSource(), errs.OK, nil)
}

// applyMessageSendReceive implements spec §4.7's "Send followed by a
// Get on a private reply queue": the reply queue is opened implicitly
// (created if missing) so the caller can block on it without a
// separate QueueOpen round trip.
func (e *Engine) applyMessageSendReceive(r *wire.MessageSendReceive) {
	if _, _, _, err := e.queues.Open(r.ReplyQueue, model.CreationAttrs{}, model.Create); err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}

	targets, err := e.resolveTargets(r.Destination, r.GetSource().NodeID)
	if err != nil {
		e.respondErr(r.GetSource(), err)
		return
	}

	senderName := r.SenderName
	entry := model.MessageEntry{
		EnqueueTime: r.Timestamp,
		SenderID:    deterministicSenderID(r.GetSource().NodeID, 0, r.Timestamp),
		ReplyTo:     &r.ReplyQueue,
		Message: model.Message{
			Type:       r.Type,
			Version:    r.Version,
			SenderName: &senderName,
			Priority:   r.Priority,
			Data:       r.Payload,
		},
	}

	var applyErr error
	for _, target := range targets {
		if err := e.enqueueOn(target, entry); err != nil {
			applyErr = err
		}
	}
	if applyErr != nil {
		e.respondErr(r.GetSource(), applyErr)
		return
	}

	replyQueue, _ := e.queues.Lookup(r.ReplyQueue)
	if replyEntry, ok := replyQueue.Dequeue(); ok {
		e.sink.Respond(r.GetSource(), errs.OK, messageGetReply(replyEntry).Encode())
		return
	}
	replyQueue.Waiters = append(replyQueue.Waiters, model.Waiter{ClientID: clientOf(r.GetSource())})
}

// applyClientDisconnect closes every open handle a dropped client still
// held, mirroring what an explicit QueueClose on each would have done,
// and cancels any waiter it left parked (spec §1 failure model,
// SPEC_FULL.md §11). There is no response: the connection is already
// gone by the time this is applied.
func (e *Engine) applyClientDisconnect(r *wire.ClientDisconnect) {
	for _, h := range e.opens.ForClient(r.Client) {
		oh, err := e.opens.Close(h)
		if err != nil {
			continue
		}
		if qh, ok := e.queues.Ref(oh.QueueName); ok {
			_ = e.queues.Close(qh, r.Timestamp)
		}
	}
	for _, n := range e.queues.Names() {
		q, ok := e.queues.Lookup(n)
		if !ok {
			continue
		}
		kept := q.Waiters[:0]
		for _, w := range q.Waiters {
			if w.ClientID != r.Client {
				kept = append(kept, w)
			}
		}
		q.Waiters = kept
	}
}

// applyMessageReply implements spec §4.7's Reply leg: enqueue the
// response onto queue_name (the sender's reply queue, carried in the
// original message's ReplyTo), waking any waiter parked there.
func (e *Engine) applyMessageReply(r *wire.MessageReply) {
	q, ok := e.queues.Lookup(r.QueueName)
	if !ok {
		if r.AsyncCall {
			e.sink.AsyncComplete(r.GetSource(), 0, errs.NotExist, nil)
		} else {
			e.respondErr(r.GetSource(), errs.New(errs.NotExist, "reply queue does not exist: "+r.QueueName.String()))
		}
		return
	}
	entry := model.MessageEntry{
		EnqueueTime: r.Timestamp,
		SenderID:    r.SenderID,
		Message: model.Message{
			Type:     r.Type,
			Version:  r.Version,
			Priority: r.Priority,
			Data:     r.Payload,
		},
	}
	if !q.Enqueue(entry, true) {
		e.respondErr(r.GetSource(), errs.New(errs.QueueFull, "reply queue full: "+r.QueueName.String()))
		return
	}
	e.serveWaiters(q)
	if r.AsyncCall {
		e.sink.AsyncComplete(r.GetSource(), 0, errs.OK, nil)
	} else {
		e.sink.Respond(r.GetSource(), errs.OK, nil)
	}
}
