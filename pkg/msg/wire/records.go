package wire

import (
	"bytes"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// QueueOpen carries both the synchronous and asynchronous QueueOpen
// request body (spec §6). AsyncCall distinguishes the two; Invocation
// and QueueHandle are only meaningful when AsyncCall is set.
type QueueOpen struct {
	Base
	AsyncCall     bool
	QueueName     name.Name
	Invocation    uint64
	QueueHandle   uint64
	CreationAttrs model.CreationAttrs
	OpenFlags     model.OpenFlags
	Timeout       uint64
	// Timestamp is stamped once by C6 before broadcast and compared
	// against Timeout at apply time instead of a wall-clock read, the
	// same determinism fix applied to QueueClose/MessageSend
	// (SPEC_FULL.md §9).
	Timestamp int64
}

func (r *QueueOpen) Op() Op { return OpQueueOpen }
func (r *QueueOpen) encodeBody(w *bytes.Buffer) {
	writeBool(w, r.AsyncCall)
	writeName(w, r.QueueName)
	writeUint64(w, r.Invocation)
	writeUint64(w, r.QueueHandle)
	writeUint32(w, uint32(r.CreationAttrs.Flags))
	for _, s := range r.CreationAttrs.SizeLimits {
		writeUint64(w, s)
	}
	writeUint64(w, uint64(r.CreationAttrs.RetentionTime))
	writeUint32(w, uint32(r.OpenFlags))
	writeUint64(w, r.Timeout)
	writeUint64(w, uint64(r.Timestamp))
}
func (r *QueueOpen) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.AsyncCall, err = readBool(rd); err != nil {
		return err
	}
	if r.QueueName, err = readName(rd); err != nil {
		return err
	}
	if r.Invocation, err = readUint64(rd); err != nil {
		return err
	}
	if r.QueueHandle, err = readUint64(rd); err != nil {
		return err
	}
	flags, err := readUint32(rd)
	if err != nil {
		return err
	}
	r.CreationAttrs.Flags = model.CreationFlags(flags)
	for i := range r.CreationAttrs.SizeLimits {
		if r.CreationAttrs.SizeLimits[i], err = readUint64(rd); err != nil {
			return err
		}
	}
	retention, err := readUint64(rd)
	if err != nil {
		return err
	}
	r.CreationAttrs.RetentionTime = int64(retention)
	openFlags, err := readUint32(rd)
	if err != nil {
		return err
	}
	r.OpenFlags = model.OpenFlags(openFlags)
	if r.Timeout, err = readUint64(rd); err != nil {
		return err
	}
	ts, err := readUint64(rd)
	r.Timestamp = int64(ts)
	return err
}

// QueueClose carries source + queue_name + a router-stamped timestamp
// (spec §6 plus SPEC_FULL.md §9's determinism note: CloseTime is
// cluster-replicated state, so it is stamped once by C6 before
// broadcast rather than read from each node's wall clock on apply).
type QueueClose struct {
	Base
	QueueName name.Name
	Timestamp int64
}

func (r *QueueClose) Op() Op { return OpQueueClose }
func (r *QueueClose) encodeBody(w *bytes.Buffer) {
	writeName(w, r.QueueName)
	writeUint64(w, uint64(r.Timestamp))
}
func (r *QueueClose) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.QueueName, err = readName(rd); err != nil {
		return err
	}
	ts, err := readUint64(rd)
	r.Timestamp = int64(ts)
	return err
}

// QueueStatusGet carries source + queue_name (spec §6).
type QueueStatusGet struct {
	Base
	QueueName name.Name
}

func (r *QueueStatusGet) Op() Op                     { return OpQueueStatusGet }
func (r *QueueStatusGet) encodeBody(w *bytes.Buffer) { writeName(w, r.QueueName) }
func (r *QueueStatusGet) decodeBody(rd *bytes.Reader) error {
	var err error
	r.QueueName, err = readName(rd)
	return err
}

// QueueUnlink carries source + queue_name (spec §6).
type QueueUnlink struct {
	Base
	QueueName name.Name
}

func (r *QueueUnlink) Op() Op                     { return OpQueueUnlink }
func (r *QueueUnlink) encodeBody(w *bytes.Buffer) { writeName(w, r.QueueName) }
func (r *QueueUnlink) decodeBody(rd *bytes.Reader) error {
	var err error
	r.QueueName, err = readName(rd)
	return err
}

// QueueGroupCreate carries source + group_name + policy (spec §6).
type QueueGroupCreate struct {
	Base
	GroupName name.Name
	Policy    model.GroupPolicy
}

func (r *QueueGroupCreate) Op() Op { return OpQueueGroupCreate }
func (r *QueueGroupCreate) encodeBody(w *bytes.Buffer) {
	writeName(w, r.GroupName)
	writeUint32(w, uint32(r.Policy))
}
func (r *QueueGroupCreate) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.GroupName, err = readName(rd); err != nil {
		return err
	}
	p, err := readUint32(rd)
	r.Policy = model.GroupPolicy(p)
	return err
}

// QueueGroupInsert carries source + queue_name + group_name (spec §6).
type QueueGroupInsert struct {
	Base
	QueueName name.Name
	GroupName name.Name
}

func (r *QueueGroupInsert) Op() Op { return OpQueueGroupInsert }
func (r *QueueGroupInsert) encodeBody(w *bytes.Buffer) {
	writeName(w, r.QueueName)
	writeName(w, r.GroupName)
}
func (r *QueueGroupInsert) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.QueueName, err = readName(rd); err != nil {
		return err
	}
	r.GroupName, err = readName(rd)
	return err
}

// QueueGroupRemove carries source + queue_name + group_name (spec §6).
type QueueGroupRemove struct {
	Base
	QueueName name.Name
	GroupName name.Name
}

func (r *QueueGroupRemove) Op() Op { return OpQueueGroupRemove }
func (r *QueueGroupRemove) encodeBody(w *bytes.Buffer) {
	writeName(w, r.QueueName)
	writeName(w, r.GroupName)
}
func (r *QueueGroupRemove) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.QueueName, err = readName(rd); err != nil {
		return err
	}
	r.GroupName, err = readName(rd)
	return err
}

// QueueGroupDelete carries source + group_name (spec §6).
type QueueGroupDelete struct {
	Base
	GroupName name.Name
}

func (r *QueueGroupDelete) Op() Op                     { return OpQueueGroupDelete }
func (r *QueueGroupDelete) encodeBody(w *bytes.Buffer) { writeName(w, r.GroupName) }
func (r *QueueGroupDelete) decodeBody(rd *bytes.Reader) error {
	var err error
	r.GroupName, err = readName(rd)
	return err
}

// QueueGroupTrack carries source + group_name + track_flags + buffer_flag (spec §6).
type QueueGroupTrack struct {
	Base
	GroupName   name.Name
	TrackFlags  model.TrackFlags
	BufferFlag  bool
}

func (r *QueueGroupTrack) Op() Op { return OpQueueGroupTrack }
func (r *QueueGroupTrack) encodeBody(w *bytes.Buffer) {
	writeName(w, r.GroupName)
	writeUint8(w, uint8(r.TrackFlags))
	writeBool(w, r.BufferFlag)
}
func (r *QueueGroupTrack) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.GroupName, err = readName(rd); err != nil {
		return err
	}
	flags, err := readUint8(rd)
	if err != nil {
		return err
	}
	r.TrackFlags = model.TrackFlags(flags)
	r.BufferFlag, err = readBool(rd)
	return err
}

// QueueGroupTrackStop carries source + group_name (spec §6).
type QueueGroupTrackStop struct {
	Base
	GroupName name.Name
}

func (r *QueueGroupTrackStop) Op() Op                     { return OpQueueGroupTrackStop }
func (r *QueueGroupTrackStop) encodeBody(w *bytes.Buffer) { writeName(w, r.GroupName) }
func (r *QueueGroupTrackStop) decodeBody(rd *bytes.Reader) error {
	var err error
	r.GroupName, err = readName(rd)
	return err
}

// MessageSend carries source, destination, timeout, the message header
// fields, invocation/ack_flags/async_call, and the raw payload bytes
// (spec §6).
type MessageSend struct {
	Base
	Destination name.Name
	Timeout     uint64
	Type        uint32
	Version     uint32
	SenderName  name.Name
	Priority    model.Priority
	Invocation  uint64
	AckFlags    model.AckFlags
	AsyncCall   bool
	// Timestamp is stamped once by C6 before broadcast and used as the
	// message's EnqueueTime on every node, since wall-clock reads
	// during apply would break cross-node determinism (SPEC_FULL.md §9).
	Timestamp int64
	Payload   []byte
}

func (r *MessageSend) Op() Op { return OpMessageSend }
func (r *MessageSend) encodeBody(w *bytes.Buffer) {
	writeName(w, r.Destination)
	writeUint64(w, r.Timeout)
	writeUint32(w, r.Type)
	writeUint32(w, r.Version)
	writeName(w, r.SenderName)
	writeUint8(w, uint8(r.Priority))
	writeUint64(w, r.Invocation)
	writeUint32(w, uint32(r.AckFlags))
	writeBool(w, r.AsyncCall)
	writeUint64(w, uint64(r.Timestamp))
	writeBytes(w, r.Payload)
}
func (r *MessageSend) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.Destination, err = readName(rd); err != nil {
		return err
	}
	if r.Timeout, err = readUint64(rd); err != nil {
		return err
	}
	if r.Type, err = readUint32(rd); err != nil {
		return err
	}
	if r.Version, err = readUint32(rd); err != nil {
		return err
	}
	if r.SenderName, err = readName(rd); err != nil {
		return err
	}
	p, err := readUint8(rd)
	if err != nil {
		return err
	}
	r.Priority = model.Priority(p)
	if r.Invocation, err = readUint64(rd); err != nil {
		return err
	}
	ack, err := readUint32(rd)
	if err != nil {
		return err
	}
	r.AckFlags = model.AckFlags(ack)
	if r.AsyncCall, err = readBool(rd); err != nil {
		return err
	}
	ts, err := readUint64(rd)
	if err != nil {
		return err
	}
	r.Timestamp = int64(ts)
	r.Payload, err = readBytes(rd)
	return err
}

// MessageGet carries source + queue_name: the queue to dequeue from
// (spec §6).
type MessageGet struct {
	Base
	QueueName name.Name
}

func (r *MessageGet) Op() Op                     { return OpMessageGet }
func (r *MessageGet) encodeBody(w *bytes.Buffer) { writeName(w, r.QueueName) }
func (r *MessageGet) decodeBody(rd *bytes.Reader) error {
	var err error
	r.QueueName, err = readName(rd)
	return err
}

// MessageCancel carries source + queue_name: cancel this client's
// waiters on the queue (spec §6).
type MessageCancel struct {
	Base
	QueueName name.Name
}

func (r *MessageCancel) Op() Op                     { return OpMessageCancel }
func (r *MessageCancel) encodeBody(w *bytes.Buffer) { writeName(w, r.QueueName) }
func (r *MessageCancel) decodeBody(rd *bytes.Reader) error {
	var err error
	r.QueueName, err = readName(rd)
	return err
}

// MessageSendReceive carries source + the reply queue name the request
// header supplies, plus the outgoing Send fields (spec §4.7/§6: "a Send
// followed by a Get on a private reply queue carried in the request
// header").
type MessageSendReceive struct {
	Base
	ReplyQueue  name.Name
	Destination name.Name
	Timeout     uint64
	Type        uint32
	Version     uint32
	SenderName  name.Name
	Priority    model.Priority
	Timestamp   int64
	Payload     []byte
}

func (r *MessageSendReceive) Op() Op { return OpMessageSendReceive }
func (r *MessageSendReceive) encodeBody(w *bytes.Buffer) {
	writeName(w, r.ReplyQueue)
	writeName(w, r.Destination)
	writeUint64(w, r.Timeout)
	writeUint32(w, r.Type)
	writeUint32(w, r.Version)
	writeName(w, r.SenderName)
	writeUint8(w, uint8(r.Priority))
	writeUint64(w, uint64(r.Timestamp))
	writeBytes(w, r.Payload)
}
func (r *MessageSendReceive) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.ReplyQueue, err = readName(rd); err != nil {
		return err
	}
	if r.Destination, err = readName(rd); err != nil {
		return err
	}
	if r.Timeout, err = readUint64(rd); err != nil {
		return err
	}
	if r.Type, err = readUint32(rd); err != nil {
		return err
	}
	if r.Version, err = readUint32(rd); err != nil {
		return err
	}
	if r.SenderName, err = readName(rd); err != nil {
		return err
	}
	p, err := readUint8(rd)
	if err != nil {
		return err
	}
	r.Priority = model.Priority(p)
	ts, err := readUint64(rd)
	if err != nil {
		return err
	}
	r.Timestamp = int64(ts)
	r.Payload, err = readBytes(rd)
	return err
}

// MessageReply carries source + queue_name (the reply_to target) +
// async_call, plus the reply message fields (spec §6/§4.7; the message
// body is implied by "enqueues the reply message" even though the
// summary table only lists the header fields).
type MessageReply struct {
	Base
	QueueName name.Name
	AsyncCall bool
	Type      uint32
	Version   uint32
	Priority  model.Priority
	SenderID  model.SenderID
	Timestamp int64
	Payload   []byte
}

func (r *MessageReply) Op() Op { return OpMessageReply }
func (r *MessageReply) encodeBody(w *bytes.Buffer) {
	writeName(w, r.QueueName)
	writeBool(w, r.AsyncCall)
	writeUint32(w, r.Type)
	writeUint32(w, r.Version)
	writeUint8(w, uint8(r.Priority))
	writeName(w, name.Of(string(r.SenderID)))
	writeUint64(w, uint64(r.Timestamp))
	writeBytes(w, r.Payload)
}
func (r *MessageReply) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.QueueName, err = readName(rd); err != nil {
		return err
	}
	if r.AsyncCall, err = readBool(rd); err != nil {
		return err
	}
	if r.Type, err = readUint32(rd); err != nil {
		return err
	}
	if r.Version, err = readUint32(rd); err != nil {
		return err
	}
	p, err := readUint8(rd)
	if err != nil {
		return err
	}
	r.Priority = model.Priority(p)
	senderName, err := readName(rd)
	if err != nil {
		return err
	}
	r.SenderID = model.SenderID(senderName.String())
	ts, err := readUint64(rd)
	if err != nil {
		return err
	}
	r.Timestamp = int64(ts)
	r.Payload, err = readBytes(rd)
	return err
}

// ClientDisconnect is the supplemented op (see header.go's
// OpClientDisconnect) broadcast once per dropped IPC connection.
type ClientDisconnect struct {
	Base
	Client    model.NodeClientID
	Timestamp int64
}

func (r *ClientDisconnect) Op() Op { return OpClientDisconnect }
func (r *ClientDisconnect) encodeBody(w *bytes.Buffer) {
	writeUint32(w, uint32(r.Client.NodeID))
	writeUint64(w, uint64(r.Client.Conn))
	writeUint64(w, uint64(r.Timestamp))
}
func (r *ClientDisconnect) decodeBody(rd *bytes.Reader) error {
	node, err := readUint32(rd)
	if err != nil {
		return err
	}
	conn, err := readUint64(rd)
	if err != nil {
		return err
	}
	r.Client = model.NodeClientID{NodeID: model.NodeID(node), Conn: model.ConnID(conn)}
	ts, err := readUint64(rd)
	if err != nil {
		return err
	}
	r.Timestamp = int64(ts)
	return nil
}

func writeBool(w *bytes.Buffer, v bool) {
	if v {
		writeUint8(w, 1)
	} else {
		writeUint8(w, 0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	v, err := readUint8(r)
	return v != 0, err
}
