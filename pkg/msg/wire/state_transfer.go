package wire

import (
	"bytes"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// StateTransferQueue carries one queue's definition from the
// membership adapter's elected state provider to a newly-joined node
// (SPEC_FULL.md §4.8/§11). It is idempotent by construction: a node
// that already has queue_name materialized ignores the record instead
// of re-opening it, so replaying it to already-synced members (totem
// multicast reaches everyone, not just the joiner) never double-bumps
// a refcount.
type StateTransferQueue struct {
	Base
	QueueName     name.Name
	CreationAttrs model.CreationAttrs
	RefCount      uint32
}

func (r *StateTransferQueue) Op() Op { return OpStateTransferQueue }
func (r *StateTransferQueue) encodeBody(w *bytes.Buffer) {
	writeName(w, r.QueueName)
	writeUint32(w, uint32(r.CreationAttrs.Flags))
	for _, s := range r.CreationAttrs.SizeLimits {
		writeUint64(w, s)
	}
	writeUint64(w, uint64(r.CreationAttrs.RetentionTime))
	writeUint32(w, r.RefCount)
}
func (r *StateTransferQueue) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.QueueName, err = readName(rd); err != nil {
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
	r.RefCount, err = readUint32(rd)
	return err
}

// StateTransferGroup carries one group's definition and membership
// list, same idempotency rule as StateTransferQueue.
type StateTransferGroup struct {
	Base
	GroupName name.Name
	Policy    model.GroupPolicy
	Members   []name.Name
}

func (r *StateTransferGroup) Op() Op { return OpStateTransferGroup }
func (r *StateTransferGroup) encodeBody(w *bytes.Buffer) {
	writeName(w, r.GroupName)
	writeUint32(w, uint32(r.Policy))
	writeUint32(w, uint32(len(r.Members)))
	for _, m := range r.Members {
		writeName(w, m)
	}
}
func (r *StateTransferGroup) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.GroupName, err = readName(rd); err != nil {
		return err
	}
	policy, err := readUint32(rd)
	if err != nil {
		return err
	}
	r.Policy = model.GroupPolicy(policy)
	count, err := readUint32(rd)
	if err != nil {
		return err
	}
	r.Members = make([]name.Name, count)
	for i := range r.Members {
		if r.Members[i], err = readName(rd); err != nil {
			return err
		}
	}
	return nil
}

// StateTransferMessage carries one pending MessageEntry from the
// elected state provider's queue to a joining node (spec §4.8). It is
// broadcast to the whole membership, not just the joiner, so it is made
// idempotent the same way as a normal MessageSend enqueue would not be:
// the provider tags every transferred entry with its original
// SenderID, and a receiver that already holds an entry with that
// SenderID on the named queue skips it instead of duplicating it.
type StateTransferMessage struct {
	Base
	QueueName   name.Name
	SenderID    model.SenderID
	SenderName  name.Name
	Type        uint32
	Version     uint32
	Priority    model.Priority
	EnqueueTime int64
	ReplyTo     *name.Name
	Payload     []byte
}

func (r *StateTransferMessage) Op() Op { return OpStateTransferMessage }
func (r *StateTransferMessage) encodeBody(w *bytes.Buffer) {
	writeName(w, r.QueueName)
	writeName(w, name.Of(string(r.SenderID)))
	writeName(w, r.SenderName)
	writeUint32(w, r.Type)
	writeUint32(w, r.Version)
	writeUint8(w, uint8(r.Priority))
	writeUint64(w, uint64(r.EnqueueTime))
	writeOptionalName(w, r.ReplyTo)
	writeBytes(w, r.Payload)
}
func (r *StateTransferMessage) decodeBody(rd *bytes.Reader) error {
	var err error
	if r.QueueName, err = readName(rd); err != nil {
		return err
	}
	senderID, err := readName(rd)
	if err != nil {
		return err
	}
	r.SenderID = model.SenderID(senderID.String())
	if r.SenderName, err = readName(rd); err != nil {
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
	ts, err := readUint64(rd)
	if err != nil {
		return err
	}
	r.EnqueueTime = int64(ts)
	if r.ReplyTo, err = readOptionalName(rd); err != nil {
		return err
	}
	r.Payload, err = readBytes(rd)
	return err
}

// SyncDone is the marker the elected state provider broadcasts once
// every Queue, QueueGroup and pending Message has been transferred,
// returning every receiving node's sync state machine from SYNCING to
// STEADY (spec §4.8).
type SyncDone struct {
	Base
	RingID uint64
}

func (r *SyncDone) Op() Op { return OpSyncDone }
func (r *SyncDone) encodeBody(w *bytes.Buffer) {
	writeUint64(w, r.RingID)
}
func (r *SyncDone) decodeBody(rd *bytes.Reader) error {
	var err error
	r.RingID, err = readUint64(rd)
	return err
}
