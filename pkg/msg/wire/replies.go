package wire

import (
	"bytes"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// The types in this file are the payloads exec (C7) hands to the
// response dispatcher (C8) on a successful apply; spec §6's wire table
// only specifies the request side, so these follow the same
// little-endian, length-prefixed conventions as the request records
// (SPEC_FULL.md §6 note).

// QueueOpenReply carries the handle a synchronous QueueOpen resolves to.
type QueueOpenReply struct {
	QueueHandle uint64
}

func (r QueueOpenReply) Encode() []byte {
	var w bytes.Buffer
	writeUint64(&w, r.QueueHandle)
	return w.Bytes()
}

func DecodeQueueOpenReply(buf []byte) (QueueOpenReply, error) {
	r := bytes.NewReader(buf)
	h, err := readUint64(r)
	return QueueOpenReply{QueueHandle: h}, err
}

// QueueStatusReply mirrors model.Queue.Status()'s return shape.
type QueueStatusReply struct {
	Flags     model.CreationFlags
	Retention int64
	CloseTime int64
	Usage     [model.NumPriorities]model.PriorityStatus
}

func (r QueueStatusReply) Encode() []byte {
	var w bytes.Buffer
	writeUint32(&w, uint32(r.Flags))
	writeUint64(&w, uint64(r.Retention))
	writeUint64(&w, uint64(r.CloseTime))
	for _, u := range r.Usage {
		writeUint64(&w, u.QueueSize)
		writeUint64(&w, u.QueueUsed)
		writeUint32(&w, u.NumberOfMessages)
	}
	return w.Bytes()
}

func DecodeQueueStatusReply(buf []byte) (QueueStatusReply, error) {
	r := bytes.NewReader(buf)
	var out QueueStatusReply
	flags, err := readUint32(r)
	if err != nil {
		return out, err
	}
	out.Flags = model.CreationFlags(flags)
	retention, err := readUint64(r)
	if err != nil {
		return out, err
	}
	out.Retention = int64(retention)
	closeTime, err := readUint64(r)
	if err != nil {
		return out, err
	}
	out.CloseTime = int64(closeTime)
	for i := range out.Usage {
		size, err := readUint64(r)
		if err != nil {
			return out, err
		}
		used, err := readUint64(r)
		if err != nil {
			return out, err
		}
		count, err := readUint32(r)
		if err != nil {
			return out, err
		}
		out.Usage[i] = model.PriorityStatus{QueueSize: size, QueueUsed: used, NumberOfMessages: count}
	}
	return out, nil
}

// MessageGetReply carries a dequeued MessageEntry back to the caller of
// MessageGet, or the reply leg of MessageSendReceive.
type MessageGetReply struct {
	SenderID    model.SenderID
	SenderName  name.Name
	Type        uint32
	Version     uint32
	Priority    model.Priority
	EnqueueTime int64
	Payload     []byte
}

func (r MessageGetReply) Encode() []byte {
	var w bytes.Buffer
	writeName(&w, name.Of(string(r.SenderID)))
	writeName(&w, r.SenderName)
	writeUint32(&w, r.Type)
	writeUint32(&w, r.Version)
	writeUint8(&w, uint8(r.Priority))
	writeUint64(&w, uint64(r.EnqueueTime))
	writeBytes(&w, r.Payload)
	return w.Bytes()
}

func DecodeMessageGetReply(buf []byte) (MessageGetReply, error) {
	r := bytes.NewReader(buf)
	var out MessageGetReply
	senderID, err := readName(r)
	if err != nil {
		return out, err
	}
	out.SenderID = model.SenderID(senderID.String())
	if out.SenderName, err = readName(r); err != nil {
		return out, err
	}
	if out.Type, err = readUint32(r); err != nil {
		return out, err
	}
	if out.Version, err = readUint32(r); err != nil {
		return out, err
	}
	p, err := readUint8(r)
	if err != nil {
		return out, err
	}
	out.Priority = model.Priority(p)
	enqueueTime, err := readUint64(r)
	if err != nil {
		return out, err
	}
	out.EnqueueTime = int64(enqueueTime)
	out.Payload, err = readBytes(r)
	return out, err
}

// TrackingReply carries one tracking.Notification's buffer (spec §4.4).
type TrackingReply struct {
	Members []model.GroupEntry
}

func (r TrackingReply) Encode() []byte {
	var w bytes.Buffer
	writeUint32(&w, uint32(len(r.Members)))
	for _, m := range r.Members {
		writeName(&w, m.Queue)
		writeUint8(&w, uint8(m.ChangeTag))
	}
	return w.Bytes()
}

func DecodeTrackingReply(buf []byte) (TrackingReply, error) {
	r := bytes.NewReader(buf)
	count, err := readUint32(r)
	if err != nil {
		return TrackingReply{}, err
	}
	members := make([]model.GroupEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		n, err := readName(r)
		if err != nil {
			return TrackingReply{}, err
		}
		tag, err := readUint8(r)
		if err != nil {
			return TrackingReply{}, err
		}
		members = append(members, model.GroupEntry{Queue: n, ChangeTag: model.ChangeTag(tag)})
	}
	return TrackingReply{Members: members}, nil
}
