package model

import "github.com/corosync/go-msgsvc/pkg/msg/name"

// SenderID is the opaque cluster-unique identifier minted on send and
// returned by MessageGet alongside the message (spec §4.7).
type SenderID string

// Message is immutable once enqueued (spec §3).
type Message struct {
	Type       uint32
	Version    uint32
	SenderName *name.Name
	Priority   Priority
	Data       []byte
}

// Size reports len(Data), the wire-carried size field.
func (m Message) Size() int {
	return len(m.Data)
}

// MessageEntry links a Message into a queue's priority FIFO, carrying
// the bookkeeping MessageGet reports back to the caller (spec §3).
type MessageEntry struct {
	EnqueueTime int64 // nanoseconds since epoch
	SenderID    SenderID
	ReplyTo     *name.Name // set when the message carries a SendReceive reply address
	Message     Message
}
