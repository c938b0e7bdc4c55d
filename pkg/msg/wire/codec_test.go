package wire

import (
	"bytes"
	"testing"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

func src() model.MessageSource {
	return model.MessageSource{NodeID: 3, Conn: 77}
}

// roundTrip encodes rec, decodes the result, and returns the decoded
// record for field-by-field assertions by the caller.
func roundTrip(t *testing.T, rec Record) Record {
	t.Helper()
	buf := Encode(rec)
	got, header, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if header.Error != 0 {
		t.Fatalf("header error = %d, want 0 on the request path", header.Error)
	}
	if got.Op() != rec.Op() {
		t.Fatalf("op = %v, want %v", got.Op(), rec.Op())
	}
	if got.GetSource() != rec.GetSource() {
		t.Fatalf("source = %+v, want %+v", got.GetSource(), rec.GetSource())
	}
	return got
}

func TestDecode_RejectsShortBuffer(t *testing.T) {
	if _, _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error decoding a truncated buffer")
	}
}

func TestDecode_RejectsUnknownOp(t *testing.T) {
	var out bytes.Buffer
	writeUint32(&out, 0)
	writeUint32(&out, 0xFFFFFFFF)
	writeUint32(&out, 0)
	if _, _, err := Decode(out.Bytes()); err == nil {
		t.Fatalf("expected error decoding an unknown op id")
	}
}

func TestQueueOpen_RoundTrip(t *testing.T) {
	want := &QueueOpen{
		Base:      Base{Source: src()},
		AsyncCall: true,
		QueueName: name.Of("Q1"),
		Invocation: 55,
		CreationAttrs: model.CreationAttrs{
			Flags:         model.Persistent,
			SizeLimits:    [model.NumPriorities]uint64{10, 20, 30},
			RetentionTime: 1000,
		},
		OpenFlags: model.Create,
		Timeout:   5000,
		Timestamp: 123456789,
	}
	got := roundTrip(t, want).(*QueueOpen)
	if got.AsyncCall != want.AsyncCall || !got.QueueName.Equal(want.QueueName) ||
		got.Invocation != want.Invocation || got.CreationAttrs != want.CreationAttrs ||
		got.OpenFlags != want.OpenFlags || got.Timeout != want.Timeout || got.Timestamp != want.Timestamp {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestQueueClose_RoundTrip(t *testing.T) {
	want := &QueueClose{Base: Base{Source: src()}, QueueName: name.Of("Q1"), Timestamp: 42}
	got := roundTrip(t, want).(*QueueClose)
	if !got.QueueName.Equal(want.QueueName) || got.Timestamp != want.Timestamp {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestQueueGroupCreate_RoundTrip(t *testing.T) {
	want := &QueueGroupCreate{Base: Base{Source: src()}, GroupName: name.Of("GA"), Policy: model.RoundRobin}
	got := roundTrip(t, want).(*QueueGroupCreate)
	if !got.GroupName.Equal(want.GroupName) || got.Policy != want.Policy {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestQueueGroupTrack_RoundTrip(t *testing.T) {
	want := &QueueGroupTrack{
		Base:       Base{Source: src()},
		GroupName:  name.Of("GA"),
		TrackFlags: model.Changes,
		BufferFlag: true,
	}
	got := roundTrip(t, want).(*QueueGroupTrack)
	if got.TrackFlags != want.TrackFlags || got.BufferFlag != want.BufferFlag {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestMessageSend_RoundTrip(t *testing.T) {
	want := &MessageSend{
		Base:        Base{Source: src()},
		Destination: name.Of("Q1"),
		Timeout:     999,
		Type:        1,
		Version:     2,
		SenderName:  name.Of("sender"),
		Priority:    model.Priority(2),
		Invocation:  7,
		AckFlags:    model.MessageDeliveredAck,
		AsyncCall:   true,
		Timestamp:   55555,
		Payload:     []byte("hello world"),
	}
	got := roundTrip(t, want).(*MessageSend)
	if !got.Destination.Equal(want.Destination) || got.Timeout != want.Timeout ||
		got.Type != want.Type || got.Version != want.Version || !got.SenderName.Equal(want.SenderName) ||
		got.Priority != want.Priority || got.Invocation != want.Invocation || got.AckFlags != want.AckFlags ||
		got.AsyncCall != want.AsyncCall || got.Timestamp != want.Timestamp || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestMessageSend_RoundTripEmptyPayload(t *testing.T) {
	want := &MessageSend{Base: Base{Source: src()}, Destination: name.Of("Q1")}
	got := roundTrip(t, want).(*MessageSend)
	if len(got.Payload) != 0 {
		t.Fatalf("payload = %v, want empty", got.Payload)
	}
}

func TestMessageGet_RoundTrip(t *testing.T) {
	want := &MessageGet{Base: Base{Source: src()}, QueueName: name.Of("Q1")}
	got := roundTrip(t, want).(*MessageGet)
	if !got.QueueName.Equal(want.QueueName) {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestMessageSendReceive_RoundTrip(t *testing.T) {
	want := &MessageSendReceive{
		Base:        Base{Source: src()},
		ReplyQueue:  name.Of("REPLY"),
		Destination: name.Of("Q1"),
		Timeout:     10,
		Type:        1,
		Version:     1,
		SenderName:  name.Of("s"),
		Priority:    model.Priority(1),
		Timestamp:   1,
		Payload:     []byte("x"),
	}
	got := roundTrip(t, want).(*MessageSendReceive)
	if !got.ReplyQueue.Equal(want.ReplyQueue) || !got.Destination.Equal(want.Destination) {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestMessageReply_RoundTrip(t *testing.T) {
	want := &MessageReply{
		Base:      Base{Source: src()},
		QueueName: name.Of("Q1"),
		AsyncCall: false,
		Type:      1,
		Version:   1,
		Priority:  model.Priority(0),
		SenderID:  model.SenderID("abc"),
		Timestamp: 9,
		Payload:   []byte("reply"),
	}
	got := roundTrip(t, want).(*MessageReply)
	if got.SenderID != want.SenderID || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestClientDisconnect_RoundTrip(t *testing.T) {
	want := &ClientDisconnect{
		Base:      Base{Source: src()},
		Client:    model.NodeClientID{NodeID: 4, Conn: 9},
		Timestamp: 77,
	}
	got := roundTrip(t, want).(*ClientDisconnect)
	if got.Client != want.Client || got.Timestamp != want.Timestamp {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestStateTransferQueue_RoundTrip(t *testing.T) {
	want := &StateTransferQueue{
		Base:      Base{Source: src()},
		QueueName: name.Of("Q1"),
		CreationAttrs: model.CreationAttrs{
			RetentionTime: 500,
		},
		RefCount: 3,
	}
	got := roundTrip(t, want).(*StateTransferQueue)
	if !got.QueueName.Equal(want.QueueName) || got.RefCount != want.RefCount ||
		got.CreationAttrs.RetentionTime != want.CreationAttrs.RetentionTime {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestStateTransferGroup_RoundTrip(t *testing.T) {
	want := &StateTransferGroup{
		Base:      Base{Source: src()},
		GroupName: name.Of("GA"),
		Policy:    model.Broadcast,
		Members:   []name.Name{name.Of("Q_A"), name.Of("Q_B")},
	}
	got := roundTrip(t, want).(*StateTransferGroup)
	if len(got.Members) != 2 || !got.Members[0].Equal(want.Members[0]) || !got.Members[1].Equal(want.Members[1]) {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestStateTransferGroup_RoundTripEmptyMembers(t *testing.T) {
	want := &StateTransferGroup{Base: Base{Source: src()}, GroupName: name.Of("GA"), Policy: model.Broadcast}
	got := roundTrip(t, want).(*StateTransferGroup)
	if len(got.Members) != 0 {
		t.Fatalf("members = %v, want empty", got.Members)
	}
}

func TestStateTransferMessage_RoundTripWithReplyTo(t *testing.T) {
	reply := name.Of("REPLY")
	want := &StateTransferMessage{
		Base:        Base{Source: src()},
		QueueName:   name.Of("Q1"),
		SenderID:    model.SenderID("node-1-conn-7"),
		SenderName:  name.Of("sender"),
		Type:        1,
		Version:     1,
		Priority:    model.Priority(1),
		EnqueueTime: 1000,
		ReplyTo:     &reply,
		Payload:     []byte("payload"),
	}
	got := roundTrip(t, want).(*StateTransferMessage)
	if got.ReplyTo == nil || !got.ReplyTo.Equal(reply) {
		t.Fatalf("ReplyTo not preserved: %+v", got)
	}
	if got.SenderID != want.SenderID || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestStateTransferMessage_RoundTripWithoutReplyTo(t *testing.T) {
	want := &StateTransferMessage{Base: Base{Source: src()}, QueueName: name.Of("Q1")}
	got := roundTrip(t, want).(*StateTransferMessage)
	if got.ReplyTo != nil {
		t.Fatalf("ReplyTo = %v, want nil", got.ReplyTo)
	}
}

func TestSyncDone_RoundTrip(t *testing.T) {
	want := &SyncDone{Base: Base{Source: src()}, RingID: 9999}
	got := roundTrip(t, want).(*SyncDone)
	if got.RingID != want.RingID {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestClearRemoteSource_ClearsConnHandle(t *testing.T) {
	rec := &MessageGet{Base: Base{Source: src()}, QueueName: name.Of("Q1")}
	rec.ClearRemoteSource()
	if rec.GetSource().Conn != model.NoConn {
		t.Fatalf("Conn = %d after ClearRemoteSource, want NoConn", rec.GetSource().Conn)
	}
	if rec.GetSource().NodeID != src().NodeID {
		t.Fatalf("NodeID should survive ClearRemoteSource")
	}
}
