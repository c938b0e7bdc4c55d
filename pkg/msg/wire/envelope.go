package wire

import (
	"bytes"
	"fmt"
)

// Encode produces the full wire representation of rec: a 12-byte
// header (size, id, error=0 — errors are never encoded on the request
// path, only on responses) followed by source + the op-specific body.
func Encode(rec Record) []byte {
	var body bytes.Buffer
	writeSource(&body, rec.GetSource())
	rec.encodeBody(&body)

	var out bytes.Buffer
	header := Header{Size: uint32(body.Len()), ID: MakeID(rec.Op())}
	writeUint32(&out, header.Size)
	writeUint32(&out, header.ID)
	writeUint32(&out, header.Error)
	out.Write(body.Bytes())
	return out.Bytes()
}

// Decode parses a full wire record (header + body) back into a
// concrete Record, dispatching on the op packed into the header's id
// field (spec §6/§9).
func Decode(buf []byte) (Record, Header, error) {
	if len(buf) < 12 {
		return nil, Header{}, fmt.Errorf("wire: record too short: %d bytes", len(buf))
	}
	r := bytes.NewReader(buf)
	size, _ := readUint32(r)
	id, _ := readUint32(r)
	errCode, _ := readUint32(r)
	header := Header{Size: size, ID: id, Error: errCode}

	rec := newRecord(OpFromID(id))
	if rec == nil {
		return nil, header, fmt.Errorf("wire: unknown op %d", OpFromID(id))
	}

	source, err := readSource(r)
	if err != nil {
		return nil, header, err
	}
	rec.SetSource(source)

	if err := rec.decodeBody(r); err != nil {
		return nil, header, fmt.Errorf("wire: decoding %s body: %w", rec.Op(), err)
	}
	return rec, header, nil
}

func newRecord(op Op) Record {
	switch op {
	case OpQueueOpen:
		return &QueueOpen{}
	case OpQueueClose:
		return &QueueClose{}
	case OpQueueStatusGet:
		return &QueueStatusGet{}
	case OpQueueUnlink:
		return &QueueUnlink{}
	case OpQueueGroupCreate:
		return &QueueGroupCreate{}
	case OpQueueGroupInsert:
		return &QueueGroupInsert{}
	case OpQueueGroupRemove:
		return &QueueGroupRemove{}
	case OpQueueGroupDelete:
		return &QueueGroupDelete{}
	case OpQueueGroupTrack:
		return &QueueGroupTrack{}
	case OpQueueGroupTrackStop:
		return &QueueGroupTrackStop{}
	case OpMessageSend:
		return &MessageSend{}
	case OpMessageGet:
		return &MessageGet{}
	case OpMessageCancel:
		return &MessageCancel{}
	case OpMessageSendReceive:
		return &MessageSendReceive{}
	case OpMessageReply:
		return &MessageReply{}
	case OpClientDisconnect:
		return &ClientDisconnect{}
	case OpStateTransferQueue:
		return &StateTransferQueue{}
	case OpStateTransferGroup:
		return &StateTransferGroup{}
	case OpStateTransferMessage:
		return &StateTransferMessage{}
	case OpSyncDone:
		return &SyncDone{}
	default:
		return nil
	}
}
