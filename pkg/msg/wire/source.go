package wire

import (
	"bytes"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
)

func writeSource(w *bytes.Buffer, s model.MessageSource) {
	writeUint32(w, uint32(s.NodeID))
	writeUint64(w, uint64(s.Conn))
}

func readSource(r *bytes.Reader) (model.MessageSource, error) {
	nodeID, err := readUint32(r)
	if err != nil {
		return model.MessageSource{}, err
	}
	conn, err := readUint64(r)
	if err != nil {
		return model.MessageSource{}, err
	}
	return model.MessageSource{NodeID: model.NodeID(nodeID), Conn: model.ConnID(conn)}, nil
}

// Base is embedded by every concrete Record, carrying the common
// MessageSource field and the ClearRemoteSource step every exec record
// arm must implement per spec §9 (the actual integer byteswapping that
// step historically did is subsumed by wire's fixed little-endian
// codec; see DESIGN.md).
type Base struct {
	Source model.MessageSource
}

// GetSource implements Record.
func (b *Base) GetSource() model.MessageSource { return b.Source }

// SetSource implements Record.
func (b *Base) SetSource(s model.MessageSource) { b.Source = s }

// ClearRemoteSource implements Record: called by the apply engine
// (exec.Engine.Apply) exactly when the record's source names another
// node, since a conn handle
// from a different process is never usable locally (spec §3/§9).
func (b *Base) ClearRemoteSource() { b.Source = b.Source.ClearForRemote() }

// Record is the sum type spec §9 calls for: every exec operation is one
// arm, all satisfying this common interface.
type Record interface {
	Op() Op
	GetSource() model.MessageSource
	SetSource(model.MessageSource)
	ClearRemoteSource()

	encodeBody(w *bytes.Buffer)
	decodeBody(r *bytes.Reader) error
}
