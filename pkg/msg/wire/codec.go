package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// byte order is fixed at little-endian regardless of host architecture
// (spec §6): encoding/binary.LittleEndian already does the conversion
// work a manual byteswap_in_place would otherwise need on a big-endian
// host, so decode never has to special-case host endianness. See
// DESIGN.md for why this replaces the source's swab-on-receive step.
var order = binary.LittleEndian

func writeUint8(w *bytes.Buffer, v uint8)   { w.WriteByte(v) }
func writeUint32(w *bytes.Buffer, v uint32) { _ = binary.Write(w, order, v) }
func writeUint64(w *bytes.Buffer, v uint64) { _ = binary.Write(w, order, v) }

func readUint8(r *bytes.Reader) (uint8, error)   { return r.ReadByte() }
func readUint32(r *bytes.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, order, &v)
	return v, err
}
func readUint64(r *bytes.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, order, &v)
	return v, err
}

// writeName writes a length-prefixed name, bounded by name.MaxLength.
func writeName(w *bytes.Buffer, n name.Name) {
	b := n.Bytes()
	writeUint32(w, uint32(len(b)))
	w.Write(b)
}

func readName(r *bytes.Reader) (name.Name, error) {
	l, err := readUint32(r)
	if err != nil {
		return name.Name{}, err
	}
	if l > name.MaxLength {
		return name.Name{}, fmt.Errorf("name length %d exceeds maximum %d", l, name.MaxLength)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return name.Name{}, err
	}
	return name.New(buf), nil
}

func writeBytes(w *bytes.Buffer, b []byte) {
	writeUint32(w, uint32(len(b)))
	w.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	l, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, l)
	if l > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// writeOptionalName writes a presence byte followed by the name if present.
func writeOptionalName(w *bytes.Buffer, n *name.Name) {
	if n == nil {
		writeUint8(w, 0)
		return
	}
	writeUint8(w, 1)
	writeName(w, *n)
}

func readOptionalName(r *bytes.Reader) (*name.Name, error) {
	present, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	n, err := readName(r)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
