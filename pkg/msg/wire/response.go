package wire

import "bytes"

// EncodeResponse frames a response payload behind the same 12-byte
// header every request carries, with the stamped error code filled in
// this time (spec §6/§9: "responses carry the same header shape, with
// error non-zero on failure").
func EncodeResponse(id uint32, errorCode uint32, payload []byte) []byte {
	var out bytes.Buffer
	writeUint32(&out, uint32(len(payload)))
	writeUint32(&out, id)
	writeUint32(&out, errorCode)
	out.Write(payload)
	return out.Bytes()
}

// DecodeResponseHeader parses the header prefix of a response frame,
// returning the remaining payload bytes.
func DecodeResponseHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < 12 {
		return Header{}, nil, errTooShort
	}
	r := bytes.NewReader(buf)
	size, _ := readUint32(r)
	id, _ := readUint32(r)
	errCode, _ := readUint32(r)
	return Header{Size: size, ID: id, Error: errCode}, buf[12:], nil
}

var errTooShort = &shortFrameError{}

type shortFrameError struct{}

func (*shortFrameError) Error() string { return "wire: response frame too short" }
