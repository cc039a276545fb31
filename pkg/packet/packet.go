package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrTooShort indicates a datagram without status byte and file id.
	ErrTooShort = errors.New("packet too short")
	// ErrTooShortData indicates a data datagram without a full chunk index.
	ErrTooShortData = errors.New("data packet too short")
	// ErrInvalidEncoding indicates a header whose file name is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid UTF-8 file name")
)

// DecodeError reports why a datagram could not be decoded.
type DecodeError struct {
	Len int
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d-byte datagram: %v", e.Len, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses one datagram into a Header or Data packet.
// The returned packet does not alias b.
func Decode(b []byte) (Packet, error) {
	if len(b) < MinLen {
		return nil, &DecodeError{Len: len(b), Err: ErrTooShort}
	}
	status := b[0]
	id := b[1]

	if status%2 == 0 {
		name := b[2:]
		if !utf8.Valid(name) {
			return nil, &DecodeError{Len: len(b), Err: ErrInvalidEncoding}
		}
		return Header{ID: id, Name: string(name)}, nil
	}

	if len(b) < MinDataLen {
		return nil, &DecodeError{Len: len(b), Err: ErrTooShortData}
	}
	payload := make([]byte, len(b)-MinDataLen)
	copy(payload, b[MinDataLen:])
	return Data{
		ID:      id,
		Index:   binary.BigEndian.Uint16(b[2:4]),
		Last:    status%4 == 3,
		Payload: payload,
	}, nil
}

// AppendHeader appends the wire form of a header packet to dst.
func AppendHeader(dst []byte, id uint8, name string) []byte {
	dst = append(dst, StatusHeader, id)
	return append(dst, name...)
}

// AppendData appends the wire form of a data packet to dst.
func AppendData(dst []byte, id uint8, index uint16, last bool, payload []byte) []byte {
	status := StatusData
	if last {
		status = StatusDataLast
	}
	dst = append(dst, status, id)
	dst = binary.BigEndian.AppendUint16(dst, index)
	return append(dst, payload...)
}

// Encode returns the wire form of p.
func Encode(p Packet) ([]byte, error) {
	switch v := p.(type) {
	case Header:
		return AppendHeader(nil, v.ID, v.Name), nil
	case Data:
		return AppendData(nil, v.ID, v.Index, v.Last, v.Payload), nil
	default:
		return nil, fmt.Errorf("unknown packet type %T", p)
	}
}
