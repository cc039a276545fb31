package packet

// Status byte values written by the encoders. Decoding only looks at the
// two low bits, so any value with the same low bits is accepted.
const (
	StatusHeader   byte = 0x00
	StatusData     byte = 0x01
	StatusDataLast byte = 0x03
)

const (
	// MinLen is the smallest datagram that carries a status byte and a file id.
	MinLen = 2
	// MinDataLen is the smallest data datagram (status, file id, chunk index).
	MinDataLen = 4
)

// Packet is one decoded datagram, either a Header or a Data.
type Packet interface {
	FileID() uint8
	isPacket()
}

// Header names the destination file for a file id.
type Header struct {
	ID   uint8
	Name string
}

// Data carries one chunk of file content.
type Data struct {
	ID      uint8
	Index   uint16
	Last    bool
	Payload []byte
}

func (h Header) FileID() uint8 { return h.ID }
func (d Data) FileID() uint8   { return d.ID }

func (Header) isPacket() {}
func (Data) isPacket()   {}
