package protocol

import "bytes"

// CRC16 is the CCITT variant Klipper uses for frame trailers
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc & 0xFF)
		b ^= b << 4
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// Frame is one validated frame
type Frame struct {
	Seq     uint8 // low four bits of the sequence byte
	Payload []byte
}

// AppendFrame wraps payload in a frame with sequence seq
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := MessageHeaderSize + len(payload) + MessageTrailerSize
	if n > MessageLengthMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, byte(n), MessageDest|seq&MessageSeqMask)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), MessageValueSync), nil
}

// Decoder reassembles frames from a byte stream. Corrupt input drops the
// decoder out of sync until the next sync byte.
type Decoder struct {
	buf    *FifoBuffer
	synced bool
	errors uint32
}

// NewDecoder creates a decoder that can hold a few frames of backlog
func NewDecoder() *Decoder {
	return &Decoder{
		buf:    NewFifoBuffer(4 * MessageLengthMax),
		synced: true,
	}
}

// Feed buffers as much of data as fits and returns how much was taken
func (d *Decoder) Feed(data []byte) int {
	return d.buf.Write(data)
}

// Errors returns how many times the stream lost sync
func (d *Decoder) Errors() uint32 {
	return d.errors
}

// Reset discards buffered input
func (d *Decoder) Reset() {
	d.buf.Reset()
	d.synced = true
}

func (d *Decoder) desync() {
	d.synced = false
	d.errors++
}

// Next returns the next complete frame, or false if more input is needed
func (d *Decoder) Next() (Frame, bool) {
	data := d.buf.Data()
	total := len(data)
	defer func() { d.buf.Pop(total - len(data)) }()

	for len(data) > 0 {
		if !d.synced {
			i := bytes.IndexByte(data, MessageValueSync)
			if i < 0 {
				data = data[len(data):]
				break
			}
			data = data[i+1:]
			d.synced = true
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}
		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.desync()
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-1] != MessageValueSync {
			d.desync()
			continue
		}
		crc := uint16(data[msgLen-MessageTrailerSize])<<8 | uint16(data[msgLen-MessageTrailerSize+1])
		if crc != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.desync()
			continue
		}

		f := Frame{
			Seq:     seq & MessageSeqMask,
			Payload: append([]byte(nil), data[MessageHeaderSize:msgLen-MessageTrailerSize]...),
		}
		data = data[msgLen:]
		return f, true
	}
	return Frame{}, false
}
