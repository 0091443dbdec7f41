// Package protocol implements the framed link between the host and a
// remote clock MCU. Frames follow Klipper's layout (length, sequence,
// VLQ payload, CRC16, sync byte) and carry a small fixed message set.
package protocol

import (
	"errors"
	"fmt"
)

// Version of the clock link protocol
const Version = "0.1.0"

// Frame layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// Message IDs
const (
	MsgSetAlarm uint32 = 1 // host -> device: set_alarm at=%u
	MsgGetClock uint32 = 2 // host -> device: get_clock
	MsgClock    uint32 = 3 // device -> host: clock count=%u
	MsgAlarm    uint32 = 4 // device -> host: alarm count=%u
)

var (
	ErrUnknownMessage = errors.New("unknown message id")
	ErrArgCount       = errors.New("wrong argument count")
	ErrFrameTooLong   = errors.New("frame too long")
)

type msgFormat struct {
	name string
	args int
}

var formats = map[uint32]msgFormat{
	MsgSetAlarm: {"set_alarm at=%u", 1},
	MsgGetClock: {"get_clock", 0},
	MsgClock:    {"clock count=%u", 1},
	MsgAlarm:    {"alarm count=%u", 1},
}

// Message is one decoded command or response
type Message struct {
	ID   uint32
	Args []uint32
}

// Arg returns argument i, or 0 if absent
func (m Message) Arg(i int) uint32 {
	if i < len(m.Args) {
		return m.Args[i]
	}
	return 0
}

func (m Message) String() string {
	f, ok := formats[m.ID]
	if !ok {
		return fmt.Sprintf("unknown(%d) %v", m.ID, m.Args)
	}
	return fmt.Sprintf("%s %v", f.name, m.Args)
}

// AppendMessage VLQ-encodes m onto dst
func AppendMessage(dst []byte, m Message) ([]byte, error) {
	f, ok := formats[m.ID]
	if !ok {
		return dst, fmt.Errorf("%w: %d", ErrUnknownMessage, m.ID)
	}
	if len(m.Args) != f.args {
		return dst, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, f.name, f.args, len(m.Args))
	}
	dst = AppendVLQUint(dst, m.ID)
	for _, a := range m.Args {
		dst = AppendVLQUint(dst, a)
	}
	return dst, nil
}

// ParseMessages decodes every message in a frame payload
func ParseMessages(payload []byte) ([]Message, error) {
	var msgs []Message
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			return msgs, err
		}
		f, ok := formats[id]
		if !ok {
			return msgs, fmt.Errorf("%w: %d", ErrUnknownMessage, id)
		}
		m := Message{ID: id}
		for i := 0; i < f.args; i++ {
			v, err := DecodeVLQUint(&payload)
			if err != nil {
				return msgs, fmt.Errorf("%s: %w", f.name, err)
			}
			m.Args = append(m.Args, v)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
