package protocol

import (
	"bytes"
	"testing"
)

func TestCRC16(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected uint16
	}{
		{[]byte{}, 0xFFFF},
		// Klipper's bare ACK for sequence 0x10
		{[]byte{5, MessageDest}, 0x9E81},
	}
	for i, tc := range testCases {
		if got := CRC16(tc.data); got != tc.expected {
			t.Errorf("Test case %d: CRC16(%v) = 0x%04X, want 0x%04X", i, tc.data, got, tc.expected)
		}
	}

	if CRC16([]byte{1, 2, 3}) == CRC16([]byte{1, 2, 4}) {
		t.Error("CRC16 collision on single-bit change")
	}
}

func TestAppendFrameLayout(t *testing.T) {
	frame, err := AppendFrame(nil, 3, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if len(frame) != 7 {
		t.Fatalf("Expected 7 byte frame, got %d", len(frame))
	}
	if frame[MessagePositionLen] != 7 {
		t.Errorf("Expected length byte 7, got %d", frame[0])
	}
	if frame[MessagePositionSeq] != MessageDest|3 {
		t.Errorf("Expected sequence byte 0x13, got 0x%02X", frame[1])
	}
	crc := CRC16(frame[:4])
	if frame[4] != byte(crc>>8) || frame[5] != byte(crc) {
		t.Errorf("CRC trailer mismatch: %v", frame)
	}
	if frame[6] != MessageValueSync {
		t.Errorf("Expected sync byte last, got 0x%02X", frame[6])
	}

	if _, err := AppendFrame(nil, 0, make([]byte, MessageLengthMax)); err != ErrFrameTooLong {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
}

func decodeAll(d *Decoder, data []byte) []Frame {
	var frames []Frame
	for len(data) > 0 {
		n := d.Feed(data)
		data = data[n:]
		for {
			f, ok := d.Next()
			if !ok {
				break
			}
			frames = append(frames, f)
		}
	}
	return frames
}

func TestDecoderRoundTrip(t *testing.T) {
	var stream []byte
	for i := 0; i < 20; i++ {
		var err error
		stream, err = AppendFrame(stream, uint8(i), []byte{byte(i), byte(i * 2)})
		if err != nil {
			t.Fatalf("AppendFrame: %v", err)
		}
	}

	// Byte at a time, as a UART would deliver it
	d := NewDecoder()
	var frames []Frame
	for _, b := range stream {
		frames = append(frames, decodeAll(d, []byte{b})...)
	}
	if len(frames) != 20 {
		t.Fatalf("Expected 20 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint8(i)&MessageSeqMask {
			t.Errorf("Frame %d: expected seq %d, got %d", i, i&MessageSeqMask, f.Seq)
		}
		if !bytes.Equal(f.Payload, []byte{byte(i), byte(i * 2)}) {
			t.Errorf("Frame %d: payload mismatch %v", i, f.Payload)
		}
	}
	if d.Errors() != 0 {
		t.Errorf("Expected no sync errors, got %d", d.Errors())
	}
}

func TestDecoderResyncsAfterCorruption(t *testing.T) {
	good1, _ := AppendFrame(nil, 1, []byte{0x0A})
	bad, _ := AppendFrame(nil, 2, []byte{0x0B})
	bad[2] ^= 0xFF // payload corrupted, CRC no longer matches
	good2, _ := AppendFrame(nil, 3, []byte{0x0C})

	var stream []byte
	stream = append(stream, 0x00, 0x42) // line noise
	stream = append(stream, MessageValueSync)
	stream = append(stream, good1...)
	stream = append(stream, bad...)
	stream = append(stream, good2...)

	d := NewDecoder()
	frames := decodeAll(d, stream)
	if len(frames) != 2 {
		t.Fatalf("Expected 2 good frames, got %d", len(frames))
	}
	if frames[0].Payload[0] != 0x0A || frames[1].Payload[0] != 0x0C {
		t.Errorf("Wrong frames survived: %v", frames)
	}
	if d.Errors() == 0 {
		t.Error("Expected the corrupt frame to be counted")
	}
}

func TestDecoderPartialFrame(t *testing.T) {
	frame, _ := AppendFrame(nil, 0, []byte{1, 2, 3})
	d := NewDecoder()

	if got := decodeAll(d, frame[:4]); len(got) != 0 {
		t.Fatalf("Decoded a frame from a partial buffer: %v", got)
	}
	got := decodeAll(d, frame[4:])
	if len(got) != 1 || !bytes.Equal(got[0].Payload, []byte{1, 2, 3}) {
		t.Errorf("Expected the completed frame, got %v", got)
	}
}
