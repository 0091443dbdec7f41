package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// AppendVLQ appends the Klipper VLQ encoding of v: seven bits per byte,
// most significant first, with bit 0x40 of the first byte carrying the sign
func AppendVLQ(dst []byte, v int32) []byte {
	n := 1
	for shift := 5; n < 5; shift += 7 {
		lo, hi := -(int64(1) << shift), int64(3)<<shift
		if int64(v) >= lo && int64(v) < hi {
			break
		}
		n++
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, byte(v>>(7*i))&0x7F|0x80)
	}
	return append(dst, byte(v)&0x7F)
}

// AppendVLQUint appends an unsigned value; the wire form is shared with
// signed values and round-trips all 32 bits
func AppendVLQUint(dst []byte, v uint32) []byte {
	return AppendVLQ(dst, int32(v))
}

// DecodeVLQ decodes one value and advances data past it. data is left
// untouched on error.
func DecodeVLQ(data *[]byte) (int32, error) {
	var v uint32
	for i, c := range *data {
		if i == 0 {
			v = uint32(c & 0x7F)
			if c&0x60 == 0x60 {
				v |= ^uint32(0x1F)
			}
		} else {
			v = v<<7 | uint32(c&0x7F)
		}
		if c&0x80 == 0 {
			*data = (*data)[i+1:]
			return int32(v), nil
		}
		if i == 4 {
			return 0, ErrInvalidVLQ
		}
	}
	return 0, ErrBufferTooSmall
}

// DecodeVLQUint decodes an unsigned value
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQ(data)
	return uint32(v), err
}
