package protocol

// FifoBuffer is the decoder's input ring. Capacity is rounded up to a
// power of two; head and tail run free and are masked on access.
type FifoBuffer struct {
	buf        []byte
	mask       uint32
	head, tail uint32
}

// NewFifoBuffer creates a ring holding at least capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &FifoBuffer{buf: make([]byte, size), mask: uint32(size - 1)}
}

// Len returns the buffered byte count
func (f *FifoBuffer) Len() int {
	return int(f.tail - f.head)
}

// Free returns how many more bytes fit
func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.Len()
}

// Write appends as much of data as fits and returns the bytes taken
func (f *FifoBuffer) Write(data []byte) int {
	if free := f.Free(); len(data) > free {
		data = data[:free]
	}
	for _, b := range data {
		f.buf[f.tail&f.mask] = b
		f.tail++
	}
	return len(data)
}

// Data returns the buffered bytes as one slice. When the contents wrap
// they are copied, so a frame straddling the end parses like any other.
func (f *FifoBuffer) Data() []byte {
	start, end := f.head&f.mask, f.tail&f.mask
	if f.Len() == 0 {
		return nil
	}
	if start < end {
		return f.buf[start:end]
	}
	out := make([]byte, 0, f.Len())
	out = append(out, f.buf[start:]...)
	return append(out, f.buf[:end]...)
}

// Pop discards n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	if l := f.Len(); n > l {
		n = l
	}
	f.head += uint32(n)
}

// Reset discards everything
func (f *FifoBuffer) Reset() {
	f.head, f.tail = 0, 0
}
