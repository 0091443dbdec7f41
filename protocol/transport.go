package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Handler receives each message decoded from the link, on the reader
// goroutine (or the caller of Receive)
type Handler func(msg Message)

// ErrLinkClosed is returned by Send after Close
var ErrLinkClosed = errors.New("link closed")

// Link carries clock messages over a byte stream in both directions. The
// clock protocol is idempotent (alarms are re-sent with every re-arm and
// the counter is re-read on demand), so frames are not acknowledged or
// retransmitted; corrupt frames are dropped and counted.
type Link struct {
	rw io.ReadWriter

	writeMutex sync.Mutex
	seq        uint8

	readMutex sync.Mutex
	dec       *Decoder
	handler   Handler
	badFrames atomic.Uint32

	started  atomic.Bool
	closed   atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewLink creates a link over rw. Call Start to run the reader, or feed
// bytes with Receive from an existing read loop.
func NewLink(rw io.ReadWriter, handler Handler) *Link {
	return &Link{
		rw:       rw,
		dec:      NewDecoder(),
		handler:  handler,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Send packs msgs into a single frame and writes it
func (l *Link) Send(msgs ...Message) error {
	if l.closed.Load() {
		return ErrLinkClosed
	}
	var payload []byte
	for _, m := range msgs {
		var err error
		if payload, err = AppendMessage(payload, m); err != nil {
			return err
		}
	}

	l.writeMutex.Lock()
	defer l.writeMutex.Unlock()

	frame, err := AppendFrame(nil, l.seq, payload)
	if err != nil {
		return err
	}
	l.seq = (l.seq + 1) & MessageSeqMask

	n, err := l.rw.Write(frame)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(frame))
	}
	return nil
}

// Receive decodes data and dispatches every complete message
func (l *Link) Receive(data []byte) {
	var msgs []Message

	l.readMutex.Lock()
	for len(data) > 0 {
		n := l.dec.Feed(data)
		data = data[n:]
		for {
			f, ok := l.dec.Next()
			if !ok {
				break
			}
			parsed, err := ParseMessages(f.Payload)
			if err != nil {
				l.badFrames.Add(1)
			}
			msgs = append(msgs, parsed...)
		}
	}
	l.readMutex.Unlock()

	if l.handler == nil {
		return
	}
	for _, m := range msgs {
		l.handler(m)
	}
}

// BadFrames returns the count of frames dropped for corruption or
// undecodable payloads
func (l *Link) BadFrames() uint32 {
	l.readMutex.Lock()
	desyncs := l.dec.Errors()
	l.readMutex.Unlock()
	return desyncs + l.badFrames.Load()
}

// Start runs the reader goroutine
func (l *Link) Start() {
	if l.started.CompareAndSwap(false, true) {
		go l.readLoop()
	}
}

func (l *Link) readLoop() {
	defer close(l.doneChan)

	buffer := make([]byte, 256)
	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		n, err := l.rw.Read(buffer)
		if n > 0 {
			l.Receive(buffer[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || l.closed.Load() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Close stops the reader and closes the underlying stream if it can be
// closed. It waits for the reader to exit when one was started.
func (l *Link) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(l.stopChan)

	var err error
	if c, ok := l.rw.(io.Closer); ok {
		err = c.Close()
	}
	if l.started.Load() {
		select {
		case <-l.doneChan:
		case <-time.After(time.Second):
		}
	}
	return err
}
