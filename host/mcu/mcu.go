// Package mcu talks to a remote clock MCU and exposes its counter as a
// clock.Hardware, so the host can run a kernel queue on the device's
// timebase.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"tempo/host/serial"
	"tempo/protocol"
)

var ErrNotConnected = errors.New("not connected to MCU")

// MCU is a connection to a remote clock MCU. Read returns the count the
// device last reported (with an alarm or a clock response); call Sync to
// refresh it.
type MCU struct {
	link *protocol.Link
	log  *zap.Logger

	mu        sync.Mutex
	count     uint32
	alarms    uint64
	handler   func()
	clockWait []chan uint32
}

// New wraps an already open stream
func New(rw io.ReadWriter, log *zap.Logger) *MCU {
	if log == nil {
		log = zap.NewNop()
	}
	m := &MCU{log: log.Named("mcu")}
	m.link = protocol.NewLink(rw, m.handleMessage)
	m.link.Start()
	return m
}

// Connect opens the serial port in cfg and syncs the counter
func Connect(ctx context.Context, cfg *serial.Config, log *zap.Logger) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	_ = port.Flush()

	m := New(port, log)
	count, err := m.Sync(ctx)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("initial clock sync: %w", err)
	}
	m.log.Info("connected", zap.String("device", port.Device()), zap.Uint32("count", count))
	return m, nil
}

// OnAlarm sets the function run when the device reports an alarm. It
// runs on the link reader goroutine.
func (m *MCU) OnAlarm(fn func()) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

// Read implements clock.Hardware
func (m *MCU) Read() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// SetAlarm implements clock.Hardware. Send failures are logged: the
// caller holds the kernel queue lock and cannot act on them.
func (m *MCU) SetAlarm(at uint32) {
	err := m.link.Send(protocol.Message{ID: protocol.MsgSetAlarm, Args: []uint32{at}})
	if err != nil {
		m.log.Warn("set_alarm failed", zap.Uint32("at", at), zap.Error(err))
	}
}

// Sync asks the device for its counter and waits for the reply
func (m *MCU) Sync(ctx context.Context) (uint32, error) {
	ch := make(chan uint32, 1)
	m.mu.Lock()
	m.clockWait = append(m.clockWait, ch)
	m.mu.Unlock()

	if err := m.link.Send(protocol.Message{ID: protocol.MsgGetClock}); err != nil {
		m.dropWaiter(ch)
		return 0, fmt.Errorf("get_clock: %w", err)
	}

	select {
	case count := <-ch:
		return count, nil
	case <-ctx.Done():
		m.dropWaiter(ch)
		return 0, ctx.Err()
	}
}

func (m *MCU) dropWaiter(ch chan uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.clockWait {
		if c == ch {
			m.clockWait = append(m.clockWait[:i], m.clockWait[i+1:]...)
			return
		}
	}
}

// Alarms returns how many alarms the device has reported
func (m *MCU) Alarms() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alarms
}

// BadFrames returns the frames dropped by the link
func (m *MCU) BadFrames() uint32 {
	return m.link.BadFrames()
}

func (m *MCU) handleMessage(msg protocol.Message) {
	switch msg.ID {
	case protocol.MsgClock:
		m.mu.Lock()
		m.count = msg.Arg(0)
		waiters := m.clockWait
		m.clockWait = nil
		m.mu.Unlock()
		for _, ch := range waiters {
			ch <- msg.Arg(0)
		}

	case protocol.MsgAlarm:
		m.mu.Lock()
		m.count = msg.Arg(0)
		m.alarms++
		fn := m.handler
		m.mu.Unlock()
		if fn != nil {
			fn()
		}

	default:
		m.log.Warn("unexpected message", zap.Stringer("msg", msg))
	}
}

// Poll refreshes the counter every interval until ctx is done, so
// elapsed time between alarms stays current
func (m *MCU) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sctx, cancel := context.WithTimeout(ctx, interval)
			if _, err := m.Sync(sctx); err != nil && ctx.Err() == nil {
				m.log.Debug("clock poll failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Close shuts the link down
func (m *MCU) Close() error {
	if m.link == nil {
		return ErrNotConnected
	}
	return m.link.Close()
}
