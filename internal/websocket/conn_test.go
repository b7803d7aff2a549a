package websocket

import (
	"errors"
	"sync"
	"time"
)

var errFakeDrained = errors.New("fake conn: no frames left")

// frame is one WebSocket message as the fake conn sees it.
type frame struct {
	kind int
	data []byte
}

// fakeConn is an in-memory Conn for pump tests. Reads are served from a
// fixed queue and fail once it drains, which ends a read pump the same
// way a dropped peer would. Writes are recorded for assertions.
type fakeConn struct {
	mu        sync.Mutex
	inbound   []frame
	written   []frame
	closed    bool
	readLimit int64
	addr      string
}

func newFakeConn(inbound ...frame) *fakeConn {
	return &fakeConn{inbound: inbound, addr: "127.0.0.1:49152"}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.inbound) == 0 {
		return 0, nil, errFakeDrained
	}
	fr := f.inbound[0]
	f.inbound = f.inbound[1:]
	return fr.kind, fr.data, nil
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("fake conn: closed")
	}
	f.written = append(f.written, frame{kind: kind, data: data})
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) SetReadLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLimit = limit
}

func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) RemoteAddr() string { return f.addr }

func (f *fakeConn) writtenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func (f *fakeConn) lastWritten() (frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.written) == 0 {
		return frame{}, false
	}
	return f.written[len(f.written)-1], true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) recordedReadLimit() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLimit
}
