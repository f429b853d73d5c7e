package connection

import (
	"context"
	"io"
	"sync"
	"time"
)

// Handler receives one chunk of bytes. The slice is only valid for the
// duration of the call.
type Handler func(chunk []byte)

// Source is a byte-stream connection the gateway can ingest from.
//
// At most one handler is attached at a time; Attach returns a detach
// function that is safe to call at any moment and more than once.
type Source interface {
	// Name identifies the source in logs and the registry.
	Name() string

	// Attach registers the chunk handler, replacing any previous one.
	Attach(h Handler) (detach func())

	// Start runs the transport until ctx is cancelled or Close is
	// called. It blocks; run it on its own goroutine.
	Start(ctx context.Context) error

	// Close stops the transport and releases the handler.
	Close() error
}

// Reconnect backoff bounds shared by the transports.
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second

	readBufferSize = 4096
)

// pump is the shared read loop: open the transport, fan chunks into the
// attached handler (hex-decoding when enabled), reconnect with
// exponential backoff on failure.
type pump struct {
	name    string
	hexText bool
	open    func() (io.ReadCloser, error)

	mu         sync.Mutex
	handler    Handler
	handlerGen uint64
	current    io.ReadCloser
	closed     bool

	stopOnce sync.Once
	done     chan struct{}

	hex hexDecoder
}

func newPump(name string, hexText bool, open func() (io.ReadCloser, error)) *pump {
	return &pump{
		name:    name,
		hexText: hexText,
		open:    open,
		done:    make(chan struct{}),
	}
}

func (p *pump) Name() string { return p.name }

func (p *pump) Attach(h Handler) (detach func()) {
	p.mu.Lock()
	p.handlerGen++
	gen := p.handlerGen
	p.handler = h
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			// A stale handle must not detach a replacement handler.
			if p.handlerGen == gen {
				p.handler = nil
			}
			p.mu.Unlock()
		})
	}
}

func (p *pump) Close() error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.handler = nil
		if p.current != nil {
			p.current.Close()
		}
		p.mu.Unlock()
		close(p.done)
	})
	return nil
}

func (p *pump) Start(ctx context.Context) error {
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		default:
		}

		rc, err := p.open()
		if err != nil {
			stop, waitErr := p.wait(ctx, backoff)
			if stop {
				return waitErr
			}
			backoff = nextBackoff(backoff)
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			rc.Close()
			return nil
		}
		p.current = rc
		p.mu.Unlock()

		backoff = initialBackoff
		p.readLoop(rc)

		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()
		rc.Close()
	}
}

// readLoop shovels chunks until the transport fails or is closed.
func (p *pump) readLoop(rc io.ReadCloser) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			p.deliver(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (p *pump) deliver(chunk []byte) {
	p.mu.Lock()
	handler := p.handler
	p.mu.Unlock()
	if handler == nil {
		return
	}

	if p.hexText {
		decoded := p.hex.Decode(chunk)
		if len(decoded) == 0 {
			return
		}
		handler(decoded)
		return
	}
	handler(chunk)
}

// wait sleeps for the backoff duration. stop is true when the pump must
// terminate instead of retrying.
func (p *pump) wait(ctx context.Context, d time.Duration) (stop bool, err error) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-p.done:
		return true, nil
	case <-t.C:
		return false, nil
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
