package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// MBAP (MODBUS Application Protocol) framing constants.
const (
	mbapHeaderSize = 7 // transaction(2) + protocol(2) + length(2) + unit(1)

	// maxPDUSize bounds the length field of an MBAP header (unit + PDU).
	maxPDUSize = 254

	// fc3RequestSize is function(1) + starting address(2) + quantity(2).
	fc3RequestSize = 5
)

// Logger is the logging interface used by the Server, satisfied by the
// application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Server is a MODBUS/TCP slave. It frames MBAP packets, decodes read
// holding register PDUs and hands them to the Handler; everything about
// the register address space is the handler's business.
//
// All methods are safe for concurrent use.
type Server struct {
	handler Handler

	// IdleTimeout closes client connections that stay silent for the
	// duration. Zero disables the deadline.
	IdleTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool

	wg     sync.WaitGroup
	logger Logger
}

// NewServer creates a server dispatching to handler.
func NewServer(handler Handler) *Server {
	return &Server{
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(logger Logger) {
	s.logger = logger
}

// ListenAndServe listens on addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("modbus: listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Close, serving each connection on
// its own goroutine. It always returns a non-nil error; after Close the
// error is ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("modbus server listening", "addr", l.Addr().String())

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrServerClosed
			}
			return fmt.Errorf("modbus: accept: %w", err)
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

// Close stops accepting, closes every client connection and waits for
// the per-connection goroutines to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// serveConn runs the request loop for one client. Requests on a
// connection are handled strictly in order.
func (s *Server) serveConn(conn net.Conn) {
	defer s.removeConn(conn)

	remote := conn.RemoteAddr().String()
	s.logger.Debug("modbus client connected", "remote", remote)

	header := make([]byte, mbapHeaderSize)
	for {
		if s.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
		}

		if _, err := io.ReadFull(conn, header); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("modbus client read ended", "remote", remote, "error", err)
			}
			return
		}

		transaction := binary.BigEndian.Uint16(header[0:2])
		protocol := binary.BigEndian.Uint16(header[2:4])
		length := int(binary.BigEndian.Uint16(header[4:6]))
		unit := header[6]

		if protocol != 0 || length < 2 || length > maxPDUSize {
			s.logger.Warn("modbus frame rejected", "remote", remote,
				"protocol", protocol, "length", length)
			return
		}

		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		resp := s.dispatch(unit, pdu)
		if err := writeFrame(conn, transaction, unit, pdu[0], resp); err != nil {
			s.logger.Debug("modbus response write failed", "remote", remote, "error", err)
			return
		}
	}
}

// dispatch decodes a PDU and runs it through the handler. Violations the
// transport can see on its own are answered directly; everything else,
// including unsupported function codes, is the handler's call.
func (s *Server) dispatch(unit uint8, pdu []byte) Response {
	fc := pdu[0]

	req := Request{FunctionCode: fc}
	if fc == FuncReadHoldingRegisters {
		if len(pdu) != fc3RequestSize {
			return Except(ExceptionIllegalDataValue)
		}
		start := int(binary.BigEndian.Uint16(pdu[1:3]))
		quantity := int(binary.BigEndian.Uint16(pdu[3:5]))
		if quantity < minReadQuantity || quantity > maxReadQuantity {
			return Except(ExceptionIllegalDataValue)
		}
		req.StartingIndex = start
		req.EndingIndex = start + quantity
	}

	// The respond callback fires synchronously, before Handle returns.
	var resp Response
	responded := false
	s.handler.Handle(unit, req, func(r Response) {
		resp = r
		responded = true
	})
	if !responded {
		// A handler that never answers is a gateway-side defect.
		return Except(ExceptionServerDeviceFail)
	}
	return resp
}

// writeFrame encodes a response PDU under the request's transaction and
// unit identifiers.
func writeFrame(w io.Writer, transaction uint16, unit uint8, fc byte, resp Response) error {
	var pdu []byte
	if resp.IsException() {
		pdu = []byte{fc | exceptionFlag, byte(resp.Exception)}
	} else {
		pdu = make([]byte, 2+len(resp.Data))
		pdu[0] = fc
		pdu[1] = byte(len(resp.Data))
		copy(pdu[2:], resp.Data)
	}

	frame := make([]byte, mbapHeaderSize+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], transaction)
	binary.BigEndian.PutUint16(frame[2:4], 0)
	binary.BigEndian.PutUint16(frame[4:6], uint16(1+len(pdu)))
	frame[6] = unit
	copy(frame[mbapHeaderSize:], pdu)

	_, err := w.Write(frame)
	return err
}
