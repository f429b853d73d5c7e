package modbus

// Request is one decoded MODBUS read request. The register window is
// half-open: StartingIndex is the first register, EndingIndex one past
// the last.
type Request struct {
	FunctionCode  byte
	StartingIndex int
	EndingIndex   int
}

// Quantity returns the number of requested registers.
func (r Request) Quantity() int { return r.EndingIndex - r.StartingIndex }

// Response carries either register data or an exception, never both.
type Response struct {
	Exception ExceptionCode
	Data      []byte
}

// Except builds an exception response.
func Except(code ExceptionCode) Response {
	return Response{Exception: code}
}

// Reply builds a data response.
func Reply(data []byte) Response {
	return Response{Data: data}
}

// IsException reports whether the response is an exception.
func (r Response) IsException() bool { return r.Exception != 0 }

// Handler answers MODBUS requests addressed to a unit. The respond
// callback must be invoked exactly once and may fire before Handle
// returns; it must not be retained afterwards.
type Handler interface {
	Handle(unit uint8, req Request, respond func(Response))
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(unit uint8, req Request, respond func(Response))

func (f HandlerFunc) Handle(unit uint8, req Request, respond func(Response)) {
	f(unit, req, respond)
}
