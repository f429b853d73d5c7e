// Package modbus implements the MODBUS slave transport for the gateway.
//
// It exposes the request/response contract the gateway's router plugs
// into, and a MODBUS/TCP server that frames MBAP packets, decodes read
// holding register PDUs, and dispatches them:
//
//	TCP client ──▶ Server ──▶ Handler(unit, Request, respond)
//	                              │
//	                     gateway router / device read
//	                              │
//	           respond(Response{Data}) or respond(Exception(...))
//
// The server never interprets register contents; address-space semantics
// (which unit exists, which windows are legal) belong entirely to the
// handler. Protocol-level violations it can detect on its own — an
// unparseable PDU, a quantity outside 1-125 — are answered with the
// matching exception before the handler is consulted.
package modbus
