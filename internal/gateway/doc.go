// Package gateway wires iNode devices, HCI connections and the MODBUS
// transport together.
//
// The Gateway keeps two always-consistent device indexes (by MODBUS unit
// and by MAC address) and routes traffic in both directions:
//
//	connection chunks ──▶ reassembly ──▶ hci.Decode ──▶ report ──▶ Device.Apply
//	MODBUS request ──▶ unit lookup ──▶ availability ──▶ Device.Read ──▶ respond
//
// Devices are created externally and registered explicitly; duplicate
// unit or MAC registrations are rejected without mutation and removal is
// idempotent. Each connection owns a private reassembly buffer that is
// dropped when the connection is removed.
//
// A single mutex serializes report application and request handling, so
// device state and the indexes are never observed mid-update, reports
// from one connection apply in delivery order, and when two connections
// report the same device near-simultaneously the later-applied report
// wins. There are no timers: availability is computed per request from
// the wall clock.
package gateway
