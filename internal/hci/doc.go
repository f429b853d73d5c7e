// Package hci decodes Bluetooth HCI event packets carrying LE advertising
// reports.
//
// The gateway consumes raw byte streams from HCI sniffer connections. This
// package turns those bytes into structured advertising reports:
//
//	chunks ──▶ Decode (length-prefixed reassembly) ──▶ Packet
//	                                                    │
//	                          LE Meta / Advertising Report
//	                                                    │
//	                                                    ▼
//	                       AdvertisingReport{Address, RSSI, Data}
//
// Decode consumes as many complete event packets as the buffer holds and
// returns the unconsumed remainder, so a report split across transport
// segments, or several events coalesced into one chunk, are both handled.
//
// EIR (Extended Inquiry Response) structures inside a report are parsed
// into typed entries; manufacturer-specific payloads are carried opaquely
// for the iNode decoder to interpret.
package hci
