package hci

import (
	"fmt"
	"strings"
)

// HCI packet indicators and event codes (Bluetooth Core Specification,
// vol 4, part E).
const (
	// PacketTypeEvent is the UART packet indicator for an HCI event.
	PacketTypeEvent byte = 0x04

	// EventLEMeta is the LE Meta event code.
	EventLEMeta byte = 0x3E

	// SubeventAdvertisingReport is the LE Advertising Report subevent.
	SubeventAdvertisingReport byte = 0x02

	// eventHeaderSize is indicator(1) + event code(1) + parameter length(1).
	eventHeaderSize = 3

	// addressSize is the size of a BLE device address.
	addressSize = 6
)

// Packet is a single decoded HCI event packet.
type Packet struct {
	Type       byte
	EventCode  byte
	Parameters []byte
}

// AdvertisingReport is one advertisement extracted from an LE Advertising
// Report event. Address is canonical "AA:BB:CC:DD:EE:FF". RSSI is the
// received signal strength in dBm; RSSIValid is false when the controller
// reported the 127 "not available" marker.
type AdvertisingReport struct {
	Address   string
	RSSI      int8
	RSSIValid bool
	Data      []EIR
}

// Decode consumes complete HCI event packets from buf and returns them
// together with the unconsumed remainder.
//
// A trailing partial packet is not an error: it is returned in rest so the
// caller can prepend the next chunk and call Decode again. A packet
// indicator other than 0x04 is an error; the stream is out of sync and the
// caller should drop its buffer.
func Decode(buf []byte) (packets []Packet, rest []byte, err error) {
	for len(buf) > 0 {
		if buf[0] != PacketTypeEvent {
			return packets, nil, fmt.Errorf("%w: indicator 0x%02x", ErrUnknownPacketType, buf[0])
		}
		if len(buf) < eventHeaderSize {
			return packets, buf, nil
		}
		paramLen := int(buf[2])
		total := eventHeaderSize + paramLen
		if len(buf) < total {
			return packets, buf, nil
		}
		params := make([]byte, paramLen)
		copy(params, buf[eventHeaderSize:total])
		packets = append(packets, Packet{
			Type:       buf[0],
			EventCode:  buf[1],
			Parameters: params,
		})
		buf = buf[total:]
	}
	return packets, nil, nil
}

// AdvertisingReports explodes an LE Meta / Advertising Report event into
// its individual reports, in wire order. Events of any other kind yield
// an empty slice and no error.
//
// Event parameter layout:
//
//	Byte 0:  subevent code (0x02)
//	Byte 1:  number of reports
//	Per report: event type(1), address type(1), address(6, little-endian),
//	            data length(1), data(n), RSSI(1)
func (p Packet) AdvertisingReports() ([]AdvertisingReport, error) {
	if p.Type != PacketTypeEvent || p.EventCode != EventLEMeta {
		return nil, nil
	}
	params := p.Parameters
	if len(params) < 2 || params[0] != SubeventAdvertisingReport {
		return nil, nil
	}

	num := int(params[1])
	body := params[2:]
	reports := make([]AdvertisingReport, 0, num)

	for i := 0; i < num; i++ {
		// event type + address type + address + data length
		if len(body) < 2+addressSize+1 {
			return nil, fmt.Errorf("%w: report %d header", ErrMalformedReport, i)
		}
		addr := formatAddress(body[2 : 2+addressSize])
		dataLen := int(body[2+addressSize])
		body = body[2+addressSize+1:]

		if len(body) < dataLen+1 {
			return nil, fmt.Errorf("%w: report %d data", ErrMalformedReport, i)
		}
		data, err := ParseEIR(body[:dataLen])
		if err != nil {
			return nil, err
		}
		rssi := int8(body[dataLen])
		body = body[dataLen+1:]

		reports = append(reports, AdvertisingReport{
			Address:   addr,
			RSSI:      rssi,
			RSSIValid: rssi != 127,
			Data:      data,
		})
	}

	return reports, nil
}

// formatAddress renders a little-endian wire address in the canonical
// "AA:BB:CC:DD:EE:FF" form.
func formatAddress(b []byte) string {
	var sb strings.Builder
	for i := len(b) - 1; i >= 0; i-- {
		if sb.Len() > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02X", b[i])
	}
	return sb.String()
}
