package hci

// EIR data types relevant to the gateway (Bluetooth Assigned Numbers,
// Generic Access Profile).
const (
	EIRShortenedLocalName byte = 0x08
	EIRCompleteLocalName  byte = 0x09
	EIRTxPowerLevel       byte = 0x0A
	EIRManufacturerData   byte = 0xFF
)

// EIR is a single length-type-value structure from an advertising payload.
// Value aliases the report's backing array and must not be mutated.
type EIR struct {
	Type  byte
	Value []byte
}

// ParseEIR splits an advertising data payload into its EIR structures.
//
// A zero length octet terminates the payload (the remainder is padding).
// A structure whose declared length overruns the payload is malformed.
func ParseEIR(data []byte) ([]EIR, error) {
	var out []EIR
	for len(data) > 0 {
		length := int(data[0])
		if length == 0 {
			break
		}
		if len(data) < 1+length {
			return nil, ErrMalformedReport
		}
		out = append(out, EIR{
			Type:  data[1],
			Value: data[2 : 1+length],
		})
		data = data[1+length:]
	}
	return out, nil
}

// LocalName returns the complete local name if present, falling back to
// the shortened form. The second return is false when neither exists.
func LocalName(data []EIR) (string, bool) {
	name, ok := "", false
	for _, e := range data {
		switch e.Type {
		case EIRCompleteLocalName:
			return string(e.Value), true
		case EIRShortenedLocalName:
			name, ok = string(e.Value), true
		}
	}
	return name, ok
}

// TxPowerLevel returns the advertised TX power in dBm, if present.
func TxPowerLevel(data []EIR) (int8, bool) {
	for _, e := range data {
		if e.Type == EIRTxPowerLevel && len(e.Value) == 1 {
			return int8(e.Value[0]), true
		}
	}
	return 0, false
}

// ManufacturerData returns the first manufacturer-specific payload, if any.
func ManufacturerData(data []EIR) ([]byte, bool) {
	for _, e := range data {
		if e.Type == EIRManufacturerData {
			return e.Value, true
		}
	}
	return nil, false
}
