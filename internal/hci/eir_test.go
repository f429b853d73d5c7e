package hci

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseEIR_Structures(t *testing.T) {
	payload := []byte{
		0x05, EIRCompleteLocalName, 'i', 'N', 'o', 'd',
		0x02, EIRTxPowerLevel, 0xFC, // -4 dBm
		0x04, EIRManufacturerData, 0xAB, 0x90, 0x01,
	}

	data, err := ParseEIR(payload)
	if err != nil {
		t.Fatalf("ParseEIR() error = %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("ParseEIR() structures = %d, want 3", len(data))
	}

	name, ok := LocalName(data)
	if !ok || name != "iNod" {
		t.Errorf("LocalName = %q (ok=%v), want %q", name, ok, "iNod")
	}
	power, ok := TxPowerLevel(data)
	if !ok || power != -4 {
		t.Errorf("TxPowerLevel = %d (ok=%v), want -4", power, ok)
	}
	msd, ok := ManufacturerData(data)
	if !ok || !bytes.Equal(msd, []byte{0xAB, 0x90, 0x01}) {
		t.Errorf("ManufacturerData = %x (ok=%v), want ab9001", msd, ok)
	}
}

func TestParseEIR_ZeroLengthTerminates(t *testing.T) {
	payload := []byte{
		0x02, EIRTxPowerLevel, 0x00,
		0x00,             // terminator
		0xFF, 0xFF, 0xFF, // padding garbage, must be ignored
	}

	data, err := ParseEIR(payload)
	if err != nil {
		t.Fatalf("ParseEIR() error = %v", err)
	}
	if len(data) != 1 {
		t.Errorf("ParseEIR() structures = %d, want 1", len(data))
	}
}

func TestParseEIR_Overrun(t *testing.T) {
	if _, err := ParseEIR([]byte{0x05, EIRCompleteLocalName, 'x'}); !errors.Is(err, ErrMalformedReport) {
		t.Errorf("ParseEIR() error = %v, want ErrMalformedReport", err)
	}
}

func TestLocalName_PrefersComplete(t *testing.T) {
	data := []EIR{
		{Type: EIRShortenedLocalName, Value: []byte("iNo")},
		{Type: EIRCompleteLocalName, Value: []byte("iNode-CS1")},
	}
	name, ok := LocalName(data)
	if !ok || name != "iNode-CS1" {
		t.Errorf("LocalName = %q (ok=%v), want complete name", name, ok)
	}
}

func TestLocalName_FallsBackToShortened(t *testing.T) {
	data := []EIR{{Type: EIRShortenedLocalName, Value: []byte("iNo")}}
	name, ok := LocalName(data)
	if !ok || name != "iNo" {
		t.Errorf("LocalName = %q (ok=%v), want shortened name", name, ok)
	}
}
