package inode

import (
	"encoding/binary"
	"testing"
)

func TestLayoutFor_Sizes(t *testing.T) {
	tests := []struct {
		model Model
		regs  int
	}{
		{ModelCareRelay, relayRegisters},
		{ModelEnergyMeter, meterRegisters},
		{ModelCareSensor1, sensorRegisters},
		{ModelCareSensorPHT, sensorRegisters},
	}
	for _, tt := range tests {
		l := layoutFor(tt.model)
		if l == nil {
			t.Fatalf("layoutFor(%v) = nil", tt.model)
		}
		if l.Registers() != tt.regs {
			t.Errorf("layoutFor(%v).Registers() = %d, want %d", tt.model, l.Registers(), tt.regs)
		}
		if l.Size() != tt.regs*bytesPerRegister {
			t.Errorf("layoutFor(%v).Size() = %d, want %d", tt.model, l.Size(), tt.regs*bytesPerRegister)
		}
	}

	if layoutFor(ModelUnknown) != nil {
		t.Error("layoutFor(ModelUnknown) != nil")
	}
}

func TestLayout_SlotsStayInsideImage(t *testing.T) {
	for _, l := range []*Layout{relayLayout, meterLayout, sensorLayout} {
		for _, sl := range l.slots {
			if sl.reg < headerRegisters && sl.field > FieldAlarms {
				t.Errorf("extension field %d placed in the header at register %d", sl.field, sl.reg)
			}
			if sl.reg+sl.width > l.registers {
				t.Errorf("slot for field %d overruns the image: %d+%d > %d",
					sl.field, sl.reg, sl.width, l.registers)
			}
		}
	}
}

func TestRender_FullPassWritesSentinels(t *testing.T) {
	buf := make([]byte, sensorLayout.Size())
	sensorLayout.render(&State{}, 0, true, buf)

	numeric := []int{
		RegRSSI, RegTxPower, RegSensorTemperature, RegSensorHumidity,
		RegSensorPressure, RegSensorBatteryLevel, RegSensorBatteryVoltage,
	}
	for _, reg := range numeric {
		got := binary.BigEndian.Uint16(buf[reg*bytesPerRegister:])
		if got != sentinel {
			t.Errorf("register %d = 0x%04x, want sentinel", reg, got)
		}
	}

	zeroed := []int{RegRTTO, RegAlarms, RegSensorFlags, RegSensorGroups}
	for _, reg := range zeroed {
		got := binary.BigEndian.Uint16(buf[reg*bytesPerRegister:])
		if got != 0 {
			t.Errorf("register %d = 0x%04x, want 0", reg, got)
		}
	}
}

func TestRender_DiffWritesOnlySelectedSlots(t *testing.T) {
	buf := make([]byte, sensorLayout.Size())
	state := State{
		Temperature: ptr(24.5),
		Humidity:    ptr(33.0),
	}

	var diff Diff
	diff.Set(FieldTemperature)
	sensorLayout.render(&state, diff, false, buf)

	if got := binary.BigEndian.Uint16(buf[RegSensorTemperature*bytesPerRegister:]); got != 2450 {
		t.Errorf("temperature register = %d, want 2450", got)
	}
	// Humidity was not in the diff; its register must stay untouched.
	if got := binary.BigEndian.Uint16(buf[RegSensorHumidity*bytesPerRegister:]); got != 0 {
		t.Errorf("humidity register = %d, want untouched 0", got)
	}
}

func TestRender_LocalNameTruncation(t *testing.T) {
	buf := make([]byte, relayLayout.Size())
	state := State{LocalName: ptr("a-very-long-device-name")}

	var diff Diff
	diff.Set(FieldLocalName)
	relayLayout.render(&state, diff, false, buf)

	got := string(buf[RegLocalName*bytesPerRegister : (RegLocalName+8)*bytesPerRegister])
	if got != "a-very-long-devi" {
		t.Errorf("name registers = %q, want 16-byte truncation", got)
	}
}
