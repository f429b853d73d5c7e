package gateway

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/inode-tools/inode-modbus-gateway/internal/connection"
	"github.com/inode-tools/inode-modbus-gateway/internal/hci"
	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
)

// fakeSource is an in-memory connection.Source the tests feed by hand.
type fakeSource struct {
	name string

	mu      sync.Mutex
	handler connection.Handler
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Attach(h connection.Handler) func() {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.handler = nil
		f.mu.Unlock()
	}
}

func (f *fakeSource) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) emit(chunk []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(chunk)
	}
}

func (f *fakeSource) attached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

// advertisement builds a decoded report carrying one manufacturer payload.
func advertisement(mac string, msd []byte) hci.AdvertisingReport {
	return hci.AdvertisingReport{
		Address:   mac,
		RSSI:      -60,
		RSSIValid: true,
		Data:      []hci.EIR{{Type: hci.EIRManufacturerData, Value: msd}},
	}
}

// hciFrame wraps a manufacturer payload into a complete LE Meta /
// Advertising Report event for the given address.
func hciFrame(t *testing.T, mac string, msd []byte) []byte {
	t.Helper()
	hw, err := net.ParseMAC(mac)
	if err != nil {
		t.Fatalf("ParseMAC(%q): %v", mac, err)
	}

	data := append([]byte{byte(1 + len(msd)), hci.EIRManufacturerData}, msd...)

	params := []byte{hci.SubeventAdvertisingReport, 1, 0x00, 0x00}
	for i := len(hw) - 1; i >= 0; i-- { // wire order is little-endian
		params = append(params, hw[i])
	}
	params = append(params, byte(len(data)))
	params = append(params, data...)
	params = append(params, 0xC4) // RSSI -60

	frame := []byte{hci.PacketTypeEvent, hci.EventLEMeta, byte(len(params))}
	return append(frame, params...)
}

func TestIngest_AppliesReports(t *testing.T) {
	g := New(testTimeout)
	d := newDevice(t, "D0:F0:18:00:00:01", 1)
	if err := g.AddDevice(d); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	var (
		updated *inode.Device
		diff    inode.Diff
	)
	g.OnDeviceUpdate(func(d *inode.Device, df inode.Diff) {
		updated, diff = d, df
	})

	src := &fakeSource{name: "test"}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	src.emit(hciFrame(t, "D0:F0:18:00:00:01", sensorMSD(inode.ModelCareSensorT, 2134)))

	if updated != d {
		t.Fatal("update callback did not fire for the registered device")
	}
	if !diff.Has(inode.FieldModel) {
		t.Error("first report did not flag the model change")
	}
	if d.Model() != inode.ModelCareSensorT {
		t.Errorf("Model() = %v, want Care Sensor T", d.Model())
	}
}

func TestIngest_ReassemblesSplitFrames(t *testing.T) {
	g := New(testTimeout)
	d := newDevice(t, "D0:F0:18:00:00:01", 1)
	if err := g.AddDevice(d); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	updates := 0
	g.OnDeviceUpdate(func(*inode.Device, inode.Diff) { updates++ })

	src := &fakeSource{name: "test"}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	frame := hciFrame(t, "D0:F0:18:00:00:01", sensorMSD(inode.ModelCareSensorT, 2134))
	src.emit(frame[:5])
	if updates != 0 {
		t.Fatal("partial frame produced an update")
	}
	src.emit(frame[5:])
	if updates != 1 {
		t.Fatalf("updates = %d, want 1", updates)
	}
}

func TestIngest_CoalescedFrames(t *testing.T) {
	g := New(testTimeout)
	d := newDevice(t, "D0:F0:18:00:00:01", 1)
	if err := g.AddDevice(d); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	updates := 0
	g.OnDeviceUpdate(func(*inode.Device, inode.Diff) { updates++ })

	src := &fakeSource{name: "test"}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	one := hciFrame(t, "D0:F0:18:00:00:01", sensorMSD(inode.ModelCareSensorT, 2100))
	two := hciFrame(t, "D0:F0:18:00:00:01", sensorMSD(inode.ModelCareSensorT, 2200))
	src.emit(append(append([]byte{}, one...), two...))

	if updates != 2 {
		t.Fatalf("updates = %d, want 2", updates)
	}
	state := d.State()
	if state.Temperature == nil || *state.Temperature != 22.0 {
		t.Error("second frame did not win")
	}
}

func TestIngest_UnknownDeviceHook(t *testing.T) {
	g := New(testTimeout)

	var unknown []string
	g.OnUnknownDevice(func(rep hci.AdvertisingReport) {
		unknown = append(unknown, rep.Address)
	})

	src := &fakeSource{name: "test"}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	src.emit(hciFrame(t, "D0:F0:18:00:00:99", sensorMSD(inode.ModelCareSensorT, 0)))

	if len(unknown) != 1 || unknown[0] != "D0:F0:18:00:00:99" {
		t.Fatalf("unknown hook saw %v, want the reporting address", unknown)
	}
}

func TestIngest_MalformedStreamResyncs(t *testing.T) {
	g := New(testTimeout)
	d := newDevice(t, "D0:F0:18:00:00:01", 1)
	if err := g.AddDevice(d); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	updates := 0
	g.OnDeviceUpdate(func(*inode.Device, inode.Diff) { updates++ })

	src := &fakeSource{name: "test"}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	src.emit([]byte{0x7F, 0x01, 0x02}) // not an HCI packet type
	if updates != 0 {
		t.Fatal("garbage produced an update")
	}
	src.emit(hciFrame(t, "D0:F0:18:00:00:01", sensorMSD(inode.ModelCareSensorT, 2134)))
	if updates != 1 {
		t.Fatalf("updates after resync = %d, want 1", updates)
	}
}

func TestRemoveConnection_StopsIngest(t *testing.T) {
	g := New(testTimeout)
	d := newDevice(t, "D0:F0:18:00:00:01", 1)
	if err := g.AddDevice(d); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	updates := 0
	g.OnDeviceUpdate(func(*inode.Device, inode.Diff) { updates++ })

	src := &fakeSource{name: "test"}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("second AddConnection: %v", err)
	}

	g.RemoveConnection(src)
	if src.attached() {
		t.Error("handler still attached after RemoveConnection")
	}
	g.RemoveConnection(src) // idempotent

	src.emit(hciFrame(t, "D0:F0:18:00:00:01", sensorMSD(inode.ModelCareSensorT, 2134)))
	if updates != 0 {
		t.Fatalf("updates after remove = %d, want 0", updates)
	}
}

func TestClose_DetachesConnections(t *testing.T) {
	g := New(testTimeout)
	src := &fakeSource{name: "test"}
	if err := g.AddConnection(src); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	g.Close()
	if src.attached() {
		t.Error("handler still attached after Close")
	}
	if err := g.AddConnection(&fakeSource{name: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("AddConnection after Close: err = %v, want ErrClosed", err)
	}
}
