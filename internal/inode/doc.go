// Package inode implements the register model for iNode BLE devices.
//
// Each Device tracks the decoded state of one physical sensor or actuator
// and renders it into a fixed MODBUS holding-register image:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                           Device                             │
//	│                                                              │
//	│  ┌────────────┐   ┌─────────────┐   ┌──────────────────┐     │
//	│  │ Telemetry  │   │    State    │   │  registerBuffer  │     │
//	│  │ (decode)   │──▶│  + Compare  │──▶│  (render, BE)    │     │
//	│  └────────────┘   └─────────────┘   └──────────────────┘     │
//	│        ▲                 │                    │              │
//	└────────│─────────────────│────────────────────│──────────────┘
//	         │                 │                    │
//	   MSD payload        Diff bitset        MODBUS FC3 reads
//
// # Register image
//
// Every model shares a 16-register header (MAC, local name, model code,
// RSSI, TX power, RTTO, alarm bitset) followed by a model-specific
// extension. The image is big-endian throughout; missing numeric fields
// hold the 0x00FF sentinel, flag and group registers default to zero.
// The buffer exists only once a model has been observed; a model change
// swaps in a freshly sized buffer and rewrites every field.
//
// # Change detection
//
// Applying an advertising report never mutates state in place. A candidate
// state is built from the report, Compare produces an explicit Diff, the
// renderer rewrites exactly the changed registers, and only then is the
// candidate absorbed. Composite fields (sensor flags, position) are
// compared shallowly and replaced whole.
//
// Devices are not safe for concurrent use; the gateway serializes all
// access to a device.
package inode
