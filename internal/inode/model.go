package inode

// Model identifies an iNode device family member. The value is the model
// code carried in the second byte of the manufacturer-specific payload and
// exposed verbatim in the model register.
type Model uint16

// Known iNode models.
const (
	// ModelUnknown means the device has never been observed.
	ModelUnknown Model = 0x00

	ModelEnergyMeter Model = 0x82
	ModelCareRelay   Model = 0x89

	ModelCareSensor1   Model = 0x91
	ModelCareSensor2   Model = 0x92
	ModelCareSensor3   Model = 0x93
	ModelCareSensor4   Model = 0x94
	ModelCareSensor5   Model = 0x95
	ModelCareSensor6   Model = 0x96
	ModelCareSensorT   Model = 0x97
	ModelCareSensorHT  Model = 0x98
	ModelCareSensorPT  Model = 0x99
	ModelCareSensorPHT Model = 0x9A
)

// Family groups models that share a register extension layout.
type Family uint8

const (
	FamilyNone Family = iota
	FamilyRelay
	FamilyMeter
	FamilySensor
)

// modelNames maps models to their marketing names for logs and the API.
var modelNames = map[Model]string{
	ModelUnknown:       "unknown",
	ModelEnergyMeter:   "iNode Energy Meter",
	ModelCareRelay:     "iNode Care Relay",
	ModelCareSensor1:   "iNode Care Sensor #1",
	ModelCareSensor2:   "iNode Care Sensor #2",
	ModelCareSensor3:   "iNode Care Sensor #3",
	ModelCareSensor4:   "iNode Care Sensor #4",
	ModelCareSensor5:   "iNode Care Sensor #5",
	ModelCareSensor6:   "iNode Care Sensor #6",
	ModelCareSensorT:   "iNode Care Sensor T",
	ModelCareSensorHT:  "iNode Care Sensor HT",
	ModelCareSensorPT:  "iNode Care Sensor PT",
	ModelCareSensorPHT: "iNode Care Sensor PHT",
}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether m is a recognized iNode model.
func (m Model) Valid() bool {
	_, ok := modelNames[m]
	return ok && m != ModelUnknown
}

// Family returns the register-layout family of the model.
func (m Model) Family() Family {
	switch m {
	case ModelCareRelay:
		return FamilyRelay
	case ModelEnergyMeter:
		return FamilyMeter
	case ModelCareSensor1, ModelCareSensor2, ModelCareSensor3,
		ModelCareSensor4, ModelCareSensor5, ModelCareSensor6,
		ModelCareSensorT, ModelCareSensorHT, ModelCareSensorPT,
		ModelCareSensorPHT:
		return FamilySensor
	default:
		return FamilyNone
	}
}

// capabilities describes which sensor readings a model actually delivers.
// Fields outside a model's capabilities stay absent and render as the
// sentinel value.
type capabilities struct {
	temperature bool
	humidity    bool
	magnetic    bool
	pressure    bool
	position    bool
}

var modelCapabilities = map[Model]capabilities{
	ModelCareSensor1:   {temperature: true, position: true},
	ModelCareSensor2:   {temperature: true, humidity: true, position: true},
	ModelCareSensor3:   {temperature: true, pressure: true, position: true},
	ModelCareSensor4:   {temperature: true, humidity: true, position: true},
	ModelCareSensor5:   {temperature: true, magnetic: true, position: true},
	ModelCareSensor6:   {temperature: true, position: true},
	ModelCareSensorT:   {temperature: true},
	ModelCareSensorHT:  {temperature: true, humidity: true},
	ModelCareSensorPT:  {temperature: true, pressure: true},
	ModelCareSensorPHT: {temperature: true, humidity: true, pressure: true},
}

func (m Model) caps() capabilities {
	return modelCapabilities[m]
}
