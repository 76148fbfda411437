package decode

// CTRE device type codes, the upper 16 bits of an extended CAN
// arbitration ID on an FRC bus.
const (
	DeviceVictorSPX uint32 = 0x0104
	DeviceTalonSRX  uint32 = 0x0204
	DevicePDP       uint32 = 0x0804
)

// Periodic status frame type codes, the lower 16 bits of the
// arbitration ID with the device number masked off.
const (
	FrameStatus1 uint32 = 0x1400
	FrameStatus2 uint32 = 0x1440
	FrameStatus3 uint32 = 0x1480
)

// ArbID is a CTRE arbitration ID split into its fields.
type ArbID struct {
	DeviceType uint32
	FrameType  uint32
	DeviceID   uint8
}

// Split decomposes a 29-bit extended arbitration ID. CTRE devices pack
// the device type in the upper 16 bits, the frame type in the lower 16
// and the device number in the bottom 6 bits of the frame type field.
func Split(id uint32) ArbID {
	return ArbID{
		DeviceType: id >> 16,
		FrameType:  id & 0xFFC0 & 0xFFFF,
		DeviceID:   uint8(id & 0x3F),
	}
}

// ID reassembles the arbitration ID.
func (a ArbID) ID() uint32 {
	return a.DeviceType<<16 | a.FrameType | uint32(a.DeviceID)
}

// DeviceName returns a short name for the device type, or "" when the
// type is not a known CTRE device.
func (a ArbID) DeviceName() string {
	switch a.DeviceType {
	case DeviceTalonSRX:
		return "talon"
	case DeviceVictorSPX:
		return "victor"
	case DevicePDP:
		return "pdp"
	}
	return ""
}
