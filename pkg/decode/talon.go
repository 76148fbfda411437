package decode

// TalonStatus1 is the decoded periodic status 1 frame of a Talon SRX or
// Victor SPX motor controller: live faults, limit switch states and the
// applied motor output.
type TalonStatus1 struct {
	HardwareFailure    bool
	ReverseLimitSwitch bool
	ForwardLimitSwitch bool
	UnderVoltage       bool
	ResetDuringEnable  bool
	SensorOutOfPhase   bool
	SensorOverflow     bool
	ReverseSoftLimit   bool
	ForwardSoftLimit   bool
	HardwareESDReset   bool
	RemoteLossOfSignal bool

	// ForwardLimitClosed and ReverseLimitClosed report the raw limit
	// switch pin states.
	ForwardLimitClosed bool
	ReverseLimitClosed bool

	// MotorOutput is the applied output in [-1, 1].
	MotorOutput float64
}

// DecodeTalonStatus1 decodes a status 1 payload. The payload is given
// as the little-endian uint64 view of the 8 data bytes, matching
// capture.Frame.Uint64 and domain.Frame.Data.
func DecodeTalonStatus1(data uint64) TalonStatus1 {
	s := TalonStatus1{
		HardwareFailure:    bit(data, 0),
		ReverseLimitSwitch: bit(data, 1),
		ForwardLimitSwitch: bit(data, 2),
		UnderVoltage:       bit(data, 3),
		ResetDuringEnable:  bit(data, 4),
		SensorOutOfPhase:   bit(data, 5),
		SensorOverflow:     bit(data, 6),
		ReverseSoftLimit:   bit(data, 24),
		ForwardSoftLimit:   bit(data, 25),
		HardwareESDReset:   bit(data, 26),
		RemoteLossOfSignal: bit(data, 52),
		ReverseLimitClosed: bit(data, 30),
		ForwardLimitClosed: bit(data, 31),
	}

	// The applied output is an 11-bit signed value split across two
	// bytes: the high 3 bits sit in byte 3, the low 8 bits in byte 4.
	h := (data >> 24) & 0x07
	l := (data >> 32) & 0xFF
	s.MotorOutput = float64(signExtend(h<<8|l, 11)) / 1023.0
	return s
}

// TalonStatus2 is the decoded periodic status 2 frame: the selected
// sensor readings, output current and sticky faults.
type TalonStatus2 struct {
	// SensorPosition is the selected sensor position in native units.
	SensorPosition int32

	// SensorVelocity is the selected sensor velocity in native units
	// per 100 ms.
	SensorVelocity int32

	// OutputCurrent is the measured output current in amperes.
	OutputCurrent float64

	StickyReverseSoftLimit   bool
	StickyForwardSoftLimit   bool
	StickyReverseLimitSwitch bool
	StickyForwardLimitSwitch bool
	StickyUnderVoltage       bool
	StickyRemoteLossOfSignal bool
	StickyHardwareESDReset   bool
	StickyResetDuringEnable  bool
	StickySensorOutOfPhase   bool
	StickySensorOverflow     bool
}

// DecodeTalonStatus2 decodes a status 2 payload given as the
// little-endian uint64 view of the 8 data bytes.
func DecodeTalonStatus2(data uint64) TalonStatus2 {
	b := payloadBytes(data)

	s := TalonStatus2{
		StickyReverseSoftLimit:   bit(data, 48),
		StickyForwardSoftLimit:   bit(data, 49),
		StickyReverseLimitSwitch: bit(data, 50),
		StickyForwardLimitSwitch: bit(data, 51),
		StickyUnderVoltage:       bit(data, 52),
		StickyRemoteLossOfSignal: bit(data, 56),
		StickyHardwareESDReset:   bit(data, 57),
		StickyResetDuringEnable:  bit(data, 58),
		StickySensorOutOfPhase:   bit(data, 61),
		StickySensorOverflow:     bit(data, 62),
	}

	// Position is big-endian 24-bit, velocity big-endian 16-bit, both
	// signed. Bits 60 and 59 select a x8 and x4 range multiplier.
	pos := signExtend(uint64(b[0])<<16|uint64(b[1])<<8|uint64(b[2]), 24)
	if bit(data, 60) {
		pos *= 8
	}
	s.SensorPosition = int32(pos)

	vel := signExtend(uint64(b[3])<<8|uint64(b[4]), 16)
	if bit(data, 59) {
		vel *= 4
	}
	s.SensorVelocity = int32(vel)

	// Current is a 10-bit value at 0.125 A per bit straddling bytes 5
	// and 6.
	raw := (uint64(b[5])<<8 | uint64(b[6]&0xC0)) >> 6
	s.OutputCurrent = float64(raw) * 0.125
	return s
}

func bit(data uint64, n uint) bool {
	return data>>n&1 == 1
}

// signExtend interprets the low width bits of v as a signed value.
func signExtend(v uint64, width uint) int64 {
	shift := 64 - width
	return int64(v<<shift) >> shift
}

// payloadBytes returns the 8 data bytes in wire order from their
// little-endian uint64 view.
func payloadBytes(data uint64) [8]byte {
	var b [8]byte
	for i := range b {
		b[i] = byte(data >> (8 * i))
	}
	return b
}
