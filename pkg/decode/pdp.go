package decode

// currentResolution is the PDP current sensing resolution in amperes
// per bit.
const currentResolution = 0.125

// PDPCurrents holds six decoded channel currents in amperes. Status 1
// carries channels 0-5 and status 2 carries channels 6-11 in the same
// layout.
type PDPCurrents struct {
	Currents [6]float64
}

// DecodePDPCurrents decodes a PDP status 1 or status 2 payload given as
// the little-endian uint64 view of the 8 data bytes. Each channel is a
// 10-bit value packed across byte boundaries.
func DecodePDPCurrents(data uint64) PDPCurrents {
	b := payloadBytes(data)
	raw := [6]uint64{
		uint64(b[0])<<2 | uint64(b[1])>>6,
		uint64(b[1]&0x3F)<<4 | uint64(b[2])>>4,
		uint64(b[2]&0x0F)<<6 | uint64(b[3])>>2,
		uint64(b[3]&0x03)<<8 | uint64(b[4]),
		uint64(b[5])<<2 | uint64(b[6])>>6,
		uint64(b[6]&0x3F)<<4 | uint64(b[7])>>4,
	}
	var s PDPCurrents
	for i, r := range raw {
		s.Currents[i] = float64(r) * currentResolution
	}
	return s
}

// PDPStatus3 is the decoded PDP status 3 frame: the last four channel
// currents and the bus voltage.
type PDPStatus3 struct {
	// Currents holds channels 12-15 in amperes.
	Currents [4]float64

	// Voltage is the measured bus voltage in volts.
	Voltage float64
}

// DecodePDPStatus3 decodes a PDP status 3 payload given as the
// little-endian uint64 view of the 8 data bytes.
func DecodePDPStatus3(data uint64) PDPStatus3 {
	b := payloadBytes(data)
	raw := [4]uint64{
		uint64(b[0])<<2 | uint64(b[1])>>6,
		uint64(b[1]&0x3F)<<4 | uint64(b[2])>>4,
		uint64(b[2]&0x0F)<<6 | uint64(b[3])>>2,
		uint64(b[3]&0x03)<<8 | uint64(b[4]),
	}
	var s PDPStatus3
	for i, r := range raw {
		s.Currents[i] = float64(r) * currentResolution
	}
	// Voltage is reported at 0.05 V per bit above a 4 V floor.
	s.Voltage = float64(b[6])*0.05 + 4
	return s
}
