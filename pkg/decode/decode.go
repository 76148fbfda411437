package decode

import "fmt"

// Signal is one named value extracted from a status frame. Boolean
// signals are reported as 0 or 1.
type Signal struct {
	Name  string
	Value float64
}

// Decode decodes a frame into named signals when the arbitration ID
// matches a known CTRE periodic status frame. The payload is given as
// the little-endian uint64 view of the 8 data bytes. The source string
// identifies the device, e.g. "talon-1" or "pdp-0". ok is false for
// frames this package does not understand.
func Decode(id uint32, data uint64) (source string, signals []Signal, ok bool) {
	a := Split(id)
	name := a.DeviceName()
	if name == "" {
		return "", nil, false
	}
	source = fmt.Sprintf("%s-%d", name, a.DeviceID)

	switch {
	case a.DeviceType == DevicePDP && a.FrameType == FrameStatus1:
		s := DecodePDPCurrents(data)
		for i, c := range s.Currents {
			signals = append(signals, Signal{Name: fmt.Sprintf("current_%d", i), Value: c})
		}
	case a.DeviceType == DevicePDP && a.FrameType == FrameStatus2:
		s := DecodePDPCurrents(data)
		for i, c := range s.Currents {
			signals = append(signals, Signal{Name: fmt.Sprintf("current_%d", i+6), Value: c})
		}
	case a.DeviceType == DevicePDP && a.FrameType == FrameStatus3:
		s := DecodePDPStatus3(data)
		for i, c := range s.Currents {
			signals = append(signals, Signal{Name: fmt.Sprintf("current_%d", i+12), Value: c})
		}
		signals = append(signals, Signal{Name: "voltage", Value: s.Voltage})
	case a.FrameType == FrameStatus1:
		s := DecodeTalonStatus1(data)
		signals = []Signal{
			{Name: "motor_output", Value: s.MotorOutput},
			{Name: "forward_limit_closed", Value: boolSignal(s.ForwardLimitClosed)},
			{Name: "reverse_limit_closed", Value: boolSignal(s.ReverseLimitClosed)},
			{Name: "fault_hardware", Value: boolSignal(s.HardwareFailure)},
			{Name: "fault_under_voltage", Value: boolSignal(s.UnderVoltage)},
			{Name: "fault_reset_during_enable", Value: boolSignal(s.ResetDuringEnable)},
		}
	case a.FrameType == FrameStatus2:
		s := DecodeTalonStatus2(data)
		signals = []Signal{
			{Name: "sensor_position", Value: float64(s.SensorPosition)},
			{Name: "sensor_velocity", Value: float64(s.SensorVelocity)},
			{Name: "output_current", Value: s.OutputCurrent},
		}
	default:
		return "", nil, false
	}
	return source, signals, true
}

func boolSignal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
