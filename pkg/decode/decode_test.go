package decode

import (
	"math"
	"testing"
)

// le packs 8 wire-order payload bytes into their little-endian uint64
// view, the form the decoders consume.
func le(b [8]byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		id   uint32
		want ArbID
		dev  string
	}{
		{"talon status1", 0x02041401, ArbID{DeviceType: 0x0204, FrameType: 0x1400, DeviceID: 1}, "talon"},
		{"talon status2", 0x02041462, ArbID{DeviceType: 0x0204, FrameType: 0x1440, DeviceID: 34}, "talon"},
		{"victor status1", 0x01041403, ArbID{DeviceType: 0x0104, FrameType: 0x1400, DeviceID: 3}, "victor"},
		{"pdp status3", 0x08041480, ArbID{DeviceType: 0x0804, FrameType: 0x1480, DeviceID: 0}, "pdp"},
		{"standard id", 0x00000123, ArbID{DeviceType: 0, FrameType: 0x0100, DeviceID: 0x23}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.id)
			if got != tt.want {
				t.Errorf("Split(%#x) = %+v, want %+v", tt.id, got, tt.want)
			}
			if got.ID() != tt.id {
				t.Errorf("ID() = %#x, want %#x", got.ID(), tt.id)
			}
			if got.DeviceName() != tt.dev {
				t.Errorf("DeviceName() = %q, want %q", got.DeviceName(), tt.dev)
			}
		})
	}
}

func TestDecodeTalonStatus1MotorOutput(t *testing.T) {
	tests := []struct {
		name string
		b    [8]byte
		want float64
	}{
		{"zero", [8]byte{}, 0},
		{"full forward", [8]byte{0, 0, 0, 0x03, 0xFF, 0, 0, 0}, 1},
		{"full reverse", [8]byte{0, 0, 0, 0x04, 0x01, 0, 0, 0}, -1},
		{"half forward", [8]byte{0, 0, 0, 0x01, 0xFF, 0, 0, 0}, 511.0 / 1023.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeTalonStatus1(le(tt.b)).MotorOutput
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MotorOutput = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeTalonStatus1Faults(t *testing.T) {
	s := DecodeTalonStatus1(le([8]byte{0x09, 0, 0, 0, 0, 0, 0, 0}))
	if !s.HardwareFailure || !s.UnderVoltage {
		t.Errorf("expected hardware failure and under voltage faults, got %+v", s)
	}
	if s.ReverseLimitSwitch || s.ForwardLimitSwitch || s.SensorOverflow {
		t.Errorf("unexpected faults set: %+v", s)
	}

	s = DecodeTalonStatus1(le([8]byte{0, 0, 0, 0xC0, 0, 0, 0x10, 0}))
	if !s.ForwardLimitClosed || !s.ReverseLimitClosed {
		t.Errorf("expected both limit switches closed, got %+v", s)
	}
	if !s.RemoteLossOfSignal {
		t.Errorf("expected remote loss of signal, got %+v", s)
	}
}

func TestDecodeTalonStatus2(t *testing.T) {
	// Position 0x000102, velocity -2, current raw 74.
	b := [8]byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0x12, 0x80, 0x00}
	s := DecodeTalonStatus2(le(b))
	if s.SensorPosition != 258 {
		t.Errorf("SensorPosition = %d, want 258", s.SensorPosition)
	}
	if s.SensorVelocity != -2 {
		t.Errorf("SensorVelocity = %d, want -2", s.SensorVelocity)
	}
	if s.OutputCurrent != 9.25 {
		t.Errorf("OutputCurrent = %v, want 9.25", s.OutputCurrent)
	}
}

func TestDecodeTalonStatus2Negative(t *testing.T) {
	b := [8]byte{0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00}
	if got := DecodeTalonStatus2(le(b)).SensorPosition; got != -1 {
		t.Errorf("SensorPosition = %d, want -1", got)
	}
}

func TestDecodeTalonStatus2RangeMultipliers(t *testing.T) {
	b := [8]byte{0x00, 0x00, 0x10, 0x00, 0x02, 0x00, 0x00, 0x00}
	data := le(b) | 1<<60 | 1<<59
	s := DecodeTalonStatus2(data)
	if s.SensorPosition != 16*8 {
		t.Errorf("SensorPosition = %d, want %d", s.SensorPosition, 16*8)
	}
	if s.SensorVelocity != 2*4 {
		t.Errorf("SensorVelocity = %d, want %d", s.SensorVelocity, 2*4)
	}
}

func TestDecodeTalonStatus2StickyFaults(t *testing.T) {
	data := uint64(1)<<48 | uint64(1)<<52 | uint64(1)<<62
	s := DecodeTalonStatus2(data)
	if !s.StickyReverseSoftLimit || !s.StickyUnderVoltage || !s.StickySensorOverflow {
		t.Errorf("expected sticky faults set, got %+v", s)
	}
	if s.StickyForwardSoftLimit || s.StickyHardwareESDReset {
		t.Errorf("unexpected sticky faults: %+v", s)
	}
}

func TestDecodePDPCurrents(t *testing.T) {
	b := [8]byte{0x04, 0x01, 0x00, 0x20, 0x05, 0x08, 0x42, 0x30}
	want := [6]float64{2.0, 2.0, 1.0, 0.625, 4.125, 4.375}
	got := DecodePDPCurrents(le(b))
	for i := range want {
		if got.Currents[i] != want[i] {
			t.Errorf("channel %d = %v, want %v", i, got.Currents[i], want[i])
		}
	}
}

func TestDecodePDPStatus3(t *testing.T) {
	b := [8]byte{0x04, 0x01, 0x00, 0x20, 0x05, 0x00, 0xA0, 0x00}
	s := DecodePDPStatus3(le(b))
	want := [4]float64{2.0, 2.0, 1.0, 0.625}
	for i := range want {
		if s.Currents[i] != want[i] {
			t.Errorf("channel %d = %v, want %v", i, s.Currents[i], want[i])
		}
	}
	if s.Voltage != 12.0 {
		t.Errorf("Voltage = %v, want 12.0", s.Voltage)
	}
}

func TestDecode(t *testing.T) {
	t.Run("talon status1", func(t *testing.T) {
		data := le([8]byte{0, 0, 0, 0x03, 0xFF, 0, 0, 0})
		source, signals, ok := Decode(0x02041401, data)
		if !ok {
			t.Fatal("Decode returned !ok")
		}
		if source != "talon-1" {
			t.Errorf("source = %q, want %q", source, "talon-1")
		}
		if signals[0].Name != "motor_output" || signals[0].Value != 1 {
			t.Errorf("signals[0] = %+v", signals[0])
		}
	})

	t.Run("pdp status3", func(t *testing.T) {
		data := le([8]byte{0, 0, 0, 0, 0, 0, 0xA0, 0})
		source, signals, ok := Decode(0x08041480, data)
		if !ok {
			t.Fatal("Decode returned !ok")
		}
		if source != "pdp-0" {
			t.Errorf("source = %q, want %q", source, "pdp-0")
		}
		last := signals[len(signals)-1]
		if last.Name != "voltage" || last.Value != 12.0 {
			t.Errorf("voltage signal = %+v", last)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		if _, _, ok := Decode(0x123, 0); ok {
			t.Error("expected !ok for unknown arbitration ID")
		}
	})
}
