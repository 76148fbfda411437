// Package decode interprets the periodic status frames broadcast by
// CTRE devices on an FRC robot CAN bus: Talon SRX and Victor SPX motor
// controllers and the Power Distribution Panel.
//
// Decoders take the payload as a little-endian uint64, the form
// returned by capture.Frame.Uint64. Use Split to classify an
// arbitration ID, or the top-level Decode to go straight from a frame
// to named signals.
package decode
