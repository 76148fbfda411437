// Package capture reads capture files produced by the buslog pipeline.
//
// A capture file is a flat sequence of fixed-size 16-byte frame records
// with no header or framing, written in whole blocks. The hardware
// timestamp in each record is only 16 bits wide and rolls over roughly
// every 65 ms; the Reader reconstructs a monotonic clock across
// rollovers so callers see time as a plain time.Duration from the start
// of the capture.
package capture
