// Package domain contains the core domain entities for buslog.
//
// This package represents the innermost layer of the architecture. It has
// no dependencies on infrastructure concerns (file system, logging, metrics)
// and contains only the data shapes and invariants of the capture pipeline.
//
// # Entities
//
//   - [Frame]: One captured CAN bus frame (arbitration ID, flags, payload,
//     hardware timestamp) with its fixed 16-byte wire encoding
//   - [Block]: A fixed-size batch of frames; the atomic unit of storage I/O
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after capture (frames) or cycled without reallocation (blocks)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
