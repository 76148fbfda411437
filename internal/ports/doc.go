// Package ports defines the interfaces (ports) that connect the capture
// pipeline to infrastructure adapters.
//
// Ports are the boundaries between the application core and the outside
// world. They define what the pipeline needs from external systems without
// specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [FrameSource]: Delivers captured CAN frames in capture order
//   - [BlockSink]: Accepts exactly-one-block storage writes
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (file system, synthetic generator, zerolog, etc.).
//
// This separation enables:
//   - Testing pipeline logic with mock implementations
//   - Swapping infrastructure without changing the core
//   - Clear boundaries and dependency direction
package ports
