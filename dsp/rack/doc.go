// Package rack defines the per-sample contract between a modular host and
// the modules in its subpackages.
//
// The host owns every port and control value. Each tick it fills a module's
// input struct, calls Process exactly once with the tick's ProcessArgs, and
// reads the output struct back. Modules never block, allocate or log inside
// Process, and they are not safe for concurrent use: the host must not
// serialize a module while it is processing.
//
// Subpackages:
//   - mute: dual-channel mute gate with linear fade-in and fade-out ramps.
//   - matrix: 4x4 routing matrix mixer with row/column mute toggles.
package rack
