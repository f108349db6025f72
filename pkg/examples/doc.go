// Package examples provides reference firmware for the simulated master.
//
// The examples show:
//   - Implementing radio.Firmware (packet production and ack handling)
//   - Tracking per-cube state through master.VideoSlot
//   - Supplying a firmware main loop (master.Runner) and background work
//     (master.TaskRunner)
//
// Available examples:
//   - VRAMSync: mirrors a video buffer per cube into the cubes' VRAM
//   - PatternTask: writes a deterministic stream of VRAM changes
//   - Game: a fixed-length main loop driving tasks and the radio
//
// cmd/cubesim wires these together into a runnable simulation.
package examples
