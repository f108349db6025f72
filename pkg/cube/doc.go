// Package cube provides a simulated peripheral for the master's radio.
//
// A Cube owns a radio receive address and a 1 KiB video memory. It runs on
// its own goroutine as a cubesync participant, advancing its local clock
// (and its display frame counter) up to the deadline the master publishes
// and parking there. While parked inside a rendezvous window the master
// delivers packets to it through HandlePacket.
//
// Packets carry VRAM word writes, four bytes each:
//
//	index lo | index hi | value lo | value hi
//
// VideoBuffer is the master-side mirror used by firmware to track which
// words still need to be sent.
package cube
