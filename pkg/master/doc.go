// Package master simulates the master controller of the cube system.
//
// A Master owns the master clock and runs the firmware on a dedicated
// goroutine. Whenever the firmware idles it performs one radio transaction:
//
//  1. Produce: the firmware fills in a packet and its destination.
//  2. Deliver: the clock advances one packet period and a rendezvous window
//     is opened at the new time.
//  3. Resolve: inside the window the destination is matched against every
//     cube's packed receive address and the matching cube handles the
//     packet. Afterwards the cubes may run up to the next transmit slot.
//  4. Retry: without an ack the attempt repeats, up to MaxRetries times,
//     resolving the destination again each time.
//  5. Report: the firmware gets exactly one of AckWithPacket, AckEmpty or
//     Timeout.
//
// Stop cancels the goroutine's context. Every blocking point observes it,
// so the goroutine unwinds through ordinary returns.
//
// InstallImage stops the master, rewrites flash from a file and restarts
// it. CheckQuiescentVRAM verifies a video buffer against its cube.
package master
