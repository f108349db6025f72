// Package simclock implements the simulated master clock.
//
// The master controller counts time in ticks of a 16 MHz oscillator. Ticks
// only ever move forward, and only the radio driver advances them: one fixed
// quantum per radio transaction attempt.
//
// # Fixed-Point Conversion
//
// One tick is 62.5 ns, which divides evenly once scaled by 16. Conversion to
// elapsed time therefore multiplies by the nanosecond length of 16 ticks and
// shifts right by 4, all in 64-bit integer math. No floating point is used,
// so elapsed times are identical on every platform.
//
// A 64-bit tick count overflows the multiplication only after decades of
// simulated time.
package simclock
