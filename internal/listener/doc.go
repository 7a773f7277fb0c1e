// Package listener implements the gateway's telemetry sources.
//
// A listener watches one physical or logical data source — a radio-to-serial
// bridge, a raw serial line, a TCP socket, or a filesystem-exposed sensor
// bus — and turns whatever arrives into Readings: a node identifier plus its
// values. The gateway loop polls every listener once per tick; no listener
// call may block the loop, with one documented exception (the radio bridge's
// pacing delay between configuration writes, see RadioBridge.Set).
//
// # Sources
//
//   - Serial: plain space-separated integer frames from a serial device
//   - RadioBridge: paired-byte frames from the radio bridge, plus the
//     reverse path (radio settings, periodic time broadcast)
//   - Socket: plain frames from one-shot TCP connections
//   - SensorBus: interval-gated polling of a 1-Wire filesystem bus
//   - Repeater: a RadioBridge that additionally relays socket frames out
//     over the serial link verbatim
//
// Stream sources share the same framing rule: bytes accumulate in a receive
// buffer across ticks until a CRLF terminator appears, then exactly the
// first complete frame is decoded and the remainder is kept for the next
// tick.
//
// # Error model
//
// Construction failures (bad device, port, path, node, resolution) wrap
// ErrInit and make the listener unusable. Runtime trouble — malformed
// frames, unreadable sensors, socket hiccups — is logged and the call
// returns nothing; the next tick proceeds normally.
package listener
