// Package gateway drives the listener sources and moves decoded readings
// upstream.
//
// The gateway owns the main loop: on every tick it gives each source a
// Run() slot for background duties (time broadcasts, socket relays),
// then polls Read() for a decoded frame and hands any reading to the
// publisher and optional recorder. Settings arriving over MQTT are
// dispatched to the named source via Apply and persisted so they can be
// replayed on the next start.
//
// All source access is serialised: the tick loop and Apply share a
// mutex, so sources never see concurrent calls.
package gateway
