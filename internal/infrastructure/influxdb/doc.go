// Package influxdb provides optional time-series recording of node
// telemetry for the emberwatt gateway.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched writes of node values
//   - Async error reporting via callback
//   - Connection health monitoring
//
// The recorder is strictly a side channel: the gateway loop never waits on
// it, and a down InfluxDB costs nothing but the history.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	defer client.Close()
//
//	client.WriteNodeValue(10, 0, 250)
package influxdb
