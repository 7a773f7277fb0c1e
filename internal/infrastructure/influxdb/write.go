package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteNodeValue records one value from a node reading.
//
// This is the primary method for recording telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - node: The node ID the reading came from
//   - slot: The value's position within the reading, numbered from 1
//   - value: The numeric value
//
// Example:
//
//	// Reading [250, -3] from node 10:
//	client.WriteNodeValue(10, 1, 250)
//	client.WriteNodeValue(10, 2, -3)
func (c *Client) WriteNodeValue(node int, slot int, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"node_values",
		map[string]string{
			"node": strconv.Itoa(node),
			"slot": strconv.Itoa(slot),
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteListenerEvent records a per-listener counter event, e.g. a decoded
// frame or a discarded malformed frame. Useful for spotting a noisy radio
// link from a dashboard.
//
// Parameters:
//   - listener: The listener name from configuration
//   - event: The event kind (e.g. "reading", "malformed")
func (c *Client) WriteListenerEvent(listener string, event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"listener_events",
		map[string]string{
			"listener": listener,
			"event":    event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
