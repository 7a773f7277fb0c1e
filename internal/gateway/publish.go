package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/influxdb"
	"github.com/emberwatt/ember-gateway/internal/infrastructure/mqtt"
	"github.com/emberwatt/ember-gateway/internal/listener"
)

// MQTTPublisher publishes decoded readings on the per-node rx topics.
type MQTTPublisher struct {
	client *mqtt.Client
}

// NewMQTTPublisher wraps an MQTT client as a reading publisher.
func NewMQTTPublisher(client *mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// PublishReading sends a reading to emberwatt/rx/<node> as JSON.
func (p *MQTTPublisher) PublishReading(source string, r *listener.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding reading from %s: %w", source, err)
	}
	return p.client.PublishJSON(mqtt.Topics{}.NodeRX(r.Node), payload)
}

// InfluxRecorder records numeric reading values as node_values points.
// Values that carry no number (nulls, unparseable sensor text) are
// skipped; slots are numbered from 1 to match sender firmware convention.
type InfluxRecorder struct {
	client *influxdb.Client
}

// NewInfluxRecorder wraps an InfluxDB client as a reading recorder.
func NewInfluxRecorder(client *influxdb.Client) *InfluxRecorder {
	return &InfluxRecorder{client: client}
}

// RecordReading queues one point per numeric value. Writes are batched
// and asynchronous inside the InfluxDB client, so this never blocks the
// main loop.
func (rec *InfluxRecorder) RecordReading(source string, r *listener.Reading) {
	for i, v := range r.Values {
		f, ok := v.Float()
		if !ok {
			continue
		}
		rec.client.WriteNodeValue(r.Node, i+1, f)
	}
}
