package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1", // nothing listens here
		Token:   "test",
		Org:     "emberwatt",
		Bucket:  "energy",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{}

	if c.IsConnected() {
		t.Error("zero client reports connected")
	}

	// Writes on a disconnected client are silently dropped.
	c.WriteNodeValue(10, 1, 250)
	c.WriteListenerEvent("radio", "reading")

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}
