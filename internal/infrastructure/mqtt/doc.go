// Package mqtt provides MQTT client connectivity for the emberwatt gateway.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Reading publication with QoS guarantees
//   - Listener config subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the gateway's upstream surface. Every decoded reading goes out
// on emberwatt/rx/{node}; listener settings come back in on
// emberwatt/config/{listener} and are fed to the listener's Set().
//
//	listeners → gateway loop → MQTT broker → storage / dashboards
//
// # Security Considerations
//
//   - TLS is recommended off-host (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Accept listener settings pushed over the bus
//	err = client.Subscribe(mqtt.Topics{}.AllListenerConfigs(), 1,
//	    func(topic string, payload []byte) error {
//	        name, _ := mqtt.ListenerFromConfigTopic(topic)
//	        return applySettings(name, payload)
//	    })
//
//	// Publish a decoded reading
//	client.PublishJSON(mqtt.Topics{}.NodeRX(10), payload)
package mqtt
