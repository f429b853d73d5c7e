// Package mqtt provides MQTT client connectivity for the gateway.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The gateway publishes decoded device state as a side channel next to
// the MODBUS register map, so dashboards and home automation systems can
// follow the sensors without polling registers.
//
//	iNode devices ─▶ gateway ─▶ MQTT Broker ─▶ subscribers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DeviceState("D0:F0:18:00:00:01")
//	client.PublishRetained(topic, []byte(`{"temperature":21.34}`))
package mqtt
