// Package mqtt provides MQTT client connectivity for BarVision Core.
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
// BarVision uses MQTT as the venue's event bus: the core publishes
// schedule execution and preset usage events, and collaborators (wall
// panels, signage controllers, alerting relays) subscribe without
// coupling to the core's HTTP surface.
//
//	BarVision Core → MQTT Broker → Venue collaborators
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
//	// Subscribe to all schedule events
//	err = client.Subscribe(mqtt.Topics{}.AllScheduleEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish an event
//	topic := mqtt.Topics{}.ScheduleFired("sched-morning-open")
//	client.Publish(topic, []byte(`{"trigger":"tick"}`), 1, false)
package mqtt
