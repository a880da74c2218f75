// Package mqtt provides MQTT client connectivity for Region Core.
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
// Region Core publishes change notifications to MQTT so external consumers
// (dashboards, downstream caches, other services) can react to region data
// changes without polling:
//
//	Region Core → MQTT Broker → External subscribers
//
// Change notifications mirror the in-process bus: one message per committed
// mutation, published to regioncore/changed/{resource_path}. Delivery is
// fire-and-forget; a slow or absent broker never blocks a transaction.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all change notifications
//	err = client.Subscribe(mqtt.Topics{}.AllChanged(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("changed: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a change notification
//	topic := mqtt.Topics{}.Changed("regions/42")
//	client.Publish(topic, payload, 1, false)
package mqtt
