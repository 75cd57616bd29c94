// Package mqtt provides the node's MQTT client connection.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and exponential backoff
//   - Publishing with QoS guarantees and message id reporting
//   - Subscriptions that survive reconnects
//   - Last Will and Testament on the node status topic
//
// # Topics
//
// Every topic of a node lives under {prefix}/{node_id}:
//
//	node/switchnode-001/config         retained node configuration
//	node/switchnode-001/params/local   parameter reports from the node
//	node/switchnode-001/params/remote  parameter writes to the node
//	node/switchnode-001/status         retained online/offline (LWT)
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) for any broker off the local host
//   - Credentials should come from SWITCHNODE_MQTT_USERNAME/PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().ParamsRemote(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
package mqtt
