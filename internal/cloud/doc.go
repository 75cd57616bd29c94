// Package cloud links the node to its cloud control plane over MQTT.
//
// The Agent publishes the node configuration as a retained message,
// reports every applied parameter value on params/local and applies
// writes received on params/remote with SourceCloud. Both params topics
// carry the same JSON shape:
//
//	{"Switch": {"Power": true}}
//
// Connection changes and acknowledged reports are raised on the event bus
// as connectivity events (connected, disconnected, published).
//
//	agent, err := cloud.NewAgent(cloud.Options{
//	    Client:     mqttClient,
//	    Dispatcher: dispatcher,
//	    Events:     bus,
//	})
//	if err != nil {
//	    return err
//	}
//	defer agent.Stop()
//	return agent.Start(ctx)
package cloud
