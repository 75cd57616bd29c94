// Package event delivers node lifecycle events (agent, connectivity,
// provisioning, OTA and system) from producers to application handlers.
//
// Handlers subscribe to a whole category or to a single (category, id)
// pair at startup. The Bus then delivers each published event
// synchronously, in subscription order. Unknown pairs are logged and
// dropped.
//
//	bus := event.NewBus()
//	bus.SetLogger(log)
//	for _, cat := range event.Categories() {
//	    _ = bus.Subscribe(cat, event.LogHandler(log))
//	}
//	bus.Seal()
//
//	bus.Raise(event.CategoryConnectivity, event.Disconnected, nil)
package event
