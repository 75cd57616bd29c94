package cloud

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/nerrad567/switchnode/internal/device"
	"github.com/nerrad567/switchnode/internal/event"
	"github.com/nerrad567/switchnode/internal/infrastructure/config"
	"github.com/nerrad567/switchnode/internal/infrastructure/mqtt"
	"github.com/nerrad567/switchnode/internal/infrastructure/mqtt/mqtttest"
	"github.com/nerrad567/switchnode/internal/topology"
)

// TestAgentOverBroker drives a write from a cloud-side client through an
// embedded broker and waits for the node's report.
func TestAgentOverBroker(t *testing.T) {
	broker := mqtttest.Start(t)

	cfg := config.Default()
	node, err := topology.Build(cfg.Node, cfg.Devices, topology.Options{Rand: rand.New(rand.NewPCG(3, 4))})
	if err != nil {
		t.Fatalf("topology.Build() error = %v", err)
	}

	nodeClient, err := mqtt.Connect(broker.Config("switchnode-agent-test"), node.ID())
	if err != nil {
		t.Fatalf("Connect(node) error = %v", err)
	}
	defer nodeClient.Close() //nolint:errcheck // Test cleanup

	bus := event.NewBus()
	connectivity := make(chan event.ID, 8)
	if err := bus.Subscribe(event.CategoryConnectivity, func(e event.Event) { connectivity <- e.ID }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	bus.Seal()

	reporters := device.Reporters{}
	dispatcher := device.NewDispatcher(node, device.ReporterFunc(func(ctx context.Context, r device.Report) error {
		return reporters.Report(ctx, r)
	}))
	agent, err := NewAgent(Options{Client: nodeClient, Dispatcher: dispatcher, Events: bus})
	if err != nil {
		t.Fatalf("NewAgent() error = %v", err)
	}
	reporters = append(reporters, agent)
	defer agent.Stop()

	if err := agent.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cloudClient, err := mqtt.Connect(broker.Config("switchnode-cloud-test"), "cloud")
	if err != nil {
		t.Fatalf("Connect(cloud) error = %v", err)
	}
	defer cloudClient.Close() //nolint:errcheck // Test cleanup

	topics := nodeClient.Topics()
	reports := make(chan string, 4)
	if err := cloudClient.Subscribe(topics.ParamsLocal(), 1, func(_ string, p []byte) error {
		reports <- string(p)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe(params/local) error = %v", err)
	}

	if err := cloudClient.Publish(topics.ParamsRemote(), []byte(`{"Switch":{"Power":true}}`), 1, false); err != nil {
		t.Fatalf("Publish(params/remote) error = %v", err)
	}

	select {
	case got := <-reports:
		if got != `{"Switch":{"Power":true}}` {
			t.Errorf("report = %s", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for report")
	}

	p, _ := node.FindParam("Switch", device.ParamPower)
	if !p.Value().AsBool() {
		t.Error("Switch Power not applied")
	}

	seen := map[event.ID]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[event.Connected] || !seen[event.Published] {
		select {
		case id := <-connectivity:
			seen[id] = true
		case <-deadline:
			t.Fatalf("connectivity events = %v, want connected and published", seen)
		}
	}
}
