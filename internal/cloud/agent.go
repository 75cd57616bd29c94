package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/switchnode/internal/device"
	"github.com/nerrad567/switchnode/internal/event"
	"github.com/nerrad567/switchnode/internal/infrastructure/mqtt"
)

// writeTimeout bounds the handling of one params/remote message.
const writeTimeout = 5 * time.Second

// MQTTClient is the subset of *mqtt.Client used by the agent.
type MQTTClient interface {
	PublishMessage(topic string, payload []byte) (uint16, error)
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
	Topics() mqtt.Topics
	QoS() byte
	SetOnConnect(func())
	SetOnDisconnect(func(err error))
	SetOnPublish(func(topic string, messageID uint16))
}

// EventRaiser publishes lifecycle events. *event.Bus satisfies it.
type EventRaiser interface {
	Raise(cat event.Category, id event.ID, payload any) int
}

// Logger is the logging interface used by the agent.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds the collaborators of an Agent.
type Options struct {
	// Client is the connected MQTT client.
	Client MQTTClient

	// Dispatcher applies writes received on params/remote.
	Dispatcher *device.Dispatcher

	// Events receives connectivity events. Optional.
	Events EventRaiser

	// Logger is optional.
	Logger Logger
}

// Agent connects the node to the cloud control plane over MQTT.
//
// It publishes the node configuration (retained) and every reported
// parameter value, applies writes arriving on params/remote with
// SourceCloud, and turns connection changes into connectivity events.
//
// Agent implements device.Reporter.
type Agent struct {
	client     MQTTClient
	dispatcher *device.Dispatcher
	events     EventRaiser
	logger     Logger

	// connected deduplicates Connected/Disconnected events across the
	// initial connect and paho's reconnect callbacks.
	connected atomic.Bool
	started   atomic.Bool

	// mu orders handler admission against Stop so wg.Add never races
	// wg.Wait.
	mu       sync.Mutex
	stopping bool

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewAgent creates an agent. Call Start to begin operation.
func NewAgent(opts Options) (*Agent, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	a := &Agent{
		client:     opts.Client,
		dispatcher: opts.Dispatcher,
		events:     opts.Events,
		logger:     opts.Logger,
	}
	if a.logger == nil {
		a.logger = noopLogger{}
	}
	a.ctx, a.ctxCancel = context.WithCancel(context.Background())

	a.client.SetOnConnect(a.handleConnect)
	a.client.SetOnDisconnect(a.handleDisconnect)
	a.client.SetOnPublish(a.handlePublish)
	return a, nil
}

// Start publishes the node configuration and subscribes to params/remote.
// The node must be sealed so the published configuration is final.
func (a *Agent) Start(ctx context.Context) error {
	if !a.dispatcher.Node().Sealed() {
		return device.ErrNotReady
	}
	if a.client.IsConnected() {
		a.handleConnect()
	}
	a.started.Store(true)

	if err := a.PublishConfig(); err != nil {
		return err
	}

	topic := a.client.Topics().ParamsRemote()
	if err := a.client.Subscribe(topic, a.client.QoS(), a.handleRemote); err != nil {
		return fmt.Errorf("subscribe to remote params: %w", err)
	}
	a.logger.Info("cloud agent started",
		"node_id", a.dispatcher.Node().ID(),
		"remote_topic", topic)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Stop unsubscribes from params/remote, cancels in-flight remote writes
// and waits for them to return. Messages the client still delivers after
// Stop are dropped.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.stopping = true
		a.mu.Unlock()

		a.started.Store(false)
		if a.client.IsConnected() {
			if err := a.client.Unsubscribe(a.client.Topics().ParamsRemote()); err != nil {
				a.logger.Warn("unsubscribing from remote params failed", "error", err)
			}
		}
		a.ctxCancel()
		a.wg.Wait()
		a.logger.Info("cloud agent stopped")
	})
}

// PublishConfig publishes the node description, with current values, as a
// retained message on the config topic.
func (a *Agent) PublishConfig() error {
	data, err := json.Marshal(a.dispatcher.Node().Config())
	if err != nil {
		return fmt.Errorf("encoding node config: %w", err)
	}
	if err := a.client.PublishRetained(a.client.Topics().Config(), data); err != nil {
		return fmt.Errorf("publish node config: %w", err)
	}
	return nil
}

// Report publishes r on params/local.
func (a *Agent) Report(_ context.Context, r device.Report) error {
	if !a.started.Load() {
		return ErrNotStarted
	}
	data, err := encodeReport(r)
	if err != nil {
		return err
	}
	if _, err := a.client.PublishMessage(a.client.Topics().ParamsLocal(), data); err != nil {
		return fmt.Errorf("publish report %s.%s: %w", r.Device, r.Param, err)
	}
	return nil
}

// HandleRemote applies every parameter in a params/remote payload as a
// cloud write. Each entry is dispatched on its own; failures are logged
// and joined into the returned error without stopping later entries.
func (a *Agent) HandleRemote(ctx context.Context, payload []byte) error {
	writes, err := decodeParams(payload)
	if err != nil {
		a.logger.Warn("ignoring remote params", "error", err)
		return err
	}

	node := a.dispatcher.Node()
	var errs []error
	for _, w := range writes {
		p, err := node.FindParam(w.Device, w.Param)
		if err != nil {
			errs = append(errs, a.remoteFailed(w, err))
			continue
		}
		v, err := device.Coerce(p.ValueType(), w.Raw)
		if err != nil {
			errs = append(errs, a.remoteFailed(w, err))
			continue
		}

		req := device.NewWriteRequest(w.Device, w.Param, v, device.SourceCloud)
		if _, err := a.dispatcher.Dispatch(ctx, req); err != nil && !errors.Is(err, device.ErrReportFailed) {
			errs = append(errs, a.remoteFailed(w, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Agent) remoteFailed(w paramWrite, err error) error {
	a.logger.Warn("remote write failed",
		"device", w.Device,
		"param", w.Param,
		"error", err)
	return fmt.Errorf("%s.%s: %w", w.Device, w.Param, err)
}

// handleRemote is the MQTT handler for params/remote.
func (a *Agent) handleRemote(_ string, payload []byte) error {
	a.mu.Lock()
	if a.stopping {
		a.mu.Unlock()
		return ErrStopped
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(a.ctx, writeTimeout)
	defer cancel()
	return a.HandleRemote(ctx, payload)
}

func (a *Agent) handleConnect() {
	if !a.connected.CompareAndSwap(false, true) {
		return
	}
	a.raise(event.Connected, nil)

	// Retained config is lost if the broker restarted without persistence.
	if a.started.Load() {
		if err := a.PublishConfig(); err != nil {
			a.logger.Warn("republishing node config failed", "error", err)
		}
	}
}

func (a *Agent) handleDisconnect(err error) {
	if !a.connected.CompareAndSwap(true, false) {
		return
	}
	a.logger.Debug("cloud connection lost", "error", err)
	a.raise(event.Disconnected, nil)
}

func (a *Agent) handlePublish(topic string, messageID uint16) {
	if topic != a.client.Topics().ParamsLocal() {
		return
	}
	a.raise(event.Published, event.PublishedPayload{MessageID: messageID})
}

func (a *Agent) raise(id event.ID, payload any) {
	if a.events == nil {
		return
	}
	a.events.Raise(event.CategoryConnectivity, id, payload)
}
