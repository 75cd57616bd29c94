package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits, up to the publish timeout, for
// the broker to acknowledge it.
//
// QoS 0 is fire and forget, 1 is at least once and 2 is exactly once.
// Retained messages are replayed to new subscribers; use them for state
// (config, status), not for reports or writes.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	_, err := c.publish(topic, payload, qos, retained)
	return err
}

// PublishRetained publishes a retained message with the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishMessage publishes with the configured QoS and returns the
// packet's message id.
func (c *Client) PublishMessage(topic string, payload []byte) (uint16, error) {
	return c.publish(topic, payload, byte(c.cfg.QoS), false)
}

func (c *Client) publish(topic string, payload []byte, qos byte, retained bool) (uint16, error) {
	if topic == "" {
		return 0, ErrInvalidTopic
	}
	if qos > maxQoS {
		return 0, ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return 0, fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return 0, ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return 0, fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	var id uint16
	if pt, ok := token.(*pahomqtt.PublishToken); ok {
		id = pt.MessageID()
	}

	c.callbackMu.RLock()
	callback := c.onPublish
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(topic, id)
	}
	return id, nil
}
